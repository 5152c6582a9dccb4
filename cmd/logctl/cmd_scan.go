package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/estuary/epochlog/go/rpc"
)

type cmdScan struct {
	Address          string `long:"address" env:"ADDRESS" default:"localhost:8420" description:"Address of a running logctl serve instance"`
	Begin            int64  `long:"begin" required:"true" description:"Inclusive start of the scanned range"`
	End              int64  `long:"end" default:"0" description:"Exclusive end of the scanned range; 0 scans up to the gating watermark"`
	DoublePage       bool   `long:"double-page" description:"Prefetch the next page while the caller consumes the current one"`
	AllowUncommitted bool   `long:"allow-uncommitted" description:"Observe entries flushed to the device but not yet committed"`
}

func (cmd cmdScan) Execute(_ []string) error {
	client, closeFn, err := dialClient(cmd.Address)
	if err != nil {
		return err
	}
	defer closeFn()

	var buffering = rpc.Buffering_SINGLE_PAGE
	if cmd.DoublePage {
		buffering = rpc.Buffering_DOUBLE_PAGE
	}

	stream, err := client.Scan(context.Background(), &rpc.ScanRequest{
		Begin: cmd.Begin, End: cmd.End, Buffering: buffering, AllowUncommitted: cmd.AllowUncommitted,
	})
	if err != nil {
		return err
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%d\t%s\n", resp.Address, resp.Payload)
	}
}
