package main

import (
	"context"
	"fmt"
	"os"

	"github.com/estuary/epochlog/go/rpc"
)

type cmdRead struct {
	Address         string `long:"address" env:"ADDRESS" default:"localhost:8420" description:"Address of a running logctl serve instance"`
	LogicalAddress  int64  `long:"logical-address" required:"true" description:"Logical address of the entry to read"`
	EstimatedLength int32  `long:"estimated-length" default:"0" description:"Hint for the entry's payload length; 0 is a safe but slower default"`
}

func (cmd cmdRead) Execute(_ []string) error {
	client, closeFn, err := dialClient(cmd.Address)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := client.Read(context.Background(), &rpc.ReadRequest{Address: cmd.LogicalAddress, EstimatedLength: cmd.EstimatedLength})
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err))
		return err
	}
	os.Stdout.Write(resp.Payload)
	return nil
}
