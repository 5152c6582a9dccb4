package main

import (
	"context"
	"fmt"

	"github.com/estuary/epochlog/go/rpc"
)

type cmdStat struct {
	Address string `long:"address" env:"ADDRESS" default:"localhost:8420" description:"Address of a running logctl serve instance"`
}

func (cmd cmdStat) Execute(_ []string) error {
	client, closeFn, err := dialClient(cmd.Address)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := client.Stat(context.Background(), &rpc.StatRequest{})
	if err != nil {
		return err
	}

	fmt.Printf("begin               %s\n", green(resp.BeginAddress))
	fmt.Printf("committedUntil      %s\n", green(resp.CommittedUntilAddress))
	fmt.Printf("flushedUntil        %s\n", green(resp.FlushedUntilAddress))
	fmt.Printf("tail                %s\n", green(resp.TailAddress))
	return nil
}
