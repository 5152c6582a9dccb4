package main

import (
	"context"
	"fmt"

	"github.com/estuary/epochlog/go/rpc"
)

type cmdTruncate struct {
	Address        string `long:"address" env:"ADDRESS" default:"localhost:8420" description:"Address of a running logctl serve instance"`
	LogicalAddress int64  `long:"logical-address" required:"true" description:"New begin address; bytes below it become reclaimable"`
}

func (cmd cmdTruncate) Execute(_ []string) error {
	client, closeFn, err := dialClient(cmd.Address)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := client.Truncate(context.Background(), &rpc.TruncateRequest{Address: cmd.LogicalAddress}); err != nil {
		return err
	}
	fmt.Println(green("truncated"))
	return nil
}
