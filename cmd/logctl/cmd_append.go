package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/estuary/epochlog/go/rpc"
)

type cmdAppend struct {
	Address string `long:"address" env:"ADDRESS" default:"localhost:8420" description:"Address of a running logctl serve instance"`
}

func (cmd cmdAppend) Execute(_ []string) error {
	var payload, err = io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	client, closeFn, err := dialClient(cmd.Address)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := client.Append(context.Background(), &rpc.AppendRequest{Payloads: [][]byte{payload}})
	if err != nil {
		return err
	}
	fmt.Println(green(resp.Address))
	return nil
}
