package main

import (
	"fmt"

	"github.com/fatih/color"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/estuary/epochlog/go/rpc"
)

var green = color.New(color.FgGreen).SprintFunc()
var red = color.New(color.FgRed).SprintFunc()

func dialClient(address string) (rpc.LogServiceClient, func() error, error) {
	var conn, err = grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	return rpc.NewLogServiceClient(conn), conn.Close, nil
}
