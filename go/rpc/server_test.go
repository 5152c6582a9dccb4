package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/estuary/epochlog/go/commit"
	"github.com/estuary/epochlog/go/device"
	"github.com/estuary/epochlog/go/log"
)

func dialTestServer(t *testing.T) LogServiceClient {
	t.Helper()
	var ctx = context.Background()
	var dir = t.TempDir()

	d, err := device.NewFileDevice(filepath.Join(dir, "log.data"))
	require.NoError(t, err)
	mgr, err := commit.OpenSQLiteCommitManager(filepath.Join(dir, "commits.db"))
	require.NoError(t, err)
	l, err := log.Open(log.Config{Name: "rpc-test", PageSize: 4096, PageCount: 4, FlushWorkers: 2, Device: d, CommitManager: mgr})
	require.NoError(t, err)
	t.Cleanup(func() { l.Dispose() })

	const bufSize = 1024 * 1024
	var lis = bufconn.Listen(bufSize)
	var bufDialer = func(context.Context, string) (net.Conn, error) { return lis.Dial() }

	var s = NewGRPCServer(NewServer(l))
	go s.Serve(lis)
	t.Cleanup(s.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(bufDialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_ = ctx
	return NewLogServiceClient(conn)
}

func TestAppendReadCommitRoundTripOverGRPC(t *testing.T) {
	var ctx = context.Background()
	var client = dialTestServer(t)

	appendResp, err := client.Append(ctx, &AppendRequest{Payloads: [][]byte{[]byte("hello over grpc")}})
	require.NoError(t, err)

	commitResp, err := client.Commit(ctx, &CommitRequest{SpinWait: true})
	require.NoError(t, err)
	require.GreaterOrEqual(t, commitResp.TailAddress, appendResp.Address)

	readResp, err := client.Read(ctx, &ReadRequest{Address: appendResp.Address, EstimatedLength: int32(len("hello over grpc"))})
	require.NoError(t, err)
	require.Equal(t, []byte("hello over grpc"), readResp.Payload)
}

func TestStatReflectsWatermarks(t *testing.T) {
	var ctx = context.Background()
	var client = dialTestServer(t)

	_, err := client.Append(ctx, &AppendRequest{Payloads: [][]byte{[]byte("abc")}})
	require.NoError(t, err)
	_, err = client.Commit(ctx, &CommitRequest{SpinWait: true})
	require.NoError(t, err)

	stat, err := client.Stat(ctx, &StatRequest{})
	require.NoError(t, err)
	require.Greater(t, stat.CommittedUntilAddress, stat.BeginAddress)
	require.Equal(t, stat.TailAddress, stat.CommittedUntilAddress)
}

func TestScanStreamsEntriesOverGRPC(t *testing.T) {
	var ctx = context.Background()
	var client = dialTestServer(t)

	statBefore, err := client.Stat(ctx, &StatRequest{})
	require.NoError(t, err)

	var want = [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, p := range want {
		_, err := client.Append(ctx, &AppendRequest{Payloads: [][]byte{p}})
		require.NoError(t, err)
	}
	commitResp, err := client.Commit(ctx, &CommitRequest{SpinWait: true})
	require.NoError(t, err)

	stream, err := client.Scan(ctx, &ScanRequest{Begin: statBefore.TailAddress, End: commitResp.TailAddress})
	require.NoError(t, err)

	var got [][]byte
	for {
		resp, err := stream.Recv()
		if err != nil {
			break
		}
		got = append(got, resp.Payload)
	}
	require.Equal(t, want, got)
}

func TestTruncateHidesOlderEntriesOverGRPC(t *testing.T) {
	var ctx = context.Background()
	var client = dialTestServer(t)

	first, err := client.Append(ctx, &AppendRequest{Payloads: [][]byte{[]byte("first")}})
	require.NoError(t, err)
	second, err := client.Append(ctx, &AppendRequest{Payloads: [][]byte{[]byte("second")}})
	require.NoError(t, err)
	_, err = client.Commit(ctx, &CommitRequest{SpinWait: true})
	require.NoError(t, err)

	_, err = client.Truncate(ctx, &TruncateRequest{Address: second.Address})
	require.NoError(t, err)

	_, err = client.Read(ctx, &ReadRequest{Address: first.Address})
	require.Error(t, err)
}
