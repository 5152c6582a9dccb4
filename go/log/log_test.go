package log

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estuary/epochlog/go/commit"
	"github.com/estuary/epochlog/go/device"
)

type testPaths struct {
	dataPath string
	dbPath   string
}

func newPaths(t *testing.T) testPaths {
	t.Helper()
	var dir = t.TempDir()
	return testPaths{dataPath: filepath.Join(dir, "log.data"), dbPath: filepath.Join(dir, "commits.db")}
}

func openTestLog(t *testing.T, p testPaths, name string, pageSize, pageCount int) *Log {
	t.Helper()
	d, err := device.NewFileDevice(p.dataPath)
	require.NoError(t, err)
	mgr, err := commit.OpenSQLiteCommitManager(p.dbPath)
	require.NoError(t, err)

	l, err := Open(Config{
		Name:          name,
		PageSize:      pageSize,
		PageCount:     pageCount,
		FlushWorkers:  2,
		Device:        d,
		CommitManager: mgr,
	})
	require.NoError(t, err)
	return l
}

func TestSingleAppendAndCommitRoundTrip(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "single", 4096, 4)
	defer l.Dispose()

	var payload = []byte("hello, epochlog")
	addr, err := l.Enqueue(payload)
	require.NoError(t, err)

	_, err = l.Commit(ctx, true)
	require.NoError(t, err)

	got, length, err := l.ReadAsync(ctx, addr, len(payload))
	require.NoError(t, err)
	require.Equal(t, len(payload), length)
	require.Equal(t, payload, got)
}

func TestBatchAppendIsAtomicAndConsecutive(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "batch", 4096, 4)
	defer l.Dispose()

	var payloads = []Entry{[]byte("aaa"), []byte("bbbbb"), []byte("cc")}
	addr, allocLen, err := l.EnqueueBatch(payloads)
	require.NoError(t, err)
	require.Equal(t, batchLen(payloads), allocLen)

	_, err = l.Commit(ctx, true)
	require.NoError(t, err)

	var cursor = addr
	for _, want := range payloads {
		got, length, err := l.ReadAsync(ctx, cursor, len(want))
		require.NoError(t, err)
		require.Equal(t, want, got)
		cursor += int64(frameLen(length))
	}
	require.Equal(t, addr+int64(allocLen), cursor)
}

func TestProducerBackpressureUntilTruncateReclaims(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "backpressure", 64, 2)
	defer l.Dispose()

	// Fill page 0 and page 1 exactly.
	_, ok, err := l.TryAppend(make([]byte, 60))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = l.TryAppend(make([]byte, 60))
	require.NoError(t, err)
	require.True(t, ok)

	// Page 2 maps back onto page 0's slot, which has not been reclaimed yet.
	require.Eventually(t, func() bool {
		_, ok, _ := l.TryAppend(make([]byte, 8))
		return !ok
	}, time.Second, time.Millisecond)

	_, err = l.Commit(ctx, true)
	require.NoError(t, err)
	require.NoError(t, l.TruncateUntil(ctx, l.CommittedUntilAddress()))

	require.Eventually(t, func() bool {
		_, ok, _ := l.TryAppend(make([]byte, 8))
		return ok
	}, 2*time.Second, time.Millisecond, "expected capacity to free up after truncate reclaims flushed pages")
}

func TestEnqueueAsyncWakesOnCommitAfterTruncate(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "async-wake", 64, 2)
	defer l.Dispose()

	_, ok, err := l.TryAppend(make([]byte, 60))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = l.TryAppend(make([]byte, 60))
	require.NoError(t, err)
	require.True(t, ok)

	var resultCh = make(chan error, 1)
	go func() {
		var waitCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := l.EnqueueAsync(waitCtx, make([]byte, 8))
		resultCh <- err
	}()

	// Give the goroutine a moment to block on the first failed attempt's
	// future subscription before we free capacity.
	time.Sleep(20 * time.Millisecond)

	_, err = l.Commit(ctx, true)
	require.NoError(t, err)
	require.NoError(t, l.TruncateUntil(ctx, l.CommittedUntilAddress()))

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("EnqueueAsync never woke up after truncate freed capacity")
	}
}

func TestTruncateUntilHidesOlderEntries(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "truncate", 4096, 4)
	defer l.Dispose()

	addr1, err := l.Enqueue([]byte("first"))
	require.NoError(t, err)
	addr2, err := l.Enqueue([]byte("second"))
	require.NoError(t, err)

	_, err = l.Commit(ctx, true)
	require.NoError(t, err)
	require.NoError(t, l.TruncateUntil(ctx, addr2))

	_, _, err = l.ReadAsync(ctx, addr1, 0)
	require.ErrorIs(t, err, ErrOutOfRange)

	got, _, err := l.ReadAsync(ctx, addr2, len("second"))
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestRestartRecoversCommittedEntries(t *testing.T) {
	var ctx = context.Background()
	var paths = newPaths(t)

	var l = openTestLog(t, paths, "restart", 4096, 4)
	var addrs []int64
	var payloads = [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, p := range payloads {
		addr, err := l.Enqueue(p)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	_, err := l.Commit(ctx, true)
	require.NoError(t, err)

	var wantBegin = l.BeginAddress()
	var wantUntil = l.CommittedUntilAddress()
	require.NoError(t, l.Dispose())

	var reopened = openTestLog(t, paths, "restart", 4096, 4)
	defer reopened.Dispose()

	require.Equal(t, wantBegin, reopened.BeginAddress())
	require.Equal(t, wantUntil, reopened.CommittedUntilAddress())

	for i, addr := range addrs {
		got, _, err := reopened.ReadAsync(ctx, addr, len(payloads[i]))
		require.NoError(t, err)
		require.Equal(t, payloads[i], got)
	}
}

func TestScanYieldsEntriesInOrder(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "scan", 4096, 4)
	defer l.Dispose()

	var payloads = [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	var begin = l.TailAddress()
	for _, p := range payloads {
		_, err := l.Enqueue(p)
		require.NoError(t, err)
	}
	var end, err = l.Commit(ctx, true)
	require.NoError(t, err)

	scanner, err := l.Scan(ctx, begin, end, SinglePage)
	require.NoError(t, err)
	defer scanner.Close()

	var got [][]byte
	for scanner.Scan(ctx) {
		got = append(got, append([]byte(nil), scanner.Entry()...))
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, payloads, got)
}

func TestScanDoublePageBuffering(t *testing.T) {
	var ctx = context.Background()
	var l = openTestLog(t, newPaths(t), "scan-double", 64, 4)
	defer l.Dispose()

	var begin = l.TailAddress()
	for i := 0; i < 6; i++ {
		_, err := l.Enqueue(make([]byte, 20))
		require.NoError(t, err)
	}
	var end, err = l.Commit(ctx, true)
	require.NoError(t, err)

	scanner, err := l.Scan(ctx, begin, end, DoublePage)
	require.NoError(t, err)
	defer scanner.Close()

	var count int
	for scanner.Scan(ctx) {
		count++
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, 6, count)
}
