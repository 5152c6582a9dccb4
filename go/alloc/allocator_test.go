package alloc

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estuary/epochlog/go/device"
	"github.com/estuary/epochlog/go/epoch"
)

func newTestAllocator(t *testing.T, pageSize, pageCount int, cb func(int64)) *Allocator {
	t.Helper()
	d, err := device.NewFileDevice(filepath.Join(t.TempDir(), "alloc.data"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	a, err := New(Config{
		PageSize:      pageSize,
		PageCount:     pageCount,
		Device:        d,
		EpochManager:  epoch.NewManager(),
		FlushWorkers:  2,
		FlushCallback: cb,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestTryAllocateReturnsIncreasingAddresses(t *testing.T) {
	var a = newTestAllocator(t, 256, 4, nil)

	addr1, ok := a.TryAllocate(16)
	require.True(t, ok)
	require.Equal(t, FirstValidAddress, addr1)

	addr2, ok := a.TryAllocate(32)
	require.True(t, ok)
	require.Equal(t, addr1+16, addr2)
}

func TestTryAllocateFailsOnPageStraddle(t *testing.T) {
	var a = newTestAllocator(t, 64, 4, nil)

	// Consume all but 8 bytes of the first page.
	_, ok := a.TryAllocate(56)
	require.True(t, ok)

	// This allocation would straddle into the next page; must fail.
	_, ok = a.TryAllocate(16)
	require.False(t, ok)

	// The retry lands cleanly at the start of page 2.
	addr, ok := a.TryAllocate(16)
	require.True(t, ok)
	require.Equal(t, FirstValidAddress+64, addr)
}

func TestGetPhysicalAddressRoundTrip(t *testing.T) {
	var a = newTestAllocator(t, 256, 4, nil)

	addr, ok := a.TryAllocate(8)
	require.True(t, ok)

	buf, err := a.GetPhysicalAddress(addr)
	require.NoError(t, err)
	copy(buf, []byte("deadbeef"))

	buf2, err := a.GetPhysicalAddress(addr)
	require.NoError(t, err)
	require.Equal(t, []byte("deadbeef"), buf2[:8])
}

func TestFlushCallbackFiresOnShiftReadOnlyToTail(t *testing.T) {
	var flushed = make(chan int64, 8)
	var a = newTestAllocator(t, 256, 4, func(v int64) { flushed <- v })

	_, ok := a.TryAllocate(16)
	require.True(t, ok)

	didShift, tail := a.ShiftReadOnlyToTail()
	require.True(t, didShift)

	select {
	case v := <-flushed:
		require.GreaterOrEqual(t, v, tail)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush callback")
	}
}

func TestBackpressureUntilReclaimed(t *testing.T) {
	var a = newTestAllocator(t, 64, 2, nil)

	// Fill page 0 and page 1 exactly, which closes and queues both for flush.
	_, ok := a.TryAllocate(64)
	require.True(t, ok)
	_, ok = a.TryAllocate(64)
	require.True(t, ok)

	// Page 2 maps to slot 0, currently occupied by page 0 which has not
	// yet been flushed-and-reclaimed: allocation must fail (back-pressure).
	require.Eventually(t, func() bool {
		_, ok := a.TryAllocate(8)
		return !ok
	}, time.Second, time.Millisecond, "expected back-pressure before page 0 is reclaimed")

	// Wait for page 0 to flush, then shift begin past it and let the
	// epoch manager drain the reclamation action.
	require.Eventually(t, func() bool { return a.FlushedUntilAddress() >= FirstValidAddress+64 }, 2*time.Second, time.Millisecond)
	a.ShiftBeginAddress(FirstValidAddress + 64)

	th, err := a.epochMgr.Acquire()
	require.NoError(t, err)
	th.Resume()
	th.ProtectAndDrain()
	th.Suspend()
	th.Release()

	require.Eventually(t, func() bool {
		_, ok := a.TryAllocate(8)
		return ok
	}, time.Second, time.Millisecond, "expected page 0 to become reusable after reclamation")
}

func TestConcurrentAllocationsNeverOverlap(t *testing.T) {
	var a = newTestAllocator(t, 4096, 8, nil)

	var seen sync.Map
	var wg sync.WaitGroup
	var failures atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				addr, ok := a.TryAllocate(16)
				if !ok {
					failures.Add(1)
					continue
				}
				if _, dup := seen.LoadOrStore(addr, true); dup {
					t.Errorf("address %d allocated twice", addr)
				}
			}
		}()
	}
	wg.Wait()
}

func TestRestoreHybridLogSeedsWatermarks(t *testing.T) {
	var a = newTestAllocator(t, 256, 4, nil)
	a.RestoreHybridLog(1024, 1024, 512)

	require.Equal(t, int64(1024), a.GetTailAddress())
	require.Equal(t, int64(512), a.BeginAddress())
	require.Equal(t, int64(1024), a.FlushedUntilAddress())

	_, err := a.GetPhysicalAddress(600)
	require.Error(t, err, "no page contents survive a restart; reads must fall back to the device")
}

func TestShiftReadOnlyToTailNoOpWhenNothingOpen(t *testing.T) {
	var a = newTestAllocator(t, 256, 4, nil)
	didShift, _ := a.ShiftReadOnlyToTail()
	require.False(t, didShift)
}
