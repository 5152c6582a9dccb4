package epoch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResumeSuspendNesting(t *testing.T) {
	var m = NewManager()
	th, err := m.Acquire()
	require.NoError(t, err)
	defer th.Release()

	th.Resume()
	th.Resume() // nested
	require.Equal(t, int32(2), m.entries[th.idx].nested)
	require.NotZero(t, m.entries[th.idx].localEpoch.Load())

	th.Suspend()
	require.NotZero(t, m.entries[th.idx].localEpoch.Load(), "still nested once, should remain protected")

	th.Suspend()
	require.Zero(t, m.entries[th.idx].localEpoch.Load())
}

func TestBumpEpochDeferredUntilDrained(t *testing.T) {
	var m = NewManager()
	th, err := m.Acquire()
	require.NoError(t, err)
	defer th.Release()

	th.Resume()
	var ran atomic.Bool
	m.BumpEpoch(func() { ran.Store(true) })

	// th is still resumed in the epoch the action was retired in, so the
	// action must not have run yet.
	require.False(t, ran.Load())

	th.Suspend()
	th.Resume()
	th.ProtectAndDrain()
	require.True(t, ran.Load())
	th.Suspend()
}

func TestAcquireExhaustion(t *testing.T) {
	var m = NewManager()
	var threads []*Thread
	for i := 0; i < MaxThreads; i++ {
		th, err := m.Acquire()
		require.NoError(t, err)
		threads = append(threads, th)
	}
	_, err := m.Acquire()
	require.Error(t, err)

	for _, th := range threads {
		th.Release()
	}
	_, err = m.Acquire()
	require.NoError(t, err)
}

func TestConcurrentResumeSuspendIsRaceFree(t *testing.T) {
	var m = NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th, err := m.Acquire()
			require.NoError(t, err)
			defer th.Release()
			for j := 0; j < 1000; j++ {
				th.Resume()
				th.ProtectAndDrain()
				th.Suspend()
			}
		}()
	}
	wg.Wait()
}
