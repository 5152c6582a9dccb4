// Package epoch implements epoch-based reclamation: a lock-free mechanism
// for deferring cleanup of shared memory until every goroutine that might
// still be observing it has left the epoch in which it was retired.
package epoch

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// MaxThreads bounds the number of concurrently registered threads. Acquire
// returns an error once this many threads are registered and none have been
// released.
const MaxThreads = 256

type entry struct {
	inUse      atomic.Bool
	localEpoch atomic.Int64 // 0 means not resumed
	nested     int32        // owned by the registered thread only
}

type deferredAction struct {
	epoch  int64
	action func()
}

// Manager coordinates a global epoch counter and the table of registered
// threads used to determine when retired memory is safe to reclaim.
type Manager struct {
	currentEpoch atomic.Int64
	entries      [MaxThreads]entry

	mu     sync.Mutex
	drain  []deferredAction
	safe   atomic.Int64 // last computed safe-to-reclaim epoch, for observability
}

// NewManager returns a Manager with its global epoch initialized to 1.
// Epoch 0 is reserved to mean "not resumed".
func NewManager() *Manager {
	var m = &Manager{}
	m.currentEpoch.Store(1)
	return m
}

// Thread is a handle a single goroutine uses to resume/suspend participation
// in the protected region. A Thread must not be shared between goroutines.
type Thread struct {
	mgr *Manager
	idx int
}

// ErrNoFreeThreads is returned by Acquire when the thread table is full.
type ErrNoFreeThreads struct{}

func (ErrNoFreeThreads) Error() string { return "epoch: no free thread slots" }

// Acquire claims a slot in the thread table for the calling goroutine.
// The returned Thread should be reused for the lifetime of that goroutine
// and released with Release when the goroutine exits.
func (m *Manager) Acquire() (*Thread, error) {
	for i := range m.entries {
		if m.entries[i].inUse.CompareAndSwap(false, true) {
			m.entries[i].localEpoch.Store(0)
			m.entries[i].nested = 0
			return &Thread{mgr: m, idx: i}, nil
		}
	}
	return nil, ErrNoFreeThreads{}
}

// Release gives up the thread's slot. The thread must be fully suspended.
func (t *Thread) Release() {
	t.mgr.entries[t.idx].localEpoch.Store(0)
	t.mgr.entries[t.idx].inUse.Store(false)
}

// Resume marks the thread as present in the current global epoch. Resume
// nests: a thread may call Resume multiple times and must call Suspend an
// equal number of times before it is considered absent again.
func (t *Thread) Resume() {
	var e = &t.mgr.entries[t.idx]
	e.nested++
	if e.nested > 1 {
		return
	}
	// Publish the current epoch, re-reading until stable so a concurrent
	// BumpEpoch can't leave us protecting a stale epoch that already drained.
	for {
		var cur = t.mgr.currentEpoch.Load()
		e.localEpoch.Store(cur)
		if t.mgr.currentEpoch.Load() == cur {
			return
		}
	}
}

// Suspend marks the thread as absent once its nesting count reaches zero.
func (t *Thread) Suspend() {
	var e = &t.mgr.entries[t.idx]
	e.nested--
	if e.nested == 0 {
		e.localEpoch.Store(0)
	}
}

// ProtectAndDrain must be called while the thread is resumed. It runs any
// deferred action whose retirement epoch is behind every currently
// protected thread's epoch.
func (t *Thread) ProtectAndDrain() {
	t.mgr.drainUpTo(t.mgr.computeSafeEpoch())
}

// computeSafeEpoch returns the oldest epoch any resumed thread still
// protects, or the current epoch if nobody is resumed.
func (m *Manager) computeSafeEpoch() int64 {
	var safe = m.currentEpoch.Load()
	for i := range m.entries {
		if !m.entries[i].inUse.Load() {
			continue
		}
		if le := m.entries[i].localEpoch.Load(); le != 0 && le < safe {
			safe = le
		}
	}
	return safe
}

func (m *Manager) drainUpTo(safe int64) {
	m.mu.Lock()
	var remaining = m.drain[:0]
	var ran []func()
	for _, d := range m.drain {
		if d.epoch < safe {
			ran = append(ran, d.action)
		} else {
			remaining = append(remaining, d)
		}
	}
	m.drain = remaining
	m.safe.Store(safe)
	m.mu.Unlock()

	for _, action := range ran {
		action()
	}
	if len(ran) > 0 {
		log.WithField("count", len(ran)).WithField("safeEpoch", safe).Debug("epoch: drained deferred actions")
	}
}

// BumpEpoch advances the global epoch and defers action to run once every
// thread currently resumed has left the epoch that was current at the time
// of this call.
func (m *Manager) BumpEpoch(action func()) {
	var current = m.currentEpoch.Load()
	m.mu.Lock()
	m.drain = append(m.drain, deferredAction{epoch: current, action: action})
	m.mu.Unlock()

	m.currentEpoch.Add(1)
	log.WithField("epoch", current+1).Debug("epoch: bumped")

	// Best-effort immediate drain for the common case where nobody is
	// currently resumed; callers that need a guaranteed drain call
	// ProtectAndDrain from within their own resumed scope.
	m.drainUpTo(m.computeSafeEpoch())
}

// CurrentEpoch returns the current global epoch, for diagnostics.
func (m *Manager) CurrentEpoch() int64 { return m.currentEpoch.Load() }
