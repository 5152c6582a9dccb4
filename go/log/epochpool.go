package log

import "github.com/estuary/epochlog/go/epoch"

// epochThreadPool recycles epoch.Thread handles across the arbitrary,
// short-lived goroutines that call into the log. epoch.Thread is bounded by
// epoch.MaxThreads and must never be used by two goroutines at once; a
// buffered channel gives each caller exclusive, non-blocking access to a
// handle for the duration of one call without requiring every producer
// goroutine to register its own permanent slot, and unlike sync.Pool never
// silently drops a handle between GC cycles (which would leak a thread
// table slot forever, since nothing would call Release on it). No library
// in the example corpus offers goroutine-scoped pooling, so this is the one
// place the log core reaches for a standard-library primitive over a
// third-party one.
type epochThreadPool struct {
	mgr  *epoch.Manager
	free chan *epoch.Thread
}

func newEpochThreadPool(mgr *epoch.Manager) *epochThreadPool {
	return &epochThreadPool{mgr: mgr, free: make(chan *epoch.Thread, epoch.MaxThreads)}
}

func (p *epochThreadPool) acquire() (*epoch.Thread, error) {
	select {
	case th := <-p.free:
		return th, nil
	default:
		return p.mgr.Acquire()
	}
}

func (p *epochThreadPool) release(th *epoch.Thread) {
	select {
	case p.free <- th:
	default:
		th.Release()
	}
}
