package commit

import (
	"context"
	"sync"
)

// Future is a single-slot completion handle fulfilled when the next commit
// advances CommittedUntilAddress. Producers load the Future *before*
// attempting the operation whose failure they will wait on, then await it —
// the "subscribe before check" idiom that prevents a commit from
// completing, and thus being missed, between the check and the subscribe.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value int64
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(value int64, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
	})
}

// Wait blocks until the future is resolved or ctx is done, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) (int64, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Done exposes the underlying channel for use in select statements.
func (f *Future) Done() <-chan struct{} { return f.done }
