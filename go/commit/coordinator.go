package commit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/estuary/epochlog/go/ops"
)

// ErrDisposed is the terminal error every pending Future resolves with once
// Dispose is called.
var ErrDisposed = fmt.Errorf("commit: log disposed")

// BeginAddressSource is the minimal view of the paged allocator the
// Coordinator needs: the current logical begin address.
type BeginAddressSource interface {
	BeginAddress() int64
}

// Coordinator serializes commit-metadata writes, advances the committed
// watermarks, and signals waiters via a Future swapped atomically on each
// commit.
type Coordinator struct {
	manager Manager
	begin   BeginAddressSource
	name    string

	mu                 sync.Mutex // guards metadata writes and watermark publication
	committedBeginAddr atomic.Int64
	committedUntilAddr atomic.Int64
	future             atomic.Pointer[Future]
	disposed           atomic.Bool
}

// NewCoordinator constructs a Coordinator. Callers should call Restore
// before accepting traffic if metadata already exists. name labels the
// commit-latency metric.
func NewCoordinator(manager Manager, begin BeginAddressSource, name string) *Coordinator {
	var c = &Coordinator{manager: manager, begin: begin, name: name}
	c.future.Store(newFuture())
	return c
}

// Restore seeds the committed watermarks from a previously persisted
// recovery record.
func (c *Coordinator) Restore(record RecoveryRecord) {
	c.committedBeginAddr.Store(record.BeginAddress)
	c.committedUntilAddr.Store(record.FlushedUntilAddress)
}

// CommittedBeginAddress returns the oldest byte guaranteed retained across
// restart.
func (c *Coordinator) CommittedBeginAddress() int64 { return c.committedBeginAddr.Load() }

// CommittedUntilAddress returns the exclusive upper bound of durable bytes.
func (c *Coordinator) CommittedUntilAddress() int64 { return c.committedUntilAddr.Load() }

// CurrentFuture returns the Future that will resolve on the next commit.
// Callers must load this *before* the operation whose failure they intend
// to wait on, per the subscribe-before-check contract.
func (c *Coordinator) CurrentFuture() *Future { return c.future.Load() }

// OnFlush is the callback the allocator invokes on each durable flush
// completion; it is also the implementation behind explicit commit
// requests.
func (c *Coordinator) OnFlush(ctx context.Context, flushAddress int64) error {
	if c.disposed.Load() {
		return ErrDisposed
	}

	var beginAddress = c.begin.BeginAddress()

	c.mu.Lock()

	if beginAddress <= c.committedBeginAddr.Load() && flushAddress <= c.committedUntilAddr.Load() {
		c.mu.Unlock()
		return nil // idempotent no-op: nothing advanced.
	}

	var newBegin = max64(beginAddress, c.committedBeginAddr.Load())
	var newUntil = max64(flushAddress, c.committedUntilAddr.Load())

	var started = time.Now()
	var err = c.manager.Commit(ctx, newBegin, newUntil)
	ops.CommitLatencySeconds.WithLabelValues(c.name).Observe(time.Since(started).Seconds())
	if err != nil {
		c.mu.Unlock()
		log.WithError(err).Error("commit: persisting recovery record failed")
		return err
	}

	c.committedBeginAddr.Store(newBegin)
	c.committedUntilAddr.Store(newUntil)

	var fulfilled = c.future.Load()
	c.future.Store(newFuture())

	c.mu.Unlock()

	fulfilled.complete(newUntil, nil)
	log.WithFields(log.Fields{"begin": newBegin, "until": newUntil}).Debug("commit: advanced watermarks")
	return nil
}

// Dispose completes the outstanding future with a terminal error so every
// waiter unblocks. Subsequent OnFlush calls fail with ErrDisposed.
func (c *Coordinator) Dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	var fulfilled = c.future.Load()
	c.mu.Unlock()

	fulfilled.complete(0, ErrDisposed)
	log.Warn("commit: coordinator disposed, pending waiters released with error")
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
