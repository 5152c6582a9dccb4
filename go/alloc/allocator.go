// Package alloc implements the paged allocator: a lock-free bump-pointer
// allocator over a ring of fixed-size pages, with epoch-protected page
// reuse and asynchronous flush to a device.Device.
package alloc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/estuary/epochlog/go/device"
	"github.com/estuary/epochlog/go/epoch"
	"github.com/estuary/epochlog/go/ops"
)

// FirstValidAddress is the smallest logical address the allocator ever
// hands out. Address 0 is reserved as TryAllocate's failure sentinel, so
// the usable address space begins a page-alignment boundary above it.
const FirstValidAddress int64 = 64

type pageState int32

const (
	pageFree pageState = iota
	pageOpen
	pageClosed
	pageFlushed
)

type page struct {
	buf         []byte
	ownerPage   atomic.Int64 // logical page index (addr/PageSize) occupying this slot
	state       atomic.Int32
	reclaimable atomic.Bool
	validLen    atomic.Int32
}

type flushJob struct {
	slot     int
	pageIdx  int64
	validLen int
}

// Config bundles the parameters needed to construct an Allocator.
type Config struct {
	PageSize     int
	PageCount    int
	Device       device.Device
	EpochManager *epoch.Manager
	FlushWorkers int
	// FlushCallback is invoked from a flush worker goroutine on every
	// durable flush completion, with the allocator's current
	// FlushedUntilAddress after applying the monotonic clamp.
	FlushCallback func(flushedUntil int64)
	// Name labels this allocator's metrics; defaults to "default".
	Name string
}

// Allocator is the concrete paged allocator the log core consumes.
type Allocator struct {
	name      string
	pageSize  int
	pageCount int
	pages     []*page
	device    device.Device
	epochMgr  *epoch.Manager
	maintThr  *epoch.Thread
	flushCB   func(flushedUntil int64)

	tailAddress         atomic.Int64
	readOnlyAddress     atomic.Int64
	beginAddress        atomic.Int64
	flushedUntilAddress atomic.Int64

	// flushMu guards the contiguity bookkeeping below: flush jobs complete
	// out of order across FlushWorkers goroutines, so flushedUntilAddress
	// may only advance to the end of the highest contiguously-flushed page,
	// never past a gap left by a still-in-flight earlier page.
	flushMu          sync.Mutex
	nextFlushPageIdx int64
	pendingFlush     map[int64]int64 // pageIdx -> flushed-until address, awaiting contiguity

	flushCh chan flushJob
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// New constructs an Allocator with a fresh, empty address space starting at
// FirstValidAddress.
func New(cfg Config) (*Allocator, error) {
	if cfg.PageSize <= 0 || cfg.PageSize%4 != 0 {
		return nil, fmt.Errorf("alloc: PageSize must be a positive multiple of 4")
	}
	if cfg.PageCount < 2 {
		return nil, fmt.Errorf("alloc: PageCount must be at least 2")
	}
	if cfg.FlushWorkers <= 0 {
		cfg.FlushWorkers = 2
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	var maintThr, err = cfg.EpochManager.Acquire()
	if err != nil {
		return nil, fmt.Errorf("alloc: acquiring maintenance epoch thread: %w", err)
	}

	var a = &Allocator{
		name:         cfg.Name,
		pageSize:     cfg.PageSize,
		pageCount:    cfg.PageCount,
		pages:        make([]*page, cfg.PageCount),
		device:       cfg.Device,
		epochMgr:     cfg.EpochManager,
		maintThr:     maintThr,
		flushCB:      cfg.FlushCallback,
		flushCh:      make(chan flushJob, cfg.PageCount*2),
		pendingFlush: make(map[int64]int64),
	}
	for i := range a.pages {
		a.pages[i] = &page{buf: make([]byte, cfg.PageSize)}
	}
	a.tailAddress.Store(FirstValidAddress)
	a.readOnlyAddress.Store(FirstValidAddress)
	a.beginAddress.Store(FirstValidAddress)
	a.flushedUntilAddress.Store(FirstValidAddress)

	for i := 0; i < cfg.FlushWorkers; i++ {
		a.wg.Add(1)
		go a.flushWorker()
	}
	return a, nil
}

// pageIndexOf/pageStartOf treat FirstValidAddress as the start of logical
// page 0, so the very first allocation begins at offset zero within its
// page regardless of where the sentinel-avoiding address space begins.
func (a *Allocator) pageIndexOf(addr int64) int64 {
	return (addr - FirstValidAddress) / int64(a.pageSize)
}
func (a *Allocator) slotOf(pageIdx int64) int { return int(pageIdx % int64(a.pageCount)) }
func (a *Allocator) pageStartOf(pageIdx int64) int64 {
	return FirstValidAddress + pageIdx*int64(a.pageSize)
}

// TryAllocate bumps the tail by n aligned bytes and returns the logical
// address of the allocation's first byte. It returns (0, false) if the
// target page is not yet available, the allocation would straddle a page,
// or reuse is blocked by un-flushed pages.
func (a *Allocator) TryAllocate(n int) (int64, bool) {
	for {
		var cur = a.tailAddress.Load()
		var pageIdx = a.pageIndexOf(cur)
		var offsetInPage = int((cur - FirstValidAddress) % int64(a.pageSize))
		var slot = a.slotOf(pageIdx)

		if offsetInPage == 0 {
			if !a.tryOpenPage(slot, pageIdx) {
				return 0, false
			}
		} else if a.pages[slot].ownerPage.Load() != pageIdx || pageState(a.pages[slot].state.Load()) != pageOpen {
			// Another caller closed this page out from under us (an
			// explicit ShiftReadOnlyToTail raced ahead). Push the tail to
			// the next page boundary and let the retry open a fresh page.
			a.tailAddress.CompareAndSwap(cur, a.pageStartOf(pageIdx+1))
			return 0, false
		}

		if offsetInPage+n > a.pageSize {
			a.closeFullPage(cur, pageIdx, slot, offsetInPage)
			return 0, false
		}

		var newTail = cur + int64(n)
		if !a.tailAddress.CompareAndSwap(cur, newTail) {
			continue // lost the race to another producer; retry from the new tail.
		}
		if offsetInPage+n == a.pageSize {
			// The allocation exactly fills the page: close it for flush
			// now, since no future straddle will ever trigger that close.
			a.closeExactFullPage(pageIdx, slot)
		}
		return cur, true
	}
}

// tryOpenPage claims slot for pageIdx, succeeding only if the slot is
// unused or holds an older, already-flushed-and-reclaimed page.
func (a *Allocator) tryOpenPage(slot int, pageIdx int64) bool {
	var p = a.pages[slot]
	if p.ownerPage.Load() == pageIdx && pageState(p.state.Load()) == pageOpen {
		return true // already opened by a racing producer.
	}

	var st = pageState(p.state.Load())
	var reusable = st == pageFree || (st == pageFlushed && p.reclaimable.Load())
	if !reusable {
		return false // back-pressure: previous occupant of this slot isn't reclaimable yet.
	}
	if !p.state.CompareAndSwap(int32(st), int32(pageOpen)) {
		return false // lost the race; caller retries.
	}
	p.ownerPage.Store(pageIdx)
	p.reclaimable.Store(false)
	p.validLen.Store(0)
	return true
}

// closeFullPage handles the straddle case: the pending allocation doesn't
// fit in the page's remaining space, so the page is closed with whatever
// was validly written to it, and the tail advances past the gap to the
// start of the next page.
func (a *Allocator) closeFullPage(cur, pageIdx int64, slot, validLen int) {
	if !a.tailAddress.CompareAndSwap(cur, a.pageStartOf(pageIdx+1)) {
		return // another producer already closed this page.
	}
	var p = a.pages[slot]
	if !p.state.CompareAndSwap(int32(pageOpen), int32(pageClosed)) {
		return
	}
	p.validLen.Store(int32(validLen))
	a.readOnlyAddress.Store(a.pageStartOf(pageIdx + 1))
	a.flushCh <- flushJob{slot: slot, pageIdx: pageIdx, validLen: validLen}
}

// closeExactFullPage handles the case where an allocation exactly reaches
// the page boundary: the tail is already correctly positioned at the next
// page's start, so only the page's own state needs to transition to
// closed-and-queued-for-flush.
func (a *Allocator) closeExactFullPage(pageIdx int64, slot int) {
	var p = a.pages[slot]
	if !p.state.CompareAndSwap(int32(pageOpen), int32(pageClosed)) {
		return
	}
	p.validLen.Store(int32(a.pageSize))
	a.readOnlyAddress.Store(a.pageStartOf(pageIdx + 1))
	a.flushCh <- flushJob{slot: slot, pageIdx: pageIdx, validLen: a.pageSize}
}

// GetPhysicalAddress returns the in-memory slice backing the page
// containing addr, from addr's offset within that page to the page end.
// It returns an error if that page is not currently memory-resident (it
// has been evicted and must be fetched from the device instead). Callers
// must be resumed in the epoch manager for the duration of any
// dereference.
func (a *Allocator) GetPhysicalAddress(addr int64) ([]byte, error) {
	var pageIdx = a.pageIndexOf(addr)
	var slot = a.slotOf(pageIdx)
	var p = a.pages[slot]
	// A never-opened slot still carries the zero ownerPage, so it must not
	// be mistaken for holding logical page 0.
	if p.ownerPage.Load() != pageIdx || pageState(p.state.Load()) == pageFree {
		return nil, fmt.Errorf("alloc: address %d is not memory-resident", addr)
	}
	var offset = int((addr - FirstValidAddress) % int64(a.pageSize))
	return p.buf[offset:], nil
}

// GetTailAddress returns the next address the allocator will hand out.
func (a *Allocator) GetTailAddress() int64 { return a.tailAddress.Load() }

// BeginAddress returns the oldest logically retained byte.
func (a *Allocator) BeginAddress() int64 { return a.beginAddress.Load() }

// FlushedUntilAddress returns the exclusive upper bound written to the device.
func (a *Allocator) FlushedUntilAddress() int64 { return a.flushedUntilAddress.Load() }

// ShiftBeginAddress raises the logical begin address, making memory and
// disk space below addr eligible for reclamation once every epoch
// participant at the time of the shift has drained.
func (a *Allocator) ShiftBeginAddress(addr int64) {
	for {
		var cur = a.beginAddress.Load()
		if addr <= cur {
			return
		}
		if a.beginAddress.CompareAndSwap(cur, addr) {
			break
		}
	}

	for _, p := range a.pages {
		var owner = p.ownerPage.Load()
		if pageState(p.state.Load()) == pageFlushed && a.pageStartOf(owner+1) <= addr {
			var page = p
			a.epochMgr.BumpEpoch(func() { page.reclaimable.Store(true) })
		}
	}
}

// ShiftReadOnlyToTail closes the currently open suffix so the flusher will
// drain it, reporting whether anything was shifted and the tail address at
// the moment of the shift.
func (a *Allocator) ShiftReadOnlyToTail() (bool, int64) {
	var tail = a.tailAddress.Load()
	var old = a.readOnlyAddress.Load()
	if tail <= old {
		return false, tail
	}
	if !a.readOnlyAddress.CompareAndSwap(old, tail) {
		return false, tail // another shift beat us to it.
	}

	// The open page is the one holding the last allocated byte; old may
	// still point into an earlier page that a previous shift already closed.
	var pageIdx = a.pageIndexOf(tail - 1)
	var slot = a.slotOf(pageIdx)
	var p = a.pages[slot]
	var validLen = int(tail - a.pageStartOf(pageIdx))
	if !p.state.CompareAndSwap(int32(pageOpen), int32(pageClosed)) {
		return true, tail // already closed by a concurrent full-page close.
	}
	p.validLen.Store(int32(validLen))
	a.flushCh <- flushJob{slot: slot, pageIdx: pageIdx, validLen: validLen}
	return true, tail
}

// RestoreHybridLog reconstitutes watermark state on open so that future
// allocations continue from flushed, with head the first in-memory page
// and begin the logical begin address. Historical reads below flushed
// always fall through GetPhysicalAddress's residency check to the device,
// since no page contents survive a restart.
func (a *Allocator) RestoreHybridLog(flushed, head, begin int64) {
	a.tailAddress.Store(flushed)
	a.readOnlyAddress.Store(flushed)
	a.beginAddress.Store(begin)
	a.flushedUntilAddress.Store(flushed)
	_ = head // reserved for a future memory-resident preload optimization.

	a.flushMu.Lock()
	a.nextFlushPageIdx = a.pageIndexOf(flushed)
	a.pendingFlush = make(map[int64]int64)
	a.flushMu.Unlock()
}

func (a *Allocator) flushWorker() {
	defer a.wg.Done()
	for job := range a.flushCh {
		a.runFlushJob(job)
	}
}

func (a *Allocator) runFlushJob(job flushJob) {
	var ctx = context.Background()
	var p = a.pages[job.slot]
	var started = time.Now()
	var err = a.device.WritePage(ctx, a.pageStartOf(job.pageIdx), p.buf[:job.validLen])
	if err == nil {
		err = a.device.Sync(ctx)
	}
	ops.FlushLatencySeconds.WithLabelValues(a.name).Observe(time.Since(started).Seconds())
	if err != nil {
		log.WithFields(log.Fields{"pageIdx": job.pageIdx, "err": err}).
			Error("alloc: flush failed, retrying")
		var retry = job
		time.AfterFunc(50*time.Millisecond, func() {
			defer func() { recover() }() // flushCh may have closed during the backoff.
			if !a.closed.Load() {
				a.flushCh <- retry
			}
		})
		return
	}

	p.state.Store(int32(pageFlushed))
	var newFlushed = a.pageStartOf(job.pageIdx) + int64(job.validLen)

	// Flush workers complete out of order, so a page's completion only
	// advances flushedUntilAddress once every earlier page has also landed;
	// a late-arriving earlier page holds the watermark back until it does.
	a.flushMu.Lock()
	a.pendingFlush[job.pageIdx] = newFlushed
	for {
		var end, ok = a.pendingFlush[a.nextFlushPageIdx]
		if !ok {
			break
		}
		delete(a.pendingFlush, a.nextFlushPageIdx)
		a.flushedUntilAddress.Store(end)
		a.nextFlushPageIdx++
	}
	var advanced = a.flushedUntilAddress.Load()
	a.flushMu.Unlock()

	a.maintThr.Resume()
	a.maintThr.ProtectAndDrain()
	a.maintThr.Suspend()

	if a.flushCB != nil {
		a.flushCB(advanced)
	}
}

// Close stops flush workers and releases the allocator's epoch thread.
// Flush jobs already queued are run before Close returns; a retry still
// waiting out its backoff after a failed flush is dropped.
func (a *Allocator) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	close(a.flushCh)
	a.wg.Wait()
	a.maintThr.Release()
}
