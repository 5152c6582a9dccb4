// Package log implements the log core: the caller-facing append, read,
// scan, and truncate surface, wiring together the paged allocator, the
// epoch manager it shares with that allocator, the commit coordinator, and
// the device the allocator flushes to.
package log

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	logrus "github.com/sirupsen/logrus"

	"github.com/estuary/epochlog/go/alloc"
	"github.com/estuary/epochlog/go/commit"
	"github.com/estuary/epochlog/go/device"
	"github.com/estuary/epochlog/go/epoch"
	"github.com/estuary/epochlog/go/ops"
)

// Config bundles the parameters needed to open a Log.
type Config struct {
	// Name labels this log's metrics and log lines; defaults to "default".
	Name string

	PageSize     int
	PageCount    int
	FlushWorkers int
	// PageCacheSize bounds the number of whole device pages the LRU read
	// cache retains for random reads and scan prefetch; defaults to 64.
	PageCacheSize int

	Device        device.Device
	CommitManager commit.Manager

	// GetMemory, if set, supplies destination buffers for ReadAsync instead
	// of a fresh allocation per call.
	GetMemory func(len int) []byte
}

// Log is the concrete, single-process append-only log.
type Log struct {
	name      string
	alloc     *alloc.Allocator
	epochMgr  *epoch.Manager
	epochPool *epochThreadPool
	coord     *commit.Coordinator
	manager   commit.Manager
	device    device.Device
	pageSize  int
	pageCache *lru.Cache[int64, []byte]
	getMemFn  func(int) []byte

	disposed atomic.Bool
}

// Open constructs a Log, restoring prior state from cfg.CommitManager's most
// recent recovery record if one exists.
func Open(cfg Config) (*Log, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("log: Device is required")
	}
	if cfg.CommitManager == nil {
		return nil, fmt.Errorf("log: CommitManager is required")
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 4 << 20
	}
	if cfg.PageCount <= 0 {
		cfg.PageCount = 16
	}
	if cfg.PageCacheSize <= 0 {
		cfg.PageCacheSize = 64
	}

	var epochMgr = epoch.NewManager()
	var coordRef atomic.Pointer[commit.Coordinator]

	var allocator, err = alloc.New(alloc.Config{
		Name:         cfg.Name,
		PageSize:     cfg.PageSize,
		PageCount:    cfg.PageCount,
		Device:       cfg.Device,
		EpochManager: epochMgr,
		FlushWorkers: cfg.FlushWorkers,
		FlushCallback: func(flushedUntil int64) {
			if c := coordRef.Load(); c != nil {
				if err := c.OnFlush(context.Background(), flushedUntil); err != nil {
					logrus.WithError(err).Error("log: commit callback failed")
				}
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("log: constructing allocator: %w", err)
	}

	var coord = commit.NewCoordinator(cfg.CommitManager, allocator, cfg.Name)
	coordRef.Store(coord)

	var ctx = context.Background()
	record, err := cfg.CommitManager.GetCommitMetadata(ctx)
	if errors.Is(err, commit.ErrCorruptRecovery) {
		ops.ReadCorruptionTotal.WithLabelValues(cfg.Name).Inc()
		logrus.WithError(err).Error("log: commit metadata failed checksum verification, starting fresh")
		record, err = nil, nil
	}
	if err != nil {
		allocator.Close()
		return nil, fmt.Errorf("log: reading commit metadata: %w", err)
	}

	if record != nil {
		var offsetInPage = (record.FlushedUntilAddress - alloc.FirstValidAddress) % int64(cfg.PageSize)
		var headAddress = record.FlushedUntilAddress - offsetInPage
		if headAddress < alloc.FirstValidAddress {
			headAddress = alloc.FirstValidAddress
		}
		allocator.RestoreHybridLog(record.FlushedUntilAddress, headAddress, record.BeginAddress)
		coord.Restore(*record)
		logrus.WithFields(logrus.Fields{
			"name": cfg.Name, "begin": record.BeginAddress, "flushedUntil": record.FlushedUntilAddress,
		}).Info("log: restored from recovery record")
	} else {
		coord.Restore(commit.RecoveryRecord{
			BeginAddress:        alloc.FirstValidAddress,
			FlushedUntilAddress: alloc.FirstValidAddress,
		})
		logrus.WithField("name", cfg.Name).Info("log: opening fresh log")
	}

	pageCache, err := lru.New[int64, []byte](cfg.PageCacheSize)
	if err != nil {
		allocator.Close()
		return nil, fmt.Errorf("log: constructing page cache: %w", err)
	}

	return &Log{
		name:      cfg.Name,
		alloc:     allocator,
		epochMgr:  epochMgr,
		epochPool: newEpochThreadPool(epochMgr),
		coord:     coord,
		manager:   cfg.CommitManager,
		device:    cfg.Device,
		pageSize:  cfg.PageSize,
		pageCache: pageCache,
		getMemFn:  cfg.GetMemory,
	}, nil
}

// BeginAddress returns the oldest byte the log guarantees retained.
func (l *Log) BeginAddress() int64 { return l.alloc.BeginAddress() }

// CommittedUntilAddress returns the exclusive upper bound of durable,
// readable bytes.
func (l *Log) CommittedUntilAddress() int64 { return l.coord.CommittedUntilAddress() }

// FlushedUntilAddress returns the exclusive upper bound of bytes written to
// the device, which may run ahead of CommittedUntilAddress between a flush
// completing and its recovery record landing.
func (l *Log) FlushedUntilAddress() int64 { return l.alloc.FlushedUntilAddress() }

// TailAddress returns the next address the log will hand out.
func (l *Log) TailAddress() int64 { return l.alloc.GetTailAddress() }

// TryAppend attempts to append a single entry, returning its logical
// address on success. It never blocks: a false result means the current
// page has no room and the caller should retry, optionally after waiting
// on the current commit future.
func (l *Log) TryAppend(payload Entry) (int64, bool, error) {
	return l.tryAppendBatch([]Entry{payload})
}

// TryAppendBatch attempts to append every payload at consecutive logical
// addresses in one allocation, so that either all of them land or none do.
// It returns the first entry's address and the batch's total allocated
// length on success.
func (l *Log) TryAppendBatch(payloads []Entry) (int64, int, bool, error) {
	var total = batchLen(payloads)
	addr, ok, err := l.tryAppendBatch(payloads)
	return addr, total, ok, err
}

func (l *Log) tryAppendBatch(payloads []Entry) (int64, bool, error) {
	if l.disposed.Load() {
		return 0, false, ErrLogDisposed
	}

	var th, err = l.epochPool.acquire()
	if err != nil {
		return 0, false, err
	}
	th.Resume()
	defer func() { th.Suspend(); l.epochPool.release(th) }()

	var total = batchLen(payloads)
	addr, ok := l.alloc.TryAllocate(total)
	if !ok {
		ops.AppendBackpressureTotal.WithLabelValues(l.name).Inc()
		return 0, false, nil
	}

	var cursor = addr
	for _, p := range payloads {
		buf, err := l.alloc.GetPhysicalAddress(cursor)
		if err != nil {
			logrus.WithError(err).Error("log: just-allocated address is not resident")
			return 0, false, fmt.Errorf("log: internal allocation inconsistency: %w", err)
		}
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(p)))
		copy(buf[4:], p)
		cursor += int64(frameLen(len(p)))
	}
	ops.AppendBytesTotal.WithLabelValues(l.name).Add(float64(total))
	return addr, true, nil
}

// Enqueue blocks until payload is copied into page memory at a logical
// address (not yet flushed or committed),
// spinning over TryAppend: capacity exhaustion is expected to be a
// microsecond-scale transient, so spinning avoids wakeup latency.
func (l *Log) Enqueue(payload Entry) (int64, error) {
	for {
		addr, ok, err := l.TryAppend(payload)
		if err != nil {
			return 0, err
		}
		if ok {
			return addr, nil
		}
		runtime.Gosched()
	}
}

// TryEnqueue is the non-blocking, single-attempt sibling of Enqueue.
func (l *Log) TryEnqueue(payload Entry) (int64, bool, error) {
	return l.TryAppend(payload)
}

// EnqueueBatch is Enqueue's batch sibling; it returns the first entry's
// address and the batch's total allocated length.
func (l *Log) EnqueueBatch(payloads []Entry) (int64, int, error) {
	var total = batchLen(payloads)
	for {
		addr, ok, err := l.tryAppendBatch(payloads)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			return addr, total, nil
		}
		runtime.Gosched()
	}
}

// TryEnqueueBatch is the non-blocking, single-attempt sibling of
// EnqueueBatch.
func (l *Log) TryEnqueueBatch(payloads []Entry) (int64, int, bool, error) {
	return l.TryAppendBatch(payloads)
}

// EnqueueAsync appends payload, cooperatively awaiting the current commit
// future between attempts instead of spinning. It loads the future before
// each TryAppend attempt: the subscribe-before-check idiom required to
// avoid missing a commit that lands between the attempt and the await.
func (l *Log) EnqueueAsync(ctx context.Context, payload Entry) (int64, error) {
	for {
		var fut = l.coord.CurrentFuture()
		addr, ok, err := l.TryAppend(payload)
		if err != nil {
			return 0, err
		}
		if ok {
			return addr, nil
		}
		if _, err := fut.Wait(ctx); err != nil {
			return 0, err
		}
	}
}

// WaitForCommit blocks until CommittedUntilAddress reaches until, spinning
// and pumping the epoch drainer between checks. until = 0 means "the log's
// current tail address at the time of the call".
func (l *Log) WaitForCommit(ctx context.Context, until int64) error {
	if until == 0 {
		until = l.alloc.GetTailAddress()
	}
	var th, err = l.epochPool.acquire()
	if err != nil {
		return err
	}
	defer l.epochPool.release(th)

	for l.coord.CommittedUntilAddress() < until {
		if l.disposed.Load() {
			return ErrLogDisposed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		th.Resume()
		th.ProtectAndDrain()
		th.Suspend()
		runtime.Gosched()
	}
	return nil
}

// WaitForCommitAsync is WaitForCommit's cooperative sibling, awaiting the
// commit future instead of spinning.
func (l *Log) WaitForCommitAsync(ctx context.Context, until int64) error {
	if until == 0 {
		until = l.alloc.GetTailAddress()
	}
	for {
		var fut = l.coord.CurrentFuture()
		if l.coord.CommittedUntilAddress() >= until {
			return nil
		}
		if _, err := fut.Wait(ctx); err != nil {
			return err
		}
	}
}

// EnqueueAndWaitForCommit appends payload and blocks until it is durable.
func (l *Log) EnqueueAndWaitForCommit(ctx context.Context, payload Entry) (int64, error) {
	var addr, err = l.Enqueue(payload)
	if err != nil {
		return 0, err
	}
	if err := l.WaitForCommit(ctx, addr+int64(frameLen(len(payload)))); err != nil {
		return 0, err
	}
	return addr, nil
}

// EnqueueAndWaitForCommitAsync is EnqueueAndWaitForCommit's cooperative
// sibling, using the commit-future subscription idiom throughout.
func (l *Log) EnqueueAndWaitForCommitAsync(ctx context.Context, payload Entry) (int64, error) {
	var addr, err = l.EnqueueAsync(ctx, payload)
	if err != nil {
		return 0, err
	}
	if err := l.WaitForCommitAsync(ctx, addr+int64(frameLen(len(payload)))); err != nil {
		return 0, err
	}
	return addr, nil
}

// Commit closes the current tail page, if any is open, so the flusher
// drains it, then optionally spin-waits for the tail address observed at
// the start of the call to become committed. When not spin-waiting, it
// still forces a commit-metadata write so an advanced begin address is
// never left unpersisted even when nothing new needs flushing.
func (l *Log) Commit(ctx context.Context, spinWait bool) (int64, error) {
	if l.disposed.Load() {
		return 0, ErrLogDisposed
	}

	var tail = l.alloc.GetTailAddress()
	l.alloc.ShiftReadOnlyToTail()

	if spinWait {
		if err := l.WaitForCommit(ctx, tail); err != nil {
			return 0, err
		}
		return tail, nil
	}
	if err := l.coord.OnFlush(ctx, l.coord.CommittedUntilAddress()); err != nil {
		return 0, err
	}
	return tail, nil
}

// CommitAsync is Commit's future-returning sibling: it closes the current
// tail page if any is open and returns the tail address observed at the
// time of the call alongside the future that resolves on the next commit.
// A caller that needs to know specifically when that tail address commits
// should prefer WaitForCommitAsync(ctx, tail), which re-subscribes across
// however many commits that takes; the single future returned here only
// signals "some commit happened".
func (l *Log) CommitAsync(ctx context.Context) (int64, *commit.Future) {
	var tail = l.alloc.GetTailAddress()
	var fut = l.coord.CurrentFuture()
	l.alloc.ShiftReadOnlyToTail()
	return tail, fut
}

// ReadAsync reads the entry at address, retrying with the discovered exact
// size if estimatedLength under-shot the true payload length.
func (l *Log) ReadAsync(ctx context.Context, address int64, estimatedLength int) ([]byte, int, error) {
	if l.disposed.Load() {
		return nil, 0, ErrLogDisposed
	}
	if address < l.alloc.BeginAddress() || address >= l.coord.CommittedUntilAddress() {
		return nil, 0, ErrOutOfRange
	}

	var want = 4 + estimatedLength
	for {
		buf, err := l.readAt(ctx, address, want)
		if err != nil {
			return nil, 0, err
		}
		if len(buf) < 4 {
			ops.ReadCorruptionTotal.WithLabelValues(l.name).Inc()
			return nil, 0, ErrCorruptRecord
		}
		var length = int(binary.LittleEndian.Uint32(buf[0:4]))
		if length < 0 || length > l.pageSize {
			ops.ReadCorruptionTotal.WithLabelValues(l.name).Inc()
			logrus.WithFields(logrus.Fields{"address": address, "length": length}).Warn("log: corrupt record length")
			return nil, 0, ErrCorruptRecord
		}
		if len(buf) >= 4+length {
			var out = make([]byte, length)
			copy(out, buf[4:4+length])
			return out, length, nil
		}
		want = 4 + length // re-issue at the now-known correct size.
	}
}

// readAt returns up to want bytes starting at address, from memory if the
// owning page is still resident, otherwise from the page cache or device.
func (l *Log) readAt(ctx context.Context, address int64, want int) ([]byte, error) {
	var pageStart = l.pageStartOf(address)
	page, err := l.readPage(ctx, pageStart)
	if err != nil {
		return nil, err
	}
	var offset = int(address - pageStart)
	if offset >= len(page) {
		return nil, nil
	}
	var avail = page[offset:]
	if len(avail) > want {
		avail = avail[:want]
	}
	return avail, nil
}

// readPage returns a private copy of the whole device page starting at
// pageStart, preferring (in order) the page cache, the allocator's
// in-memory page, and finally the device.
func (l *Log) readPage(ctx context.Context, pageStart int64) ([]byte, error) {
	if cached, ok := l.pageCache.Get(pageStart); ok {
		return cached, nil
	}

	var th, err = l.epochPool.acquire()
	if err != nil {
		return nil, err
	}
	th.Resume()
	resident, residentErr := l.alloc.GetPhysicalAddress(pageStart)
	var out []byte
	if residentErr == nil {
		out = append([]byte(nil), resident[:min(len(resident), l.pageSize)]...)
	}
	th.Suspend()
	l.epochPool.release(th)

	// Only a page the flushed watermark has moved past is final; caching
	// an earlier copy would hide entries appended to the page later.
	var final = pageStart+int64(l.pageSize) <= l.alloc.FlushedUntilAddress()

	if residentErr == nil {
		if final {
			l.pageCache.Add(pageStart, out)
		}
		return out, nil
	}

	var buf = l.getMemory(l.pageSize)
	n, err := l.device.ReadAt(ctx, pageStart, buf)
	if err != nil {
		return nil, err
	}
	// buf may be a caller-pooled buffer (Config.GetMemory): copy into a
	// cache-owned slice before retaining it, so a later reuse of buf by its
	// owner cannot corrupt the cached page.
	var cached = append([]byte(nil), buf[:n]...)
	if final {
		l.pageCache.Add(pageStart, cached)
	}
	return cached, nil
}

func (l *Log) pageStartOf(addr int64) int64 {
	var pageIdx = (addr - alloc.FirstValidAddress) / int64(l.pageSize)
	return alloc.FirstValidAddress + pageIdx*int64(l.pageSize)
}

func (l *Log) getMemory(n int) []byte {
	if l.getMemFn != nil {
		return l.getMemFn(n)
	}
	return make([]byte, n)
}

// TruncateUntil raises BeginAddress to address, making bytes below it
// eligible for reclamation and unreadable, and forces a commit-metadata
// write so the advance survives a restart even absent new appends.
func (l *Log) TruncateUntil(ctx context.Context, address int64) error {
	if l.disposed.Load() {
		return ErrLogDisposed
	}
	l.alloc.ShiftBeginAddress(address)
	return l.coord.OnFlush(ctx, l.coord.CommittedUntilAddress())
}

// Dispose releases every resource the log holds, resolving all pending
// commit futures with ErrLogDisposed. It is safe to call more than once.
func (l *Log) Dispose() error {
	if !l.disposed.CompareAndSwap(false, true) {
		return nil
	}
	l.coord.Dispose()
	l.alloc.Close()
	if closer, ok := l.manager.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return l.device.Close()
}
