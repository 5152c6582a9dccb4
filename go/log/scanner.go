package log

import (
	"context"
	"encoding/binary"
)

// Buffering selects how many pages ahead a Scanner reads from the device
// while the caller consumes the current page.
type Buffering int

const (
	// SinglePage reads one page at a time, only when the caller needs it.
	SinglePage Buffering = iota
	// DoublePage prefetches the next page in the background while the
	// caller consumes the current one.
	DoublePage
)

type scanOptions struct {
	allowUncommitted bool
}

// ScanOption customizes a Scan call.
type ScanOption func(*scanOptions)

// AllowUncommitted gates the scan on FlushedUntilAddress instead of
// CommittedUntilAddress, observing entries that have reached the device but
// whose commit metadata has not yet landed.
func AllowUncommitted() ScanOption {
	return func(o *scanOptions) { o.allowUncommitted = true }
}

// Scanner iterates entries over a logical address range, in the style of
// bufio.Scanner: call Scan to advance, Entry/Address to read the current
// position, and check Err once Scan returns false.
type Scanner struct {
	l         *Log
	cur       int64
	limit     int64
	buffering Buffering

	curPage      []byte
	curPageStart int64
	prefetchCh   chan pagePrefetch

	entry []byte
	err   error
}

type pagePrefetch struct {
	start int64
	data  []byte
	err   error
}

// Scan constructs a Scanner over [begin, end). end = 0 means "up to the
// gating watermark" (CommittedUntilAddress, or FlushedUntilAddress under
// AllowUncommitted). Construction is safe concurrently with appends: the
// upper bound is fixed at construction time and does not advance as the
// scan proceeds.
func (l *Log) Scan(ctx context.Context, begin, end int64, buffering Buffering, opts ...ScanOption) (*Scanner, error) {
	if l.disposed.Load() {
		return nil, ErrLogDisposed
	}

	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}

	var limit = l.coord.CommittedUntilAddress()
	if o.allowUncommitted {
		limit = l.alloc.FlushedUntilAddress()
	}
	if end > 0 && end < limit {
		limit = end
	}
	if begin < l.alloc.BeginAddress() {
		begin = l.alloc.BeginAddress()
	}

	var s = &Scanner{l: l, cur: begin, limit: limit, buffering: buffering}
	if buffering == DoublePage {
		s.prefetchCh = make(chan pagePrefetch, 1)
		go s.prefetch(ctx, l.pageStartOf(begin))
	}
	return s, nil
}

// Scan advances to the next entry, returning false at the end of the range
// or on error; check Err to distinguish the two.
func (s *Scanner) Scan(ctx context.Context) bool {
	if s.err != nil || s.cur >= s.limit {
		return false
	}

	var pageStart = s.l.pageStartOf(s.cur)
	if s.curPage == nil || s.curPageStart != pageStart {
		if err := s.loadPage(ctx, pageStart); err != nil {
			s.err = err
			return false
		}
	}

	var offset = int(s.cur - pageStart)
	if offset+4 > len(s.curPage) {
		s.err = ErrCorruptRecord
		return false
	}
	var length = int(binary.LittleEndian.Uint32(s.curPage[offset : offset+4]))
	if length < 0 || offset+4+length > len(s.curPage) {
		s.err = ErrCorruptRecord
		return false
	}

	s.entry = append([]byte(nil), s.curPage[offset+4:offset+4+length]...)
	s.cur += int64(frameLen(length))
	return true
}

// Entry returns the payload at the current position, valid until the next
// call to Scan.
func (s *Scanner) Entry() []byte { return s.entry }

// Address returns the logical address the current entry was read from.
func (s *Scanner) Address() int64 { return s.cur - int64(frameLen(len(s.entry))) }

// Err returns the error that stopped iteration, if any.
func (s *Scanner) Err() error { return s.err }

// Close releases scanner resources. It is always safe to call, including
// after Scan has returned false.
func (s *Scanner) Close() error { return nil }

func (s *Scanner) loadPage(ctx context.Context, pageStart int64) error {
	if s.buffering == DoublePage && s.prefetchCh != nil {
		select {
		case pf := <-s.prefetchCh:
			if pf.start == pageStart {
				if pf.err != nil {
					return pf.err
				}
				s.curPage, s.curPageStart = pf.data, pageStart
				go s.prefetch(ctx, pageStart+int64(s.l.pageSize))
				return nil
			}
			// A stale prefetch from before a seek; fall through to a direct load.
		default:
		}
	}

	var buf, err = s.l.readPage(ctx, pageStart)
	if err != nil {
		return err
	}
	s.curPage, s.curPageStart = buf, pageStart
	if s.buffering == DoublePage {
		go s.prefetch(ctx, pageStart+int64(s.l.pageSize))
	}
	return nil
}

func (s *Scanner) prefetch(ctx context.Context, pageStart int64) {
	var buf, err = s.l.readPage(ctx, pageStart)
	select {
	case s.prefetchCh <- pagePrefetch{start: pageStart, data: buf, err: err}:
	default:
	}
}
