// Package device abstracts the physical storage the paged allocator flushes
// pages to and reads pages from. The log core hands the same Device to the
// allocator for flushing and reads evicted pages from it directly.
package device

import (
	"context"
	"fmt"
)

// Device is the storage collaborator owned by the paged allocator.
type Device interface {
	// WritePage durably transfers data to the device at pageOffset.
	WritePage(ctx context.Context, pageOffset int64, data []byte) error
	// ReadAt fills buf starting at offset, returning the number of bytes read.
	ReadAt(ctx context.Context, offset int64, buf []byte) (int, error)
	// Sync ensures all prior WritePage calls are durable.
	Sync(ctx context.Context) error
	// Close releases resources held by the device.
	Close() error
}

// ErrDeviceIO wraps an underlying I/O failure from a Device implementation.
var ErrDeviceIO = fmt.Errorf("device: I/O error")

// WrapIOError annotates err with ErrDeviceIO so callers can classify it with
// errors.Is, while keeping the original error's text (formatted with %v, so
// the original error itself is not unwrappable).
func WrapIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrDeviceIO, err)
}
