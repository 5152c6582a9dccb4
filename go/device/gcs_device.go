package device

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSDevice is an opt-in Device backend that stores each page as a distinct
// object under a bucket prefix, named by page index. It trades per-page
// request latency for operating without any locally attached disk.
type GCSDevice struct {
	bucket   string
	prefix   string
	pageSize int64

	mu     sync.Mutex
	client *storage.Client // built lazily on first use.
}

// NewGCSDevice returns a Device backed by objects in bucket under prefix.
// The client is not dialed until the first WritePage/ReadAt/Sync call, so
// construction never fails for missing credentials.
func NewGCSDevice(bucket, prefix string, pageSize int64) *GCSDevice {
	return &GCSDevice{bucket: bucket, prefix: prefix, pageSize: pageSize}
}

func (d *GCSDevice) ensureClient(ctx context.Context) (*storage.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		var c, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
		if err != nil {
			return nil, fmt.Errorf("building google storage client: %w", err)
		}
		d.client = c
	}
	return d.client, nil
}

func (d *GCSDevice) objectName(pageOffset int64) string {
	return fmt.Sprintf("%s/page-%020d", d.prefix, pageOffset/d.pageSize)
}

func (d *GCSDevice) WritePage(ctx context.Context, pageOffset int64, data []byte) error {
	var client, err = d.ensureClient(ctx)
	if err != nil {
		return err
	}

	var w = client.Bucket(d.bucket).Object(d.objectName(pageOffset)).NewWriter(ctx)
	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return WrapIOError("device: gcs write", err)
	}
	if err = w.Close(); err != nil {
		return WrapIOError("device: gcs write", err)
	}
	return nil
}

func (d *GCSDevice) ReadAt(ctx context.Context, offset int64, buf []byte) (int, error) {
	var client, err = d.ensureClient(ctx)
	if err != nil {
		return 0, err
	}

	var pageStart = (offset / d.pageSize) * d.pageSize
	var r *storage.Reader
	if r, err = client.Bucket(d.bucket).Object(d.objectName(pageStart)).NewRangeReader(ctx, offset-pageStart, int64(len(buf))); err != nil {
		return 0, WrapIOError("device: gcs read", err)
	}
	defer r.Close()

	// A short read at EOF is expected when the caller over-estimates the
	// record length of the last record in the object; io.ReadFull reports
	// this as io.ErrUnexpectedEOF for a partial read or io.EOF when the
	// range starts exactly at the object's end, and neither is a device
	// fault.
	var n int
	n, err = io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, WrapIOError("device: gcs read", err)
	}
	return n, nil
}

// Sync is a no-op: GCS object writes are durable once Close returns.
func (d *GCSDevice) Sync(_ context.Context) error { return nil }

func (d *GCSDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

var _ Device = (*GCSDevice)(nil)
