package device

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// FileDevice is the default Device backend: a single local file, grown on
// demand by writes, with pages written and read at their byte offset
// directly.
type FileDevice struct {
	file *os.File
	path string
}

// NewFileDevice opens (creating if necessary) the file at path for
// read/write use as log storage.
func NewFileDevice(path string) (*FileDevice, error) {
	var f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, WrapIOError("device: open", err)
	}
	return &FileDevice{file: f, path: path}, nil
}

func (d *FileDevice) WritePage(_ context.Context, pageOffset int64, data []byte) error {
	var _, err = d.file.WriteAt(data, pageOffset)
	if err != nil {
		log.WithFields(log.Fields{"path": d.path, "offset": pageOffset}).
			Error("device: write failed")
		return WrapIOError("device: write", err)
	}
	return nil
}

func (d *FileDevice) ReadAt(_ context.Context, offset int64, buf []byte) (int, error) {
	var n, err = d.file.ReadAt(buf, offset)
	// A short read at EOF is expected when the caller over-estimates the
	// record length of the last record in the file; only a non-EOF error
	// is a device fault.
	if err != nil && err != io.EOF {
		return n, WrapIOError("device: read", err)
	}
	return n, nil
}

func (d *FileDevice) Sync(_ context.Context) error {
	if err := d.file.Sync(); err != nil {
		return WrapIOError("device: sync", err)
	}
	return nil
}

func (d *FileDevice) Close() error {
	return d.file.Close()
}

var _ Device = (*FileDevice)(nil)

func (d *FileDevice) String() string { return fmt.Sprintf("FileDevice(%s)", d.path) }
