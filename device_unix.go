//go:build unix

package rsfs

import (
	"fmt"
	"io"

	"github.com/aligator/rsfs/checkpoint"
	"golang.org/x/sys/unix"
)

// RawDevice accesses a block device node (or any file) directly with pread and pwrite.
type RawDevice struct {
	fd   int
	path string
}

// OpenRawDevice opens the device node at path for reading and writing.
func OpenRawDevice(path string) (*RawDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, checkpoint.Wrapf(err, "opening device `%s`: %w", path, ErrDevice)
	}
	return &RawDevice{fd: fd, path: path}, nil
}

func (d *RawDevice) ReadSector(sector uint32, p []byte) error {
	if err := checkSector(sector, p); err != nil {
		return checkpoint.From(err)
	}

	read := 0
	for read < len(p) {
		n, err := unix.Pread(d.fd, p[read:], int64(sector)*SectorSize+int64(read))
		if err != nil {
			return checkpoint.Wrap(err, fmt.Errorf("pread on `%s`", d.path))
		}
		if n == 0 {
			// Behind the end of a regular file.
			for i := read; i < len(p); i++ {
				p[i] = 0
			}
			return nil
		}
		read += n
	}
	return nil
}

func (d *RawDevice) WriteSector(sector uint32, p []byte) error {
	if err := checkSector(sector, p); err != nil {
		return checkpoint.From(err)
	}

	written := 0
	for written < len(p) {
		n, err := unix.Pwrite(d.fd, p[written:], int64(sector)*SectorSize+int64(written))
		if err != nil {
			return checkpoint.Wrap(err, fmt.Errorf("pwrite on `%s`", d.path))
		}
		if n == 0 {
			return checkpoint.Wrap(io.ErrShortWrite, fmt.Errorf("pwrite on `%s`", d.path))
		}
		written += n
	}
	return nil
}

// Sync flushes all written sectors to the device.
func (d *RawDevice) Sync() error {
	return checkpoint.From(unix.Fsync(d.fd))
}

func (d *RawDevice) Close() error {
	return checkpoint.From(unix.Close(d.fd))
}
