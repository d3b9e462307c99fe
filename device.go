package rsfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aligator/rsfs/checkpoint"
	"github.com/spf13/afero"
)

// BlockDevice provides synchronous access to fixed size sectors.
// Both methods always transfer exactly one sector of SectorSize bytes.
// Generated mock using mockgen:
//  mockgen -source=device.go -destination=device_mock.go -package rsfs
type BlockDevice interface {
	ReadSector(sector uint32, p []byte) error
	WriteSector(sector uint32, p []byte) error
}

// DeviceSectors is the amount of sectors a device needs to hold a full volume.
const DeviceSectors = TableEntries

// FileDevice is a BlockDevice backed by an image file.
// Sectors which were never written read as zeros, so the image may be sparse or empty.
type FileDevice struct {
	file afero.File
}

// NewFileDevice uses an already opened file as device.
func NewFileDevice(file afero.File) *FileDevice {
	return &FileDevice{file: file}
}

// OpenImage opens the image file at path on the given afero.Fs and creates it if it does not exist.
func OpenImage(fs afero.Fs, path string) (*FileDevice, error) {
	file, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, checkpoint.Wrapf(err, "opening image `%s`: %w", path, ErrDevice)
	}
	return NewFileDevice(file), nil
}

func checkSector(sector uint32, p []byte) error {
	if sector >= DeviceSectors {
		return fmt.Errorf("sector `%d` is out of range", sector)
	}
	if len(p) != SectorSize {
		return fmt.Errorf("got a buffer of `%d` bytes for sector `%d`", len(p), sector)
	}
	return nil
}

func (d *FileDevice) ReadSector(sector uint32, p []byte) error {
	if err := checkSector(sector, p); err != nil {
		return checkpoint.From(err)
	}

	n, err := d.file.ReadAt(p, int64(sector)*SectorSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return checkpoint.From(err)
	}

	// Everything behind the end of the image has never been written.
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return nil
}

func (d *FileDevice) WriteSector(sector uint32, p []byte) error {
	if err := checkSector(sector, p); err != nil {
		return checkpoint.From(err)
	}

	_, err := d.file.WriteAt(p, int64(sector)*SectorSize)
	return checkpoint.From(err)
}

// Sync flushes the image file.
func (d *FileDevice) Sync() error {
	return checkpoint.From(d.file.Sync())
}

// Close closes the image file.
func (d *FileDevice) Close() error {
	return checkpoint.From(d.file.Close())
}
