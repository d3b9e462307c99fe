//go:build !unix

package rsfs

import (
	"fmt"

	"github.com/aligator/rsfs/checkpoint"
)

// RawDevice is only available on unix systems.
type RawDevice struct{}

// OpenRawDevice always fails on this platform, use OpenImage instead.
func OpenRawDevice(path string) (*RawDevice, error) {
	return nil, checkpoint.Wrap(fmt.Errorf("raw device `%s`", path), ErrUnsupported)
}

func (d *RawDevice) ReadSector(sector uint32, p []byte) error {
	return checkpoint.New(ErrUnsupported)
}

func (d *RawDevice) WriteSector(sector uint32, p []byte) error {
	return checkpoint.New(ErrUnsupported)
}

func (d *RawDevice) Sync() error {
	return checkpoint.New(ErrUnsupported)
}

func (d *RawDevice) Close() error {
	return nil
}
