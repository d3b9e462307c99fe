//go:build unix

package rsfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRawDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.img")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	device, err := OpenRawDevice(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, device.Close())
	}()

	data := pattern(SectorSize)
	require.NoError(t, device.WriteSector(3, data))
	require.NoError(t, device.Sync())

	got := make([]byte, SectorSize)
	require.NoError(t, device.ReadSector(3, got))
	require.Equal(t, data, got)

	got = bytes.Repeat([]byte{0xFF}, SectorSize)
	require.NoError(t, device.ReadSector(10, got))
	require.Equal(t, make([]byte, SectorSize), got)

	require.Error(t, device.ReadSector(0, make([]byte, 1)))
}

func TestRawDevice_volume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.img")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	device, err := OpenRawDevice(path)
	require.NoError(t, err)
	v, err := Mount(device, WithLogger(testLogger()))
	require.NoError(t, err)
	writeFile(t, v, "file", pattern(10000))
	require.NoError(t, device.Close())

	device, err = OpenRawDevice(path)
	require.NoError(t, err)
	defer device.Close()
	v, err = Mount(device, WithLogger(testLogger()))
	require.NoError(t, err)
	require.Equal(t, pattern(10000), readFile(t, v, "file"))
}

func TestOpenRawDevice_missing(t *testing.T) {
	_, err := OpenRawDevice(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrDevice)
}
