package rsfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testImage = "test.img"

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testingImage opens the test image on memFs as device.
func testingImage(t *testing.T, memFs afero.Fs) *FileDevice {
	t.Helper()
	device, err := OpenImage(memFs, testImage)
	require.NoError(t, err)
	return device
}

// testingVolume mounts a fresh volume in memory.
func testingVolume(t *testing.T, opts ...Option) (*Volume, afero.Fs) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	v, err := Mount(testingImage(t, memFs), append([]Option{WithLogger(testLogger())}, opts...)...)
	require.NoError(t, err)
	return v, memFs
}

// remount mounts the image of memFs again, so only persisted state is visible.
func remount(t *testing.T, memFs afero.Fs) *Volume {
	t.Helper()
	v, err := Mount(testingImage(t, memFs), WithLogger(testLogger()))
	require.NoError(t, err)
	return v
}

// pattern returns size bytes which differ between clusters.
func pattern(size int) []byte {
	var buf bytes.Buffer
	for i := 0; buf.Len() < size; i++ {
		buf.WriteByte(byte(i*7 + i/ClusterSize))
	}
	return buf.Bytes()[:size]
}

func writeFile(t *testing.T, v *Volume, name string, data []byte) {
	t.Helper()
	id, err := v.Open(name, ModeWrite)
	require.NoError(t, err)
	n, err := v.Write(id, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, v.Close(id))
}

func readFile(t *testing.T, v *Volume, name string) []byte {
	t.Helper()
	id, err := v.Open(name, ModeRead)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, v.Close(id))
	}()

	var result []byte
	buf := make([]byte, 1000)
	for {
		n, err := v.Read(id, buf)
		result = append(result, buf[:n]...)
		if err == io.EOF {
			return result
		}
		require.NoError(t, err)
	}
}
