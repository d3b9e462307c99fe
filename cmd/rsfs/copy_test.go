package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aligator/rsfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testingFs(t *testing.T) *rsfs.Fs {
	t.Helper()
	device, err := rsfs.OpenImage(afero.NewMemMapFs(), "test.img")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	fs, err := rsfs.New(device, rsfs.WithLogger(logger))
	require.NoError(t, err)
	return fs
}

func TestPutGetCat(t *testing.T) {
	fs := testingFs(t)
	dir := t.TempDir()
	data := bytes.Repeat([]byte("rsfs "), 3000)

	source := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(source, data, 0644))
	require.NoError(t, put(fs, source, "copy.txt"))

	var out bytes.Buffer
	require.NoError(t, cat(fs, "copy.txt", &out))
	require.Equal(t, data, out.Bytes())

	destination := filepath.Join(dir, "back.txt")
	require.NoError(t, get(fs, "copy.txt", destination))
	got, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPutGetCat_errors(t *testing.T) {
	fs := testingFs(t)
	dir := t.TempDir()

	require.Error(t, put(fs, filepath.Join(dir, "missing"), "x"))
	require.ErrorIs(t, cat(fs, "missing", &bytes.Buffer{}), os.ErrNotExist)
	require.Error(t, get(fs, "missing", filepath.Join(dir, "out")))
}

func TestPrintYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printYAML(&out, []rsfs.DirEntry{{Name: "a", Size: 1}, {Name: "b", Size: 4096}}))
	require.Contains(t, out.String(), "name: b")

	var list []listEntry
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &list))
	require.Equal(t, []listEntry{{Name: "a", Size: 1}, {Name: "b", Size: 4096}}, list)
}
