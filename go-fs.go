package rsfs

import (
	"io/fs"
	"os"
	"sort"
)

// GoDirEntry is a DirEntry as fs.DirEntry. The namespace is flat, so it is always a regular file.
type GoDirEntry struct {
	DirEntry
}

func (g GoDirEntry) Name() string {
	return g.DirEntry.Name
}

func (g GoDirEntry) IsDir() bool {
	return false
}

func (g GoDirEntry) Type() fs.FileMode {
	return 0
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.DirEntry.FileInfo(), nil
}

// GoFile is a read only File as fs.File. The root directory also implements fs.ReadDirFile.
type GoFile struct {
	file *File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.file.Stat()
}

func (g GoFile) Read(p []byte) (int, error) {
	return g.file.Read(p)
}

func (g GoFile) Close() error {
	return g.file.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.file.readEntries(n)
	if err != nil {
		return nil, err
	}

	result := make([]fs.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = GoDirEntry{entry}
	}
	return result, nil
}

// GoFs wraps Fs to be compatible with fs.FS.
// Files opened through it are always read only.
type GoFs struct {
	*Fs
}

// NewGoFS mounts the volume on the device as fs.FS compatible filesystem.
func NewGoFS(device BlockDevice, opts ...Option) (*GoFs, error) {
	filesystem, err := New(device, opts...)
	if err != nil {
		return nil, err
	}
	return &GoFs{filesystem}, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return GoFile{file.(*File)}, nil
}

// ReadDir lists the root directory, the only directory of the volume.
func (g GoFs) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) || name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	entries, err := g.Fs.volume.List()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	result := make([]fs.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = GoDirEntry{entry}
	}
	return result, nil
}
