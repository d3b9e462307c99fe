package rsfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/rsfs/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile  = errors.New("could not read file")
	ErrWriteFile = errors.New("could not write file")
	ErrSeekFile  = errors.New("could not seek inside of the file")
	ErrReadDir   = errors.New("could not read the directory")
)

// File is an open file (or the root directory) of an Fs.
// Regular files are backed by a session of the volume and are either readable or writable.
// They can only be accessed sequentially.
type File struct {
	fs   *Fs
	name string

	isDirectory bool

	session SessionID
	mode    Mode
	offset  int64
	closed  bool
}

func (f *File) checkOpen() error {
	if f.closed {
		return os.ErrClosed
	}
	return nil
}

func (f *File) Close() error {
	if err := f.checkOpen(); err != nil {
		return pathError("close", f.name, err)
	}
	f.closed = true

	if f.isDirectory {
		return nil
	}
	return pathError("close", f.name, f.fs.volume.Close(f.session))
}

func (f *File) Read(p []byte) (n int, err error) {
	if err := f.checkOpen(); err != nil {
		return 0, pathError("read", f.name, err)
	}
	if f.isDirectory {
		return 0, pathError("read", f.name, syscall.EISDIR)
	}

	n, err = f.fs.volume.Read(f.session, p)
	f.offset += int64(n)
	if err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, pathError("read", f.name, checkpoint.Wrap(err, ErrReadFile))
	}
	return n, nil
}

// ReadAt only supports reading at the current offset, as sessions are sequential.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off != f.offset {
		return 0, pathError("readat", f.name, checkpoint.Wrap(fmt.Errorf("offset %v, current offset %v", off, f.offset), ErrUnsupported))
	}

	for n < len(p) {
		var read int
		read, err = f.Read(p[n:])
		n += read
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Seek only reports the current offset: whence io.SeekCurrent with offset 0
// or any seek which does not move.
// May return a syscall.EINVAL error if the whence value is invalid.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.offset + offset
	case io.SeekEnd:
		info, err := f.Stat()
		if err != nil {
			return 0, err
		}
		target = info.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if target != f.offset {
		return f.offset, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", ErrUnsupported, offset, whence))
	}
	return f.offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	if err := f.checkOpen(); err != nil {
		return 0, pathError("write", f.name, err)
	}
	if f.isDirectory {
		return 0, pathError("write", f.name, syscall.EISDIR)
	}

	n, err = f.fs.volume.Write(f.session, p)
	f.offset += int64(n)
	if err != nil {
		return n, pathError("write", f.name, checkpoint.Wrap(err, ErrWriteFile))
	}
	return n, nil
}

// WriteAt only supports writing at the current offset, as sessions are sequential.
func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off != f.offset {
		return 0, pathError("writeat", f.name, checkpoint.Wrap(fmt.Errorf("offset %v, current offset %v", off, f.offset), ErrUnsupported))
	}
	return f.Write(p)
}

func (f *File) Name() string {
	return f.name
}

// Readdir reads the contents of the root directory.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	entries, err := f.readEntries(count)
	if err != nil {
		return nil, err
	}

	result := make([]os.FileInfo, len(entries))
	for i := range entries {
		result[i] = entries[i].FileInfo()
	}
	return result, nil
}

// readEntries returns the next count directory entries, or all remaining ones if count <= 0.
func (f *File) readEntries(count int) ([]DirEntry, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}
	if err := f.checkOpen(); err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	content, err := f.fs.volume.List()
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	if f.offset >= int64(len(content)) {
		if count > 0 {
			return nil, io.EOF
		}
		return []DirEntry{}, nil
	}

	content = content[f.offset:]
	if count > 0 && count < len(content) {
		content = content[:count]
	}
	f.offset += int64(len(content))
	return content, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	if f.isDirectory {
		return rootFileInfo{}, nil
	}
	return f.fs.Stat(f.name)
}

// Sync does nothing: every Write already persists the volume metadata
// and the last partial cluster is written on Close.
func (f *File) Sync() error {
	return f.checkOpen()
}

// Truncate is only possible by opening the file for writing again.
func (f *File) Truncate(size int64) error {
	return pathError("truncate", f.name, checkpoint.New(ErrUnsupported))
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
