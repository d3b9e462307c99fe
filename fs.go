package rsfs

import (
	"errors"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/rsfs/checkpoint"
	"github.com/spf13/afero"
)

var (
	_ afero.Fs   = (*Fs)(nil)
	_ afero.File = (*File)(nil)
)

// Fs exposes a Volume as afero.Fs.
// The namespace is flat: the only directory is the root, which can be opened as "", "." or "/".
type Fs struct {
	volume *Volume
}

// New mounts the volume on the device (formatting it if needed) and returns it as afero.Fs.
func New(device BlockDevice, opts ...Option) (*Fs, error) {
	volume, err := Mount(device, opts...)
	if err != nil {
		return nil, err
	}
	return NewFromVolume(volume), nil
}

// NewFromVolume wraps an already mounted volume.
func NewFromVolume(volume *Volume) *Fs {
	return &Fs{volume: volume}
}

// Volume returns the underlying volume.
func (fs *Fs) Volume() *Volume {
	return fs.volume
}

// Label returns the label of the volume.
func (fs *Fs) Label() string {
	return fs.volume.Label()
}

// cleanName converts a path to a file name of the flat namespace.
// isRoot is true if the path points to the root directory.
func cleanName(name string) (clean string, isRoot bool) {
	clean = strings.TrimPrefix(path.Clean("/"+name), "/")
	return clean, clean == ""
}

// osError classifies volume errors additionally by the matching os errors.
func osError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return checkpoint.Wrap(err, os.ErrNotExist)
	case errors.Is(err, ErrAlreadyExists):
		return checkpoint.Wrap(err, os.ErrExist)
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrUnsupported):
		return checkpoint.Wrap(err, os.ErrInvalid)
	}
	return err
}

// pathError converts volume errors into *os.PathError values.
func pathError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &os.PathError{Op: op, Path: name, Err: osError(err)}
}

// Create creates or truncates the named file and opens it for writing.
func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return pathError("mkdir", name, checkpoint.Wrap(errors.New("the namespace is flat"), ErrUnsupported))
}

func (fs *Fs) MkdirAll(p string, perm os.FileMode) error {
	if _, isRoot := cleanName(p); isRoot {
		return nil
	}
	return fs.Mkdir(p, perm)
}

// Open opens the named file for reading.
func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the named file. Files are either read or written, never both:
// an existing file can only be opened for writing together with O_TRUNC. O_APPEND is not supported.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	clean, isRoot := cleanName(name)
	writing := flag&(os.O_WRONLY|os.O_RDWR) != 0

	if isRoot {
		if writing {
			return nil, pathError("open", name, syscall.EISDIR)
		}
		return &File{fs: fs, name: "/", isDirectory: true}, nil
	}

	if flag&os.O_APPEND != 0 {
		return nil, pathError("open", name, checkpoint.Wrap(errors.New("append"), ErrUnsupported))
	}

	mode := ModeRead
	if writing {
		mode = ModeWrite

		_, statErr := fs.volume.Stat(clean)
		exists := statErr == nil
		if exists && flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
			return nil, pathError("open", name, checkpoint.New(ErrAlreadyExists))
		}
		if !exists && flag&os.O_CREATE == 0 {
			return nil, pathError("open", name, statErr)
		}
		if exists && flag&os.O_TRUNC == 0 {
			return nil, pathError("open", name, checkpoint.Wrap(errors.New("writing an existing file requires O_TRUNC"), ErrUnsupported))
		}
	}

	session, err := fs.volume.Open(clean, mode)
	if err != nil {
		return nil, pathError("open", name, err)
	}

	return &File{
		fs:      fs,
		name:    clean,
		session: session,
		mode:    mode,
	}, nil
}

// Remove removes the named file. The root directory cannot be removed.
func (fs *Fs) Remove(name string) error {
	clean, isRoot := cleanName(name)
	if isRoot {
		return pathError("remove", name, syscall.EISDIR)
	}
	return pathError("remove", name, fs.volume.Remove(clean))
}

// RemoveAll removes the named file and ignores if it does not exist.
// For the root directory all files are removed.
func (fs *Fs) RemoveAll(p string) error {
	clean, isRoot := cleanName(p)
	if !isRoot {
		err := fs.volume.Remove(clean)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return pathError("removeall", p, err)
	}

	entries, err := fs.volume.List()
	if err != nil {
		return pathError("removeall", p, err)
	}
	for _, entry := range entries {
		if err := fs.volume.Remove(entry.Name); err != nil {
			return pathError("removeall", entry.Name, err)
		}
	}
	return nil
}

func (fs *Fs) Rename(oldname, newname string) error {
	oldClean, oldRoot := cleanName(oldname)
	newClean, newRoot := cleanName(newname)
	if oldRoot || newRoot {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EISDIR}
	}

	if err := fs.volume.Rename(oldClean, newClean); err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: osError(err)}
	}
	return nil
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	clean, isRoot := cleanName(name)
	if isRoot {
		return rootFileInfo{}, nil
	}

	entry, err := fs.volume.Stat(clean)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return entry.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "rsfs"
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return pathError("chmod", name, checkpoint.Wrap(errors.New("no permissions"), ErrUnsupported))
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return pathError("chown", name, checkpoint.Wrap(errors.New("no ownership"), ErrUnsupported))
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return pathError("chtimes", name, checkpoint.Wrap(errors.New("no timestamps"), ErrUnsupported))
}
