package rsfs

import (
	"os"
	"time"
)

// FileInfo returns the entry as os.FileInfo.
func (e DirEntry) FileInfo() os.FileInfo {
	return dirEntryFileInfo{e}
}

type dirEntryFileInfo struct {
	entry DirEntry
}

func (e dirEntryFileInfo) Name() string {
	return e.entry.Name
}

func (e dirEntryFileInfo) Size() int64 {
	return e.entry.Size
}

func (e dirEntryFileInfo) Mode() os.FileMode {
	return 0666
}

// ModTime is always the zero time as RSFS stores no timestamps.
func (e dirEntryFileInfo) ModTime() time.Time {
	return time.Time{}
}

func (e dirEntryFileInfo) IsDir() bool {
	return false
}

func (e dirEntryFileInfo) Sys() interface{} {
	return e.entry
}

// rootFileInfo describes the only directory of a volume.
type rootFileInfo struct{}

func (rootFileInfo) Name() string       { return "." }
func (rootFileInfo) Size() int64        { return 0 }
func (rootFileInfo) Mode() os.FileMode  { return os.ModeDir | 0777 }
func (rootFileInfo) ModTime() time.Time { return time.Time{} }
func (rootFileInfo) IsDir() bool        { return true }
func (rootFileInfo) Sys() interface{}   { return nil }
