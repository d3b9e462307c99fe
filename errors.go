package rsfs

import "errors"

// These errors may occur while working with a volume.
// They are usually wrapped by a checkpoint, so always check them using errors.Is.
var (
	ErrNotFormatted   = errors.New("volume is not formatted")
	ErrAlreadyExists  = errors.New("file already exists")
	ErrNotFound       = errors.New("file not found")
	ErrNoSpace        = errors.New("no space left on volume")
	ErrNotOpen        = errors.New("file is not open")
	ErrWrongMode      = errors.New("operation does not match the open mode")
	ErrBufferTooSmall = errors.New("buffer too small for the listing")
	ErrTooManyOpen    = errors.New("no session slot available")
	ErrFileOpen       = errors.New("file is still open")
	ErrInvalidName    = errors.New("invalid file name")
	ErrCorrupt        = errors.New("volume structure is corrupt")
	ErrUnsupported    = errors.New("operation not supported")
	ErrDevice         = errors.New("block device failure")
)
