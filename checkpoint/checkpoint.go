// Package checkpoint decorates errors with the file and line they passed through,
// so a chain of checkpoints reads like a short stacktrace of the volume code.
//
// A checkpoint carries two errors: the cause it wraps and an optional kind which
// classifies it. Both stay reachable through errors.Is and errors.As:
//  err := checkpoint.Wrap(deviceErr, rsfs.ErrDevice)
//  errors.Is(err, rsfs.ErrDevice) // true
//  errors.Is(err, deviceErr)      // true
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From marks the position of the caller on err.
// It returns nil if err is nil.
func From(err error) error {
	if passThrough(err) {
		return err
	}

	return newCheckpoint(err, nil, 2)
}

// Wrap adds a checkpoint on top of cause and classifies it with kind.
// It returns nil if cause is nil, so it can wrap the result of a call directly:
//  return checkpoint.Wrap(dev.WriteSector(s, buf), ErrDevice)
func Wrap(cause, kind error) error {
	if passThrough(cause) {
		return cause
	}

	return newCheckpoint(cause, kind, 2)
}

// Wrapf works like Wrap but classifies the checkpoint with a formatted message
// which itself wraps kind (use %w in format).
func Wrapf(cause error, format string, args ...interface{}) error {
	if passThrough(cause) {
		return cause
	}

	return newCheckpoint(cause, fmt.Errorf(format, args...), 2)
}

// New creates a checkpoint for a kind without any underlying cause.
func New(kind error) error {
	if kind == nil {
		return nil
	}

	return newCheckpoint(kind, nil, 2)
}

// passThrough reports if err must not be decorated.
// io.EOF is compared with == by many readers, see https://github.com/golang/go/issues/39155
func passThrough(err error) bool {
	return err == nil || err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(cause, kind error, skip int) *checkpoint {
	_, file, line, ok := runtime.Caller(skip)

	return &checkpoint{
		cause: cause,
		kind:  kind,

		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	cause error
	kind  error

	callerOk bool
	file     string
	line     int
}

func (c *checkpoint) location() string {
	if !c.callerOk {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", c.file, c.line)
}

func (c *checkpoint) Error() string {
	causeString := c.cause.Error()
	if _, ok := c.cause.(*checkpoint); !ok {
		causeString = "at unknown\n\t" + strings.ReplaceAll(causeString, "\n", "\n\t")
	}

	if c.kind == nil {
		return fmt.Sprintf("at %s\n%v", c.location(), causeString)
	}
	return fmt.Sprintf("at %s\n\t%v\n%v", c.location(), c.kind, causeString)
}

func (c *checkpoint) Unwrap() error {
	return c.cause
}

func (c *checkpoint) Is(target error) bool {
	return c.kind != nil && errors.Is(c.kind, target)
}

func (c *checkpoint) As(target interface{}) bool {
	return c.kind != nil && errors.As(c.kind, target)
}
