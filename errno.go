// Package rufs implements a small POSIX-compatible file system whose entire
// persistent state lives in a single fixed-size backing file, the disk
// image. It exposes attribute lookup, directory listing, directory
// creation, file creation, open, read, and write as synchronous operations
// on a Driver; translating those operations into kernel upcalls is a job
// for a host adapter (see internal/fuseadapter), not this package.
package rufs

import (
	"fmt"
	"syscall"
)

// DriverError wraps a POSIX errno code with an optional contextual message.
// The host boundary is expected to report NegativeErrno() to the kernel, per
// the convention that operations return 0 on success or a negative errno.
type DriverError struct {
	Errno   syscall.Errno
	message string
}

func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.Errno.Error()
}

// NegativeErrno returns the negative-valued errno this error maps to at the
// host boundary, e.g. for a FUSE operation's return code.
func (e *DriverError) NegativeErrno() int {
	return -int(e.Errno)
}

func (e *DriverError) Unwrap() error {
	return e.Errno
}

// Is reports whether target is a *DriverError wrapping the same errno, so
// errors.Is(err, ErrNotFound) still matches after WithMessage has wrapped a
// sentinel with extra context.
func (e *DriverError) Is(target error) bool {
	t, ok := target.(*DriverError)
	if !ok {
		return false
	}
	return e.Errno == t.Errno
}

// newError creates a DriverError with a default message derived from errno.
func newError(errno syscall.Errno) *DriverError {
	return &DriverError{Errno: errno, message: errno.Error()}
}

// WithMessage returns a copy of the sentinel error with additional context
// appended to its message. Sentinel errors such as ErrNotFound are shared
// values; calling WithMessage never mutates them.
func (e *DriverError) WithMessage(message string) *DriverError {
	return &DriverError{
		Errno:   e.Errno,
		message: fmt.Sprintf("%s: %s", e.Error(), message),
	}
}

// Sentinel errors surfaced to callers at the host boundary. Each wraps the
// syscall.Errno a FUSE-style adapter would negate and return directly.
var (
	ErrNotFound            = newError(syscall.ENOENT)
	ErrExists              = newError(syscall.EEXIST)
	ErrNoSpace             = newError(syscall.ENOSPC)
	ErrTooLarge            = newError(syscall.EFBIG)
	ErrNotDirectory        = newError(syscall.ENOTDIR)
	ErrIsDirectory         = newError(syscall.EISDIR)
	ErrInvalidArgument     = newError(syscall.EINVAL)
	ErrNotImplemented      = newError(syscall.ENOSYS)
	ErrFileSystemCorrupted = newError(syscall.EUCLEAN)
	ErrNameTooLong         = newError(syscall.ENAMETOOLONG)
)
