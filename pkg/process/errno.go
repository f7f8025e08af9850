package process

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/resource/console"
	"github.com/marmos91/kobject/pkg/resource/device"
	"github.com/marmos91/kobject/pkg/resource/fs"
	"github.com/marmos91/kobject/pkg/resource/window"
	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// Errno is the status a failed syscall reports to the calling process.
//
// Values follow the conventional Unix numbering so shells and tools can
// print familiar names.
type Errno int

const (
	ENOENT    Errno = 2
	ESRCH     Errno = 3
	EINTR     Errno = 4
	EIO       Errno = 5
	EBADF     Errno = 9
	ECHILD    Errno = 10
	EEXIST    Errno = 17
	ENOTDIR   Errno = 20
	EISDIR    Errno = 21
	EINVAL    Errno = 22
	EMFILE    Errno = 24
	EROFS     Errno = 30
	ENOSYS    Errno = 38
	ENOTEMPTY Errno = 39
)

var errnoNames = map[Errno]struct{ name, msg string }{
	ENOENT:    {"ENOENT", "no such file or directory"},
	ESRCH:     {"ESRCH", "no such process"},
	EINTR:     {"EINTR", "interrupted"},
	EIO:       {"EIO", "input/output error"},
	EBADF:     {"EBADF", "bad object descriptor"},
	ECHILD:    {"ECHILD", "no child process"},
	EEXIST:    {"EEXIST", "entry exists"},
	ENOTDIR:   {"ENOTDIR", "not a directory"},
	EISDIR:    {"EISDIR", "is a directory"},
	EINVAL:    {"EINVAL", "invalid argument"},
	EMFILE:    {"EMFILE", "too many open objects"},
	EROFS:     {"EROFS", "read-only device"},
	ENOSYS:    {"ENOSYS", "operation not supported by object"},
	ENOTEMPTY: {"ENOTEMPTY", "directory not empty"},
}

// String returns the symbolic name (e.g. "ENOENT").
func (e Errno) String() string {
	if n, ok := errnoNames[e]; ok {
		return n.name
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

// Error returns the human-readable description.
func (e Errno) Error() string {
	if n, ok := errnoNames[e]; ok {
		return n.msg
	}
	return e.String()
}

// Status returns the negative value a syscall returns to user space.
func (e Errno) Status() int {
	return -int(e)
}

// SyscallError records a failed syscall with its errno and cause.
type SyscallError struct {
	Syscall string
	Errno   Errno
	Err     error
}

func (e *SyscallError) Error() string {
	if e.Err == nil || e.Err == error(e.Errno) {
		return fmt.Sprintf("%s: %s", e.Syscall, e.Errno.Error())
	}
	return fmt.Sprintf("%s: %s: %v", e.Syscall, e.Errno.Error(), e.Err)
}

func (e *SyscallError) Unwrap() error {
	return e.Err
}

// Is matches an Errno target, so errors.Is(err, process.ENOENT) works on
// any syscall failure.
func (e *SyscallError) Is(target error) bool {
	t, ok := target.(Errno)
	return ok && t == e.Errno
}

var sentinelErrnos = []struct {
	err   error
	errno Errno
}{
	{context.Canceled, EINTR},
	{context.DeadlineExceeded, EINTR},
	{device.ErrReadOnly, EROFS},
	{device.ErrOutOfRange, EINVAL},
	{fs.ErrIsDirectory, EISDIR},
	{fs.ErrNotDirectory, ENOTDIR},
	{window.ErrOutOfBounds, EINVAL},
	{window.ErrRootWindow, EINVAL},
	{window.ErrShortBuffer, EINVAL},
	{console.ErrWindowTooSmall, EINVAL},
	{content.ErrContentNotFound, ENOENT},
	{content.ErrInvalidOffset, EINVAL},
	{content.ErrStoreClosed, EIO},
	{metadata.ErrStoreClosed, EIO},
}

var storeErrnos = map[metadata.ErrorCode]Errno{
	metadata.ErrNotFound:        ENOENT,
	metadata.ErrAlreadyExists:   EEXIST,
	metadata.ErrNotEmpty:        ENOTEMPTY,
	metadata.ErrNotDirectory:    ENOTDIR,
	metadata.ErrInvalidArgument: EINVAL,
	metadata.ErrIOError:         EIO,
}

var kobjectErrnos = map[kobject.ErrorCode]Errno{
	kobject.NotFound:       ENOENT,
	kobject.NotImplemented: ENOSYS,
	kobject.InvalidRequest: EINVAL,
	kobject.NotADirectory:  ENOTDIR,
}

// ErrnoOf translates err into the errno a process sees.
//
// The most specific cause wins: an explicit Errno, then backend sentinels,
// then node store codes, then the kobject error code. Anything else is EIO.
// A nil error yields 0.
func ErrnoOf(err error) Errno {
	if err == nil {
		return 0
	}

	var serr *SyscallError
	if errors.As(err, &serr) {
		return serr.Errno
	}

	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}

	for _, s := range sentinelErrnos {
		if errors.Is(err, s.err) {
			return s.errno
		}
	}

	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		if e, ok := storeErrnos[storeErr.Code]; ok {
			return e
		}
	}

	if e, ok := kobjectErrnos[kobject.CodeOf(err)]; ok {
		return e
	}
	return EIO
}
