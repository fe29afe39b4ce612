package device

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/chardev/chardevd/internal/queue"
)

// Errno translates a queue error into the errno a character driver would
// return across the syscall boundary. Unknown errors map to EIO.
func Errno(err error) unix.Errno {
	switch {
	case errors.Is(err, queue.ErrTooLarge):
		return unix.EINVAL
	case errors.Is(err, queue.ErrFull):
		return unix.EBUSY
	case errors.Is(err, queue.ErrWouldBlock):
		return unix.EAGAIN
	default:
		return unix.EIO
	}
}

// wrapErrno attaches the errno to a queue error so callers can match either
// with errors.Is.
func wrapErrno(err error) error {
	if err == nil {
		return nil
	}
	return &errnoError{errno: Errno(err), cause: err}
}

type errnoError struct {
	errno unix.Errno
	cause error
}

func (e *errnoError) Error() string {
	return e.cause.Error() + ": " + e.errno.Error()
}

func (e *errnoError) Unwrap() error { return e.cause }

// Is lets errors.Is match the errno directly; the wrapped queue error is
// still reachable through Unwrap.
func (e *errnoError) Is(target error) bool {
	errno, ok := target.(unix.Errno)
	return ok && e.errno == errno
}
