// Package fserr defines the error kinds reported by the file system.
package fserr

import (
	"errors"
	"fmt"
)

type Kind uint64

const (
	None Kind = iota
	OutOfSpace
	FileNotOpen
	FileOpen
	FileNotFound
	FileReadOnly
	FileAlreadyExists
	ExceedsMaxFileSize
	IllegalFilename
	IOError
)

func (k Kind) String() string {
	switch k {
	case None:
		return "NONE"
	case OutOfSpace:
		return "OUT_OF_SPACE"
	case FileNotOpen:
		return "FILE_NOT_OPEN"
	case FileOpen:
		return "FILE_OPEN"
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case FileReadOnly:
		return "FILE_READ_ONLY"
	case FileAlreadyExists:
		return "FILE_ALREADY_EXISTS"
	case ExceedsMaxFileSize:
		return "EXCEEDS_MAX_FILE_SIZE"
	case IllegalFilename:
		return "ILLEGAL_FILENAME"
	case IOError:
		return "IO_ERROR"
	default:
		return fmt.Sprintf("Kind(%d)", uint64(k))
	}
}

// Describe returns a human-readable message for k.
func Describe(k Kind) string {
	switch k {
	case None:
		return "no error"
	case OutOfSpace:
		return "out of space"
	case FileNotOpen:
		return "file not open"
	case FileOpen:
		return "file is already open"
	case FileNotFound:
		return "file not found"
	case FileReadOnly:
		return "file is open read-only"
	case FileAlreadyExists:
		return "file already exists"
	case ExceedsMaxFileSize:
		return "exceeds maximum file size"
	case IllegalFilename:
		return "illegal filename"
	case IOError:
		return "device I/O error"
	default:
		return "unknown error"
	}
}

// Error is a failed operation of a particular Kind. Err is the underlying
// cause, if any (always set for IOError).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, Describe(e.Kind), e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, Describe(e.Kind))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, fserr.FileNotFound) match on kind.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

// Kind satisfies error so a bare Kind can be an errors.Is target.
func (k Kind) Error() string {
	return Describe(k)
}

func New(op string, k Kind) error {
	return &Error{Kind: k, Op: op}
}

// IO wraps a device failure.
func IO(op string, err error) error {
	return &Error{Kind: IOError, Op: op, Err: err}
}

// Corrupt reports on-disk data that cannot be valid, such as an inode
// number or block address outside its table. It is an IOError: the device
// returned bad contents.
func Corrupt(op string, format string, a ...interface{}) error {
	return &Error{Kind: IOError, Op: op, Err: fmt.Errorf("corrupt: "+format, a...)}
}

// KindOf extracts the Kind of err. nil is None; an error that carries no
// Kind is treated as IOError.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return IOError
}
