// Package fserr defines the POSIX-style error taxonomy used by the
// filesystem adapter.
package fserr

import (
	"errors"
	"fmt"
)

// Kind classifies a filesystem failure.
type Kind int

const (
	// FileNotFound: the path is absent from the index, or the remote
	// reported a 404-class failure.
	FileNotFound Kind = iota
	// NotADirectory: a directory operation hit a file node.
	NotADirectory
	// IsADirectory: a file operation hit a directory node.
	IsADirectory
	// AlreadyExists: the open flags demanded creation or truncation of
	// a path that already resolves to a file.
	AlreadyExists
	// PermissionDenied: write intent against the read-only store.
	PermissionDenied
	// InvalidArgument: unrecognized flags or malformed input.
	InvalidArgument
	// TransportFailure: the underlying fetch failed for a reason other
	// than the object being absent. Never retried.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "file not found"
	case NotADirectory:
		return "not a directory"
	case IsADirectory:
		return "is a directory"
	case AlreadyExists:
		return "already exists"
	case PermissionDenied:
		return "permission denied"
	case InvalidArgument:
		return "invalid argument"
	case TransportFailure:
		return "transport failure"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Error is a classified filesystem error tied to a path.
type Error struct {
	Kind Kind
	Path string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error for a path.
func New(kind Kind, path string) *Error {
	return &Error{Kind: kind, Path: path}
}

// Wrap creates a classified error carrying an underlying cause.
func Wrap(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the kind of a classified error. The second result is
// false if err is not a *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// Is reports whether err is a classified error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
