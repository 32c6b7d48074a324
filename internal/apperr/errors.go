// Package apperr defines the error taxonomy shared by the storage layers and the
// note coordinator.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindIO
	KindStore
	KindInternal
	KindInvalid
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrIO       = errors.New("io failure")
	ErrStore    = errors.New("store failure")
	ErrInternal = errors.New("internal error")
	ErrInvalid  = errors.New("invalid input")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIO:
		return "io_failure"
	case KindStore:
		return "store_failure"
	case KindInternal:
		return "internal"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindIO:
		return ErrIO
	case KindStore:
		return ErrStore
	case KindInternal:
		return ErrInternal
	case KindInvalid:
		return ErrInvalid
	default:
		return nil
	}
}

// Error is a classified failure. Op names the operation ("create", "metadata.get"),
// ID the note or attachment it concerned, and Step the stage of a multi-step
// operation that failed.
type Error struct {
	Kind Kind
	Op   string
	ID   string
	Step string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.sentinel().Error())
	if e.ID != "" {
		fmt.Fprintf(&b, " (id %s)", e.ID)
	}
	if e.Step != "" {
		fmt.Fprintf(&b, " at step %q", e.Step)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind, so errors.Is(err, ErrNotFound) works for
// classified errors.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// NotFound reports that id does not exist.
func NotFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

// Conflict reports that id already exists.
func Conflict(op, id string, err error) error {
	return &Error{Kind: KindConflict, Op: op, ID: id, Err: err}
}

// IO wraps a filesystem failure.
func IO(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// Store wraps a relational engine failure.
func Store(op string, err error) error {
	return &Error{Kind: KindStore, Op: op, Err: err}
}

// Internal reports that a multi-step operation on id stopped at step and left
// metadata and content inconsistent.
func Internal(op, id, step string, err error) error {
	return &Error{Kind: KindInternal, Op: op, ID: id, Step: step, Err: err}
}

// Invalid reports that caller input was rejected before any store was touched.
func Invalid(op string, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Err: err}
}
