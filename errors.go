package jaat

import (
	"errors"
	"fmt"
)

// Kind groups failures by how the engine recovers from them.
type Kind string

const (
	KindStorage        Kind = "storage"
	KindPermission     Kind = "permission"
	KindMedia          Kind = "media"
	KindClassification Kind = "classification"
	KindGeneration     Kind = "generation"
)

// Sentinel errors, usable with errors.Is against any *Error of the same kind.
var (
	ErrStorage        = &Error{Kind: KindStorage}
	ErrPermission     = &Error{Kind: KindPermission}
	ErrMedia          = &Error{Kind: KindMedia}
	ErrClassification = &Error{Kind: KindClassification}
	ErrGeneration     = &Error{Kind: KindGeneration}

	ErrUnknownPersona = errors.New("unknown persona")
	ErrNotReady       = errors.New("mode not initialized")
)

// Error is a kinded error carrying the failing operation and key.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

// NewError wraps err with a kind and operation.
func NewError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
