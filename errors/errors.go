package errors

import (
	// Go Internal Packages
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error so boundaries (HTTP, kafka processors) can map it
// to a response without string matching.
type Kind uint8

const (
	Other Kind = iota
	Invalid
	NotFound
	Conflict
	Internal
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Internal:
		return "internal"
	}
	return "other"
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and a message. err may be nil.
func E(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or Other when the chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// ValidationErrors collects per-field validation failures.
type ValidationErrors struct {
	fields []string
}

func ValidationErrs() *ValidationErrors {
	return &ValidationErrors{}
}

func (v *ValidationErrors) Add(field, msg string) {
	v.fields = append(v.fields, fmt.Sprintf("%s: %s", field, msg))
}

// Err returns nil when no failures were added.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return E(Invalid, "validation failed", errors.New(strings.Join(v.fields, "; ")))
}
