// Package iamerr defines the closed set of construction-time error kinds
// shared by listing, mapping, iamindex and bex.
package iamerr

import (
	"errors"
	"fmt"
)

// Kind is one of the four decoding failure categories. The set is closed:
// no fifth kind is ever introduced.
type Kind uint8

const (
	// InvalidValue marks a count, mask or cardinality outside its allowed range.
	InvalidValue Kind = iota
	// InvalidOffset marks a size/prefix table that isn't monotone, or doesn't start at zero.
	InvalidOffset
	// InvalidLength marks a byte region too small for, or not exactly consumed by, the encoded structure.
	InvalidLength
	// InvalidHeader marks a magic mismatch or an unknown tag hit during dispatch.
	InvalidHeader
)

func (k Kind) String() string {
	switch k {
	case InvalidValue:
		return "InvalidValue"
	case InvalidOffset:
		return "InvalidOffset"
	case InvalidLength:
		return "InvalidLength"
	case InvalidHeader:
		return "InvalidHeader"
	default:
		return "UnknownKind"
	}
}

// Error is a construction-boundary decoding failure. Component names the
// package that raised it (e.g. "listing", "mapping", "iamindex", "bex").
type Error struct {
	Kind      Kind
	Component string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is an *Error of the given kind, regardless of
// which component raised it.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// New builds an *Error for component raising kind, optionally wrapping cause.
func New(component string, kind Kind, format string, args ...any) *Error {
	var cause error
	if format != "" {
		cause = fmt.Errorf(format, args...)
	}
	return &Error{Kind: kind, Component: component, Cause: cause}
}

// Wrap attaches component/kind context to an existing error.
func Wrap(component string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Component: component, Cause: err}
}
