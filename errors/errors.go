// Package errors provides error handling for facts.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for users
//   - Assertion failures for internal consistency bugs
//
// The sentinels below describe the core's failure taxonomy. Bad external
// data never produces an error: coercion returns (nil, nil) for that case.
// Errors are reserved for malformed unit expressions, incompatible measure
// arithmetic and misconfigured field descriptors.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	return errors.Wrapf(errors.ErrTypeMismatch, "cannot add %s to %s", a, b)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Assertions
var (
	AssertionFailedf   = crdb.AssertionFailedf
	IsAssertionFailure = crdb.IsAssertionFailure
)

// Sentinels. Wrap these with Wrapf to add context while preserving the type.
var (
	// ErrParse indicates a malformed unit expression.
	ErrParse = New("parse error")

	// ErrTypeMismatch indicates arithmetic or comparison between measures
	// whose units differ.
	ErrTypeMismatch = New("type mismatch")

	// ErrUnsupportedKind indicates a type descriptor naming a kind the
	// coercion engine does not know.
	ErrUnsupportedKind = New("unsupported type descriptor")

	// ErrMissingOption indicates a type descriptor lacking a required option,
	// such as the unit of a measure field.
	ErrMissingOption = New("missing required option")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsParseError checks if an error is or wraps ErrParse
func IsParseError(err error) bool {
	return err != nil && Is(err, ErrParse)
}

// IsTypeMismatch checks if an error is or wraps ErrTypeMismatch
func IsTypeMismatch(err error) bool {
	return err != nil && Is(err, ErrTypeMismatch)
}

// IsConfigurationError reports whether err comes from a misconfigured
// field descriptor rather than from the data being coerced.
func IsConfigurationError(err error) bool {
	return err != nil && IsAny(err, ErrUnsupportedKind, ErrMissingOption)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
