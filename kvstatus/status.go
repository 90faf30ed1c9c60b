// Package kvstatus defines the Status value type used as the error
// currency across the storage engine, mirroring the engine's preference
// for typed, chainable errors over bare error strings.
package kvstatus

import "fmt"

// Code classifies a Status.
type Code int

const (
	Ok Code = iota
	NotFound
	Corruption
	NotSupported
	InvalidArgument
	IOError
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "OK"
	case NotFound:
		return "NotFound"
	case Corruption:
		return "Corruption"
	case NotSupported:
		return "NotSupported"
	case InvalidArgument:
		return "InvalidArgument"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Status is a small value type carrying a Code and an optional message.
// An Ok status allocates nothing beyond its own fields; it is the zero
// value of Status.
type Status struct {
	code   Code
	msg    string
	msg2   string
	cause  error
	hasErr bool
}

// OK returns the zero-cost success status.
func OK() Status { return Status{code: Ok} }

// IsOK reports whether s represents success.
func (s Status) IsOK() bool { return !s.hasErr && s.code == Ok }

// Code returns the status's classification.
func (s Status) Code() Code { return s.code }

func newStatus(c Code, msg string) Status {
	return Status{code: c, msg: msg, hasErr: true}
}

func NewNotFound(msg string) Status        { return newStatus(NotFound, msg) }
func NewCorruption(msg string) Status      { return newStatus(Corruption, msg) }
func NewNotSupported(msg string) Status    { return newStatus(NotSupported, msg) }
func NewInvalidArgument(msg string) Status { return newStatus(InvalidArgument, msg) }
func NewIOError(msg string) Status         { return newStatus(IOError, msg) }

// WithCause attaches a secondary message, joined with ": " in Error/String,
// mirroring the "Message ‖ ': ' ‖ secondary" convention used throughout the
// reference implementation's corruption reporting.
func (s Status) WithCause(cause string) Status {
	s.msg2 = cause
	return s
}

// Wrap attaches an underlying error as the Status's cause, preserving it
// for errors.Is/errors.As through Unwrap while still reporting this
// Status's Code and message as the outward-facing error.
func (s Status) Wrap(cause error) Status {
	if cause != nil {
		s.msg2 = cause.Error()
		s.cause = cause
	}
	return s
}

// Unwrap exposes the cause attached via Wrap, if any.
func (s Status) Unwrap() error { return s.cause }

func (s Status) Error() string {
	if s.IsOK() {
		return ""
	}
	if s.msg2 != "" {
		return fmt.Sprintf("%s: %s: %s", s.code, s.msg, s.msg2)
	}
	return fmt.Sprintf("%s: %s", s.code, s.msg)
}

func (s Status) String() string {
	if s.IsOK() {
		return "OK"
	}
	return s.Error()
}

// IsNotFound, IsCorruption, etc. are convenience predicates matching the
// teacher's IsValidationError / IsUnsupportedError helper pattern.
func (s Status) IsNotFound() bool        { return s.code == NotFound }
func (s Status) IsCorruption() bool      { return s.code == Corruption }
func (s Status) IsNotSupported() bool    { return s.code == NotSupported }
func (s Status) IsInvalidArgument() bool { return s.code == InvalidArgument }
func (s Status) IsIOError() bool         { return s.code == IOError }

// ToError converts a Status into a standard error, returning nil for Ok.
// This is the seam between this package's value-type Status and Go's
// ordinary error-returning functions used everywhere else in the engine.
func (s Status) ToError() error {
	if s.IsOK() {
		return nil
	}
	return s
}
