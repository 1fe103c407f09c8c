// Package apperrors defines the flat error taxonomy that crosses every
// component boundary in this module. The types that carry an underlying
// cause (IOError, I2cError, ParseError) have constructors that wrap it with
// github.com/pkg/errors so a stack trace survives up to cmd/controllerd's
// logging; the other types carry no cause. Call sites still switch on the
// concrete Go type with errors.As instead of matching message text.
package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// IOError wraps a storage or filesystem failure.
type IOError struct{ Cause error }

func (e *IOError) Error() string { return "io error: " + e.Cause.Error() }
func (e *IOError) Unwrap() error { return e.Cause }

// NewIOError wraps cause, attaching a stack trace if it doesn't carry one.
func NewIOError(cause error) *IOError { return &IOError{Cause: errors.WithStack(cause)} }

// I2cError wraps a bus failure.
type I2cError struct{ Cause error }

func (e *I2cError) Error() string { return "i2c error: " + e.Cause.Error() }
func (e *I2cError) Unwrap() error { return e.Cause }

func NewI2cError(cause error) *I2cError { return &I2cError{Cause: errors.WithStack(cause)} }

// InvalidPinDirection is raised when a write targets an input pin, or a
// capability is invoked against a device variant that doesn't support it.
type InvalidPinDirection struct{ Reason string }

func (e *InvalidPinDirection) Error() string { return "invalid pin direction: " + e.Reason }

// NonExistent is a catalogue miss on the device table.
type NonExistent struct{ ID string }

func (e *NonExistent) Error() string { return fmt.Sprintf("device %q does not exist", e.ID) }

// InputNotFound is a catalogue miss on the input table.
type InputNotFound struct{ ID string }

func (e *InputNotFound) Error() string { return fmt.Sprintf("input %q not found", e.ID) }

// OutputNotFound is a catalogue miss on the output table.
type OutputNotFound struct{ ID string }

func (e *OutputNotFound) Error() string { return fmt.Sprintf("output %q not found", e.ID) }

// OutOfBounds is raised when a channel index falls outside a device's range.
type OutOfBounds struct{ Index int }

func (e *OutOfBounds) Error() string { return fmt.Sprintf("channel index %d out of bounds", e.Index) }

// UnitError is raised when a read returns a unit different from the one the
// input declared.
type UnitError struct{ Expected string }

func (e *UnitError) Error() string { return "expected unit " + e.Expected }

// ParseError is raised when the expression parser rejects input.
type ParseError struct{ Cause error }

func (e *ParseError) Error() string { return "parse error: " + e.Cause.Error() }
func (e *ParseError) Unwrap() error { return e.Cause }

func NewParseError(cause error) *ParseError { return &ParseError{Cause: errors.WithStack(cause)} }

// DeviceReadError is a device-specific arithmetic failure, e.g. the
// barometer's calibration division-by-zero guard.
type DeviceReadError struct{ Reason string }

func (e *DeviceReadError) Error() string { return "device read error: " + e.Reason }

// SendError is a mailbox send failure.
type SendError struct{ Cause error }

func (e *SendError) Error() string { return "send error: " + e.Cause.Error() }
func (e *SendError) Unwrap() error { return e.Cause }

// RecvError is a reply-plumbing failure.
type RecvError struct{ Cause error }

func (e *RecvError) Error() string { return "recv error: " + e.Cause.Error() }
func (e *RecvError) Unwrap() error { return e.Cause }

// EncodingError wraps a serialization/deserialization failure.
type EncodingError struct{ Cause error }

func (e *EncodingError) Error() string { return "encoding error: " + e.Cause.Error() }
func (e *EncodingError) Unwrap() error { return e.Cause }

// UserNotFound, TokenIssue, and PasswordIssue are surfaced only by the
// authentication collaborator at the boundary named in spec §6; the core
// never constructs these itself.
type UserNotFound struct{ UserID string }

func (e *UserNotFound) Error() string { return fmt.Sprintf("user %q not found", e.UserID) }

type TokenIssue struct{ Reason string }

func (e *TokenIssue) Error() string { return "token issue: " + e.Reason }

type PasswordIssue struct{ Reason string }

func (e *PasswordIssue) Error() string { return "password issue: " + e.Reason }
