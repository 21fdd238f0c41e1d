package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// ErrorKind represents the category of a protocol failure
type ErrorKind int

const (
	// ErrKindTransport covers connect/read/write failures and malformed frame prefixes.
	// Terminal: surfaces as the connection_failed signal.
	ErrKindTransport ErrorKind = iota
	// ErrKindPeerClosed indicates the device closed the connection (0-byte read).
	// Terminal: surfaces as the closed signal.
	ErrKindPeerClosed
	// ErrKindDecode indicates a frame payload that is neither a Record nor a
	// Record followed by a raw tail. Escalated to a transport failure.
	ErrKindDecode
	// ErrKindLayout indicates an update blob whose size disagrees with the
	// active page's widget layout (underflow or leftover bytes).
	ErrKindLayout
	// ErrKindValidation indicates a page description that cannot be decoded safely.
	ErrKindValidation
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindTransport:
		return "Transport Error"
	case ErrKindPeerClosed:
		return "Peer Closed"
	case ErrKindDecode:
		return "Decode Error"
	case ErrKindLayout:
		return "Layout Error"
	case ErrKindValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is a classified protocol error
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport-level error
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: ErrKindTransport, Message: message, Err: err}
}

// NewPeerClosedError creates an error for an orderly close by the device
func NewPeerClosedError(message string) *Error {
	return &Error{Kind: ErrKindPeerClosed, Message: message}
}

// NewDecodeError creates a payload decoding error
func NewDecodeError(message string, err error) *Error {
	return &Error{Kind: ErrKindDecode, Message: message, Err: err}
}

// NewLayoutError creates a widget layout mismatch error
func NewLayoutError(message string) *Error {
	return &Error{Kind: ErrKindLayout, Message: message}
}

// NewValidationError creates a page description validation error
func NewValidationError(message string, err error) *Error {
	return &Error{Kind: ErrKindValidation, Message: message, Err: err}
}

func isKind(err error, kind ErrorKind) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind == kind
	}
	return false
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool { return isKind(err, ErrKindTransport) }

// IsPeerClosed checks if an error is an orderly close by the device
func IsPeerClosed(err error) bool { return isKind(err, ErrKindPeerClosed) }

// IsDecodeError checks if an error is a payload decoding error
func IsDecodeError(err error) bool { return isKind(err, ErrKindDecode) }

// IsLayoutError checks if an error is a widget layout mismatch
func IsLayoutError(err error) bool { return isKind(err, ErrKindLayout) }

// IsValidationError checks if an error is a page description validation error
func IsValidationError(err error) bool { return isKind(err, ErrKindValidation) }

// IsTimeout reports whether err is a socket deadline expiry.
func IsTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClassifyReadError maps an error from reading the frame prefix to the
// terminal outcome it implies. A clean EOF before any prefix byte is an
// orderly close; everything else (timeouts, resets, a truncated prefix)
// is a transport failure.
func ClassifyReadError(err error) *Error {
	if err == nil {
		return nil
	}
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr
	}
	if errors.Is(err, io.EOF) {
		return NewPeerClosedError("device closed the connection")
	}
	if IsTimeout(err) {
		return NewTransportError("read timed out", err)
	}
	return NewTransportError("read failed", err)
}
