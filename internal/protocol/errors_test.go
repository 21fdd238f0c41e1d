package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrKindTransport, "Transport Error"},
		{ErrKindPeerClosed, "Peer Closed"},
		{ErrKindDecode, "Decode Error"},
		{ErrKindLayout, "Layout Error"},
		{ErrKindValidation, "Validation Error"},
		{ErrorKind(99), "ErrorKind(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewTransportError("read failed", io.ErrUnexpectedEOF)
	if !strings.Contains(err.Error(), "read failed") || !strings.Contains(err.Error(), "caused by") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Unwrap does not expose cause")
	}

	plain := NewLayoutError("2 leftover bytes")
	if plain.Error() != "Layout Error: 2 leftover bytes" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("update page 1: %w", NewLayoutError("underflow"))
	if !IsLayoutError(wrapped) {
		t.Error("IsLayoutError failed through wrapping")
	}
	if IsTransportError(wrapped) || IsDecodeError(wrapped) || IsPeerClosed(wrapped) || IsValidationError(wrapped) {
		t.Error("wrong predicate matched")
	}
	if IsLayoutError(errors.New("plain")) {
		t.Error("plain error matched")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyReadError(t *testing.T) {
	if ClassifyReadError(nil) != nil {
		t.Error("nil should classify to nil")
	}
	if got := ClassifyReadError(io.EOF); got.Kind != ErrKindPeerClosed {
		t.Errorf("EOF -> %v", got.Kind)
	}
	if got := ClassifyReadError(timeoutErr{}); got.Kind != ErrKindTransport || !strings.Contains(got.Message, "timed out") {
		t.Errorf("timeout -> %v", got)
	}
	if got := ClassifyReadError(net.ErrClosed); got.Kind != ErrKindTransport {
		t.Errorf("closed -> %v", got.Kind)
	}
	orig := NewDecodeError("bad", nil)
	if got := ClassifyReadError(orig); got != orig {
		t.Error("existing *Error should pass through")
	}
}

func TestIsTimeoutDeadline(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	_ = a.SetReadDeadline(time.Now().Add(-time.Second))
	_, err := a.Read(make([]byte, 1))
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}
