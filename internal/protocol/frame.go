package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// PrefixSize is the size of the big-endian frame length prefix
	PrefixSize = 4

	// DefaultMaxFrameSize bounds a single frame payload
	DefaultMaxFrameSize = 1 << 20
)

// ReadFrame reads one length-prefixed frame from r and returns its payload.
//
// A clean EOF before the prefix, or a declared length of zero, means the
// device closed the connection and yields a PeerClosed error. A truncated
// prefix or payload, or a length above maxSize, yields a Transport error.
// Socket timeouts surface as Transport errors via ClassifyReadError.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var prefix [PrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, NewTransportError("truncated frame prefix", err)
		}
		return nil, ClassifyReadError(err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return nil, NewPeerClosedError("zero-length frame")
	}
	if uint64(length) > uint64(maxSize) {
		return nil, NewTransportError(fmt.Sprintf("frame length %d exceeds limit %d", length, maxSize), nil)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, NewTransportError("truncated frame payload", err)
		}
		return nil, ClassifyReadError(err)
	}

	return payload, nil
}

// EncodeFrame returns payload with a 4-byte big-endian length prefix.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, PrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[PrefixSize:], payload)
	return frame
}

// WriteFrame writes payload as a single write, length-prefixed when
// lengthPrefix is set and raw otherwise.
func WriteFrame(w io.Writer, payload []byte, lengthPrefix bool) error {
	data := payload
	if lengthPrefix {
		data = EncodeFrame(payload)
	}
	if _, err := w.Write(data); err != nil {
		return NewTransportError("write failed", err)
	}
	return nil
}
