package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Device record fields
const (
	FieldErr     = "ERR"
	FieldVersion = "VERSION"
	FieldPage    = "PAGE"
	FieldVal     = "VAL"
	FieldCmd     = "CMD"
)

// Message is one decoded inbound message: a *Record or a RawBytes payload.
type Message interface {
	isMessage()
	String() string
}

// Record is a structured key/value message.
// Raw holds the exact bytes the record was decoded from.
type Record struct {
	Raw    []byte
	Fields map[string]any
}

func (*Record) isMessage() {}

// String returns the record's JSON text
func (r *Record) String() string {
	return fmt.Sprintf("Record%s", bytes.TrimSpace(r.Raw))
}

// Has reports whether the record carries key.
func (r *Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Get returns the raw decoded value for key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Int returns key as an integer. Non-integral or missing values report false.
func (r *Record) Int(key string) (int, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

// StringField returns key as a string. Missing or non-string values report false.
func (r *Record) StringField(key string) (string, bool) {
	v, ok := r.Fields[key].(string)
	return v, ok
}

// RawBytes is an undifferentiated binary payload (a widget value update).
type RawBytes []byte

func (RawBytes) isMessage() {}

// String returns a short description of the payload
func (b RawBytes) String() string {
	return fmt.Sprintf("RawBytes{len=%d}", len(b))
}

// AsInt converts a decoded JSON number to int.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Split decodes one frame payload into inbound messages.
//
// The payload must start with a JSON object. If bytes other than JSON
// whitespace follow it, they are returned as a RawBytes message after the
// Record: the device appends a raw value block to a control record in the
// same frame. The record's Raw plus the tail always cover the whole payload.
// Any other shape is a Decode error.
func Split(payload []byte) ([]Message, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, NewDecodeError("payload does not start with a JSON record", err)
	}
	if fields == nil {
		return nil, NewDecodeError("payload record is null", nil)
	}

	offset := int(dec.InputOffset())
	tail := payload[offset:]

	if len(bytes.TrimLeft(tail, " \t\r\n")) == 0 {
		return []Message{&Record{Raw: payload, Fields: fields}}, nil
	}

	return []Message{
		&Record{Raw: payload[:offset], Fields: fields},
		RawBytes(tail),
	}, nil
}
