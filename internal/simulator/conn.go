package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/muurk/ctrlpanel/internal/logging"
	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/widget"
	"go.uber.org/zap"
)

// Device diagnostics, sent as {"ERR":"..."}.
const (
	ErrNotObject        = "Expected JSON object as message."
	ErrCmdNotString     = "CMD attribute must be an string."
	ErrUnknownCmd       = "Unknown CMD."
	ErrUnknownField     = "Unknown field, supported only CMD, VAL."
	ErrValNotObject     = "Expected JSON object in VAL attribute."
	ErrWrongResource    = "Unsupported resource."
	ErrValEmpty         = "Empty VAL attribute."
	ErrInvalidPageID    = "Invalid page ID."
	ErrValNotExpected   = "VAL not expected with POLL command."
	ErrPageOutOfRange   = "Page out of range."
	ErrValNotPair       = "Expected [element, value] array in VAL attribute."
	ErrInvalidElementID = "Invalid element ID."
	ErrElementRange     = "Element out of range."
	ErrReadOnly         = "Element is read-only."
	ErrInvalidValue     = "Invalid element value."
)

// Conn is the protocol state of one client connection.
type Conn struct {
	dev  *Device
	page int
	log  *zap.Logger
}

// NewConn starts a connection on the first page.
func (d *Device) NewConn(remoteAddr string) *Conn {
	return &Conn{
		dev: d,
		log: logging.GetLogger().With(zap.String("remote_addr", remoteAddr)),
	}
}

// Page returns the connection's active page
func (c *Conn) Page() int { return c.page }

// Greeting returns the first frame sent on a new connection.
func (c *Conn) Greeting() []byte {
	return fmt.Appendf(nil, `{"%s":%d,"%s":%d}`,
		protocol.FieldVersion, ProtocolVersion, protocol.FieldPage, c.page)
}

// Handle answers one client command with one frame payload.
func (c *Conn) Handle(msg []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil || fields == nil {
		return errorReply(ErrNotObject)
	}

	for key := range fields {
		if key != protocol.FieldCmd && key != protocol.FieldVal {
			return errorReply(ErrUnknownField)
		}
	}

	var cmd string
	if err := json.Unmarshal(fields[protocol.FieldCmd], &cmd); err != nil {
		return errorReply(ErrCmdNotString)
	}
	val, hasVal := fields[protocol.FieldVal]

	switch cmd {
	case protocol.CmdPoll:
		if hasVal {
			return errorReply(ErrValNotExpected)
		}
		return c.valuesReply()
	case protocol.CmdGet:
		return c.get(val)
	case protocol.CmdSet:
		return c.set(val)
	default:
		// the firmware pads this one
		return []byte(`{ "ERR": "Unknown CMD." }`)
	}
}

func (c *Conn) get(val json.RawMessage) []byte {
	var resource map[string]json.RawMessage
	if err := json.Unmarshal(val, &resource); err != nil || resource == nil {
		return errorReply(ErrValNotObject)
	}
	if len(resource) == 0 {
		return errorReply(ErrValEmpty)
	}
	raw, ok := resource[protocol.FieldPage]
	if !ok || len(resource) > 1 {
		return errorReply(ErrWrongResource)
	}

	id, ok := parsePageID(raw)
	if !ok {
		return errorReply(ErrInvalidPageID)
	}
	if id >= c.dev.PageCount() {
		return errorReply(ErrPageOutOfRange)
	}

	c.log.Debug("Serving page description", zap.Int("page_id", id))
	return c.dev.pages[id].description
}

// parsePageID accepts a non-negative decimal integer below 65535.
func parsePageID(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || raw[0] < '0' || raw[0] > '9' {
		return 0, false
	}
	n, err := strconv.ParseUint(string(raw), 10, 16)
	if err != nil || n >= math.MaxUint16 {
		return 0, false
	}
	return int(n), true
}

func (c *Conn) set(val json.RawMessage) []byte {
	var pair []json.RawMessage
	if err := json.Unmarshal(val, &pair); err != nil || len(pair) != 2 {
		return errorReply(ErrValNotPair)
	}

	var id int
	if err := json.Unmarshal(pair[0], &id); err != nil {
		return errorReply(ErrInvalidElementID)
	}

	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	p := c.dev.pages[c.page]
	if id < 0 || id >= len(p.elements) {
		return errorReply(ErrElementRange)
	}

	slot := &p.values[id]
	if !slot.Enabled {
		c.log.Warn("Ignoring SET on disabled element", zap.Int("page_id", c.page), zap.Int("element_id", id))
		return c.valuesReplyLocked()
	}

	if reply := storeValue(p.elements[id], slot, pair[1]); reply != nil {
		return reply
	}
	c.log.Info("Element set",
		zap.Int("page_id", c.page),
		zap.Int("element_id", id),
		zap.ByteString("value", pair[1]),
	)

	next := NoPageChange
	if p.onSet != nil {
		next = p.onSet(c.dev, p.values, id)
	}
	if next != NoPageChange && next != c.page && next < len(c.dev.pages) {
		c.log.Info("Changing page", zap.Int("from", c.page), zap.Int("to", next))
		c.page = next
		return fmt.Appendf(nil, `{"%s":%d}`, protocol.FieldPage, next)
	}
	return c.valuesReplyLocked()
}

// storeValue writes a SET value into slot. It returns an ERR reply if the
// value does not fit the element.
func storeValue(spec widget.Spec, slot *Slot, raw json.RawMessage) []byte {
	switch spec.Kind {
	case widget.KindButton, widget.KindSwitch:
		var n int32
		if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
			return errorReply(ErrInvalidValue)
		}
		if n > maxIndex(spec) {
			return errorReply(ErrInvalidValue)
		}
		slot.Int = n
	case widget.KindEntry:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.IndexByte(s, 0) >= 0 {
			return errorReply(ErrInvalidValue)
		}
		slot.Text = s
	default:
		return errorReply(ErrReadOnly)
	}
	return nil
}

// maxIndex is the largest value a button or switch accepts.
func maxIndex(spec widget.Spec) int32 {
	if spec.Kind == widget.KindButton {
		return 1
	}
	n := int32(len(spec.Options()))
	if spec.ShowZero {
		n--
	}
	return n
}

func (c *Conn) valuesReply() []byte {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	return c.valuesReplyLocked()
}

func (c *Conn) valuesReplyLocked() []byte {
	reply := fmt.Appendf(nil, `{"%s":%d}`, protocol.FieldVal, c.page)
	return append(reply, c.dev.encodeValues(c.page)...)
}

func errorReply(msg string) []byte {
	reply, _ := json.Marshal(map[string]string{protocol.FieldErr: msg})
	return reply
}
