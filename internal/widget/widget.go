package widget

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/queue"
)

// NoElementID is the element id of labels
const NoElementID = -1

// Event is a user-originated value change for one element.
type Event struct {
	ElementID int
	Value     any
}

// Events is the FIFO interactive widgets push into.
type Events = queue.Queue[Event]

// Widget is a runtime control element bound to its Spec.
type Widget interface {
	Kind() Kind
	Spec() *Spec
	// ElementID is NoElementID for labels.
	ElementID() int
	Enabled() bool
	// Consume decodes this widget's slice from the front of buf and
	// returns the rest. Too few bytes is a Layout error.
	Consume(buf []byte) ([]byte, error)
	// Display is the text to show for the widget's current state.
	Display() string
}

// New instantiates spec. id is ignored for labels.
func New(spec Spec, id int, events *Events) Widget {
	b := base{spec: spec, id: id, events: events}
	switch spec.Kind {
	case KindButton:
		return &Button{base: b}
	case KindLabel:
		b.id = NoElementID
		return &Label{base: b}
	case KindEntry:
		return &Entry{base: b}
	case KindValue:
		b.enabled = true
		return &Value{base: b}
	case KindSwitch:
		return &Switch{base: b, options: spec.Options()}
	default:
		panic(fmt.Sprintf("widget: unhandled kind %v", spec.Kind))
	}
}

type base struct {
	spec    Spec
	id      int
	enabled bool
	events  *Events
}

func (b *base) Kind() Kind     { return b.spec.Kind }
func (b *base) Spec() *Spec    { return &b.spec }
func (b *base) ElementID() int { return b.id }
func (b *base) Enabled() bool  { return b.enabled }

func (b *base) emit(value any) {
	if b.events != nil {
		b.events.Push(Event{ElementID: b.id, Value: value})
	}
}

func (b *base) underflow(need, have int) error {
	return protocol.NewLayoutError(fmt.Sprintf("%s element %d needs %d bytes, %d left",
		b.spec.Kind, b.id, need, have))
}

// consumeFlag reads the u32 + enabled byte shared by buttons and switches.
func (b *base) consumeFlag(buf []byte) (uint32, []byte, error) {
	if len(buf) < 5 {
		return 0, nil, b.underflow(5, len(buf))
	}
	v := binary.LittleEndian.Uint32(buf[:4])
	b.enabled = buf[4] != 0
	return v, buf[5:], nil
}

// consumeString reads a NUL-terminated string followed by two trailing bytes.
func (b *base) consumeString(buf []byte) (string, byte, []byte, error) {
	end := -1
	for i, c := range buf {
		if c == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", 0, nil, protocol.NewLayoutError(fmt.Sprintf("%s element %d: unterminated string", b.spec.Kind, b.id))
	}
	if len(buf) < end+3 {
		return "", 0, nil, b.underflow(end+3, len(buf))
	}
	return string(buf[:end]), buf[end+1], buf[end+3:], nil
}

// Label is static text. It has no element id and no bytes in the blob.
type Label struct {
	base
}

// Consume returns buf unchanged.
func (l *Label) Consume(buf []byte) ([]byte, error) {
	return buf, nil
}

// Display returns the label text.
func (l *Label) Display() string {
	return l.spec.Text
}
