package simulator

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/ctrlpanel/internal/widget"
)

// ProtocolVersion is reported in the greeting
const ProtocolVersion = 1

// NoPageChange is returned by a SetHandler that keeps the current page.
const NoPageChange = -1

// Slot is the current value of one element.
// Buttons and switches use Int, entries and string readouts use Text.
type Slot struct {
	Int     int32
	Float   float32
	Text    string
	Enabled bool
}

// SetHandler runs after a SET stored its value in values[elementID].
// It returns the page the connection should switch to, or NoPageChange.
type SetHandler func(d *Device, values []Slot, elementID int) int

// Sampler refreshes live readouts before the values are sent.
type Sampler func(values []Slot, now time.Time)

// Page is one page a device serves.
type Page struct {
	Description string
	// Values holds the initial value of every element, in element id order.
	Values []Slot
	OnSet  SetHandler
	Sample Sampler
}

type devicePage struct {
	description []byte
	elements    []widget.Spec
	values      []Slot
	onSet       SetHandler
	sample      Sampler
}

// Device is the shared state of a simulated board.
type Device struct {
	mu    sync.Mutex
	pages []*devicePage
	leds  [3]bool
	now   func() time.Time
}

// NewDevice validates pages and creates a device serving them.
func NewDevice(pages []Page) (*Device, error) {
	d := &Device{now: time.Now}
	for i, p := range pages {
		desc, err := widget.ParseDescriptor([]byte(p.Description))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		var elements []widget.Spec
		for _, spec := range desc.Widgets {
			if spec.Kind.HasElementID() {
				elements = append(elements, spec)
			}
		}
		if len(elements) != len(p.Values) {
			return nil, fmt.Errorf("page %d: %d elements but %d initial values", i, len(elements), len(p.Values))
		}

		d.pages = append(d.pages, &devicePage{
			description: []byte(p.Description),
			elements:    elements,
			values:      append([]Slot(nil), p.Values...),
			onSet:       p.OnSet,
			sample:      p.Sample,
		})
	}
	return d, nil
}

// NewDemoDevice creates a device serving DemoPages.
func NewDemoDevice() *Device {
	d, err := NewDevice(DemoPages())
	if err != nil {
		panic(fmt.Sprintf("simulator: invalid demo pages: %v", err))
	}
	return d
}

// SetClock replaces the time source used by samplers.
func (d *Device) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// PageCount returns the number of pages served
func (d *Device) PageCount() int { return len(d.pages) }

// LEDs returns the state of the three board LEDs (green, blue, red).
func (d *Device) LEDs() [3]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leds
}

// Values returns a copy of the current values of page id.
func (d *Device) Values(id int) []Slot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.pages) {
		return nil
	}
	return append([]Slot(nil), d.pages[id].values...)
}

// setLEDs switches every LED off, then turns on the one at index (if any).
func (d *Device) setLEDs(index int) {
	d.leds = [3]bool{}
	if index >= 0 && index < len(d.leds) {
		d.leds[index] = true
	}
}

// encodeValues returns the value blob of page id. Caller holds d.mu.
func (d *Device) encodeValues(id int) []byte {
	p := d.pages[id]
	if p.sample != nil {
		p.sample(p.values, d.now())
	}

	var blob []byte
	for i, spec := range p.elements {
		v := p.values[i]
		switch spec.Kind {
		case widget.KindButton:
			blob = widget.AppendButton(blob, v.Int != 0, v.Enabled)
		case widget.KindSwitch:
			blob = widget.AppendSwitch(blob, uint32(v.Int), v.Enabled)
		case widget.KindEntry:
			blob = widget.AppendEntry(blob, v.Text, v.Enabled)
		case widget.KindValue:
			switch spec.ValueType {
			case widget.ValueInt32:
				blob = widget.AppendInt32(blob, v.Int)
			case widget.ValueFloat:
				blob = widget.AppendFloat(blob, v.Float)
			case widget.ValueString:
				blob = widget.AppendString(blob, v.Text)
			}
		}
	}
	return blob
}
