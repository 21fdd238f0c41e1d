package widget

import (
	"fmt"

	"github.com/muurk/ctrlpanel/internal/logging"
	"go.uber.org/zap"
)

// Switch selects one of several options.
// With show_zero the device index space is 0..N-1, otherwise 1..N.
type Switch struct {
	base
	options    []string
	index      uint32
	outOfRange bool
}

// Options returns the option labels.
func (s *Switch) Options() []string { return s.options }

// Index returns the last selected index in device index space.
func (s *Switch) Index() uint32 { return s.index }

// OutOfRange reports whether the last decoded index had no option.
func (s *Switch) OutOfRange() bool { return s.outOfRange }

// first is the device index of the first option.
func (s *Switch) first() uint32 {
	if s.spec.ShowZero {
		return 0
	}
	return 1
}

// InRange reports whether index names an option.
func (s *Switch) InRange(index uint32) bool {
	first := s.first()
	return index >= first && index < first+uint32(len(s.options))
}

// Selected returns the label of the selected option.
func (s *Switch) Selected() (string, bool) {
	if !s.InRange(s.index) {
		return "", false
	}
	return s.options[s.index-s.first()], true
}

// Consume decodes u32 selected index + enabled byte. An index outside the
// option range is flagged, not treated as a layout error.
func (s *Switch) Consume(buf []byte) ([]byte, error) {
	v, rest, err := s.consumeFlag(buf)
	if err != nil {
		return nil, err
	}
	s.index = v
	s.outOfRange = !s.InRange(v)
	if s.outOfRange {
		logging.Warn("Switch index out of range",
			zap.Int("element_id", s.id),
			zap.Uint32("index", v),
			zap.Int("options", len(s.options)),
			zap.Bool("show_zero", s.spec.ShowZero),
		)
	}
	return rest, nil
}

// Display returns the selected label, or a marker for an invalid index.
func (s *Switch) Display() string {
	if label, ok := s.Selected(); ok {
		return label
	}
	return fmt.Sprintf("<invalid %d>", s.index)
}

// Select picks index (device index space) and emits (id, index).
func (s *Switch) Select(index uint32) error {
	if !s.enabled {
		return fmt.Errorf("switch %d is disabled", s.id)
	}
	if !s.InRange(index) {
		return fmt.Errorf("switch %d: index %d out of range", s.id, index)
	}
	s.index = index
	s.outOfRange = false
	s.emit(int(index))
	return nil
}

// Step selects the option delta positions away, wrapping around.
func (s *Switch) Step(delta int) error {
	n := len(s.options)
	if n == 0 {
		return fmt.Errorf("switch %d has no options", s.id)
	}
	pos := 0
	if s.InRange(s.index) {
		pos = int(s.index - s.first())
	}
	pos = ((pos+delta)%n + n) % n
	return s.Select(s.first() + uint32(pos))
}
