package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/muurk/ctrlpanel/internal/protocol"
)

// Position is an explicit grid cell
type Position struct {
	Row int
	Col int
}

// Size is the declared page grid
type Size struct {
	Rows int
	Cols int
}

// Spec is the declarative description of one widget.
type Spec struct {
	Kind         Kind
	Text         string
	TextDisabled string
	Unit         string
	Hint         string
	ValueType    ValueType
	Special      []Special
	ShowZero     bool
	Vertical     bool
	Pass         bool
	Position     *Position
}

// Options returns a switch's option labels (comma separated in Text).
func (s *Spec) Options() []string {
	if s.Text == "" {
		return nil
	}
	return strings.Split(s.Text, ",")
}

type specJSON struct {
	Type         string          `json:"type"`
	Text         string          `json:"text"`
	TextDisabled string          `json:"text_disabled"`
	Unit         string          `json:"unit"`
	Hint         string          `json:"hint"`
	ValueType    string          `json:"value_type"`
	Special      json.RawMessage `json:"special"`
	ShowZero     *bool           `json:"show_zero"`
	Vertical     bool            `json:"vertical"`
	Pass         bool            `json:"pass"`
	Position     []int           `json:"position"`
}

// UnmarshalJSON decodes a descriptor widget entry.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw specJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind, err := ParseKind(raw.Type)
	if err != nil {
		return err
	}

	spec := Spec{
		Kind:         kind,
		Text:         raw.Text,
		TextDisabled: raw.TextDisabled,
		Unit:         raw.Unit,
		Hint:         raw.Hint,
		ShowZero:     true,
		Vertical:     raw.Vertical,
		Pass:         raw.Pass,
	}
	if raw.ShowZero != nil {
		spec.ShowZero = *raw.ShowZero
	}

	if kind == KindValue {
		if raw.ValueType == "" {
			return fmt.Errorf("value widget %q has no value_type", raw.Text)
		}
		if spec.ValueType, err = ParseValueType(raw.ValueType); err != nil {
			return err
		}
	}

	if len(raw.Special) > 0 {
		if spec.Special, err = parseSpecial(raw.Special); err != nil {
			return err
		}
	}

	if raw.Position != nil {
		if len(raw.Position) != 2 || raw.Position[0] < 0 || raw.Position[1] < 0 {
			return fmt.Errorf("invalid position %v", raw.Position)
		}
		spec.Position = &Position{Row: raw.Position[0], Col: raw.Position[1]}
	}

	*s = spec
	return nil
}

// Descriptor is a decoded page description.
type Descriptor struct {
	Widgets []Spec
	// Size is nil when the page does not declare one.
	Size *Size
}

// ParseDescriptor decodes a page description record.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	var doc struct {
		Widgets *[]Spec `json:"widgets"`
		Size    []int   `json:"size"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, protocol.NewValidationError("cannot decode page description", err)
	}
	if doc.Widgets == nil {
		return nil, protocol.NewValidationError("page description has no widgets", nil)
	}

	d := &Descriptor{Widgets: *doc.Widgets}
	if doc.Size != nil {
		if len(doc.Size) != 2 || doc.Size[0] < 1 || doc.Size[1] < 1 {
			return nil, protocol.NewValidationError(fmt.Sprintf("invalid page size %v", doc.Size), nil)
		}
		d.Size = &Size{Rows: doc.Size[0], Cols: doc.Size[1]}
	}
	return d, nil
}

// ElementCount returns the number of widgets with an element id.
func (d *Descriptor) ElementCount() int {
	n := 0
	for i := range d.Widgets {
		if d.Widgets[i].Kind.HasElementID() {
			n++
		}
	}
	return n
}

// Special maps a value, or a closed range of values, to a display label.
type Special struct {
	Label string

	// Range is false for exact entries.
	Range bool
	// Exact is a float64 or a string.
	Exact any
	// Low and High bound a range; nil is unbounded.
	Low  *float64
	High *float64
}

// MatchNumber reports whether v hits this entry.
func (s Special) MatchNumber(v float64) bool {
	if !s.Range {
		f, ok := s.Exact.(float64)
		return ok && f == v
	}
	if s.Low != nil && v < *s.Low {
		return false
	}
	if s.High != nil && v > *s.High {
		return false
	}
	return true
}

// MatchString reports whether v equals this exact entry.
func (s Special) MatchString(v string) bool {
	if s.Range {
		return false
	}
	str, ok := s.Exact.(string)
	return ok && str == v
}

// parseSpecial decodes the special object keeping its key order, since the
// first matching entry wins.
func parseSpecial(data []byte) ([]Special, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid special table: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("special table must be an object")
	}

	var table []Special
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid special table: %w", err)
		}
		label, _ := keyTok.(string)

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("invalid special entry %q: %w", label, err)
		}

		entry, err := parseSpecialEntry(label, val)
		if err != nil {
			return nil, err
		}
		table = append(table, entry)
	}

	return table, nil
}

func parseSpecialEntry(label string, val any) (Special, error) {
	switch v := val.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Special{}, fmt.Errorf("special entry %q: %w", label, err)
		}
		return Special{Label: label, Exact: f}, nil
	case string:
		return Special{Label: label, Exact: v}, nil
	case []any:
		if len(v) != 2 {
			return Special{}, fmt.Errorf("special range %q must have two bounds", label)
		}
		low, err := parseBound(v[0], false)
		if err != nil {
			return Special{}, fmt.Errorf("special range %q: %w", label, err)
		}
		high, err := parseBound(v[1], true)
		if err != nil {
			return Special{}, fmt.Errorf("special range %q: %w", label, err)
		}
		return Special{Label: label, Range: true, Low: low, High: high}, nil
	default:
		return Special{}, fmt.Errorf("special entry %q has unsupported value %v", label, val)
	}
}

// parseBound returns nil for an unbounded side. upper selects which
// infinity is accepted.
func parseBound(v any, upper bool) (*float64, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) {
			return nil, nil
		}
		return &f, nil
	case string:
		switch strings.ToLower(b) {
		case "inf", "+inf", "infinity":
			if upper {
				return nil, nil
			}
		case "-inf", "-infinity":
			if !upper {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("invalid bound %q", b)
	default:
		return nil, fmt.Errorf("invalid bound %v", v)
	}
}
