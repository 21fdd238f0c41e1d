package widget

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Value is a read-only device readout.
type Value struct {
	base
	intVal   int32
	floatVal float32
	strVal   string
	decoded  bool
}

// Int returns the last int32 reading.
func (v *Value) Int() int32 { return v.intVal }

// Float returns the last float reading.
func (v *Value) Float() float32 { return v.floatVal }

// Text returns the last string reading.
func (v *Value) Text() string { return v.strVal }

// Consume decodes the reading according to value_type.
func (v *Value) Consume(buf []byte) ([]byte, error) {
	switch v.spec.ValueType {
	case ValueInt32:
		if len(buf) < 5 {
			return nil, v.underflow(5, len(buf))
		}
		v.intVal = int32(binary.LittleEndian.Uint32(buf[:4]))
		v.decoded = true
		return buf[5:], nil
	case ValueFloat:
		if len(buf) < 5 {
			return nil, v.underflow(5, len(buf))
		}
		v.floatVal = math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))
		v.decoded = true
		return buf[5:], nil
	case ValueString:
		text, _, rest, err := v.consumeString(buf)
		if err != nil {
			return nil, err
		}
		v.strVal = text
		v.decoded = true
		return rest, nil
	default:
		panic(fmt.Sprintf("widget: unhandled value type %v", v.spec.ValueType))
	}
}

// Special returns the special entry the current reading falls in.
func (v *Value) Special() (Special, bool) {
	for _, s := range v.spec.Special {
		var hit bool
		switch v.spec.ValueType {
		case ValueInt32:
			hit = s.MatchNumber(float64(v.intVal))
		case ValueFloat:
			hit = s.MatchNumber(float64(v.floatVal))
		case ValueString:
			hit = s.MatchString(v.strVal)
		}
		if hit {
			return s, true
		}
	}
	return Special{}, false
}

// Display formats the reading. A matching special entry shows its label
// without the unit.
func (v *Value) Display() string {
	if !v.decoded {
		return ""
	}
	if s, ok := v.Special(); ok {
		return s.Label
	}

	var text string
	switch v.spec.ValueType {
	case ValueInt32:
		text = strconv.FormatInt(int64(v.intVal), 10)
	case ValueFloat:
		text = fmt.Sprintf("%.2f", v.floatVal)
	case ValueString:
		text = v.strVal
	}
	if v.spec.Unit != "" {
		text += " " + v.spec.Unit
	}
	return text
}
