package widget

import "fmt"

// Kind is the closed set of widget types
type Kind int

const (
	KindButton Kind = iota
	KindLabel
	KindEntry
	KindValue
	KindSwitch
)

// ParseKind maps a descriptor "type" string to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "button":
		return KindButton, nil
	case "label":
		return KindLabel, nil
	case "entry":
		return KindEntry, nil
	case "value":
		return KindValue, nil
	case "switch":
		return KindSwitch, nil
	default:
		return 0, fmt.Errorf("unknown widget type %q", s)
	}
}

// String returns the descriptor name of the kind
func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindLabel:
		return "label"
	case KindEntry:
		return "entry"
	case KindValue:
		return "value"
	case KindSwitch:
		return "switch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// HasElementID reports whether widgets of this kind are numbered and
// appear in the value blob.
func (k Kind) HasElementID() bool {
	return k != KindLabel
}

// Interactive reports whether the user can change widgets of this kind.
func (k Kind) Interactive() bool {
	switch k {
	case KindButton, KindEntry, KindSwitch:
		return true
	default:
		return false
	}
}

// ValueType selects the decoding of a value widget
type ValueType int

const (
	ValueInt32 ValueType = iota
	ValueFloat
	ValueString
)

// ParseValueType maps a descriptor "value_type" string to a ValueType
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "int32":
		return ValueInt32, nil
	case "float":
		return ValueFloat, nil
	case "string":
		return ValueString, nil
	default:
		return 0, fmt.Errorf("unknown value_type %q", s)
	}
}

// String returns the descriptor name of the value type
func (v ValueType) String() string {
	switch v {
	case ValueInt32:
		return "int32"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	default:
		return fmt.Sprintf("ValueType(%d)", int(v))
	}
}
