package widget

import "strings"

// Entry is a text field. Local edits win over device updates while the
// field has focus.
type Entry struct {
	base
	text    string
	focused bool
}

// Text returns the current field content.
func (e *Entry) Text() string { return e.text }

// Focused reports whether the user holds focus.
func (e *Entry) Focused() bool { return e.focused }

// Consume decodes text, NUL, enabled byte, padding byte.
func (e *Entry) Consume(buf []byte) ([]byte, error) {
	text, enabled, rest, err := e.consumeString(buf)
	if err != nil {
		return nil, err
	}
	if !e.focused {
		e.text = text
	}
	e.enabled = enabled != 0
	return rest, nil
}

// Display returns the content, masked for password fields.
func (e *Entry) Display() string {
	if e.spec.Pass {
		return strings.Repeat("*", len([]rune(e.text)))
	}
	return e.text
}

// Focus gives the field to the user.
func (e *Entry) Focus() {
	e.focused = true
}

// SetText replaces the content with a local edit.
func (e *Entry) SetText(text string) {
	e.text = text
}

// Blur releases focus and, if enabled, emits (id, text).
func (e *Entry) Blur() bool {
	if !e.focused {
		return false
	}
	e.focused = false
	if !e.enabled {
		return false
	}
	e.emit(e.text)
	return true
}
