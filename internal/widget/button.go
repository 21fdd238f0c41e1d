package widget

// Button is a momentary push button.
type Button struct {
	base
	pressed bool
}

// Pressed reports the device-side pressed state.
func (b *Button) Pressed() bool { return b.pressed }

// Consume decodes u32 pressed + enabled byte.
func (b *Button) Consume(buf []byte) ([]byte, error) {
	v, rest, err := b.consumeFlag(buf)
	if err != nil {
		return nil, err
	}
	b.pressed = v != 0
	return rest, nil
}

// Display returns the button caption, or text_disabled while disabled.
func (b *Button) Display() string {
	if !b.enabled && b.spec.TextDisabled != "" {
		return b.spec.TextDisabled
	}
	return b.spec.Text
}

// Press emits (id, 1). Disabled buttons ignore it.
func (b *Button) Press() bool {
	if !b.enabled {
		return false
	}
	b.emit(1)
	return true
}

// Release emits (id, 0). Disabled buttons ignore it.
func (b *Button) Release() bool {
	if !b.enabled {
		return false
	}
	b.emit(0)
	return true
}

// Click presses and releases.
func (b *Button) Click() bool {
	if !b.Press() {
		return false
	}
	return b.Release()
}
