package widget

import (
	"encoding/binary"
	"math"
)

// Encoders produce the device side of the blob layout.

// AppendButton appends a button slice.
func AppendButton(dst []byte, pressed, enabled bool) []byte {
	return appendFlag(dst, boolU32(pressed), enabled)
}

// AppendSwitch appends a switch slice.
func AppendSwitch(dst []byte, index uint32, enabled bool) []byte {
	return appendFlag(dst, index, enabled)
}

// AppendEntry appends an entry slice. text must not contain NUL.
func AppendEntry(dst []byte, text string, enabled bool) []byte {
	dst = append(dst, text...)
	return append(dst, 0, boolByte(enabled), 0)
}

// AppendInt32 appends an int32 value slice.
func AppendInt32(dst []byte, v int32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
	return append(dst, 0)
}

// AppendFloat appends a float value slice.
func AppendFloat(dst []byte, v float32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	return append(dst, 0)
}

// AppendString appends a string value slice. text must not contain NUL.
func AppendString(dst []byte, text string) []byte {
	dst = append(dst, text...)
	return append(dst, 0, 0, 0)
}

func appendFlag(dst []byte, v uint32, enabled bool) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, v)
	return append(dst, boolByte(enabled))
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
