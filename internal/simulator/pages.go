package simulator

import (
	"math"
	"time"
)

// Page descriptions of the reference firmware.
const (
	page0Description = `{"size":[2,3],"widgets":[` +
		`{"type":"label", "text":"Page 0", "position":[0, 1]},` +
		`{"type":"button", "text":"next page"},` +
		`{"type":"button", "text":"Led 1"},` +
		`{"type":"button", "text":"Led 2"},` +
		`{"type":"button", "text":"Led 3"}` +
		`]}`

	page1Description = `{"size":[2,3],"widgets":[` +
		`{"type":"button", "text":"previous page"},` +
		`{"type":"label", "text":"Page 1"},` +
		`{"type":"button", "text":"next page"},` +
		`{"type":"label", "text":"Switches:"},` +
		`{"type":"switch", "text":"Led 1,Led 2,Led 3", "show_zero": false},` +
		`{"type":"switch", "text":"Off,Led 1,Led 2,Led 3", "vertical": true}` +
		`]}`

	page2Description = `{"size":[3,3],"widgets":[` +
		`{"type":"button", "text":"previous page"},` +
		`{"type":"label", "text":"Page 2"},` +
		`{"type":"button", "text":"next page"},` +
		`{"type":"entry", "text":"Login:", "hint": "user123", "position":[1, 1]},` +
		`{"type":"label", "text":"Hint: admin"},` +
		`{"type":"entry", "text":"Password:", "pass": true, "position":[2, 1]},` +
		`{"type":"label", "text":"Hint admin"}` +
		`]}`

	page3Description = `{"size":[2,3],"widgets":[` +
		`{"type":"button", "text":"previous page"},` +
		`{"type":"label", "text":"Page 3"},` +
		`{"type":"value", "value_type": "int32", "text":"Button", "special": {"off": 0, "on": 1}, "position":[1, 0]},` +
		`{"type":"value", "value_type": "float", "text":"ADC1:", "unit": "V"},` +
		`{"type":"value", "value_type": "float", "text":"ADC2:", "unit": "V"}` +
		`]}`
)

// Demo credentials accepted by the login page
const (
	demoLogin    = "admin"
	demoPassword = "admin"
)

// DemoPages returns the four pages of the reference firmware.
func DemoPages() []Page {
	return []Page{
		{
			Description: page0Description,
			Values:      enabledSlots(4),
			OnSet:       ledButtonsSet,
		},
		{
			Description: page1Description,
			Values: []Slot{
				{Enabled: true},
				{Enabled: true},
				{Int: 1, Enabled: true},
				{Enabled: true},
			},
			OnSet: ledSwitchesSet,
		},
		{
			Description: page2Description,
			Values: []Slot{
				{Enabled: true},
				{Enabled: false},
				{Enabled: true},
				{Enabled: true},
			},
			OnSet: loginSet,
		},
		{
			Description: page3Description,
			Values:      enabledSlots(4),
			OnSet:       readoutsSet,
			Sample:      sampleReadouts,
		},
	}
}

func enabledSlots(n int) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i].Enabled = true
	}
	return slots
}

// page 0: "next page" and three LED toggles
func ledButtonsSet(d *Device, v []Slot, id int) int {
	if v[id].Int != 1 {
		return NoPageChange
	}
	if id == 0 {
		v[0].Int = 0
		d.setLEDs(-1)
		return 1
	}
	d.leds[id-1] = !d.leds[id-1]
	return NoPageChange
}

// page 1: the first switch picks an LED (1..3) and is mirrored into the
// second, which also offers "Off" at index 0.
func ledSwitchesSet(d *Device, v []Slot, id int) int {
	next := NoPageChange
	switch {
	case id == 0 && v[0].Int == 1:
		v[0].Int = 0
		v[2].Int = 1
		v[3].Int = 0
		next = 0
	case id == 1 && v[1].Int == 1:
		v[1].Int = 0
		next = 2
	case id == 2:
		v[3].Int = v[2].Int
	}

	d.setLEDs(int(v[3].Int) - 1)
	return next
}

// page 2: submitting the password checks both entries and clears them
func loginSet(_ *Device, v []Slot, id int) int {
	if id == 0 && v[0].Int == 1 {
		v[0].Int = 0
		return 1
	}
	if id != 3 {
		return NoPageChange
	}

	ok := v[2].Text == demoLogin && v[3].Text == demoPassword
	v[2].Text = ""
	v[3].Text = ""
	if ok {
		return 3
	}
	return NoPageChange
}

// page 3: only "previous page" is writable
func readoutsSet(_ *Device, v []Slot, id int) int {
	if id == 0 && v[0].Int == 1 {
		v[0].Int = 0
		return 2
	}
	return NoPageChange
}

// sampleReadouts fakes the board button and two ADC channels (0..3.3 V).
func sampleReadouts(v []Slot, now time.Time) {
	secs := float64(now.UnixNano()) / float64(time.Second)

	v[1].Int = int32(now.Unix()/2) % 2
	v[2].Float = float32(1.65 + 1.65*math.Sin(2*math.Pi*secs/10))
	v[3].Float = float32(3.3 * math.Mod(secs, 5) / 5)
}
