// Package simulator implements the device side of the control-panel protocol.
//
// A Device holds the pages it serves and their current values. Each TCP
// connection gets its own active page; values are shared between
// connections, the way a single board shares its GPIO state.
//
// # Protocol
//
// On accept the device sends its greeting:
//
//	{"VERSION":1,"PAGE":0}
//
// and then answers every client command with exactly one frame:
//
//	POLL          {"VAL":<page>} followed by the value blob of the active page
//	GET           the page description, verbatim
//	SET           {"PAGE":<id>} if the SET switched pages, else a VAL reply
//	malformed     {"ERR":"<diagnostic>"}
//
// Device frames are always length-prefixed. Client commands are read either
// length-prefixed or as a stream of concatenated JSON objects, see
// Config.LengthPrefix.
//
// # Demo pages
//
// DemoPages returns the four pages of the reference firmware: LED buttons,
// LED switches, a login form and live readouts.
package simulator
