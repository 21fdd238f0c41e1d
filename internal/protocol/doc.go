// Package protocol implements the wire format spoken between the client and a
// controllable device.
//
// # Framing
//
// Every device message is a frame:
//   - Length: 4 bytes, big-endian
//   - Payload: exactly Length bytes
//
// Client commands are sent as raw JSON by default; length-prefixing them is
// a transport option because deployed devices disagree.
//
// # Payloads
//
// A payload starts with a JSON object (a Record). The device may append a raw
// value block to the record in the same frame, so Split returns the Record
// followed by a RawBytes tail:
//
//	{"VAL":4}\x01\x00\x00\x00\x01...
//	└── Record ─┘└──── RawBytes ────┘
//
// Which payload is a value blob is implied by protocol state (a Record with
// VAL), never by a tag in the frame.
//
// # Vocabulary
//
// Device to client records may carry ERR (diagnostic string), VERSION
// (protocol version, ends the handshake), PAGE (the page the device wants
// active) and VAL (a value blob follows). A page description is a full record
// with "widgets" and optional "size".
//
// Client to device commands:
//
//	{"CMD":"POLL"}
//	{"CMD":"GET","VAL":{"PAGE":<id>}}
//	{"CMD":"SET","VAL":[<element_id>,<value>]}
//
// # Error Handling
//
// Errors are classified by *Error Kind:
//   - Transport: connect/read/write failure, timeout, malformed prefix
//   - PeerClosed: the device closed the connection
//   - Decode: a payload that is not a record (optionally with a raw tail)
//   - Layout: a value blob that does not match the active page
//   - Validation: a page description that cannot be decoded safely
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
