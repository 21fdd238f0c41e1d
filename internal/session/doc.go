// Package session runs the client side of the device protocol on top of a
// transport link and a page manager.
//
// The controller is driven by Tick, called on a fixed interval from a loop
// that must not block (the TUI update loop, or Run for headless use). Each
// Tick takes at most one record from the link, applies it, and queues
// exactly one command, matching the transport's one-command-per-frame
// lockstep.
//
// Per record, in order:
//
//	ERR      reported to the OnError observer
//	VERSION  handshake done, OnVersion observer called
//	pending  a requested page description is stored and activated
//	PAGE     page change; a cache miss queues GET and marks the fetch pending
//	VAL      the raw blob that followed the record updates the widgets and
//	         OnValues is called; while a fetch is pending the blob is dropped
//	events   one pending widget event is sent as SET
//	default  POLL
//
// A value blob that does not fit the active page drops the page from the
// cache and requests it again.
package session
