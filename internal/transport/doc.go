// Package transport owns the TCP connection to one device.
//
// A Session runs a dedicated goroutine that dials the device, then repeats a
// strict lockstep cycle: read one frame, split it into messages and push them
// to the inbound queue, wait for exactly one command on the outbound queue,
// send it, pause. The device is never sent more than one command per frame
// it sent.
//
// The caller (normally the session controller tick loop) never blocks on the
// Session. It observes four signals:
//
//	Connected         the dial succeeded
//	ConnectionFailed  dial error, read timeout, malformed frame, undecodable payload
//	Closed            the device closed the connection
//	Killed            the owner asked the session to stop
//
// ConnectionFailed and Closed are terminal and mutually exclusive. Whether a
// failure happened before or after connecting is read from Connected, not
// from the error.
//
// Usage:
//
//	s := transport.New(addr, transport.DefaultOptions())
//	s.Connect()
//	defer s.Close()
//
//	for !s.ConnectionFailed().IsSet() && !s.Closed().IsSet() {
//		if msg, ok := s.Inbound().TryPop(); ok {
//			// handle msg, then queue exactly one command
//			s.Outbound().Push(protocol.Poll())
//		}
//	}
//
// Pushing a nil command stops the session without sending anything.
package transport
