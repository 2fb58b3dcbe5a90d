// Package quic implements the connection orchestrator that ties the
// varint/frame/packet codecs, the recovery core, flow control, the stream
// manager, transport parameters, and session resumption into a single
// per-connection state machine: Idle -> Handshaking -> Established ->
// Closing -> Draining -> Closed.
//
// The engine drives TLS 1.3 through the narrow HandshakeDriver interface
// rather than implementing the record layer itself; callers supply a
// driver backed by whatever TLS stack they link against.
package quic
