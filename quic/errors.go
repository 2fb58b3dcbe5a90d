package quic

import (
	"fmt"

	"github.com/kcenon/netquic/internal/errcode"
)

// LocalError is returned synchronously to the caller for a malformed
// application call (e.g. writing to a reset stream); it never has a wire
// effect.
type LocalError struct {
	Op  string
	Err error
}

func (e *LocalError) Error() string { return fmt.Sprintf("quic: %s: %v", e.Op, e.Err) }
func (e *LocalError) Unwrap() error { return e.Err }

// WireError records a malformed packet, failed AEAD, or protocol
// violation encountered while parsing an incoming datagram. The offending
// datagram is always dropped silently; WireError is surfaced only for
// logging and repeated-violation accounting.
type WireError struct {
	Reason string
	Err    error
}

func (e *WireError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quic: wire: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("quic: wire: %s", e.Reason)
}
func (e *WireError) Unwrap() error { return e.Err }

// TransportError is the error delivered to the application when the
// connection closes, whether initiated locally or by the peer. Code is
// the RFC 9000 §20 transport error code (or an application code when
// Application is set).
type TransportError struct {
	Code        errcode.ErrorCode
	Application bool
	Reason      string
	Remote      bool // true if the peer sent the CONNECTION_CLOSE
}

func (e *TransportError) Error() string {
	who := "local"
	if e.Remote {
		who = "remote"
	}
	return fmt.Sprintf("quic: %s close: %s: %s", who, e.Code, e.Reason)
}
