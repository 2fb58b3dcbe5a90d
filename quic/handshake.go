package quic

import (
	"github.com/kcenon/netquic/quiccrypto"
	"github.com/kcenon/netquic/quicparams"
)

// HandshakeDriver is the narrow interface the connection orchestrator
// drives the TLS 1.3 handshake through. No record layer is implemented
// in this package: a driver wraps whatever TLS stack the caller links
// against and exchanges only CRYPTO-frame bytes, key material, and the
// transport-parameter extension value with the orchestrator.
type HandshakeDriver interface {
	// StartClient begins a client handshake for serverName, carrying
	// localParams in the quic_transport_parameters extension. It returns
	// the first flight of Initial-level CRYPTO bytes to send.
	StartClient(serverName string, localParams quicparams.Parameters) ([]byte, error)

	// StartServer begins a server handshake, carrying localParams in the
	// extension for the eventual ServerHello.
	StartServer(localParams quicparams.Parameters) error

	// Advance feeds received CRYPTO bytes at level into the handshake and
	// returns the resulting progress: further bytes to send (possibly at
	// a higher level), newly available keys, the peer's transport
	// parameters once seen, and whether the handshake has completed.
	Advance(level quiccrypto.Level, data []byte) (HandshakeProgress, error)

	// Complete reports whether the handshake has finished successfully.
	Complete() bool
}

// HandshakeProgress is the result of feeding a driver more handshake
// bytes.
type HandshakeProgress struct {
	// Output maps an encryption level to CRYPTO-frame bytes the
	// orchestrator should queue for sending at that level.
	Output map[quiccrypto.Level][]byte

	// NewKeys maps an encryption level to the read/write key pair that
	// has just become available at that level.
	NewKeys map[quiccrypto.Level]quiccrypto.KeyPair

	// PeerParams is set once the peer's transport parameters have been
	// extracted from the handshake, nil until then.
	PeerParams *quicparams.Parameters

	// Done is true once the handshake has completed and 1-RTT keys are
	// confirmed in both directions.
	Done bool
}
