package quic

import (
	"time"

	"github.com/kcenon/netquic/quicparams"
)

// Default tuning values applied when a Config field is left zero.
const (
	DefaultMaxIdleTimeout   = 30 * time.Second
	DefaultMaxDatagramSize  = 1452 // loopback-friendly; PMTUD may raise it later
	DefaultStreamWindow     = 65536
	DefaultConnectionWindow = 1 << 20
	DefaultMaxStreamsBidi   = 100
	DefaultMaxStreamsUni    = 100
)

// Config carries the connection-level settings an engine applies when
// dialing or accepting.
type Config struct {
	ServerName string // client only

	MaxIdleTimeout          time.Duration
	MaxDatagramSize         uint64
	InitialStreamWindow     uint64
	InitialConnectionWindow uint64
	MaxStreamsBidi          uint64
	MaxStreamsUni           uint64

	EnableECN bool

	// Handshake is the HandshakeDriver instance this connection drives;
	// each connection takes its own, so tests can inject a scripted
	// double per connection instance.
	Handshake HandshakeDriver
}

// withDefaults returns a copy of c with zero fields replaced by package
// defaults.
func (c Config) withDefaults() Config {
	if c.MaxIdleTimeout == 0 {
		c.MaxIdleTimeout = DefaultMaxIdleTimeout
	}
	if c.MaxDatagramSize == 0 {
		c.MaxDatagramSize = DefaultMaxDatagramSize
	}
	if c.InitialStreamWindow == 0 {
		c.InitialStreamWindow = DefaultStreamWindow
	}
	if c.InitialConnectionWindow == 0 {
		c.InitialConnectionWindow = DefaultConnectionWindow
	}
	if c.MaxStreamsBidi == 0 {
		c.MaxStreamsBidi = DefaultMaxStreamsBidi
	}
	if c.MaxStreamsUni == 0 {
		c.MaxStreamsUni = DefaultMaxStreamsUni
	}
	return c
}

// localTransportParams builds this endpoint's transport parameters from
// c, to hand to the TLS stack for inclusion in the handshake extension.
func (c Config) localTransportParams() quicparams.Parameters {
	p := quicparams.Default()
	p.MaxIdleTimeout = uint64(c.MaxIdleTimeout / time.Millisecond)
	p.InitialMaxData = c.InitialConnectionWindow
	p.InitialMaxStreamDataBidiLocal = c.InitialStreamWindow
	p.InitialMaxStreamDataBidiRemote = c.InitialStreamWindow
	p.InitialMaxStreamDataUni = c.InitialStreamWindow
	p.InitialMaxStreamsBidi = c.MaxStreamsBidi
	p.InitialMaxStreamsUni = c.MaxStreamsUni
	p.MaxUDPPayloadSize = c.MaxDatagramSize
	return p
}
