// Package quic implements the connection-level engine: the state machine,
// packet and frame pipelines, and application-facing stream API that sit
// on top of the lower-level quicwire/quicpacket/quiccrypto/quicrecovery/
// quicflow/quicstream/quicparams/quicsession packages.
package quic

import (
	"context"
	"fmt"
	"sync"
	"time"

	events "github.com/docker/go-events"

	"github.com/kcenon/netquic/internal/dcontext"
	"github.com/kcenon/netquic/internal/errcode"
	"github.com/kcenon/netquic/quiccrypto"
	"github.com/kcenon/netquic/quicflow"
	"github.com/kcenon/netquic/quicparams"
	"github.com/kcenon/netquic/quicrecovery"
	"github.com/kcenon/netquic/quicsession"
	"github.com/kcenon/netquic/quicstream"
	"github.com/kcenon/netquic/quicwire"
)

const defaultInitialCIDLen = 8

// Connection drives one QUIC connection end to end: packet protection,
// loss recovery, flow control, stream multiplexing, and the handshake,
// exposed to the caller as a small set of imperative methods plus an
// asynchronous event stream. A Connection is not safe for concurrent use
// from more than one goroutine beyond what its own locking provides.
type Connection struct {
	mu sync.Mutex

	ctx  context.Context
	role Role
	cfg  Config

	state State

	handshake   HandshakeDriver
	keys        keyStore
	cids        *CIDRegistry
	localParams quicparams.Parameters
	peerParams  *quicparams.Parameters

	cryptoRecv [3]cryptoReassembler
	cryptoSend [3]cryptoSendBuf

	acks [3]*ackTracker

	recovery *quicrecovery.Detector

	flow       *quicflow.Controller
	streamFlow map[uint64]*quicflow.StreamController
	streams    *quicstream.Manager

	tickets *quicsession.TicketStore
	replay  *quicsession.ReplayFilter

	events *eventQueue

	handshakeConfirmed   bool
	handshakeDonePending bool
	peerCIDBootstrapped  bool
	closeErr             *TransportError
	closeSent            bool
	closeDeadline        time.Time
	drainDeadline        time.Time
	idleDeadline         time.Time

	largestSentPN [3]int64

	// pendingFrames holds, per packet-number space, control frames
	// (retransmissions, new connection IDs, retirements, PTO probes)
	// queued for the next GeneratePackets call, ahead of new stream data
	// but behind ACKs and CRYPTO.
	pendingFrames [3][]quicwire.Frame
}

// NewClient returns a Connection that immediately begins a client
// handshake to cfg.ServerName, emitting events to sink as the connection
// progresses.
func NewClient(ctx context.Context, cfg Config, sink events.Sink) (*Connection, error) {
	if cfg.Handshake == nil {
		return nil, &LocalError{Op: "new client", Err: fmt.Errorf("quic: Config.Handshake is required")}
	}
	cfg = cfg.withDefaults()

	dcid, err := quicwire.GenerateConnectionID(defaultInitialCIDLen)
	if err != nil {
		return nil, &LocalError{Op: "new client", Err: err}
	}
	scid, err := quicwire.GenerateConnectionID(defaultInitialCIDLen)
	if err != nil {
		return nil, &LocalError{Op: "new client", Err: err}
	}

	c := newConnection(ctx, RoleClient, cfg, sink)
	c.cids = NewCIDRegistry(scid, dcid, cfg.localTransportParams().ActiveConnectionIDLimit)
	c.localParams = cfg.localTransportParams()
	c.localParams.InitialSourceConnectionID = &scid

	clientSecret, serverSecret := quiccrypto.DeriveInitialSecrets(dcid.Bytes())
	c.keys.install(quiccrypto.LevelInitial, quiccrypto.KeyPair{
		Write: quiccrypto.DeriveKeys(quiccrypto.SuiteAES128GCMSHA256, clientSecret),
		Read:  quiccrypto.DeriveKeys(quiccrypto.SuiteAES128GCMSHA256, serverSecret),
	})

	out, err := c.handshake.StartClient(cfg.ServerName, c.localParams)
	if err != nil {
		return nil, &LocalError{Op: "new client", Err: err}
	}
	c.cryptoSend[quicrecovery.SpaceInitial].enqueue(out)
	c.state = StateHandshaking

	return c, nil
}

// NewServer returns a Connection in StateIdle: it carries no keys or
// connection IDs until the first Initial packet from a client is
// delivered to ReceivePacket, which bootstraps both lazily.
func NewServer(ctx context.Context, cfg Config, sink events.Sink) (*Connection, error) {
	if cfg.Handshake == nil {
		return nil, &LocalError{Op: "new server", Err: fmt.Errorf("quic: Config.Handshake is required")}
	}
	cfg = cfg.withDefaults()
	c := newConnection(ctx, RoleServer, cfg, sink)
	c.localParams = cfg.localTransportParams()
	return c, nil
}

func newConnection(ctx context.Context, role Role, cfg Config, sink events.Sink) *Connection {
	tickets, _ := quicsession.NewTicketStore(nil)
	replay, _ := quicsession.NewReplayFilter(0, 0)

	c := &Connection{
		ctx:        ctx,
		role:       role,
		cfg:        cfg,
		state:      StateIdle,
		handshake:  cfg.Handshake,
		streamFlow: make(map[uint64]*quicflow.StreamController),
		streams:    quicstream.NewManager(role == RoleClient),
		flow:       quicflow.NewController(cfg.InitialConnectionWindow),
		recovery:   quicrecovery.NewDetector(quicrecovery.SystemClock{}, 25*time.Millisecond, cfg.MaxDatagramSize),
		tickets:    tickets,
		replay:     replay,
		events:     newEventQueue(ctx, sink),
	}
	for i := range c.acks {
		c.acks[i] = newAckTracker()
	}
	for i := range c.largestSentPN {
		c.largestSentPN[i] = -1
	}
	c.streams.SetLocalMaxStreams(true, cfg.MaxStreamsBidi)
	c.streams.SetLocalMaxStreams(false, cfg.MaxStreamsUni)
	return c
}

// spaceForLevel maps an encryption level to its packet-number space.
// 0-RTT and 1-RTT application data share the Application space, since
// RFC 9000 §12.3 tracks packet numbers per space rather than per level.
func spaceForLevel(level quiccrypto.Level) quicrecovery.PacketNumberSpaceID {
	switch level {
	case quiccrypto.LevelInitial:
		return quicrecovery.SpaceInitial
	case quiccrypto.LevelHandshake:
		return quicrecovery.SpaceHandshake
	default:
		return quicrecovery.SpaceApplication
	}
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// applyHandshakeProgress installs new keys, queues outgoing CRYPTO bytes,
// records the peer's transport parameters once seen, and advances to
// Established once the driver reports completion. Callers must hold c.mu.
func (c *Connection) applyHandshakeProgress(p HandshakeProgress) {
	for level, pair := range p.NewKeys {
		c.keys.install(level, pair)
	}
	for level, out := range p.Output {
		c.cryptoSend[spaceForLevel(level)].enqueue(out)
	}
	if p.PeerParams != nil && c.peerParams == nil {
		if err := p.PeerParams.Validate(c.role == RoleClient); err != nil {
			c.closeLocally(errcode.ErrorCodeTransportParameterError, err.Error())
			return
		}
		c.peerParams = p.PeerParams
		c.applyPeerParams(*p.PeerParams)
	}
	if p.Done && c.state == StateHandshaking {
		c.state = StateEstablished
		c.keys.discard(quiccrypto.LevelInitial)
		if c.role == RoleServer {
			c.handshakeConfirmed = true
			c.keys.discard(quiccrypto.LevelHandshake)
			c.handshakeDonePending = true
		}
		c.emit(ConnectedEvent{})
	}
}

// applyPeerParams installs the peer's advertised limits onto the flow
// controllers and stream manager. Callers must hold c.mu.
func (c *Connection) applyPeerParams(p quicparams.Parameters) {
	c.flow.SetSendLimit(p.InitialMaxData)
	c.streams.SetPeerMaxStreams(true, p.InitialMaxStreamsBidi)
	c.streams.SetPeerMaxStreams(false, p.InitialMaxStreamsUni)
	for _, s := range c.streams.Streams() {
		c.applyInitialStreamSendLimit(s.ID)
	}
}

// applyInitialStreamSendLimit seeds a newly visible stream's send-side
// limit from whichever peer initial_max_stream_data_* parameter applies
// to its direction, if the peer's parameters are already known. Callers
// must hold c.mu.
func (c *Connection) applyInitialStreamSendLimit(id uint64) {
	if c.peerParams == nil {
		return
	}
	sc := c.streamFlowController(id)
	limit := c.initialStreamSendLimitFor(id)
	sc.SetSendLimit(limit)
	if s, ok := c.streams.Get(id); ok && s.MaxSendOffset < limit {
		s.MaxSendOffset = limit
	}
}

func (c *Connection) initialStreamSendLimitFor(id uint64) uint64 {
	p := c.peerParams
	localInitiated := quicstream.IsClientInitiated(id) == (c.role == RoleClient)
	if !quicstream.IsBidi(id) {
		return p.InitialMaxStreamDataUni
	}
	if localInitiated {
		return p.InitialMaxStreamDataBidiRemote
	}
	return p.InitialMaxStreamDataBidiLocal
}

// streamFlowController returns the StreamController for id, creating one
// seeded from this endpoint's local receive window if it doesn't exist
// yet. Callers must hold c.mu.
func (c *Connection) streamFlowController(id uint64) *quicflow.StreamController {
	sc, ok := c.streamFlow[id]
	if !ok {
		sc = quicflow.NewStreamController(id, c.cfg.InitialStreamWindow)
		c.streamFlow[id] = sc
	}
	return sc
}

func (c *Connection) emit(evt events.Event) {
	if err := c.events.Write(evt); err != nil {
		dcontext.GetLogger(c.ctx).Warnf("quic: dropping event: %v", err)
	}
}

// Close begins a locally-initiated shutdown, sending CONNECTION_CLOSE
// with errorCode and reason and moving to Closing. The connection
// remains in Closing for up to 3*PTO to catch a possible peer
// CONNECTION_CLOSE or retransmission need, then moves to Draining for a
// further 3*PTO, then Closed. Calling Close more than once is a no-op
// after the first call.
func (c *Connection) Close(errorCode uint64, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosing || c.state == StateDraining || c.state == StateClosed {
		return nil
	}
	c.closeErr = &TransportError{Code: errcode.ErrorCode(errorCode), Application: true, Reason: reason}
	c.state = StateClosing
	pto := c.recovery.RTT.PTO()
	if pto <= 0 {
		pto = 3 * time.Second
	}
	c.closeDeadline = c.recovery.Clock.Now().Add(3 * pto)
	return nil
}

// closeLocally begins a shutdown triggered by this endpoint detecting a
// protocol violation, as opposed to an application-requested Close.
// Callers must hold c.mu.
func (c *Connection) closeLocally(code errcode.ErrorCode, reason string) {
	if c.state == StateClosing || c.state == StateDraining || c.state == StateClosed {
		return
	}
	c.closeErr = &TransportError{Code: code, Reason: reason}
	c.state = StateClosing
	pto := c.recovery.RTT.PTO()
	if pto <= 0 {
		pto = 3 * time.Second
	}
	c.closeDeadline = c.recovery.Clock.Now().Add(3 * pto)
}

// onPeerClose handles a received CONNECTION_CLOSE frame: the connection
// moves directly to Draining (skipping the Closing round-trip, since
// there is nothing left to negotiate with a peer that has already given
// up) for 3*PTO before reaching Closed.
func (c *Connection) onPeerClose(f *quicwire.ConnectionCloseFrame) {
	if c.state == StateDraining || c.state == StateClosed {
		return
	}
	c.closeErr = &TransportError{
		Code:        errcode.ErrorCode(f.ErrorCode),
		Application: f.Application,
		Reason:      f.ReasonPhrase,
		Remote:      true,
	}
	c.state = StateDraining
	pto := c.recovery.RTT.PTO()
	if pto <= 0 {
		pto = 3 * time.Second
	}
	c.drainDeadline = c.recovery.Clock.Now().Add(3 * pto)
}

// finishClose transitions to Closed and emits exactly one
// DisconnectedEvent, if it hasn't already fired. Callers must hold c.mu.
func (c *Connection) finishClose() {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	var err error
	if c.closeErr != nil && (c.closeErr.Remote || c.closeErr.Code != 0) {
		err = c.closeErr
	}
	c.emit(DisconnectedEvent{Err: err})
	c.events.Close()
}
