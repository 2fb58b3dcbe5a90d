package quic

import (
	"fmt"
	"time"

	"github.com/kcenon/netquic/internal/errcode"
	"github.com/kcenon/netquic/quiccrypto"
	"github.com/kcenon/netquic/quicpacket"
	"github.com/kcenon/netquic/quicrecovery"
	"github.com/kcenon/netquic/quicstream"
	"github.com/kcenon/netquic/quicwire"
)

// ReceivePacket ingests one UDP datagram, which may carry several
// coalesced QUIC packets. Each packet is processed independently:
// malformed framing, an unrecognized destination connection ID, missing
// keys for its level, or a failed AEAD open all cause that packet (and
// only that packet) to be dropped silently, per RFC 9000 §12.2's guidance
// that a single corrupt packet must not abort processing of the rest of
// the datagram.
func (c *Connection) ReceivePacket(datagram []byte, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return &LocalError{Op: "receive packet", Err: fmt.Errorf("quic: connection is closed")}
	}

	data := datagram
	for len(data) > 0 {
		consumed, err := c.receiveOnePacket(data, now)
		if consumed <= 0 {
			// Nothing usable remains; stop rather than loop forever on a
			// malformed remainder.
			if err != nil {
				return &WireError{Reason: "coalesced packet", Err: err}
			}
			return nil
		}
		data = data[consumed:]
	}

	if c.state == StateClosing && c.closeSent {
		// A datagram still arrived after we asked to close; nothing to do
		// beyond what receiveOnePacket already handled (e.g. a peer close
		// moving us to Draining).
	}
	return nil
}

// receiveOnePacket parses and processes the first QUIC packet at the
// front of data, returning how many bytes it consumed. A zero return
// with a nil error means the remainder is short header padding or
// otherwise not worth continuing to parse.
func (c *Connection) receiveOnePacket(data []byte, now time.Time) (int, error) {
	if quicpacket.IsLongHeaderPacket(data[0]) {
		return c.receiveLongHeaderPacket(data, now)
	}
	return c.receiveShortHeaderPacket(data, now)
}

func (c *Connection) receiveLongHeaderPacket(data []byte, now time.Time) (int, error) {
	h, pnOffset, payloadLen, err := quicpacket.ParseLongHeaderPrefix(data)
	if err != nil {
		return 0, err
	}
	if h.Version != quicpacket.QUICVersion1 {
		return 0, fmt.Errorf("quic: unsupported version %#x", h.Version)
	}

	total := pnOffset + int(payloadLen)
	if total > len(data) {
		return 0, fmt.Errorf("quic: packet length exceeds datagram")
	}
	pkt := data[:total]

	level, err := levelForLongType(h.Type)
	if err != nil {
		return total, nil // Retry/VN: not handled by this engine, skip
	}

	if c.role == RoleServer && c.state == StateIdle && h.Type == quicpacket.LongPacketTypeInitial {
		c.bootstrapServer(h)
	}

	if c.cids == nil || !c.cids.MatchesLocal(h.DestConnectionID) {
		return total, nil
	}

	if c.role == RoleClient && !c.peerCIDBootstrapped {
		// The client seeded a placeholder destination connection ID before
		// ever hearing from the server; replace it with the source
		// connection ID the server actually chose, carried on its first
		// reply.
		c.cids.BootstrapPeerCID(h.SrcConnectionID)
		c.peerCIDBootstrapped = true
	}

	keys, ok := c.keys.get(level)
	if !ok || !keys.Read.Valid() {
		return total, nil
	}

	space := spaceForLevel(level)
	pn, plaintext, err := quicpacket.RemoveHeaderProtectionAndOpen(pkt, pnOffset, keys.Read, c.acks[space].largest, true)
	if err != nil {
		return total, nil
	}
	c.processDecryptedPacket(space, level, pn, plaintext, now)
	return total, nil
}

func (c *Connection) receiveShortHeaderPacket(data []byte, now time.Time) (int, error) {
	if c.cids == nil {
		return len(data), nil
	}
	dcid, pnOffset, err := quicpacket.ParseShortHeaderPrefix(data, c.cids.ActiveLocalCID().Len())
	if err != nil {
		return len(data), nil
	}
	if !c.cids.MatchesLocal(dcid) {
		return len(data), nil
	}

	keys, ok := c.keys.get(quiccrypto.LevelApplication)
	if !ok || !keys.Read.Valid() {
		return len(data), nil
	}

	space := quicrecovery.SpaceApplication
	pkt := append([]byte(nil), data...)
	pn, plaintext, err := quicpacket.RemoveHeaderProtectionAndOpen(pkt, pnOffset, keys.Read, c.acks[space].largest, false)
	if err != nil {
		return len(data), nil
	}
	c.processDecryptedPacket(space, quiccrypto.LevelApplication, pn, plaintext, now)
	return len(data), nil
}

// levelForLongType maps a long-header packet type to its encryption
// level, or an error for Retry/Version Negotiation, which carry no
// packet number and aren't produced or consumed by this engine.
func levelForLongType(t quicpacket.LongPacketType) (quiccrypto.Level, error) {
	switch t {
	case quicpacket.LongPacketTypeInitial:
		return quiccrypto.LevelInitial, nil
	case quicpacket.LongPacketTypeZeroRTT:
		return quiccrypto.Level0RTT, nil
	case quicpacket.LongPacketTypeHandshake:
		return quiccrypto.LevelHandshake, nil
	default:
		return 0, fmt.Errorf("quic: unhandled long header packet type %v", t)
	}
}

// bootstrapServer lazily derives Initial keys and this endpoint's
// connection ID state from the first Initial packet a server sees, since
// a server can't know the client's chosen destination connection ID in
// advance. Callers must hold c.mu.
func (c *Connection) bootstrapServer(h quicpacket.LongHeader) {
	clientSecret, serverSecret := quiccrypto.DeriveInitialSecrets(h.DestConnectionID.Bytes())
	c.keys.install(quiccrypto.LevelInitial, quiccrypto.KeyPair{
		Read:  quiccrypto.DeriveKeys(quiccrypto.SuiteAES128GCMSHA256, clientSecret),
		Write: quiccrypto.DeriveKeys(quiccrypto.SuiteAES128GCMSHA256, serverSecret),
	})

	scid, err := quicwire.GenerateConnectionID(defaultInitialCIDLen)
	if err != nil {
		return
	}
	c.cids = NewCIDRegistry(scid, h.SrcConnectionID, c.cfg.localTransportParams().ActiveConnectionIDLimit)
	c.localParams.OriginalDestinationConnectionID = &h.DestConnectionID
	c.localParams.InitialSourceConnectionID = &scid

	if err := c.handshake.StartServer(c.localParams); err != nil {
		return
	}
	c.state = StateHandshaking
}

// processDecryptedPacket runs the shared post-decrypt pipeline: duplicate
// suppression, frame parsing and dispatch, and ACK bookkeeping. Callers
// must hold c.mu.
func (c *Connection) processDecryptedPacket(space quicrecovery.PacketNumberSpaceID, level quiccrypto.Level, pn uint64, plaintext []byte, now time.Time) {
	tracker := c.acks[space]
	if tracker.duplicate(pn) {
		return
	}

	frames, err := quicwire.ParseAll(plaintext)
	if err != nil {
		return
	}

	ackEliciting := false
	for _, f := range frames {
		if _, isAck := f.(*quicwire.AckFrame); isAck {
			continue
		}
		if _, isPad := f.(*quicwire.PaddingFrame); isPad {
			continue
		}
		ackEliciting = true
	}
	tracker.onReceived(pn, ackEliciting, now)

	for _, f := range frames {
		c.dispatchFrame(space, level, f)
	}
}

// dispatchFrame applies one parsed frame's effect to connection state.
// Callers must hold c.mu.
func (c *Connection) dispatchFrame(space quicrecovery.PacketNumberSpaceID, level quiccrypto.Level, f quicwire.Frame) {
	switch fr := f.(type) {
	case *quicwire.AckFrame:
		var ecn *quicrecovery.ECNCounts
		if fr.ECN {
			ecn = &quicrecovery.ECNCounts{ECT0: fr.ECT0, ECT1: fr.ECT1, ECNCE: fr.ECNCE}
		}
		result := c.recovery.OnAckReceived(space, fr.LargestAcked, fr.AckDelay, fr.FirstRange, fr.Ranges, ecn)
		c.applyAckResult(space, result)

	case *quicwire.CryptoFrame:
		out := c.cryptoRecv[space].onCryptoFrame(fr.Offset, fr.Data)
		if len(out) == 0 {
			return
		}
		progress, err := c.handshake.Advance(level, out)
		if err != nil {
			c.closeLocally(errcode.ErrorCodeProtocolViolation, "handshake failed")
			return
		}
		c.applyHandshakeProgress(progress)

	case *quicwire.StreamFrame:
		s, err := c.streams.GetOrCreateStream(fr.StreamID)
		if err != nil {
			return
		}
		if err := s.OnStreamFrame(fr); err != nil {
			c.closeLocally(errcode.ErrorCodeFinalSizeError, err.Error())
			return
		}
		c.deliverStreamData(s)

	case *quicwire.ResetStreamFrame:
		if s, ok := c.streams.Get(fr.StreamID); ok {
			s.OnResetStream(fr)
			c.emit(StreamResetEvent{StreamID: fr.StreamID, ErrorCode: fr.ErrorCode})
		}

	case *quicwire.StopSendingFrame:
		if s, ok := c.streams.Get(fr.StreamID); ok {
			_, _ = s.ResetSend(fr.ErrorCode)
		}

	case *quicwire.MaxDataFrame:
		c.flow.OnMaxData(fr)

	case *quicwire.MaxStreamDataFrame:
		c.streamFlowController(fr.StreamID).OnMaxStreamData(fr)
		if s, ok := c.streams.Get(fr.StreamID); ok && s.MaxSendOffset < fr.MaximumStreamData {
			s.MaxSendOffset = fr.MaximumStreamData
		}

	case *quicwire.MaxStreamsFrame:
		c.streams.SetPeerMaxStreams(fr.Bidi, fr.MaxStreams)

	case *quicwire.NewConnectionIDFrame:
		if c.cids != nil {
			for _, r := range c.cids.OnNewConnectionID(fr) {
				c.pendingFrames[space] = append(c.pendingFrames[space], r)
			}
		}

	case *quicwire.RetireConnectionIDFrame:
		if c.cids != nil {
			_ = c.cids.OnRetireConnectionID(fr)
		}

	case *quicwire.HandshakeDoneFrame:
		c.handshakeConfirmed = true
		c.keys.discard(quiccrypto.LevelHandshake)

	case *quicwire.ConnectionCloseFrame:
		c.onPeerClose(fr)

	case *quicwire.PingFrame, *quicwire.PaddingFrame,
		*quicwire.PathChallengeFrame, *quicwire.PathResponseFrame,
		*quicwire.NewTokenFrame, *quicwire.DataBlockedFrame,
		*quicwire.StreamDataBlockedFrame, *quicwire.StreamsBlockedFrame:
		// No connection-state effect beyond having been received; path
		// validation and address-validation tokens are out of scope.
	}
}

// deliverStreamData drains any newly available reassembled bytes from s
// and emits them as a StreamDataEvent. Callers must hold c.mu.
func (c *Connection) deliverStreamData(s *quicstream.Stream) {
	buf := make([]byte, 4096)
	for {
		n, ok := s.Read(buf)
		if n == 0 && !ok {
			break
		}
		c.flow.OnDataConsumed(uint64(n))
		c.streamFlowController(s.ID).OnDataConsumed(uint64(n))
		fin := s.RecvState.Terminal()
		c.emit(StreamDataEvent{StreamID: s.ID, Data: append([]byte(nil), buf[:n]...), Fin: fin})
		if n == 0 {
			break
		}
	}
}

// applyAckResult updates per-stream/CRYPTO ack bookkeeping from newly
// acknowledged packets, and requeues the frames a lost packet carried for
// verbatim retransmission into space's pending queue. Callers must hold c.mu.
func (c *Connection) applyAckResult(space quicrecovery.PacketNumberSpaceID, result quicrecovery.AckResult) {
	for _, pkt := range result.NewlyAcked {
		for _, f := range pkt.Frames {
			switch fr := f.(type) {
			case *quicwire.StreamFrame:
				if s, ok := c.streams.Get(fr.StreamID); ok {
					s.OnAck(fr.Offset, uint64(len(fr.Data)))
				}
			case *quicwire.ResetStreamFrame:
				if s, ok := c.streams.Get(fr.StreamID); ok {
					s.OnResetAcked()
				}
			}
		}
	}

	for _, pkt := range result.Lost {
		for _, f := range pkt.Frames {
			switch f.(type) {
			case *quicwire.PaddingFrame, *quicwire.PingFrame, *quicwire.AckFrame:
				continue
			default:
				c.pendingFrames[space] = append(c.pendingFrames[space], f)
			}
		}
	}
}
