package quic

import (
	"time"

	"github.com/kcenon/netquic/quiccrypto"
	"github.com/kcenon/netquic/quicpacket"
	"github.com/kcenon/netquic/quicrecovery"
	"github.com/kcenon/netquic/quicwire"
)

// minInitialPacketSize is the RFC 9000 §14.1 anti-amplification floor: a
// client's first Initial packet (and any UDP datagram carrying one) must
// be padded to at least this many bytes.
const minInitialPacketSize = 1200

// GeneratePackets builds every packet currently due to be sent: a close
// notification if one is pending, otherwise one packet per encryption
// level with anything to say (ACKs first, then CRYPTO, then queued
// control-frame retransmissions, then new application data bounded by
// flow and congestion control), each returned as an independent UDP
// datagram.
func (c *Connection) GeneratePackets(now time.Time) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosing && !c.closeSent {
		pkt, ok := c.buildCloseDatagram(now)
		c.closeSent = true
		if ok {
			return [][]byte{pkt}, nil
		}
		return nil, nil
	}
	if c.state == StateDraining || c.state == StateClosed {
		return nil, nil
	}

	var out [][]byte
	for _, level := range []quiccrypto.Level{quiccrypto.LevelInitial, quiccrypto.LevelHandshake, quiccrypto.LevelApplication} {
		pkt, ok := c.buildPacketForLevel(level, now)
		if ok {
			out = append(out, pkt)
		}
	}
	return out, nil
}

// buildPacketForLevel assembles one packet at level from whatever is
// pending for its space, or reports false if there is nothing to send.
// Callers must hold c.mu.
func (c *Connection) buildPacketForLevel(level quiccrypto.Level, now time.Time) ([]byte, bool) {
	keys, ok := c.keys.get(level)
	if !ok || !keys.Write.Valid() {
		return nil, false
	}
	space := spaceForLevel(level)

	var frames []quicwire.Frame

	ackDelay := uint64(0)
	if d := now.Sub(c.acks[space].recvTime); d > 0 {
		ackDelay = uint64(d/time.Microsecond) >> c.localParams.AckDelayExponent
	}
	if f, ok := c.acks[space].buildFrame(ackDelay); ok {
		frames = append(frames, f)
	}

	for {
		offset, payload, ok := c.cryptoSend[space].nextFrame(1200)
		if !ok {
			break
		}
		frames = append(frames, &quicwire.CryptoFrame{Offset: offset, Data: payload})
	}

	if len(c.pendingFrames[space]) > 0 {
		frames = append(frames, c.pendingFrames[space]...)
		c.pendingFrames[space] = nil
	}

	if level == quiccrypto.LevelApplication {
		frames = append(frames, c.collectApplicationFrames()...)
	}

	if len(frames) == 0 {
		return nil, false
	}

	if level == quiccrypto.LevelInitial && c.role == RoleClient {
		if padLen := minInitialPacketSize - estimateFrameLen(frames) - longHeaderOverhead(c); padLen > 0 {
			frames = append(frames, &quicwire.PaddingFrame{Count: padLen})
		}
	}

	return c.sealPacket(level, space, frames, now)
}

// collectApplicationFrames gathers opportunistic flow-control updates, the
// one-time HANDSHAKE_DONE, and new STREAM data bounded by connection/stream
// flow control and the congestion window. Queued retransmissions for this
// space are already drained by buildPacketForLevel. Callers must hold c.mu.
func (c *Connection) collectApplicationFrames() []quicwire.Frame {
	var frames []quicwire.Frame

	if c.handshakeDonePending {
		frames = append(frames, &quicwire.HandshakeDoneFrame{})
		c.handshakeDonePending = false
	}

	if f, ok := c.flow.MaybeMaxData(); ok {
		frames = append(frames, f)
	}
	if f, ok := c.flow.MaybeDataBlocked(); ok {
		frames = append(frames, f)
	}
	for _, s := range c.streams.Streams() {
		sc := c.streamFlowController(s.ID)
		if f, ok := sc.MaybeMaxStreamData(); ok {
			frames = append(frames, f)
		}
		if f, ok := sc.MaybeStreamDataBlocked(); ok {
			frames = append(frames, f)
		}
	}
	for _, bidi := range []bool{true, false} {
		if f, ok := c.streams.MaybeStreamsBlocked(bidi); ok {
			frames = append(frames, f)
		}
	}

	frames = append(frames, c.collectStreamData()...)
	return frames
}

// collectStreamData polls every open stream for unsent data, bounding
// each STREAM frame by the smaller of the stream's and the connection's
// remaining flow-control credit and the congestion window's remaining
// capacity. Callers must hold c.mu.
func (c *Connection) collectStreamData() []quicwire.Frame {
	var frames []quicwire.Frame
	for _, s := range c.streams.Streams() {
		sc := c.streamFlowController(s.ID)
		budget := sc.RemainingSend()
		if connBudget := c.flow.RemainingSend(); connBudget < budget {
			budget = connBudget
		}
		if budget == 0 {
			continue
		}
		cc := c.recovery.Congestion
		if !cc.CanSend(1) {
			break
		}
		if room := cc.CWnd - cc.BytesInFlight; room < budget {
			budget = room
		}
		maxLen := int(budget)
		if maxLen > 1200 {
			maxLen = 1200
		}
		f, ok := s.NextFrame(maxLen)
		if !ok {
			continue
		}
		n := uint64(len(f.Data))
		_ = sc.ConsumeSend(n)
		_ = c.flow.ConsumeSend(n)
		frames = append(frames, f)
	}
	return frames
}

// sealPacket builds the header for level/space, seals frames under the
// level's write keys, applies header protection, and records the packet
// with the recovery detector. Callers must hold c.mu.
func (c *Connection) sealPacket(level quiccrypto.Level, space quicrecovery.PacketNumberSpaceID, frames []quicwire.Frame, now time.Time) ([]byte, bool) {
	keys, _ := c.keys.get(level)

	pn := c.largestSentPN[space] + 1
	c.largestSentPN[space] = pn
	pnLen := quicpacket.PacketNumberLength(pn, c.recovery.Spaces[space].LargestAcked)

	var payload []byte
	ackEliciting := false
	for _, f := range frames {
		payload = f.Build(payload)
		switch f.(type) {
		case *quicwire.AckFrame, *quicwire.PaddingFrame:
		default:
			ackEliciting = true
		}
	}

	var header []byte
	var pnOffset int
	longHeader := level != quiccrypto.LevelApplication
	if longHeader {
		header, pnOffset = quicpacket.BuildLongHeader(nil, quicpacket.LongHeader{
			Type:             longTypeForLevel(level),
			Version:          quicpacket.QUICVersion1,
			DestConnectionID: c.cids.ActivePeerCID(),
			SrcConnectionID:  c.cids.ActiveLocalCID(),
			PacketNumber:     uint64(pn),
			PacketNumberLen:  pnLen,
		}, len(payload)+16)
	} else {
		header, pnOffset = quicpacket.BuildShortHeader(nil, quicpacket.ShortHeader{
			DestConnectionID: c.cids.ActivePeerCID(),
			PacketNumber:     uint64(pn),
			PacketNumberLen:  pnLen,
		})
	}

	pkt, err := quicpacket.SealAndProtect(header, pnOffset, pnLen, payload, keys.Write, uint64(pn), longHeader)
	if err != nil {
		c.largestSentPN[space] = pn - 1
		return nil, false
	}

	c.recovery.Spaces[space].OnPacketSent(&quicrecovery.SentPacket{
		PacketNumber: uint64(pn),
		SendTime:     now,
		Size:         uint64(len(pkt)),
		AckEliciting: ackEliciting,
		InFlight:     true,
		Frames:       frames,
	})
	if ackEliciting {
		c.recovery.Congestion.OnPacketSent(uint64(len(pkt)))
	}

	return pkt, true
}

func longTypeForLevel(level quiccrypto.Level) quicpacket.LongPacketType {
	switch level {
	case quiccrypto.LevelInitial:
		return quicpacket.LongPacketTypeInitial
	case quiccrypto.LevelHandshake:
		return quicpacket.LongPacketTypeHandshake
	default:
		return quicpacket.LongPacketTypeZeroRTT
	}
}

// buildCloseDatagram builds the single CONNECTION_CLOSE packet sent on
// entering Closing, at the highest encryption level currently available.
// Callers must hold c.mu.
func (c *Connection) buildCloseDatagram(now time.Time) ([]byte, bool) {
	var level quiccrypto.Level
	found := false
	for _, l := range []quiccrypto.Level{quiccrypto.LevelApplication, quiccrypto.LevelHandshake, quiccrypto.LevelInitial} {
		if k, ok := c.keys.get(l); ok && k.Write.Valid() {
			level, found = l, true
			break
		}
	}
	if !found || c.closeErr == nil {
		return nil, false
	}

	frame := &quicwire.ConnectionCloseFrame{
		Application:  c.closeErr.Application,
		ErrorCode:    uint64(c.closeErr.Code),
		ReasonPhrase: c.closeErr.Reason,
	}
	return c.sealPacket(level, spaceForLevel(level), []quicwire.Frame{frame}, now)
}

// estimateFrameLen returns a rough upper bound on the encoded length of
// frames, for sizing Initial-packet padding.
func estimateFrameLen(frames []quicwire.Frame) int {
	n := 0
	for _, f := range frames {
		n = len(f.Build(nil)) + n
	}
	return n
}

// longHeaderOverhead estimates a long header's fixed overhead (first
// byte, version, CID fields, length, AEAD tag) for padding purposes.
func longHeaderOverhead(c *Connection) int {
	overhead := 1 + 4 + 1 + c.cids.ActivePeerCID().Len() + 1 + c.cids.ActiveLocalCID().Len() + 2 + 4 + 16
	return overhead
}
