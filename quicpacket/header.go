package quicpacket

import (
	"fmt"

	"github.com/kcenon/netquic/quicwire"
)

// LongPacketType is the 2-bit packet type carried in bits 5-4 of a long
// header's first byte (RFC 9000 §17.2).
type LongPacketType byte

const (
	LongPacketTypeInitial   LongPacketType = 0x00
	LongPacketTypeZeroRTT   LongPacketType = 0x01
	LongPacketTypeHandshake LongPacketType = 0x02
	LongPacketTypeRetry     LongPacketType = 0x03
)

const (
	longHeaderFormBit  = 0x80
	fixedBit           = 0x40
	shortHeaderSpinBit = 0x20
	shortKeyPhaseBit   = 0x04
)

// QUICVersion1 is the wire version number for QUIC v1 (RFC 9000).
const QUICVersion1 uint32 = 0x00000001

// LongHeader is the unprotected long-header form used for Initial, 0-RTT,
// and Handshake packets (Retry and Version Negotiation do not carry a
// packet number and are handled separately by callers).
type LongHeader struct {
	Type             LongPacketType
	Version          uint32
	DestConnectionID quicwire.ConnectionID
	SrcConnectionID  quicwire.ConnectionID
	Token            []byte // Initial only
	PacketNumber     uint64
	PacketNumberLen  int
}

// IsLongHeaderPacket reports whether the first byte of a packet indicates
// the long header form.
func IsLongHeaderPacket(firstByte byte) bool {
	return firstByte&longHeaderFormBit != 0
}

// BuildLongHeader appends the unprotected long header (first byte through
// the truncated packet number) to dst, and separately returns the
// encoded packet-number bytes' offset within the result, for header
// protection purposes.
func BuildLongHeader(dst []byte, h LongHeader, payloadLen int) (out []byte, pnOffset int) {
	first := longHeaderFormBit | fixedBit | (byte(h.Type) << 4) | byte(h.PacketNumberLen-1)
	dst = append(dst, first)

	var verBuf [4]byte
	verBuf[0] = byte(h.Version >> 24)
	verBuf[1] = byte(h.Version >> 16)
	verBuf[2] = byte(h.Version >> 8)
	verBuf[3] = byte(h.Version)
	dst = append(dst, verBuf[:]...)

	dst = append(dst, byte(h.DestConnectionID.Len()))
	dst = append(dst, h.DestConnectionID.Bytes()...)
	dst = append(dst, byte(h.SrcConnectionID.Len()))
	dst = append(dst, h.SrcConnectionID.Bytes()...)

	if h.Type == LongPacketTypeInitial {
		dst = quicwire.Encode(dst, uint64(len(h.Token)))
		dst = append(dst, h.Token...)
	}

	// Length field covers the packet number plus the encrypted payload
	// (including the AEAD tag); payloadLen is supplied by the caller
	// since it is only known once the payload has been sealed.
	dst = quicwire.Encode(dst, uint64(h.PacketNumberLen+payloadLen))

	pnOffset = len(dst)
	dst = append(dst, EncodePacketNumber(h.PacketNumber, h.PacketNumberLen)...)

	return dst, pnOffset
}

// ParseLongHeaderPrefix parses a long header up to and including the
// Length varint, returning the header fields (packet number fields are
// left zero — they are still protected at this point) and the offset at
// which the protected packet number begins.
func ParseLongHeaderPrefix(pkt []byte) (h LongHeader, pnOffset int, payloadLen uint64, err error) {
	if len(pkt) < 5 {
		return h, 0, 0, fmt.Errorf("quicpacket: long header too short")
	}
	if !IsLongHeaderPacket(pkt[0]) {
		return h, 0, 0, fmt.Errorf("quicpacket: not a long header packet")
	}
	h.Type = LongPacketType((pkt[0] >> 4) & 0x03)
	h.Version = uint32(pkt[1])<<24 | uint32(pkt[2])<<16 | uint32(pkt[3])<<8 | uint32(pkt[4])

	b := pkt[5:]
	consumed := 5

	if len(b) < 1 {
		return h, 0, 0, fmt.Errorf("quicpacket: truncated destination CID length")
	}
	dcidLen := int(b[0])
	b, consumed = b[1:], consumed+1
	if len(b) < dcidLen {
		return h, 0, 0, fmt.Errorf("quicpacket: truncated destination CID")
	}
	if h.DestConnectionID, err = quicwire.NewConnectionID(b[:dcidLen]); err != nil {
		return h, 0, 0, err
	}
	b, consumed = b[dcidLen:], consumed+dcidLen

	if len(b) < 1 {
		return h, 0, 0, fmt.Errorf("quicpacket: truncated source CID length")
	}
	scidLen := int(b[0])
	b, consumed = b[1:], consumed+1
	if len(b) < scidLen {
		return h, 0, 0, fmt.Errorf("quicpacket: truncated source CID")
	}
	if h.SrcConnectionID, err = quicwire.NewConnectionID(b[:scidLen]); err != nil {
		return h, 0, 0, err
	}
	b, consumed = b[scidLen:], consumed+scidLen

	if h.Type == LongPacketTypeInitial {
		tokenLen, n, derr := quicwire.Decode(b)
		if derr != nil {
			return h, 0, 0, derr
		}
		b, consumed = b[n:], consumed+n
		if uint64(len(b)) < tokenLen {
			return h, 0, 0, fmt.Errorf("quicpacket: truncated token")
		}
		h.Token = append([]byte(nil), b[:tokenLen]...)
		b, consumed = b[tokenLen:], consumed+int(tokenLen)
	}

	length, n, derr := quicwire.Decode(b)
	if derr != nil {
		return h, 0, 0, derr
	}
	consumed += n

	return h, consumed, length, nil
}

// ShortHeader is the 1-RTT packet header: just a destination connection ID
// (its length is known out-of-band) plus the spin bit, key phase bit, and
// truncated packet number.
type ShortHeader struct {
	DestConnectionID quicwire.ConnectionID
	SpinBit          bool
	KeyPhase         bool
	PacketNumber     uint64
	PacketNumberLen  int
}

// BuildShortHeader appends the unprotected short header to dst, returning
// the offset at which the encoded packet number begins.
func BuildShortHeader(dst []byte, h ShortHeader) (out []byte, pnOffset int) {
	first := fixedBit | byte(h.PacketNumberLen-1)
	if h.SpinBit {
		first |= shortHeaderSpinBit
	}
	if h.KeyPhase {
		first |= shortKeyPhaseBit
	}
	dst = append(dst, first)
	dst = append(dst, h.DestConnectionID.Bytes()...)
	pnOffset = len(dst)
	dst = append(dst, EncodePacketNumber(h.PacketNumber, h.PacketNumberLen)...)
	return dst, pnOffset
}

// ParseShortHeaderPrefix parses a short header's destination connection ID
// given its expected length (supplied out-of-band by the CID registry),
// returning the offset at which the protected packet number begins.
func ParseShortHeaderPrefix(pkt []byte, dcidLen int) (dcid quicwire.ConnectionID, pnOffset int, err error) {
	if IsLongHeaderPacket(pkt[0]) {
		return dcid, 0, fmt.Errorf("quicpacket: not a short header packet")
	}
	if len(pkt) < 1+dcidLen {
		return dcid, 0, fmt.Errorf("quicpacket: short header too short")
	}
	dcid, err = quicwire.NewConnectionID(pkt[1 : 1+dcidLen])
	if err != nil {
		return dcid, 0, err
	}
	return dcid, 1 + dcidLen, nil
}
