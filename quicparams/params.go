// Package quicparams encodes and decodes QUIC transport parameters: the
// set of values exchanged during the TLS handshake as a flat sequence of
// (id, length, value) varint triples, per RFC 9000 §18.
package quicparams

import (
	"errors"
	"fmt"

	"github.com/kcenon/netquic/quicwire"
)

// ID identifies one transport parameter, per RFC 9000 §18.2.
type ID uint64

const (
	IDOriginalDestinationConnectionID ID = 0x00
	IDMaxIdleTimeout                  ID = 0x01
	IDStatelessResetToken             ID = 0x02
	IDMaxUDPPayloadSize               ID = 0x03
	IDInitialMaxData                  ID = 0x04
	IDInitialMaxStreamDataBidiLocal   ID = 0x05
	IDInitialMaxStreamDataBidiRemote  ID = 0x06
	IDInitialMaxStreamDataUni         ID = 0x07
	IDInitialMaxStreamsBidi           ID = 0x08
	IDInitialMaxStreamsUni            ID = 0x09
	IDAckDelayExponent                ID = 0x0a
	IDMaxAckDelay                     ID = 0x0b
	IDDisableActiveMigration          ID = 0x0c
	IDPreferredAddress                ID = 0x0d
	IDActiveConnectionIDLimit         ID = 0x0e
	IDInitialSourceConnectionID       ID = 0x0f
	IDRetrySourceConnectionID         ID = 0x10
)

// PreferredAddress is the optional migration target a server may offer.
type PreferredAddress struct {
	IPv4                []byte // 4 bytes
	IPv4Port            uint16
	IPv6                []byte // 16 bytes
	IPv6Port            uint16
	ConnectionID        quicwire.ConnectionID
	StatelessResetToken []byte // 16 bytes
}

// Parameters is the full set of transport parameters exchanged during
// the handshake, with RFC 9000 §18.2 defaults pre-filled.
type Parameters struct {
	OriginalDestinationConnectionID *quicwire.ConnectionID
	InitialSourceConnectionID       *quicwire.ConnectionID
	RetrySourceConnectionID         *quicwire.ConnectionID
	StatelessResetToken             []byte // 16 bytes, server only

	MaxIdleTimeout   uint64
	AckDelayExponent uint64
	MaxAckDelay      uint64

	MaxUDPPayloadSize              uint64
	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64

	InitialMaxStreamsBidi uint64
	InitialMaxStreamsUni  uint64

	DisableActiveMigration bool
	ActiveConnectionIDLimit uint64
	PreferredAddress        *PreferredAddress
}

// Default returns Parameters seeded with RFC 9000 §18.2's recommended
// defaults, suitable as a base for client or server parameter sets.
func Default() Parameters {
	return Parameters{
		AckDelayExponent:        3,
		MaxAckDelay:             25,
		MaxUDPPayloadSize:       65527,
		ActiveConnectionIDLimit: 2,
	}
}

var (
	// ErrDecode is returned for a truncated or malformed parameter sequence.
	ErrDecode = errors.New("quicparams: decode error")
	// ErrDuplicateParameter is returned when the same ID appears twice.
	ErrDuplicateParameter = errors.New("quicparams: duplicate parameter")
)

// Encode appends the wire encoding of p to dst.
func (p *Parameters) Encode(dst []byte) []byte {
	writeOpt := func(id ID, cid *quicwire.ConnectionID) {
		if cid == nil {
			return
		}
		dst = quicwire.Encode(dst, uint64(id))
		dst = quicwire.Encode(dst, uint64(len(cid.Bytes())))
		dst = append(dst, cid.Bytes()...)
	}
	writeVarint := func(id ID, v, defaultValue uint64) {
		if v == defaultValue {
			return
		}
		dst = quicwire.Encode(dst, uint64(id))
		dst = quicwire.Encode(dst, uint64(quicwire.Len(v)))
		dst = quicwire.Encode(dst, v)
	}

	writeOpt(IDOriginalDestinationConnectionID, p.OriginalDestinationConnectionID)
	writeOpt(IDInitialSourceConnectionID, p.InitialSourceConnectionID)
	writeOpt(IDRetrySourceConnectionID, p.RetrySourceConnectionID)

	if p.StatelessResetToken != nil {
		dst = quicwire.Encode(dst, uint64(IDStatelessResetToken))
		dst = quicwire.Encode(dst, uint64(len(p.StatelessResetToken)))
		dst = append(dst, p.StatelessResetToken...)
	}

	writeVarint(IDMaxIdleTimeout, p.MaxIdleTimeout, 0)
	writeVarint(IDAckDelayExponent, p.AckDelayExponent, 3)
	writeVarint(IDMaxAckDelay, p.MaxAckDelay, 25)
	writeVarint(IDMaxUDPPayloadSize, p.MaxUDPPayloadSize, 65527)
	writeVarint(IDInitialMaxData, p.InitialMaxData, 0)
	writeVarint(IDInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal, 0)
	writeVarint(IDInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote, 0)
	writeVarint(IDInitialMaxStreamDataUni, p.InitialMaxStreamDataUni, 0)
	writeVarint(IDInitialMaxStreamsBidi, p.InitialMaxStreamsBidi, 0)
	writeVarint(IDInitialMaxStreamsUni, p.InitialMaxStreamsUni, 0)
	writeVarint(IDActiveConnectionIDLimit, p.ActiveConnectionIDLimit, 2)

	if p.DisableActiveMigration {
		dst = quicwire.Encode(dst, uint64(IDDisableActiveMigration))
		dst = quicwire.Encode(dst, 0)
	}

	if p.PreferredAddress != nil {
		dst = quicwire.Encode(dst, uint64(IDPreferredAddress))
		body := encodePreferredAddress(p.PreferredAddress)
		dst = quicwire.Encode(dst, uint64(len(body)))
		dst = append(dst, body...)
	}

	return dst
}

func encodePreferredAddress(pa *PreferredAddress) []byte {
	var b []byte
	b = append(b, pa.IPv4...)
	b = append(b, byte(pa.IPv4Port>>8), byte(pa.IPv4Port))
	b = append(b, pa.IPv6...)
	b = append(b, byte(pa.IPv6Port>>8), byte(pa.IPv6Port))
	b = append(b, byte(len(pa.ConnectionID.Bytes())))
	b = append(b, pa.ConnectionID.Bytes()...)
	b = append(b, pa.StatelessResetToken...)
	return b
}

// Decode parses a transport parameter sequence, returning an error on
// truncation, a duplicate ID, or a value that fails its per-parameter
// validator.
func Decode(data []byte) (Parameters, error) {
	p := Default()
	seen := make(map[ID]bool)

	for len(data) > 0 {
		rawID, n, err := quicwire.Decode(data)
		if err != nil {
			return p, fmt.Errorf("%w: parameter id: %v", ErrDecode, err)
		}
		data = data[n:]
		id := ID(rawID)

		length, n, err := quicwire.Decode(data)
		if err != nil {
			return p, fmt.Errorf("%w: parameter length: %v", ErrDecode, err)
		}
		data = data[n:]
		if uint64(len(data)) < length {
			return p, fmt.Errorf("%w: parameter %d value truncated", ErrDecode, id)
		}
		value := data[:length]
		data = data[length:]

		if seen[id] {
			return p, fmt.Errorf("%w: id %d", ErrDuplicateParameter, id)
		}
		seen[id] = true

		if err := applyParam(&p, id, value); err != nil {
			return p, err
		}
	}
	return p, nil
}

// applyParam decodes and validates one parameter's value into p,
// dispatching to the parameter-specific validator.
func applyParam(p *Parameters, id ID, value []byte) error {
	switch id {
	case IDOriginalDestinationConnectionID:
		return decodeConnectionID(value, &p.OriginalDestinationConnectionID)
	case IDInitialSourceConnectionID:
		return decodeConnectionID(value, &p.InitialSourceConnectionID)
	case IDRetrySourceConnectionID:
		return decodeConnectionID(value, &p.RetrySourceConnectionID)
	case IDStatelessResetToken:
		return validateStatelessResetToken(value, p)
	case IDMaxIdleTimeout:
		return decodeVarintField(value, &p.MaxIdleTimeout, validateMaxIdleTimeout)
	case IDAckDelayExponent:
		return decodeVarintField(value, &p.AckDelayExponent, validateAckDelayExponent)
	case IDMaxAckDelay:
		return decodeVarintField(value, &p.MaxAckDelay, validateMaxAckDelay)
	case IDMaxUDPPayloadSize:
		return decodeVarintField(value, &p.MaxUDPPayloadSize, validateMaxUDPPayloadSize)
	case IDInitialMaxData:
		return decodeVarintField(value, &p.InitialMaxData, nil)
	case IDInitialMaxStreamDataBidiLocal:
		return decodeVarintField(value, &p.InitialMaxStreamDataBidiLocal, nil)
	case IDInitialMaxStreamDataBidiRemote:
		return decodeVarintField(value, &p.InitialMaxStreamDataBidiRemote, nil)
	case IDInitialMaxStreamDataUni:
		return decodeVarintField(value, &p.InitialMaxStreamDataUni, nil)
	case IDInitialMaxStreamsBidi:
		return decodeVarintField(value, &p.InitialMaxStreamsBidi, validateMaxStreams)
	case IDInitialMaxStreamsUni:
		return decodeVarintField(value, &p.InitialMaxStreamsUni, validateMaxStreams)
	case IDActiveConnectionIDLimit:
		return decodeVarintField(value, &p.ActiveConnectionIDLimit, validateActiveConnectionIDLimit)
	case IDDisableActiveMigration:
		if len(value) != 0 {
			return fmt.Errorf("%w: disable_active_migration must be empty", ErrDecode)
		}
		p.DisableActiveMigration = true
		return nil
	case IDPreferredAddress:
		return decodePreferredAddress(value, p)
	default:
		return nil // unknown parameters are ignored, per RFC 9000 §18.1
	}
}

func decodeConnectionID(value []byte, out **quicwire.ConnectionID) error {
	cid, err := quicwire.NewConnectionID(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	*out = &cid
	return nil
}

func validateStatelessResetToken(value []byte, p *Parameters) error {
	if len(value) != 16 {
		return fmt.Errorf("%w: stateless_reset_token must be 16 bytes", ErrDecode)
	}
	p.StatelessResetToken = append([]byte(nil), value...)
	return nil
}

// decodeVarintField decodes value as a single varint into *out, running
// validate (if non-nil) against the decoded value.
func decodeVarintField(value []byte, out *uint64, validate func(uint64) error) error {
	v, n, err := quicwire.Decode(value)
	if err != nil || n != len(value) {
		return fmt.Errorf("%w: malformed varint parameter", ErrDecode)
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return err
		}
	}
	*out = v
	return nil
}

// validateMaxIdleTimeout enforces no upper bound beyond the varint range
// itself; idle timeout of 0 means disabled, per RFC 9000 §18.2.
func validateMaxIdleTimeout(uint64) error { return nil }

// validateAckDelayExponent enforces the RFC 9000 §18.2 maximum of 20.
func validateAckDelayExponent(v uint64) error {
	if v > 20 {
		return fmt.Errorf("%w: ack_delay_exponent must not exceed 20", ErrDecode)
	}
	return nil
}

// validateMaxAckDelay enforces the RFC 9000 §18.2 maximum of 2^14-1.
func validateMaxAckDelay(v uint64) error {
	if v > 16383 {
		return fmt.Errorf("%w: max_ack_delay must not exceed 16383", ErrDecode)
	}
	return nil
}

// validateMaxUDPPayloadSize enforces the RFC 9000 §18.2 minimum of 1200.
func validateMaxUDPPayloadSize(v uint64) error {
	if v < 1200 {
		return fmt.Errorf("%w: max_udp_payload_size must be at least 1200", ErrDecode)
	}
	return nil
}

// validateActiveConnectionIDLimit enforces the RFC 9000 §18.2 minimum of 2.
func validateActiveConnectionIDLimit(v uint64) error {
	if v < 2 {
		return fmt.Errorf("%w: active_connection_id_limit must be at least 2", ErrDecode)
	}
	return nil
}

// validateMaxStreams enforces the RFC 9000 §4.6 limit of 2^60.
func validateMaxStreams(v uint64) error {
	if v > 1<<60 {
		return fmt.Errorf("%w: stream limit must not exceed 2^60", ErrDecode)
	}
	return nil
}

func decodePreferredAddress(value []byte, p *Parameters) error {
	const fixed = 4 + 2 + 16 + 2 + 1
	if len(value) < fixed {
		return fmt.Errorf("%w: preferred_address truncated", ErrDecode)
	}
	pa := &PreferredAddress{}
	pa.IPv4 = append([]byte(nil), value[0:4]...)
	pa.IPv4Port = uint16(value[4])<<8 | uint16(value[5])
	pa.IPv6 = append([]byte(nil), value[6:22]...)
	pa.IPv6Port = uint16(value[22])<<8 | uint16(value[23])
	cidLen := int(value[24])
	rest := value[25:]
	if len(rest) < cidLen+16 {
		return fmt.Errorf("%w: preferred_address connection id truncated", ErrDecode)
	}
	cid, err := quicwire.NewConnectionID(rest[:cidLen])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	pa.ConnectionID = cid
	pa.StatelessResetToken = append([]byte(nil), rest[cidLen:cidLen+16]...)
	p.PreferredAddress = pa
	return nil
}

// Validate checks cross-parameter and role-specific invariants beyond
// what per-field decoding already enforces: server-only parameters must
// not appear in a client's set.
func (p *Parameters) Validate(isServer bool) error {
	if isServer {
		return nil
	}
	if p.OriginalDestinationConnectionID != nil {
		return fmt.Errorf("%w: client must not send original_destination_connection_id", ErrDecode)
	}
	if p.RetrySourceConnectionID != nil {
		return fmt.Errorf("%w: client must not send retry_source_connection_id", ErrDecode)
	}
	if p.StatelessResetToken != nil {
		return fmt.Errorf("%w: client must not send stateless_reset_token", ErrDecode)
	}
	if p.PreferredAddress != nil {
		return fmt.Errorf("%w: client must not send preferred_address", ErrDecode)
	}
	return nil
}
