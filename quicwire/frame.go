package quicwire

import "fmt"

// FrameType identifies the wire type of a frame, per RFC 9000 §19.
type FrameType uint64

const (
	FrameTypePadding            FrameType = 0x00
	FrameTypePing               FrameType = 0x01
	FrameTypeAck                FrameType = 0x02
	FrameTypeAckECN             FrameType = 0x03
	FrameTypeResetStream        FrameType = 0x04
	FrameTypeStopSending        FrameType = 0x05
	FrameTypeCrypto             FrameType = 0x06
	FrameTypeNewToken           FrameType = 0x07
	FrameTypeStreamBase         FrameType = 0x08 // occupies 0x08..0x0f
	FrameTypeMaxData            FrameType = 0x10
	FrameTypeMaxStreamData      FrameType = 0x11
	FrameTypeMaxStreamsBidi     FrameType = 0x12
	FrameTypeMaxStreamsUni      FrameType = 0x13
	FrameTypeDataBlocked        FrameType = 0x14
	FrameTypeStreamDataBlocked  FrameType = 0x15
	FrameTypeStreamsBlockedBidi FrameType = 0x16
	FrameTypeStreamsBlockedUni  FrameType = 0x17
	FrameTypeNewConnectionID    FrameType = 0x18
	FrameTypeRetireConnectionID FrameType = 0x19
	FrameTypePathChallenge      FrameType = 0x1a
	FrameTypePathResponse       FrameType = 0x1b
	FrameTypeConnectionClose    FrameType = 0x1c
	FrameTypeConnectionCloseApp FrameType = 0x1d
	FrameTypeHandshakeDone      FrameType = 0x1e
)

// Stream frame flag bits, carried in the low 3 bits of the frame type.
const (
	streamFlagFIN = 0x01
	streamFlagLEN = 0x02
	streamFlagOFF = 0x04
)

// Frame is a tagged union over every RFC 9000 §19 frame variant. Each
// concrete type below implements it.
type Frame interface {
	// Type returns the frame's wire type. For STREAM frames this is the
	// base type OR'd with whichever flag bits the frame's fields imply.
	Type() FrameType
	// Build appends the frame's canonical wire encoding to dst and
	// returns the extended slice.
	Build(dst []byte) []byte
}

// AckRange describes one run of acknowledged packet numbers preceding the
// first range, as a (gap, length) pair per RFC 9000 §19.3.
type AckRange struct {
	Gap    uint64
	Length uint64
}

// AckFrame carries the ACK and ACK_ECN frame variants.
type AckFrame struct {
	LargestAcked uint64
	AckDelay     uint64
	FirstRange   uint64
	Ranges       []AckRange

	// ECN indicates the frame carries ECN counts (type 0x03).
	ECN     bool
	ECT0    uint64
	ECT1    uint64
	ECNCE   uint64
}

func (f *AckFrame) Type() FrameType {
	if f.ECN {
		return FrameTypeAckECN
	}
	return FrameTypeAck
}

func (f *AckFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(f.Type()))
	dst = Encode(dst, f.LargestAcked)
	dst = Encode(dst, f.AckDelay)
	dst = Encode(dst, uint64(len(f.Ranges)))
	dst = Encode(dst, f.FirstRange)
	for _, r := range f.Ranges {
		dst = Encode(dst, r.Gap)
		dst = Encode(dst, r.Length)
	}
	if f.ECN {
		dst = Encode(dst, f.ECT0)
		dst = Encode(dst, f.ECT1)
		dst = Encode(dst, f.ECNCE)
	}
	return dst
}

// PaddingFrame is one or more zero bytes; Count records how many.
type PaddingFrame struct {
	Count int
}

func (f *PaddingFrame) Type() FrameType { return FrameTypePadding }

func (f *PaddingFrame) Build(dst []byte) []byte {
	n := f.Count
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		dst = append(dst, 0x00)
	}
	return dst
}

// PingFrame carries no fields.
type PingFrame struct{}

func (f *PingFrame) Type() FrameType     { return FrameTypePing }
func (f *PingFrame) Build(dst []byte) []byte {
	return Encode(dst, uint64(FrameTypePing))
}

// ResetStreamFrame signals abrupt termination of the send side of a stream.
type ResetStreamFrame struct {
	StreamID  uint64
	ErrorCode uint64
	FinalSize uint64
}

func (f *ResetStreamFrame) Type() FrameType { return FrameTypeResetStream }

func (f *ResetStreamFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeResetStream))
	dst = Encode(dst, f.StreamID)
	dst = Encode(dst, f.ErrorCode)
	dst = Encode(dst, f.FinalSize)
	return dst
}

// StopSendingFrame asks the peer to stop sending on a stream.
type StopSendingFrame struct {
	StreamID  uint64
	ErrorCode uint64
}

func (f *StopSendingFrame) Type() FrameType { return FrameTypeStopSending }

func (f *StopSendingFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeStopSending))
	dst = Encode(dst, f.StreamID)
	dst = Encode(dst, f.ErrorCode)
	return dst
}

// CryptoFrame carries handshake bytes at a given offset.
type CryptoFrame struct {
	Offset uint64
	Data   []byte
}

func (f *CryptoFrame) Type() FrameType { return FrameTypeCrypto }

func (f *CryptoFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeCrypto))
	dst = Encode(dst, f.Offset)
	dst = Encode(dst, uint64(len(f.Data)))
	dst = append(dst, f.Data...)
	return dst
}

// NewTokenFrame carries an address-validation token for future connections.
type NewTokenFrame struct {
	Token []byte
}

func (f *NewTokenFrame) Type() FrameType { return FrameTypeNewToken }

func (f *NewTokenFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeNewToken))
	dst = Encode(dst, uint64(len(f.Token)))
	dst = append(dst, f.Token...)
	return dst
}

// StreamFrame carries application stream data. ExplicitLength controls
// whether Build emits the LEN field or lets the payload run to the end of
// the packet.
type StreamFrame struct {
	StreamID       uint64
	Offset         uint64
	Data           []byte
	Fin            bool
	ExplicitLength bool
}

func (f *StreamFrame) Type() FrameType {
	t := FrameTypeStreamBase
	if f.Fin {
		t |= streamFlagFIN
	}
	if f.ExplicitLength {
		t |= streamFlagLEN
	}
	if f.Offset != 0 {
		t |= streamFlagOFF
	}
	return t
}

func (f *StreamFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(f.Type()))
	dst = Encode(dst, f.StreamID)
	if f.Offset != 0 {
		dst = Encode(dst, f.Offset)
	}
	if f.ExplicitLength {
		dst = Encode(dst, uint64(len(f.Data)))
	}
	dst = append(dst, f.Data...)
	return dst
}

// MaxDataFrame raises the connection-level receive limit.
type MaxDataFrame struct {
	MaximumData uint64
}

func (f *MaxDataFrame) Type() FrameType { return FrameTypeMaxData }

func (f *MaxDataFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeMaxData))
	dst = Encode(dst, f.MaximumData)
	return dst
}

// MaxStreamDataFrame raises a per-stream receive limit.
type MaxStreamDataFrame struct {
	StreamID        uint64
	MaximumStreamData uint64
}

func (f *MaxStreamDataFrame) Type() FrameType { return FrameTypeMaxStreamData }

func (f *MaxStreamDataFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeMaxStreamData))
	dst = Encode(dst, f.StreamID)
	dst = Encode(dst, f.MaximumStreamData)
	return dst
}

// MaxStreamsFrame raises the concurrent-stream limit for one directionality.
type MaxStreamsFrame struct {
	Bidi        bool
	MaxStreams  uint64
}

func (f *MaxStreamsFrame) Type() FrameType {
	if f.Bidi {
		return FrameTypeMaxStreamsBidi
	}
	return FrameTypeMaxStreamsUni
}

func (f *MaxStreamsFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(f.Type()))
	dst = Encode(dst, f.MaxStreams)
	return dst
}

// DataBlockedFrame signals the sender was blocked by the connection-level
// send limit.
type DataBlockedFrame struct {
	DataLimit uint64
}

func (f *DataBlockedFrame) Type() FrameType { return FrameTypeDataBlocked }

func (f *DataBlockedFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeDataBlocked))
	dst = Encode(dst, f.DataLimit)
	return dst
}

// StreamDataBlockedFrame signals the sender was blocked by a per-stream
// send limit.
type StreamDataBlockedFrame struct {
	StreamID        uint64
	StreamDataLimit uint64
}

func (f *StreamDataBlockedFrame) Type() FrameType { return FrameTypeStreamDataBlocked }

func (f *StreamDataBlockedFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeStreamDataBlocked))
	dst = Encode(dst, f.StreamID)
	dst = Encode(dst, f.StreamDataLimit)
	return dst
}

// StreamsBlockedFrame signals the sender was blocked by the peer's
// MAX_STREAMS limit for one directionality.
type StreamsBlockedFrame struct {
	Bidi        bool
	StreamLimit uint64
}

func (f *StreamsBlockedFrame) Type() FrameType {
	if f.Bidi {
		return FrameTypeStreamsBlockedBidi
	}
	return FrameTypeStreamsBlockedUni
}

func (f *StreamsBlockedFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(f.Type()))
	dst = Encode(dst, f.StreamLimit)
	return dst
}

// NewConnectionIDFrame issues a new connection ID the peer may route to.
type NewConnectionIDFrame struct {
	SequenceNumber      uint64
	RetirePriorTo       uint64
	ConnectionID        ConnectionID
	StatelessResetToken [16]byte
}

func (f *NewConnectionIDFrame) Type() FrameType { return FrameTypeNewConnectionID }

func (f *NewConnectionIDFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeNewConnectionID))
	dst = Encode(dst, f.SequenceNumber)
	dst = Encode(dst, f.RetirePriorTo)
	dst = append(dst, byte(f.ConnectionID.Len()))
	dst = append(dst, f.ConnectionID.Bytes()...)
	dst = append(dst, f.StatelessResetToken[:]...)
	return dst
}

// RetireConnectionIDFrame asks the peer to stop using a connection ID.
type RetireConnectionIDFrame struct {
	SequenceNumber uint64
}

func (f *RetireConnectionIDFrame) Type() FrameType { return FrameTypeRetireConnectionID }

func (f *RetireConnectionIDFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypeRetireConnectionID))
	dst = Encode(dst, f.SequenceNumber)
	return dst
}

// PathChallengeFrame carries an 8-byte value the peer must echo back in a
// PATH_RESPONSE.
type PathChallengeFrame struct {
	Data [8]byte
}

func (f *PathChallengeFrame) Type() FrameType { return FrameTypePathChallenge }

func (f *PathChallengeFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypePathChallenge))
	return append(dst, f.Data[:]...)
}

// PathResponseFrame echoes a PathChallengeFrame's data.
type PathResponseFrame struct {
	Data [8]byte
}

func (f *PathResponseFrame) Type() FrameType { return FrameTypePathResponse }

func (f *PathResponseFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(FrameTypePathResponse))
	return append(dst, f.Data[:]...)
}

// ConnectionCloseFrame signals connection termination, carrying either a
// transport-level or application-level error code.
type ConnectionCloseFrame struct {
	// Application selects the 0x1d wire form (application_error_code
	// space) over the 0x1c transport form.
	Application  bool
	ErrorCode    uint64
	FrameType    uint64 // transport variant only; 0 if not frame-specific
	ReasonPhrase string
}

func (f *ConnectionCloseFrame) Type() FrameType {
	if f.Application {
		return FrameTypeConnectionCloseApp
	}
	return FrameTypeConnectionClose
}

func (f *ConnectionCloseFrame) Build(dst []byte) []byte {
	dst = Encode(dst, uint64(f.Type()))
	dst = Encode(dst, f.ErrorCode)
	if !f.Application {
		dst = Encode(dst, f.FrameType)
	}
	dst = Encode(dst, uint64(len(f.ReasonPhrase)))
	dst = append(dst, f.ReasonPhrase...)
	return dst
}

// HandshakeDoneFrame confirms the handshake to the client; server-only,
// carries no fields.
type HandshakeDoneFrame struct{}

func (f *HandshakeDoneFrame) Type() FrameType { return FrameTypeHandshakeDone }

func (f *HandshakeDoneFrame) Build(dst []byte) []byte {
	return Encode(dst, uint64(FrameTypeHandshakeDone))
}

// Parse reads one frame from the front of b, returning the frame and the
// number of bytes consumed.
func Parse(b []byte) (Frame, int, error) {
	typ, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	rest := b[n:]

	switch {
	case typ == uint64(FrameTypePadding):
		// The leading 0x00 byte was already consumed by Decode above;
		// absorb any further contiguous zero bytes into the same frame,
		// mirroring how real encoders emit runs of padding.
		count := 1
		for count <= len(rest) && rest[count-1] == 0x00 {
			count++
		}
		count--
		return &PaddingFrame{Count: count + 1}, n + count, nil

	case typ == uint64(FrameTypePing):
		return &PingFrame{}, n, nil

	case typ == uint64(FrameTypeAck) || typ == uint64(FrameTypeAckECN):
		return parseAck(rest, n, typ == uint64(FrameTypeAckECN))

	case typ == uint64(FrameTypeResetStream):
		return parseResetStream(rest, n)

	case typ == uint64(FrameTypeStopSending):
		return parseStopSending(rest, n)

	case typ == uint64(FrameTypeCrypto):
		return parseCrypto(rest, n)

	case typ == uint64(FrameTypeNewToken):
		return parseNewToken(rest, n)

	case typ >= uint64(FrameTypeStreamBase) && typ <= uint64(FrameTypeStreamBase)+0x07:
		return parseStream(rest, n, byte(typ))

	case typ == uint64(FrameTypeMaxData):
		return parseMaxData(rest, n)

	case typ == uint64(FrameTypeMaxStreamData):
		return parseMaxStreamData(rest, n)

	case typ == uint64(FrameTypeMaxStreamsBidi) || typ == uint64(FrameTypeMaxStreamsUni):
		return parseMaxStreams(rest, n, typ == uint64(FrameTypeMaxStreamsBidi))

	case typ == uint64(FrameTypeDataBlocked):
		return parseDataBlocked(rest, n)

	case typ == uint64(FrameTypeStreamDataBlocked):
		return parseStreamDataBlocked(rest, n)

	case typ == uint64(FrameTypeStreamsBlockedBidi) || typ == uint64(FrameTypeStreamsBlockedUni):
		return parseStreamsBlocked(rest, n, typ == uint64(FrameTypeStreamsBlockedBidi))

	case typ == uint64(FrameTypeNewConnectionID):
		return parseNewConnectionID(rest, n)

	case typ == uint64(FrameTypeRetireConnectionID):
		return parseRetireConnectionID(rest, n)

	case typ == uint64(FrameTypePathChallenge):
		return parsePathChallenge(rest, n)

	case typ == uint64(FrameTypePathResponse):
		return parsePathResponse(rest, n)

	case typ == uint64(FrameTypeConnectionClose) || typ == uint64(FrameTypeConnectionCloseApp):
		return parseConnectionClose(rest, n, typ == uint64(FrameTypeConnectionCloseApp))

	case typ == uint64(FrameTypeHandshakeDone):
		return &HandshakeDoneFrame{}, n, nil

	default:
		return nil, 0, fmt.Errorf("quicwire: unknown frame type %#x", typ)
	}
}

// ParseAll repeatedly calls Parse until b is exhausted, aborting on the
// first error.
func ParseAll(b []byte) ([]Frame, error) {
	var frames []Frame
	for len(b) > 0 {
		f, n, err := Parse(b)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		b = b[n:]
	}
	return frames, nil
}

func parseAck(b []byte, consumed int, ecn bool) (Frame, int, error) {
	f := &AckFrame{ECN: ecn}
	var n int
	var err error

	if f.LargestAcked, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.AckDelay, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	var rangeCount uint64
	if rangeCount, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.FirstRange, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	for i := uint64(0); i < rangeCount; i++ {
		var r AckRange
		if r.Gap, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n

		if r.Length, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n

		f.Ranges = append(f.Ranges, r)
	}

	if ecn {
		if f.ECT0, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n

		if f.ECT1, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n

		if f.ECNCE, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		consumed += n
	}

	return f, consumed, nil
}

func parseResetStream(b []byte, consumed int) (Frame, int, error) {
	f := &ResetStreamFrame{}
	var n int
	var err error

	if f.StreamID, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.ErrorCode, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.FinalSize, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	consumed += n

	return f, consumed, nil
}

func parseStopSending(b []byte, consumed int) (Frame, int, error) {
	f := &StopSendingFrame{}
	var n int
	var err error

	if f.StreamID, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.ErrorCode, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	consumed += n

	return f, consumed, nil
}

func parseCrypto(b []byte, consumed int) (Frame, int, error) {
	f := &CryptoFrame{}
	var n int
	var length uint64
	var err error

	if f.Offset, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if length, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if uint64(len(b)) < length {
		return nil, 0, ErrInsufficientData
	}
	f.Data = append([]byte(nil), b[:length]...)
	consumed += int(length)

	return f, consumed, nil
}

func parseNewToken(b []byte, consumed int) (Frame, int, error) {
	f := &NewTokenFrame{}
	length, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if uint64(len(b)) < length {
		return nil, 0, ErrInsufficientData
	}
	f.Token = append([]byte(nil), b[:length]...)
	consumed += int(length)

	return f, consumed, nil
}

func parseStream(b []byte, consumed int, typ byte) (Frame, int, error) {
	f := &StreamFrame{
		Fin:            typ&streamFlagFIN != 0,
		ExplicitLength: typ&streamFlagLEN != 0,
	}
	hasOffset := typ&streamFlagOFF != 0

	var n int
	var err error

	if f.StreamID, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if hasOffset {
		if f.Offset, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n
	}

	if f.ExplicitLength {
		var length uint64
		if length, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n

		if uint64(len(b)) < length {
			return nil, 0, ErrInsufficientData
		}
		f.Data = append([]byte(nil), b[:length]...)
		consumed += int(length)
	} else {
		f.Data = append([]byte(nil), b...)
		consumed += len(b)
	}

	return f, consumed, nil
}

func parseMaxData(b []byte, consumed int) (Frame, int, error) {
	f := &MaxDataFrame{}
	v, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	f.MaximumData = v
	return f, consumed + n, nil
}

func parseMaxStreamData(b []byte, consumed int) (Frame, int, error) {
	f := &MaxStreamDataFrame{}
	var n int
	var err error

	if f.StreamID, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.MaximumStreamData, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	consumed += n

	return f, consumed, nil
}

func parseMaxStreams(b []byte, consumed int, bidi bool) (Frame, int, error) {
	f := &MaxStreamsFrame{Bidi: bidi}
	v, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	f.MaxStreams = v
	return f, consumed + n, nil
}

func parseDataBlocked(b []byte, consumed int) (Frame, int, error) {
	f := &DataBlockedFrame{}
	v, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	f.DataLimit = v
	return f, consumed + n, nil
}

func parseStreamDataBlocked(b []byte, consumed int) (Frame, int, error) {
	f := &StreamDataBlockedFrame{}
	var n int
	var err error

	if f.StreamID, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.StreamDataLimit, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	consumed += n

	return f, consumed, nil
}

func parseStreamsBlocked(b []byte, consumed int, bidi bool) (Frame, int, error) {
	f := &StreamsBlockedFrame{Bidi: bidi}
	v, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	f.StreamLimit = v
	return f, consumed + n, nil
}

func parseNewConnectionID(b []byte, consumed int) (Frame, int, error) {
	f := &NewConnectionIDFrame{}
	var n int
	var err error

	if f.SequenceNumber, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if f.RetirePriorTo, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if len(b) < 1 {
		return nil, 0, ErrInsufficientData
	}
	cidLen := int(b[0])
	b, consumed = b[1:], consumed+1

	if len(b) < cidLen+16 {
		return nil, 0, ErrInsufficientData
	}
	cid, err := NewConnectionID(b[:cidLen])
	if err != nil {
		return nil, 0, err
	}
	f.ConnectionID = cid
	copy(f.StatelessResetToken[:], b[cidLen:cidLen+16])
	consumed += cidLen + 16

	return f, consumed, nil
}

func parseRetireConnectionID(b []byte, consumed int) (Frame, int, error) {
	f := &RetireConnectionIDFrame{}
	v, n, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	f.SequenceNumber = v
	return f, consumed + n, nil
}

func parsePathChallenge(b []byte, consumed int) (Frame, int, error) {
	if len(b) < 8 {
		return nil, 0, ErrInsufficientData
	}
	f := &PathChallengeFrame{}
	copy(f.Data[:], b[:8])
	return f, consumed + 8, nil
}

func parsePathResponse(b []byte, consumed int) (Frame, int, error) {
	if len(b) < 8 {
		return nil, 0, ErrInsufficientData
	}
	f := &PathResponseFrame{}
	copy(f.Data[:], b[:8])
	return f, consumed + 8, nil
}

func parseConnectionClose(b []byte, consumed int, application bool) (Frame, int, error) {
	f := &ConnectionCloseFrame{Application: application}
	var n int
	var err error

	if f.ErrorCode, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if !application {
		if f.FrameType, n, err = Decode(b); err != nil {
			return nil, 0, err
		}
		b, consumed = b[n:], consumed+n
	}

	var length uint64
	if length, n, err = Decode(b); err != nil {
		return nil, 0, err
	}
	b, consumed = b[n:], consumed+n

	if uint64(len(b)) < length {
		return nil, 0, ErrInsufficientData
	}
	f.ReasonPhrase = string(b[:length])
	consumed += int(length)

	return f, consumed, nil
}
