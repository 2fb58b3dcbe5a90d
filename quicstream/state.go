package quicstream

import (
	"errors"
	"sort"

	"github.com/kcenon/netquic/quicwire"
)

// SendState is one of the send-side state machine's states.
type SendState int

const (
	SendReady SendState = iota
	SendSending
	SendDataSent
	SendDataRecvd
	SendResetSent
	SendResetRecvd
)

func (s SendState) String() string {
	switch s {
	case SendReady:
		return "ready"
	case SendSending:
		return "send"
	case SendDataSent:
		return "data-sent"
	case SendDataRecvd:
		return "data-recvd"
	case SendResetSent:
		return "reset-sent"
	case SendResetRecvd:
		return "reset-recvd"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the send machine's terminal states.
func (s SendState) Terminal() bool {
	return s == SendDataRecvd || s == SendResetRecvd
}

// RecvState is one of the receive-side state machine's states.
type RecvState int

const (
	RecvRecv RecvState = iota
	RecvSizeKnown
	RecvDataRecvd
	RecvDataRead
	RecvResetRecvd
	RecvResetRead
)

func (s RecvState) String() string {
	switch s {
	case RecvRecv:
		return "recv"
	case RecvSizeKnown:
		return "size-known"
	case RecvDataRecvd:
		return "data-recvd"
	case RecvDataRead:
		return "data-read"
	case RecvResetRecvd:
		return "reset-recvd"
	case RecvResetRead:
		return "reset-read"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the recv machine's terminal states.
func (s RecvState) Terminal() bool {
	return s == RecvDataRead || s == RecvResetRead
}

var (
	// ErrStreamClosedForWrite is returned by Write once the send side has
	// left Ready/Send.
	ErrStreamClosedForWrite = errors.New("quicstream: stream closed for writing")
	// ErrFinalSizeMismatch is returned when a STREAM or RESET_STREAM frame
	// reports a final size inconsistent with one already recorded.
	ErrFinalSizeMismatch = errors.New("quicstream: final size mismatch")
	// ErrDataBeyondFinalSize is returned when received data extends past
	// an already-known final size.
	ErrDataBeyondFinalSize = errors.New("quicstream: data received beyond final size")
)

// chunk is one buffered (offset, data) run awaiting reassembly.
type chunk struct {
	offset uint64
	data   []byte
}

// Stream holds the independent send and receive state machines for one
// QUIC stream, per spec.md §3's "Stream" data model.
type Stream struct {
	ID uint64

	SendState     SendState
	sendBuf       []byte
	SendOffset    uint64
	AckedOffset   uint64
	FinQueued     bool
	FinSent       bool
	MaxSendOffset uint64

	RecvState      RecvState
	chunks         []chunk
	ready          []byte
	RecvOffset     uint64
	MaxRecvOffset  uint64
	FinalSize      *uint64
	resetErrorCode uint64
}

// New returns a Stream with both state machines in their initial state.
func New(id uint64) *Stream {
	return &Stream{ID: id, SendState: SendReady, RecvState: RecvRecv}
}

// Write appends p to the stream's outbound buffer, moving Ready to Send.
func (s *Stream) Write(p []byte) (int, error) {
	if s.SendState != SendReady && s.SendState != SendSending {
		return 0, ErrStreamClosedForWrite
	}
	if s.SendState == SendReady {
		s.SendState = SendSending
	}
	s.sendBuf = append(s.sendBuf, p...)
	return len(p), nil
}

// CloseSend marks the outbound side as having no more data after
// whatever is currently buffered.
func (s *Stream) CloseSend() error {
	if s.SendState != SendReady && s.SendState != SendSending {
		return ErrStreamClosedForWrite
	}
	if s.SendState == SendReady {
		s.SendState = SendSending
	}
	s.FinQueued = true
	return nil
}

// NextFrame builds a STREAM frame carrying up to maxLen bytes of unsent
// data starting at SendOffset, bounded by MaxSendOffset. It reports
// false if there is nothing eligible to send.
func (s *Stream) NextFrame(maxLen int) (*quicwire.StreamFrame, bool) {
	unsent := s.sendBuf[s.SendOffset:]
	avail := s.MaxSendOffset - s.SendOffset
	n := len(unsent)
	if uint64(n) > avail {
		n = int(avail)
	}
	if n > maxLen {
		n = maxLen
	}

	fin := s.FinQueued && n == len(unsent)
	if n == 0 && !fin {
		return nil, false
	}

	data := append([]byte(nil), unsent[:n]...)
	frame := &quicwire.StreamFrame{
		StreamID:       s.ID,
		Offset:         s.SendOffset,
		Data:           data,
		Fin:            fin,
		ExplicitLength: true,
	}
	s.SendOffset += uint64(n)
	if fin {
		s.FinSent = true
		s.SendState = SendDataSent
	}
	return frame, true
}

// OnAck records that the range [offset, offset+length) was acknowledged,
// advancing AckedOffset when the acknowledged range is contiguous from
// the current AckedOffset. Once every sent byte (and the FIN, if sent)
// is acknowledged, the send machine reaches DataRecvd.
func (s *Stream) OnAck(offset, length uint64) {
	if offset > s.AckedOffset {
		return // gap; out-of-order ACKs are not reordered here
	}
	end := offset + length
	if end > s.AckedOffset {
		s.AckedOffset = end
	}
	if s.FinSent && s.AckedOffset >= s.SendOffset && s.SendState == SendDataSent {
		s.SendState = SendDataRecvd
	}
}

// ResetSend abandons the send side immediately, returning the
// RESET_STREAM frame to transmit.
func (s *Stream) ResetSend(errorCode uint64) (*quicwire.ResetStreamFrame, error) {
	if s.SendState.Terminal() {
		return nil, ErrStreamClosedForWrite
	}
	s.SendState = SendResetSent
	return &quicwire.ResetStreamFrame{StreamID: s.ID, ErrorCode: errorCode, FinalSize: s.SendOffset}, nil
}

// OnResetAcked completes the reset send machine once the peer's receipt
// of RESET_STREAM is confirmed.
func (s *Stream) OnResetAcked() {
	if s.SendState == SendResetSent {
		s.SendState = SendResetRecvd
	}
}

// OnStreamFrame ingests a received STREAM frame: the data is buffered
// for reassembly, and a FIN records the final size (which must not
// conflict with any size already known).
func (s *Stream) OnStreamFrame(f *quicwire.StreamFrame) error {
	if s.RecvState == RecvResetRecvd || s.RecvState == RecvResetRead {
		return nil
	}

	end := f.Offset + uint64(len(f.Data))
	if f.Fin {
		if s.FinalSize != nil && *s.FinalSize != end {
			return ErrFinalSizeMismatch
		}
		s.FinalSize = &end
		if s.RecvState == RecvRecv {
			s.RecvState = RecvSizeKnown
		}
	}
	if s.FinalSize != nil && end > *s.FinalSize {
		return ErrDataBeyondFinalSize
	}

	if end <= s.RecvOffset || len(f.Data) == 0 {
		s.maybeComplete()
		return nil
	}

	data := f.Data
	offset := f.Offset
	if offset < s.RecvOffset {
		data = data[s.RecvOffset-offset:]
		offset = s.RecvOffset
	}
	s.chunks = append(s.chunks, chunk{offset: offset, data: data})
	s.reassemble()
	s.maybeComplete()
	return nil
}

// reassemble drains contiguous chunks starting at RecvOffset into the
// ready buffer, per spec.md's "reassembly only advances when the next
// expected offset is present" invariant.
func (s *Stream) reassemble() {
	sort.Slice(s.chunks, func(i, j int) bool { return s.chunks[i].offset < s.chunks[j].offset })

	for {
		advanced := false
		remaining := s.chunks[:0]
		for _, c := range s.chunks {
			if c.offset > s.RecvOffset {
				remaining = append(remaining, c)
				continue
			}
			end := c.offset + uint64(len(c.data))
			if end <= s.RecvOffset {
				continue // fully stale
			}
			overlap := s.RecvOffset - c.offset
			s.ready = append(s.ready, c.data[overlap:]...)
			s.RecvOffset = end
			advanced = true
		}
		s.chunks = remaining
		if !advanced {
			break
		}
	}
}

// maybeComplete promotes SizeKnown to DataRecvd once every byte up to
// the final size has been delivered into the ready buffer.
func (s *Stream) maybeComplete() {
	if s.FinalSize != nil && s.RecvOffset >= *s.FinalSize && s.RecvState == RecvSizeKnown {
		s.RecvState = RecvDataRecvd
	}
}

// Read drains up to len(p) bytes from the ready buffer. It reports
// io.EOF-equivalent (0, false) once the buffer is empty and the recv
// machine has reached DataRecvd, after transitioning to DataRead.
func (s *Stream) Read(p []byte) (int, bool) {
	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	if n > 0 {
		return n, true
	}
	if s.RecvState == RecvDataRecvd {
		s.RecvState = RecvDataRead
	}
	return 0, false
}

// OnResetStream ingests a received RESET_STREAM frame, discarding any
// buffered data and moving the recv machine to ResetRecvd.
func (s *Stream) OnResetStream(f *quicwire.ResetStreamFrame) {
	if s.RecvState.Terminal() {
		return
	}
	s.chunks = nil
	s.ready = nil
	final := f.FinalSize
	s.FinalSize = &final
	s.resetErrorCode = f.ErrorCode
	s.RecvState = RecvResetRecvd
}

// ReadReset consumes a pending stream reset, returning its error code
// and moving the recv machine to its terminal ResetRead state.
func (s *Stream) ReadReset() (uint64, bool) {
	if s.RecvState != RecvResetRecvd {
		return 0, false
	}
	s.RecvState = RecvResetRead
	return s.resetErrorCode, true
}

// Closed reports whether both state machines have reached a terminal
// state, making the stream eligible for removal.
func (s *Stream) Closed() bool {
	return s.SendState.Terminal() && s.RecvState.Terminal()
}
