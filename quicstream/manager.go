package quicstream

import (
	"errors"

	"github.com/kcenon/netquic/quicwire"
)

// ErrStreamsBlocked is returned by OpenBidi/OpenUni when the peer's
// MAX_STREAMS limit for that directionality has been reached.
var ErrStreamsBlocked = errors.New("quicstream: streams blocked by peer limit")

// ErrInvalidStreamID is returned by GetOrCreateStream when id's type
// bits don't match an implicitly-created peer-initiated stream, or when
// id exceeds the locally advertised MAX_STREAMS limit.
var ErrInvalidStreamID = errors.New("quicstream: invalid or disallowed stream id")

// Manager allocates locally-initiated stream IDs, admits peer-initiated
// streams, and sweeps streams once both state machines are terminal.
type Manager struct {
	clientInitiated bool // true if this endpoint is the client

	streams map[uint64]*Stream

	nextBidiSeq uint64
	nextUniSeq  uint64

	peerMaxStreamsBidi uint64
	peerMaxStreamsUni  uint64

	localMaxStreamsBidi uint64
	localMaxStreamsUni  uint64

	bidiBlockedSent bool
	uniBlockedSent  bool
}

// NewManager returns a Manager for a client or server endpoint.
func NewManager(clientInitiated bool) *Manager {
	return &Manager{
		clientInitiated: clientInitiated,
		streams:         make(map[uint64]*Stream),
	}
}

// SetPeerMaxStreams installs the peer-advertised concurrency limit for
// streams this endpoint opens in the given directionality.
func (m *Manager) SetPeerMaxStreams(bidi bool, limit uint64) {
	if bidi {
		if limit > m.peerMaxStreamsBidi {
			m.peerMaxStreamsBidi = limit
		}
		m.bidiBlockedSent = false
	} else {
		if limit > m.peerMaxStreamsUni {
			m.peerMaxStreamsUni = limit
		}
		m.uniBlockedSent = false
	}
}

// SetLocalMaxStreams installs the limit this endpoint advertises to the
// peer for peer-initiated streams in the given directionality.
func (m *Manager) SetLocalMaxStreams(bidi bool, limit uint64) {
	if bidi {
		m.localMaxStreamsBidi = limit
	} else {
		m.localMaxStreamsUni = limit
	}
}

// OpenBidi allocates the next locally-initiated bidirectional stream, or
// ErrStreamsBlocked if the peer's MAX_STREAMS(bidi) limit is reached.
func (m *Manager) OpenBidi() (*Stream, error) {
	return m.open(true)
}

// OpenUni allocates the next locally-initiated unidirectional stream, or
// ErrStreamsBlocked if the peer's MAX_STREAMS(uni) limit is reached.
func (m *Manager) OpenUni() (*Stream, error) {
	return m.open(false)
}

func (m *Manager) open(bidi bool) (*Stream, error) {
	seqPtr, limit := &m.nextBidiSeq, m.peerMaxStreamsBidi
	if !bidi {
		seqPtr, limit = &m.nextUniSeq, m.peerMaxStreamsUni
	}
	if *seqPtr >= limit {
		return nil, ErrStreamsBlocked
	}
	id := MakeStreamID(*seqPtr, m.clientInitiated, bidi)
	*seqPtr++

	s := New(id)
	m.streams[id] = s
	return s, nil
}

// MaybeStreamsBlocked returns a STREAMS_BLOCKED frame and true if this
// endpoint is currently blocked opening streams of the given
// directionality and hasn't already reported it.
func (m *Manager) MaybeStreamsBlocked(bidi bool) (*quicwire.StreamsBlockedFrame, bool) {
	seq, limit, sent := m.nextBidiSeq, m.peerMaxStreamsBidi, m.bidiBlockedSent
	if !bidi {
		seq, limit, sent = m.nextUniSeq, m.peerMaxStreamsUni, m.uniBlockedSent
	}
	if sent || seq < limit {
		return nil, false
	}
	if bidi {
		m.bidiBlockedSent = true
	} else {
		m.uniBlockedSent = true
	}
	return &quicwire.StreamsBlockedFrame{Bidi: bidi, StreamLimit: limit}, true
}

// GetOrCreateStream returns the stream for id, implicitly creating it if
// id names a peer-initiated stream not yet seen. It rejects IDs whose
// type bits mismatch the peer's role, and peer-initiated IDs beyond the
// locally advertised MAX_STREAMS limit.
func (m *Manager) GetOrCreateStream(id uint64) (*Stream, error) {
	if s, ok := m.streams[id]; ok {
		return s, nil
	}

	peerInitiated := IsClientInitiated(id) != m.clientInitiated
	if !peerInitiated {
		// Locally-initiated IDs must already exist; a peer can't create
		// a stream on our behalf.
		return nil, ErrInvalidStreamID
	}

	bidi := IsBidi(id)
	limit := m.localMaxStreamsUni
	if bidi {
		limit = m.localMaxStreamsBidi
	}
	if Sequence(id) >= limit {
		return nil, ErrInvalidStreamID
	}

	s := New(id)
	m.streams[id] = s
	return s, nil
}

// Get returns the stream for id without creating it.
func (m *Manager) Get(id uint64) (*Stream, bool) {
	s, ok := m.streams[id]
	return s, ok
}

// Streams returns every currently tracked stream, in no particular order,
// for callers that need to poll each stream for pending work (e.g. the
// send pipeline collecting STREAM frames).
func (m *Manager) Streams() []*Stream {
	out := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s)
	}
	return out
}

// RemoveClosedStreams deletes every stream whose send and recv state
// machines have both reached a terminal state.
func (m *Manager) RemoveClosedStreams() int {
	removed := 0
	for id, s := range m.streams {
		if s.Closed() {
			delete(m.streams, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of streams currently tracked.
func (m *Manager) Count() int {
	return len(m.streams)
}
