package quic

import (
	"crypto/rand"
	"errors"

	"github.com/kcenon/netquic/quicwire"
)

// ErrRetiredConnectionID is returned when a frame refers to a connection
// ID sequence number this endpoint no longer recognizes.
var ErrRetiredConnectionID = errors.New("quic: unknown or already-retired connection ID sequence")

// localCID is one connection ID this endpoint has issued to the peer via
// NEW_CONNECTION_ID.
type localCID struct {
	seq     uint64
	cid     quicwire.ConnectionID
	token   [16]byte
	retired bool
}

// peerCID is one connection ID the peer has issued to this endpoint.
type peerCID struct {
	seq     uint64
	cid     quicwire.ConnectionID
	token   [16]byte
	retired bool
}

// CIDRegistry tracks both the set of connection IDs this endpoint has
// handed out for the peer to route to, and the set the peer has handed
// out for this endpoint to route to, per RFC 9000 §5.1's connection ID
// lifecycle. This is kept distinct from quicwire.ConnectionID (the raw
// wire value) the same way the original implementation separates its
// connection ID manager from the plain connection ID type.
type CIDRegistry struct {
	local          []localCID
	localSeq       uint64
	activeLocalSeq uint64

	peer          []peerCID
	peerSeq       uint64
	activePeerSeq uint64
	retirePriorTo uint64

	peerActiveLimit uint64 // this endpoint's own active_connection_id_limit, bounding how many it will track
}

// NewCIDRegistry seeds the registry with the connection IDs established
// during the handshake: the local ID the peer first addresses packets to,
// and the peer ID this endpoint first addresses packets to.
func NewCIDRegistry(initialLocal, initialPeer quicwire.ConnectionID, localActiveLimit uint64) *CIDRegistry {
	if localActiveLimit == 0 {
		localActiveLimit = 2
	}
	r := &CIDRegistry{peerActiveLimit: localActiveLimit}
	r.local = append(r.local, localCID{seq: 0, cid: initialLocal})
	r.localSeq = 1
	r.peer = append(r.peer, peerCID{seq: 0, cid: initialPeer})
	r.peerSeq = 1
	return r
}

// ActiveLocalCID returns the connection ID currently used to recognize
// incoming packets addressed to this endpoint.
func (r *CIDRegistry) ActiveLocalCID() quicwire.ConnectionID {
	for _, l := range r.local {
		if l.seq == r.activeLocalSeq {
			return l.cid
		}
	}
	return r.local[0].cid
}

// ActivePeerCID returns the connection ID currently used as the
// destination for outgoing packets.
func (r *CIDRegistry) ActivePeerCID() quicwire.ConnectionID {
	for _, p := range r.peer {
		if p.seq == r.activePeerSeq {
			return p.cid
		}
	}
	return r.peer[0].cid
}

// MatchesLocal reports whether cid is one this endpoint still recognizes
// as its own (not yet retired).
func (r *CIDRegistry) MatchesLocal(cid quicwire.ConnectionID) bool {
	for _, l := range r.local {
		if !l.retired && l.cid.Equal(cid) {
			return true
		}
	}
	return false
}

// IssueLocalCID allocates and returns a NEW_CONNECTION_ID frame for a
// freshly generated connection ID, bounded by the peer's advertised
// active_connection_id_limit.
func (r *CIDRegistry) IssueLocalCID(length int) (*quicwire.NewConnectionIDFrame, error) {
	active := 0
	for _, l := range r.local {
		if !l.retired {
			active++
		}
	}
	if uint64(active) >= r.peerActiveLimit {
		return nil, nil
	}

	cid, err := quicwire.GenerateConnectionID(length)
	if err != nil {
		return nil, err
	}
	var token [16]byte
	if _, err := rand.Read(token[:]); err != nil {
		return nil, err
	}

	seq := r.localSeq
	r.localSeq++
	r.local = append(r.local, localCID{seq: seq, cid: cid, token: token})

	return &quicwire.NewConnectionIDFrame{
		SequenceNumber:      seq,
		RetirePriorTo:       0,
		ConnectionID:        cid,
		StatelessResetToken: token,
	}, nil
}

// OnNewConnectionID records a peer-issued connection ID and returns any
// RETIRE_CONNECTION_ID frames now due because the frame raised
// RetirePriorTo.
func (r *CIDRegistry) OnNewConnectionID(f *quicwire.NewConnectionIDFrame) []*quicwire.RetireConnectionIDFrame {
	r.peer = append(r.peer, peerCID{seq: f.SequenceNumber, cid: f.ConnectionID, token: f.StatelessResetToken})

	var retirements []*quicwire.RetireConnectionIDFrame
	if f.RetirePriorTo > r.retirePriorTo {
		r.retirePriorTo = f.RetirePriorTo
	}
	for i := range r.peer {
		p := &r.peer[i]
		if p.retired || p.seq >= r.retirePriorTo {
			continue
		}
		p.retired = true
		retirements = append(retirements, &quicwire.RetireConnectionIDFrame{SequenceNumber: p.seq})
		if p.seq == r.activePeerSeq {
			r.promoteActivePeerCID()
		}
	}
	return retirements
}

// BootstrapPeerCID replaces the client's self-chosen placeholder initial
// destination connection ID with the server's actual source connection ID,
// observed in the first packet returned by the server. It always
// overwrites the sequence-0 entry (or seeds it when none is on file);
// Connection calls it only once per connection.
func (r *CIDRegistry) BootstrapPeerCID(cid quicwire.ConnectionID) {
	if len(r.peer) == 0 {
		r.peer = append(r.peer, peerCID{seq: 0, cid: cid})
		r.peerSeq = 1
		return
	}
	r.peer[0].cid = cid
}

// promoteActivePeerCID switches ActivePeerCID to the lowest-sequence,
// non-retired peer CID still on file.
func (r *CIDRegistry) promoteActivePeerCID() {
	best, found := uint64(0), false
	for _, p := range r.peer {
		if p.retired {
			continue
		}
		if !found || p.seq < best {
			best, found = p.seq, true
		}
	}
	if found {
		r.activePeerSeq = best
	}
}

// OnRetireConnectionID marks one of this endpoint's issued connection IDs
// as retired, per a received RETIRE_CONNECTION_ID frame.
func (r *CIDRegistry) OnRetireConnectionID(f *quicwire.RetireConnectionIDFrame) error {
	for i := range r.local {
		if r.local[i].seq == f.SequenceNumber {
			r.local[i].retired = true
			return nil
		}
	}
	return ErrRetiredConnectionID
}
