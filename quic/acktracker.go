package quic

import (
	"sort"
	"time"

	"github.com/kcenon/netquic/quicwire"
)

// ackTracker records which packet numbers have been received in one
// packet-number space, for building outgoing ACK frames. It is the
// receive-side counterpart to quicrecovery.Space, which tracks sent
// packets instead.
type ackTracker struct {
	received map[uint64]bool
	largest  int64 // -1 means nothing received yet
	recvTime time.Time

	pending bool // an ack-eliciting packet arrived since the last ACK was sent
}

func newAckTracker() *ackTracker {
	return &ackTracker{received: make(map[uint64]bool), largest: -1}
}

// onReceived records pn as received at now, marking an ACK as due if the
// packet was ack-eliciting.
func (t *ackTracker) onReceived(pn uint64, ackEliciting bool, now time.Time) {
	t.received[pn] = true
	if int64(pn) > t.largest {
		t.largest = int64(pn)
		t.recvTime = now
	}
	if ackEliciting {
		t.pending = true
	}
}

// duplicate reports whether pn has already been recorded as received.
func (t *ackTracker) duplicate(pn uint64) bool {
	return t.received[pn]
}

// hasPending reports whether an ACK is due.
func (t *ackTracker) hasPending() bool {
	return t.pending
}

// buildFrame returns an ACK frame covering every packet number on file,
// with ackDelay (in the connection's ack_delay_exponent units) as the
// AckDelay field, or false if nothing has been received yet.
func (t *ackTracker) buildFrame(ackDelay uint64) (*quicwire.AckFrame, bool) {
	if t.largest < 0 {
		return nil, false
	}

	pns := make([]uint64, 0, len(t.received))
	for pn := range t.received {
		pns = append(pns, pn)
	}
	sort.Slice(pns, func(i, j int) bool { return pns[i] > pns[j] })

	type run struct{ lo, hi uint64 }
	var runs []run
	i := 0
	for i < len(pns) {
		hi := pns[i]
		lo := hi
		j := i + 1
		for j < len(pns) && pns[j] == lo-1 {
			lo = pns[j]
			j++
		}
		runs = append(runs, run{lo: lo, hi: hi})
		i = j
	}

	f := &quicwire.AckFrame{
		LargestAcked: runs[0].hi,
		AckDelay:     ackDelay,
		FirstRange:   runs[0].hi - runs[0].lo,
	}
	for k := 1; k < len(runs); k++ {
		prevLo := runs[k-1].lo
		f.Ranges = append(f.Ranges, quicwire.AckRange{
			Gap:    prevLo - runs[k].hi - 2,
			Length: runs[k].hi - runs[k].lo,
		})
	}

	t.pending = false
	return f, true
}

// forget drops packet numbers at or below threshold, bounding the
// tracker's memory once the peer can no longer usefully benefit from
// seeing them acknowledged again.
func (t *ackTracker) forget(threshold uint64) {
	for pn := range t.received {
		if pn <= threshold {
			delete(t.received, pn)
		}
	}
}
