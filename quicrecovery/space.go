package quicrecovery

import (
	"sort"
	"time"

	"github.com/kcenon/netquic/quicwire"
)

// PacketNumberSpaceID distinguishes the three independent packet-number
// spaces.
type PacketNumberSpaceID int

const (
	SpaceInitial PacketNumberSpaceID = iota
	SpaceHandshake
	SpaceApplication
)

// packetThreshold is the packet-count reordering threshold of RFC 9002
// §6.1.1: a packet more than this many packet numbers behind the largest
// acknowledged is declared lost.
const packetThreshold = 3

// SentPacket records one in-flight packet for retransmission and
// ACK/loss bookkeeping.
type SentPacket struct {
	PacketNumber uint64
	SendTime     time.Time
	Size         uint64
	AckEliciting bool
	InFlight     bool
	Frames       []quicwire.Frame
}

// Space tracks unacknowledged sent packets and ACK state for one
// packet-number space.
type Space struct {
	Sent                    map[uint64]*SentPacket
	LargestAcked            int64 // -1 if no packet has been acknowledged yet
	TimeOfLastAckEliciting  time.Time
	LossTime                time.Time // zero Time means unset
}

// NewSpace returns an empty Space.
func NewSpace() *Space {
	return &Space{
		Sent:         make(map[uint64]*SentPacket),
		LargestAcked: -1,
	}
}

// OnPacketSent records pkt as newly in flight.
func (s *Space) OnPacketSent(pkt *SentPacket) {
	s.Sent[pkt.PacketNumber] = pkt
	if pkt.AckEliciting {
		s.TimeOfLastAckEliciting = pkt.SendTime
	}
}

// ackedRange describes one inclusive range of newly-acknowledged packet
// numbers, derived from an AckFrame's largest-acknowledged/first-range/
// (gap, length) encoding.
type ackedRange struct {
	lo, hi uint64 // inclusive
}

// ranges expands an ack frame's compact range encoding into ascending,
// inclusive [lo, hi] packet-number ranges.
func ranges(largestAcked, firstRange uint64, gaps []quicwire.AckRange) []ackedRange {
	var out []ackedRange
	hi := largestAcked
	lo := hi - firstRange
	out = append(out, ackedRange{lo: lo, hi: hi})

	for _, r := range gaps {
		if lo < r.Gap+1+r.Length {
			break
		}
		hi = lo - r.Gap - 2
		lo = hi - r.Length
		out = append(out, ackedRange{lo: lo, hi: hi})
	}
	return out
}

// ApplyAck removes newly-acknowledged packets from Sent and returns them
// in ascending packet-number order, updating LargestAcked.
func (s *Space) ApplyAck(largestAcked, firstRange uint64, gaps []quicwire.AckRange) []*SentPacket {
	if int64(largestAcked) > s.LargestAcked {
		s.LargestAcked = int64(largestAcked)
	}

	var acked []*SentPacket
	for _, r := range ranges(largestAcked, firstRange, gaps) {
		for pn := r.lo; pn <= r.hi; pn++ {
			if pkt, ok := s.Sent[pn]; ok {
				acked = append(acked, pkt)
				delete(s.Sent, pn)
			}
			if pn == r.hi {
				break
			}
		}
	}

	sort.Slice(acked, func(i, j int) bool {
		return acked[i].PacketNumber < acked[j].PacketNumber
	})
	return acked
}

// DetectLost walks the unacked packets older than LargestAcked and
// declares lost any that meet the packet or time threshold (RFC 9002
// §6.1). It removes lost packets from Sent, returns them, and re-arms
// LossTime to the earliest send time at risk of time-threshold loss
// among the packets that remain.
func (s *Space) DetectLost(now time.Time, lossDelay time.Duration) []*SentPacket {
	s.LossTime = time.Time{}
	if s.LargestAcked < 0 {
		return nil
	}

	var lost []*SentPacket
	for pn, pkt := range s.Sent {
		if int64(pn) > s.LargestAcked {
			continue
		}

		lostByCount := s.LargestAcked-int64(pn) >= packetThreshold
		lossAt := pkt.SendTime.Add(lossDelay)
		lostByTime := !lossAt.After(now)

		if lostByCount || lostByTime {
			lost = append(lost, pkt)
			delete(s.Sent, pn)
			continue
		}

		if s.LossTime.IsZero() || lossAt.Before(s.LossTime) {
			s.LossTime = lossAt
		}
	}

	sort.Slice(lost, func(i, j int) bool {
		return lost[i].PacketNumber < lost[j].PacketNumber
	})
	return lost
}

// OldestInFlightSendTime returns the earliest send time among unacked,
// in-flight packets, and whether any exist — used for persistent
// congestion detection.
func (s *Space) OldestInFlightSendTime() (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, pkt := range s.Sent {
		if !pkt.InFlight {
			continue
		}
		if !found || pkt.SendTime.Before(oldest) {
			oldest = pkt.SendTime
			found = true
		}
	}
	return oldest, found
}
