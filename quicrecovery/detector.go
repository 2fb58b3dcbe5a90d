package quicrecovery

import (
	"time"

	"github.com/kcenon/netquic/quicwire"
)

// Detector ties RTT estimation, loss detection, congestion control, and
// ECN validation together across a connection's three packet-number
// spaces, per RFC 9002.
type Detector struct {
	Clock       Clock
	RTT         *RTTEstimator
	Congestion  *CongestionController
	ECN         *ECNTracker
	Spaces      [3]*Space
	PTOCount    int

	// HandshakeConfirmed gates ACK-delay adjustment in the RTT sample; PTO
	// arming considers every space regardless of it.
	HandshakeConfirmed bool
}

// NewDetector returns a Detector with empty spaces, seeded RTT estimation,
// and a NewReno congestion controller sized for maxDatagramSize.
func NewDetector(clock Clock, maxAckDelay time.Duration, maxDatagramSize uint64) *Detector {
	d := &Detector{
		Clock:      clock,
		RTT:        NewRTTEstimator(maxAckDelay),
		Congestion: NewCongestionController(maxDatagramSize),
		ECN:        &ECNTracker{},
	}
	for i := range d.Spaces {
		d.Spaces[i] = NewSpace()
	}
	return d
}

// AckResult summarizes the effect of processing one incoming ACK frame.
type AckResult struct {
	NewlyAcked []*SentPacket
	Lost       []*SentPacket
}

// OnAckReceived processes an ACK (or ACK_ECN) frame for the given space:
// it removes newly-acknowledged packets, updates the RTT estimator from
// the largest newly-acked ack-eliciting packet, feeds the congestion
// controller, runs loss detection, re-arms the loss/PTO timer state, and
// (when ecn is non-nil) feeds the ECN tracker.
func (d *Detector) OnAckReceived(space PacketNumberSpaceID, largestAcked, ackDelay, firstRange uint64, gaps []quicwire.AckRange, ecn *ECNCounts) AckResult {
	now := d.Clock.Now()
	sp := d.Spaces[space]

	acked := sp.ApplyAck(largestAcked, firstRange, gaps)
	if len(acked) == 0 {
		return AckResult{}
	}

	largest := acked[len(acked)-1]
	if largest.PacketNumber == largestAcked && largest.AckEliciting {
		d.RTT.UpdateSample(now, largest.SendTime, time.Duration(ackDelay), d.HandshakeConfirmed)
	}

	var newlyAckedECT uint64
	earliest := acked[0].SendTime
	for _, pkt := range acked {
		d.Congestion.OnPacketAcked(pkt.Size, pkt.SendTime)
		if pkt.SendTime.Before(earliest) {
			earliest = pkt.SendTime
		}
		newlyAckedECT++ // every packet we send is ECT-marked while testing/capable
	}

	if ecn != nil {
		if signal, sentTime := d.ECN.OnACK(*ecn, newlyAckedECT, earliest); signal {
			d.Congestion.OnCongestionEvent(sentTime, now)
		}
	}

	lost := sp.DetectLost(now, d.RTT.LossDelay())
	for _, pkt := range lost {
		if pkt.InFlight {
			d.Congestion.OnPacketLost(pkt.Size)
		}
	}
	if len(lost) > 0 {
		d.Congestion.OnCongestionEvent(lost[0].SendTime, now)
	}

	d.checkPersistentCongestion(sp, lost)

	if len(lost) > 0 || len(acked) > 0 {
		d.PTOCount = 0
	}

	return AckResult{NewlyAcked: acked, Lost: lost}
}

// checkPersistentCongestion implements RFC 9002 §7.6.2: if every packet
// sent within a window spanning at least 3*PTO is lost, reset the
// congestion window to the minimum.
func (d *Detector) checkPersistentCongestion(sp *Space, lost []*SentPacket) {
	if len(lost) == 0 {
		return
	}
	window := d.persistentCongestionDuration()

	first, last := lost[0], lost[len(lost)-1]
	if last.SendTime.Sub(first.SendTime) < window {
		return
	}
	d.Congestion.OnPersistentCongestion()
}

// persistentCongestionDuration returns (smoothed_rtt + max(4*rttvar,
// 1ms) + max_ack_delay) * 3.
func (d *Detector) persistentCongestionDuration() time.Duration {
	variance := 4 * d.RTT.RTTVar
	if variance < time.Millisecond {
		variance = time.Millisecond
	}
	return (d.RTT.SmoothedRTT + variance + d.RTT.MaxAckDelay) * 3
}

// NextTimeout returns the earliest of the loss-detection timer across all
// spaces and the PTO timer, plus whether any timer is armed.
func (d *Detector) NextTimeout() (time.Time, bool) {
	var earliest time.Time
	found := false

	for _, sp := range d.Spaces {
		if sp.LossTime.IsZero() {
			continue
		}
		if !found || sp.LossTime.Before(earliest) {
			earliest = sp.LossTime
			found = true
		}
	}
	if found {
		return earliest, true
	}

	return d.ptoDeadline()
}

// ptoDeadline returns the next PTO deadline: the latest ack-eliciting
// send time across spaces with unacked packets, plus the PTO duration
// doubled once for every prior expiry without a new ACK.
func (d *Detector) ptoDeadline() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, sp := range d.Spaces {
		if len(sp.Sent) == 0 {
			continue
		}
		if !found || sp.TimeOfLastAckEliciting.After(latest) {
			latest = sp.TimeOfLastAckEliciting
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}

	pto := d.RTT.PTO()
	for i := 0; i < d.PTOCount; i++ {
		pto *= 2
	}
	return latest.Add(pto), true
}

// OnTimeout dispatches the fired timer: if a loss-detection timer was due,
// it runs loss detection on whichever space's LossTime matches and
// returns the lost packets. Otherwise it treats the firing as a PTO
// expiry, incrementing PTOCount.
func (d *Detector) OnTimeout() (lost []*SentPacket, space PacketNumberSpaceID, isPTO bool) {
	now := d.Clock.Now()

	for i, sp := range d.Spaces {
		if sp.LossTime.IsZero() || sp.LossTime.After(now) {
			continue
		}
		l := sp.DetectLost(now, d.RTT.LossDelay())
		for _, pkt := range l {
			if pkt.InFlight {
				d.Congestion.OnPacketLost(pkt.Size)
			}
		}
		d.checkPersistentCongestion(sp, l)
		return l, PacketNumberSpaceID(i), false
	}

	d.PTOCount++
	return nil, d.ptoSpace(), true
}

// ptoSpace returns the space whose unacked ack-eliciting packet was sent
// most recently, the same space ptoDeadline's arming decision is based on.
func (d *Detector) ptoSpace() PacketNumberSpaceID {
	space := SpaceInitial
	var latest time.Time
	found := false
	for i, sp := range d.Spaces {
		if len(sp.Sent) == 0 {
			continue
		}
		if !found || sp.TimeOfLastAckEliciting.After(latest) {
			latest = sp.TimeOfLastAckEliciting
			space = PacketNumberSpaceID(i)
			found = true
		}
	}
	return space
}
