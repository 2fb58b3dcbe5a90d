package quicrecovery

import "time"

// ECNCapability is the validation state of the ECN tracker.
type ECNCapability int

const (
	ECNTesting ECNCapability = iota
	ECNCapable
	ECNFailed
)

// ECNMarking is the IP-header ECN codepoint applied to an outgoing
// packet.
type ECNMarking int

const (
	NotECT ECNMarking = iota
	ECT0
	ECT1
	CE
)

// ecnValidationThreshold is the number of ECT-marked packets that must be
// acknowledged before the tracker advances from testing to capable.
const ecnValidationThreshold = 10

// ECNCounts are the cumulative ECT(0)/ECT(1)/ECN-CE counts carried by an
// ACK_ECN frame.
type ECNCounts struct {
	ECT0 uint64
	ECT1 uint64
	ECNCE uint64
}

// ECNTracker validates path ECN support and feeds congestion signals back
// to the congestion controller, per RFC 9000 §13.4 and RFC 9002 §7.1.
type ECNTracker struct {
	Capability ECNCapability

	lastECT0  uint64
	lastECT1  uint64
	lastECNCE uint64

	sentWithECT uint64
}

// Marking returns the marking to apply to outgoing packets: ECT(0) while
// testing or capable, Not-ECT once validation has failed.
func (t *ECNTracker) Marking() ECNMarking {
	if t.Capability == ECNFailed {
		return NotECT
	}
	return ECT0
}

// OnPacketSentECT records that one more packet was sent with an ECT
// marking, for use by the validation threshold.
func (t *ECNTracker) OnPacketSentECT() {
	t.sentWithECT++
}

// OnACK processes one ACK_ECN frame's counts. newlyAckedECTCount is the
// number of newly-acknowledged packets that were sent with an ECT
// marking; earliestNewlyAckedSendTime is the earliest send time among the
// newly acknowledged packets, used to stamp a resulting congestion
// signal. It returns whether a congestion signal should be raised and the
// send time to stamp it with.
func (t *ECNTracker) OnACK(counts ECNCounts, newlyAckedECTCount uint64, earliestNewlyAckedSendTime time.Time) (signal bool, sentTime time.Time) {
	if t.Capability == ECNFailed {
		return false, time.Time{}
	}

	if counts.ECT0 < t.lastECT0 || counts.ECT1 < t.lastECT1 || counts.ECNCE < t.lastECNCE {
		t.Capability = ECNFailed
		return false, time.Time{}
	}

	increment := (counts.ECT0 - t.lastECT0) + (counts.ECT1 - t.lastECT1) + (counts.ECNCE - t.lastECNCE)
	if increment < newlyAckedECTCount {
		t.Capability = ECNFailed
		return false, time.Time{}
	}

	ceIncreased := counts.ECNCE > t.lastECNCE

	t.lastECT0, t.lastECT1, t.lastECNCE = counts.ECT0, counts.ECT1, counts.ECNCE

	if t.Capability == ECNTesting && t.sentWithECT >= ecnValidationThreshold {
		t.Capability = ECNCapable
	}

	if ceIncreased {
		return true, earliestNewlyAckedSendTime
	}
	return false, time.Time{}
}
