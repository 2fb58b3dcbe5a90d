package quicrecovery

import (
	"testing"
	"time"
)

func TestDetectorOnAckReceivedUpdatesRTTAndCongestion(t *testing.T) {
	base := time.Now()
	clock := NewManualClock(base)
	d := NewDetector(clock, 25*time.Millisecond, mdsz)

	sp := d.Spaces[SpaceApplication]
	sp.OnPacketSent(&SentPacket{PacketNumber: 1, SendTime: base, Size: 1200, AckEliciting: true, InFlight: true})
	d.Congestion.OnPacketSent(1200)

	clock.Advance(50 * time.Millisecond)
	result := d.OnAckReceived(SpaceApplication, 1, 0, 0, nil, nil)

	if len(result.NewlyAcked) != 1 {
		t.Fatalf("len(NewlyAcked) = %d, want 1", len(result.NewlyAcked))
	}
	if d.RTT.LatestRTT != 50*time.Millisecond {
		t.Fatalf("LatestRTT = %v, want 50ms", d.RTT.LatestRTT)
	}
	if d.Congestion.CWnd != 10*mdsz+1200 {
		t.Fatalf("CWnd = %d, want %d", d.Congestion.CWnd, 10*mdsz+1200)
	}
}

func TestDetectorOnAckReceivedDetectsLoss(t *testing.T) {
	base := time.Now()
	clock := NewManualClock(base)
	d := NewDetector(clock, 0, mdsz)

	sp := d.Spaces[SpaceApplication]
	sp.OnPacketSent(&SentPacket{PacketNumber: 1, SendTime: base, Size: 1200, AckEliciting: true, InFlight: true})
	sp.OnPacketSent(&SentPacket{PacketNumber: 5, SendTime: base, Size: 1200, AckEliciting: true, InFlight: true})
	d.Congestion.OnPacketSent(2400)

	clock.Advance(10 * time.Millisecond)
	// Largest acked = 5; packet 1 has gap 4 >= packetThreshold and is lost.
	result := d.OnAckReceived(SpaceApplication, 5, 0, 0, nil, nil)

	if len(result.Lost) != 1 || result.Lost[0].PacketNumber != 1 {
		t.Fatalf("Lost = %v, want packet 1", result.Lost)
	}
	if d.Congestion.State != Recovery {
		t.Fatalf("State = %v, want Recovery after loss", d.Congestion.State)
	}
}

func TestDetectorNextTimeoutPrefersLossTimer(t *testing.T) {
	base := time.Now()
	clock := NewManualClock(base)
	d := NewDetector(clock, 0, mdsz)

	sp := d.Spaces[SpaceApplication]
	sp.LargestAcked = 10
	sp.Sent[9] = &SentPacket{PacketNumber: 9, SendTime: base, Size: 1200, InFlight: true, AckEliciting: true}
	sp.DetectLost(base, 100*time.Millisecond)

	deadline, ok := d.NextTimeout()
	if !ok {
		t.Fatal("NextTimeout() reported no timer armed")
	}
	if !deadline.Equal(base.Add(100 * time.Millisecond)) {
		t.Fatalf("deadline = %v, want %v", deadline, base.Add(100*time.Millisecond))
	}
}

func TestDetectorOnTimeoutFiresPTOWhenNoLossTimer(t *testing.T) {
	base := time.Now()
	clock := NewManualClock(base)
	d := NewDetector(clock, 0, mdsz)

	_, _, isPTO := d.OnTimeout()
	if !isPTO {
		t.Fatal("OnTimeout() did not report a PTO firing when no loss timer was armed")
	}
	if d.PTOCount != 1 {
		t.Fatalf("PTOCount = %d, want 1", d.PTOCount)
	}
}
