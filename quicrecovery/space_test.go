package quicrecovery

import (
	"testing"
	"time"

	"github.com/kcenon/netquic/quicwire"
)

func TestDetectLostByPacketThreshold(t *testing.T) {
	now := time.Now()
	sp := NewSpace()
	sp.LargestAcked = 100
	sp.Sent[97] = &SentPacket{PacketNumber: 97, SendTime: now, Size: 1200, InFlight: true}

	lost := sp.DetectLost(now, time.Hour) // loss delay far in the future
	if len(lost) != 1 || lost[0].PacketNumber != 97 {
		t.Fatalf("DetectLost() = %v, want packet 97 lost by packet threshold", lost)
	}
}

func TestDetectLostNotYetByTimeThreshold(t *testing.T) {
	now := time.Now()
	sp := NewSpace()
	sp.LargestAcked = 100
	sp.Sent[98] = &SentPacket{PacketNumber: 98, SendTime: now, Size: 1200, InFlight: true} // gap = 2

	lost := sp.DetectLost(now.Add(10*time.Millisecond), 100*time.Millisecond)
	if len(lost) != 0 {
		t.Fatalf("DetectLost() = %v, want no losses before loss delay elapses", lost)
	}
	if sp.LossTime.IsZero() {
		t.Fatal("DetectLost() did not arm LossTime for the at-risk packet")
	}
}

func TestDetectLostByTimeThreshold(t *testing.T) {
	now := time.Now()
	sp := NewSpace()
	sp.LargestAcked = 100
	sp.Sent[98] = &SentPacket{PacketNumber: 98, SendTime: now, Size: 1200, InFlight: true} // gap = 2

	lost := sp.DetectLost(now.Add(100*time.Millisecond), 100*time.Millisecond)
	if len(lost) != 1 || lost[0].PacketNumber != 98 {
		t.Fatalf("DetectLost() = %v, want packet 98 lost by time threshold", lost)
	}
}

func TestApplyAckRemovesAckedPackets(t *testing.T) {
	sp := NewSpace()
	for pn := uint64(1); pn <= 5; pn++ {
		sp.Sent[pn] = &SentPacket{PacketNumber: pn, SendTime: time.Now(), Size: 100, AckEliciting: true}
	}

	acked := sp.ApplyAck(5, 4, nil) // largest=5, firstRange=4 covers [1,5]
	if len(acked) != 5 {
		t.Fatalf("len(acked) = %d, want 5", len(acked))
	}
	if len(sp.Sent) != 0 {
		t.Fatalf("len(Sent) = %d, want 0 after full ACK", len(sp.Sent))
	}
	if sp.LargestAcked != 5 {
		t.Fatalf("LargestAcked = %d, want 5", sp.LargestAcked)
	}
}

func TestApplyAckWithGap(t *testing.T) {
	sp := NewSpace()
	for _, pn := range []uint64{0, 1, 2, 8, 9, 10} {
		sp.Sent[pn] = &SentPacket{PacketNumber: pn, SendTime: time.Now(), Size: 100, AckEliciting: true}
	}

	// largest=10, firstRange covers [8,10]; gap of 4 then length 2 covers [0,2].
	acked := sp.ApplyAck(10, 2, []quicwire.AckRange{{Gap: 4, Length: 2}})
	if len(acked) != 6 {
		t.Fatalf("len(acked) = %d, want 6", len(acked))
	}
	if len(sp.Sent) != 0 {
		t.Fatalf("len(Sent) = %d, want 0", len(sp.Sent))
	}
}
