package quicrecovery

import (
	"testing"
	"time"
)

func TestECNTestingToCapable(t *testing.T) {
	tr := &ECNTracker{}
	for i := 0; i < 10; i++ {
		tr.OnPacketSentECT()
	}
	signal, _ := tr.OnACK(ECNCounts{ECT0: 10}, 10, time.Now())
	if signal {
		t.Fatal("OnACK reported a congestion signal on a clean ACK")
	}
	if tr.Capability != ECNCapable {
		t.Fatalf("Capability = %v, want ECNCapable", tr.Capability)
	}
}

func TestECNDecreaseFailsPermanently(t *testing.T) {
	tr := &ECNTracker{}
	for i := 0; i < 10; i++ {
		tr.OnPacketSentECT()
	}
	tr.OnACK(ECNCounts{ECT0: 10}, 10, time.Now())

	tr.OnACK(ECNCounts{ECT0: 9}, 1, time.Now())
	if tr.Capability != ECNFailed {
		t.Fatalf("Capability = %v, want ECNFailed", tr.Capability)
	}
	if tr.Marking() != NotECT {
		t.Fatalf("Marking() = %v, want NotECT after failure", tr.Marking())
	}
}

func TestECNCongestionSignalOnCEIncrease(t *testing.T) {
	tr := &ECNTracker{}
	for i := 0; i < 10; i++ {
		tr.OnPacketSentECT()
	}
	tr.OnACK(ECNCounts{ECT0: 10}, 10, time.Now())

	earliest := time.Now().Add(-20 * time.Millisecond)
	signal, sentTime := tr.OnACK(ECNCounts{ECT0: 11, ECNCE: 1}, 1, earliest)
	if !signal {
		t.Fatal("OnACK did not report a congestion signal on CE increase")
	}
	if !sentTime.Equal(earliest) {
		t.Fatalf("sentTime = %v, want %v", sentTime, earliest)
	}
}

func TestECNStrippedMarksFailWhenCountsDoNotKeepUp(t *testing.T) {
	tr := &ECNTracker{}
	for i := 0; i < 10; i++ {
		tr.OnPacketSentECT()
	}
	// 10 packets sent ECT-marked but the ACK reports zero ECN counts: the
	// path stripped ECN.
	signal, _ := tr.OnACK(ECNCounts{}, 10, time.Now())
	if signal {
		t.Fatal("OnACK reported a congestion signal on a stripped path")
	}
	if tr.Capability != ECNFailed {
		t.Fatalf("Capability = %v, want ECNFailed", tr.Capability)
	}
}
