package quicrecovery

import (
	"testing"
	"time"
)

const mdsz = 1200

func TestCongestionInitialWindow(t *testing.T) {
	c := NewCongestionController(mdsz)
	if c.CWnd != 10*mdsz {
		t.Fatalf("CWnd = %d, want %d", c.CWnd, 10*mdsz)
	}
	if c.State != SlowStart {
		t.Fatalf("State = %v, want SlowStart", c.State)
	}
}

func TestCongestionSlowStartGrowsByAckedBytes(t *testing.T) {
	c := NewCongestionController(mdsz)
	sendTime := time.Now()
	c.OnPacketSent(5000)

	// Acked packets must have been sent before any recovery period began;
	// with no recovery yet, any sendTime works.
	c.OnPacketAcked(5000, sendTime)

	if c.CWnd != 10*mdsz+5000 {
		t.Fatalf("CWnd = %d, want %d", c.CWnd, 10*mdsz+5000)
	}
}

func TestCongestionLossEventHalvesWindowAndEntersRecovery(t *testing.T) {
	c := NewCongestionController(mdsz)
	sendTime := time.Now()
	now := sendTime.Add(50 * time.Millisecond)

	before := c.CWnd
	c.OnCongestionEvent(sendTime, now)

	want := before / 2
	if want < 2*mdsz {
		want = 2 * mdsz
	}
	if c.CWnd != want {
		t.Fatalf("CWnd = %d, want %d", c.CWnd, want)
	}
	if c.State != Recovery {
		t.Fatalf("State = %v, want Recovery", c.State)
	}
}

func TestCongestionSecondLossWithinSameRTTIsIgnored(t *testing.T) {
	c := NewCongestionController(mdsz)
	t0 := time.Now()
	now := t0.Add(10 * time.Millisecond)

	c.OnCongestionEvent(t0, now)
	cwndAfterFirst := c.CWnd

	// A second loss event triggered by a packet sent before the recovery
	// period started must be ignored.
	earlierSend := t0.Add(-5 * time.Millisecond)
	c.OnCongestionEvent(earlierSend, now.Add(time.Millisecond))

	if c.CWnd != cwndAfterFirst {
		t.Fatalf("CWnd changed on second loss within same recovery period: %d != %d", c.CWnd, cwndAfterFirst)
	}
}

func TestCongestionCanSend(t *testing.T) {
	c := NewCongestionController(mdsz)
	if !c.CanSend(c.CWnd) {
		t.Fatal("CanSend(cwnd) = false, want true")
	}
	if c.CanSend(c.CWnd + 1) {
		t.Fatal("CanSend(cwnd+1) = true, want false")
	}
}

func TestCongestionPersistentCongestionResetsToMinimum(t *testing.T) {
	c := NewCongestionController(mdsz)
	c.CWnd = 100000
	c.OnPersistentCongestion()
	if c.CWnd != 2*mdsz {
		t.Fatalf("CWnd = %d, want %d", c.CWnd, 2*mdsz)
	}
	if c.State != SlowStart {
		t.Fatalf("State = %v, want SlowStart", c.State)
	}
}
