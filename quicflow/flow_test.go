package quicflow

import (
	"errors"
	"testing"

	"github.com/kcenon/netquic/quicwire"
)

// TestScenarioEFlowControlDeadlockAvoidance reproduces the documented
// end-to-end exchange: a 1024-byte send limit, a blocked 1025th byte, a
// single DATA_BLOCKED report, and a MAX_DATA grant that unblocks it.
func TestScenarioEFlowControlDeadlockAvoidance(t *testing.T) {
	c := NewController(1024)
	c.SetSendLimit(1024)

	if err := c.ConsumeSend(1024); err != nil {
		t.Fatalf("ConsumeSend(1024) = %v, want nil", err)
	}

	if err := c.ConsumeSend(1); !errors.Is(err, ErrSendBlocked) {
		t.Fatalf("ConsumeSend(1) = %v, want ErrSendBlocked", err)
	}

	frame, ok := c.MaybeDataBlocked()
	if !ok || frame.DataLimit != 1024 {
		t.Fatalf("MaybeDataBlocked() = %v, %v, want DATA_BLOCKED(1024)", frame, ok)
	}

	if _, ok := c.MaybeDataBlocked(); ok {
		t.Fatal("MaybeDataBlocked() fired twice for the same stall")
	}

	// Peer reads 512 bytes and grants more credit.
	c.OnMaxData(&quicwire.MaxDataFrame{MaximumData: 1536})

	if err := c.ConsumeSend(1); err != nil {
		t.Fatalf("ConsumeSend(1) after MAX_DATA = %v, want nil", err)
	}
	if c.bytesSent != 1025 {
		t.Fatalf("bytesSent = %d, want 1025", c.bytesSent)
	}
}

func TestControllerMaxDataCrossesThreshold(t *testing.T) {
	c := NewController(1000)
	c.OnDataConsumed(500) // remaining = 1000-500 = 500 = 0.5*1000, at threshold

	frame, ok := c.MaybeMaxData()
	if !ok {
		t.Fatal("MaybeMaxData() = false at exactly the threshold, want true")
	}
	if frame.MaximumData != 1500 {
		t.Fatalf("MaximumData = %d, want 1500", frame.MaximumData)
	}

	if _, ok := c.MaybeMaxData(); ok {
		t.Fatal("MaybeMaxData() fired again immediately after raising the limit")
	}
}

func TestControllerMaxDataNotYetAtThreshold(t *testing.T) {
	c := NewController(1000)
	c.OnDataConsumed(400) // remaining = 600 > 500

	if _, ok := c.MaybeMaxData(); ok {
		t.Fatal("MaybeMaxData() = true before crossing the threshold")
	}
}

func TestStreamControllerIndependentFromConnection(t *testing.T) {
	s := NewStreamController(4, 65536)
	s.SetSendLimit(65536)

	if err := s.ConsumeSend(65536); err != nil {
		t.Fatalf("ConsumeSend = %v, want nil", err)
	}
	if err := s.ConsumeSend(1); !errors.Is(err, ErrSendBlocked) {
		t.Fatalf("ConsumeSend(1) = %v, want ErrSendBlocked", err)
	}

	frame, ok := s.MaybeStreamDataBlocked()
	if !ok || frame.StreamID != 4 || frame.StreamDataLimit != 65536 {
		t.Fatalf("MaybeStreamDataBlocked() = %v, %v, want STREAM_DATA_BLOCKED(4, 65536)", frame, ok)
	}

	s.OnMaxStreamData(&quicwire.MaxStreamDataFrame{StreamID: 4, MaximumStreamData: 131072})
	if err := s.ConsumeSend(1); err != nil {
		t.Fatalf("ConsumeSend(1) after MAX_STREAM_DATA = %v, want nil", err)
	}
}

func TestStreamControllerMaxStreamDataThreshold(t *testing.T) {
	s := NewStreamController(8, 65536)
	s.OnDataConsumed(32768) // remaining = 32768 = 0.5*65536, at threshold

	frame, ok := s.MaybeMaxStreamData()
	if !ok {
		t.Fatal("MaybeMaxStreamData() = false at threshold, want true")
	}
	if frame.StreamID != 8 || frame.MaximumStreamData != 98304 {
		t.Fatalf("frame = %+v, want StreamID=8 MaximumStreamData=98304", frame)
	}
}

func TestOnMaxDataNeverLowersLimit(t *testing.T) {
	c := NewController(1000)
	c.SetSendLimit(2000)
	c.OnMaxData(&quicwire.MaxDataFrame{MaximumData: 1500})
	if c.sendLimit != 2000 {
		t.Fatalf("sendLimit = %d, want 2000 (MAX_DATA must never lower the limit)", c.sendLimit)
	}
}

func TestRemainingSendTracksBudgetWithoutConsuming(t *testing.T) {
	c := NewController(1024)
	c.SetSendLimit(1024)

	if r := c.RemainingSend(); r != 1024 {
		t.Fatalf("RemainingSend() = %d, want 1024", r)
	}
	if err := c.ConsumeSend(600); err != nil {
		t.Fatalf("ConsumeSend(600) = %v, want nil", err)
	}
	if r := c.RemainingSend(); r != 424 {
		t.Fatalf("RemainingSend() after consuming 600 = %d, want 424", r)
	}
	// Querying remaining budget must not itself consume it.
	if r := c.RemainingSend(); r != 424 {
		t.Fatalf("RemainingSend() second call = %d, want 424 (unchanged)", r)
	}
}
