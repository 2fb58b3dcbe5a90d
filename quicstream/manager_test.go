package quicstream

import "testing"

func TestManagerOpenBidiAllocatesStepFourIDs(t *testing.T) {
	m := NewManager(true) // client
	m.SetPeerMaxStreams(true, 10)

	s1, err := m.OpenBidi()
	if err != nil {
		t.Fatalf("OpenBidi() = %v, want nil", err)
	}
	s2, _ := m.OpenBidi()

	if s1.ID != 0 || s2.ID != 4 {
		t.Fatalf("ids = %d, %d, want 0, 4", s1.ID, s2.ID)
	}
}

func TestManagerOpenBlockedAtPeerLimit(t *testing.T) {
	m := NewManager(true)
	m.SetPeerMaxStreams(true, 1)

	if _, err := m.OpenBidi(); err != nil {
		t.Fatalf("OpenBidi() = %v, want nil", err)
	}
	if _, err := m.OpenBidi(); err != ErrStreamsBlocked {
		t.Fatalf("OpenBidi() = %v, want ErrStreamsBlocked", err)
	}

	frame, ok := m.MaybeStreamsBlocked(true)
	if !ok || frame.StreamLimit != 1 || !frame.Bidi {
		t.Fatalf("MaybeStreamsBlocked() = %+v, %v, want STREAMS_BLOCKED(bidi, 1)", frame, ok)
	}
	if _, ok := m.MaybeStreamsBlocked(true); ok {
		t.Fatal("MaybeStreamsBlocked() fired twice for the same stall")
	}

	m.SetPeerMaxStreams(true, 2)
	if _, err := m.OpenBidi(); err != nil {
		t.Fatalf("OpenBidi() after limit raised = %v, want nil", err)
	}
}

func TestManagerGetOrCreatePeerInitiatedStream(t *testing.T) {
	m := NewManager(true) // client; server-initiated IDs have the initiator bit set
	m.SetLocalMaxStreams(true, 10)

	id := MakeStreamID(0, false, true) // server bidi stream 0 => id 1
	s, err := m.GetOrCreateStream(id)
	if err != nil {
		t.Fatalf("GetOrCreateStream() = %v, want nil", err)
	}
	if s.ID != id {
		t.Fatalf("stream ID = %d, want %d", s.ID, id)
	}

	again, err := m.GetOrCreateStream(id)
	if err != nil || again != s {
		t.Fatal("GetOrCreateStream() did not return the same stream on second lookup")
	}
}

func TestManagerGetOrCreateRejectsLocallyInitiatedID(t *testing.T) {
	m := NewManager(true)
	id := MakeStreamID(0, true, true) // client bidi: this endpoint's own stream type
	if _, err := m.GetOrCreateStream(id); err != ErrInvalidStreamID {
		t.Fatalf("GetOrCreateStream(%d) = %v, want ErrInvalidStreamID", id, err)
	}
}

func TestManagerGetOrCreateRejectsBeyondLocalLimit(t *testing.T) {
	m := NewManager(true)
	m.SetLocalMaxStreams(true, 1)

	allowed := MakeStreamID(0, false, true)
	if _, err := m.GetOrCreateStream(allowed); err != nil {
		t.Fatalf("GetOrCreateStream(%d) = %v, want nil", allowed, err)
	}

	blocked := MakeStreamID(1, false, true)
	if _, err := m.GetOrCreateStream(blocked); err != ErrInvalidStreamID {
		t.Fatalf("GetOrCreateStream(%d) = %v, want ErrInvalidStreamID", blocked, err)
	}
}

func TestManagerRemoveClosedStreams(t *testing.T) {
	m := NewManager(true)
	m.SetPeerMaxStreams(true, 10)

	s, _ := m.OpenBidi()
	s.MaxSendOffset = 10
	s.CloseSend()
	s.NextFrame(1024)
	s.OnAck(0, 0)

	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", m.Count())
	}

	removed := m.RemoveClosedStreams()
	if removed != 0 {
		t.Fatalf("RemoveClosedStreams() = %d, want 0 while recv side is still open", removed)
	}
	if m.Count() != 1 {
		t.Fatalf("Count() after no-op sweep = %d, want 1", m.Count())
	}
}
