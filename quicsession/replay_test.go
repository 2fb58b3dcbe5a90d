package quicsession

import (
	"testing"
	"time"
)

func TestReplayFilterAcceptsFirstUse(t *testing.T) {
	f, err := NewReplayFilter(100, time.Second)
	if err != nil {
		t.Fatalf("NewReplayFilter() = %v, want nil", err)
	}
	if !f.Check("nonce-1", time.Now()) {
		t.Fatal("Check() on a fresh nonce = false, want true")
	}
}

func TestReplayFilterRejectsWithinWindow(t *testing.T) {
	f, _ := NewReplayFilter(100, 10*time.Second)
	now := time.Now()

	if !f.Check("nonce-1", now) {
		t.Fatal("first Check() = false, want true")
	}
	if f.Check("nonce-1", now.Add(5*time.Second)) {
		t.Fatal("Check() within the window = true, want false (replay)")
	}
}

func TestReplayFilterAcceptsAfterWindowElapses(t *testing.T) {
	f, _ := NewReplayFilter(100, 10*time.Second)
	now := time.Now()

	f.Check("nonce-1", now)
	if !f.Check("nonce-1", now.Add(11*time.Second)) {
		t.Fatal("Check() after the window elapsed = false, want true")
	}
}

func TestReplayFilterDefaultsApplied(t *testing.T) {
	f, err := NewReplayFilter(0, 0)
	if err != nil {
		t.Fatalf("NewReplayFilter(0, 0) = %v, want nil", err)
	}
	if f.window != DefaultReplayWindow {
		t.Fatalf("window = %v, want %v", f.window, DefaultReplayWindow)
	}
}
