package quicsession

import (
	"testing"
	"time"
)

func TestTicketStoreStoreAndRetrieve(t *testing.T) {
	store, err := NewTicketStore(nil)
	if err != nil {
		t.Fatalf("NewTicketStore(nil) = %v, want nil", err)
	}

	now := time.Now()
	ticket := Ticket{
		Host:       "example.com",
		Port:       443,
		RawTicket:  []byte("opaque-ticket-bytes"),
		ReceivedAt: now,
		ExpiresAt:  now.Add(time.Hour),
	}
	store.Store(ticket)

	got, ok := store.Retrieve("example.com", 443, now)
	if !ok {
		t.Fatal("Retrieve() = false, want true")
	}
	if string(got.RawTicket) != "opaque-ticket-bytes" {
		t.Fatalf("RawTicket = %q, want %q", got.RawTicket, "opaque-ticket-bytes")
	}
}

func TestTicketStoreRetrieveMissing(t *testing.T) {
	store, _ := NewTicketStore(nil)
	if _, ok := store.Retrieve("nope.example", 443, time.Now()); ok {
		t.Fatal("Retrieve() for an unknown endpoint = true, want false")
	}
}

func TestTicketStoreRetrieveExpiredReturnsFalse(t *testing.T) {
	store, _ := NewTicketStore(nil)
	now := time.Now()
	store.Store(Ticket{
		Host:      "example.com",
		Port:      443,
		ExpiresAt: now.Add(-time.Second), // already expired
	})

	if _, ok := store.Retrieve("example.com", 443, now); ok {
		t.Fatal("Retrieve() of an expired ticket = true, want false")
	}
}

func TestTicketStoreCleanupExpiredSweepsDistinctFromRetrieve(t *testing.T) {
	store, _ := NewTicketStore(nil)
	now := time.Now()

	store.Store(Ticket{Host: "a", Port: 1, ExpiresAt: now.Add(time.Hour)})
	store.Store(Ticket{Host: "b", Port: 1, ExpiresAt: now.Add(-time.Hour)})
	store.Store(Ticket{Host: "c", Port: 1, ExpiresAt: now.Add(-time.Minute)})

	if store.Len() != 3 {
		t.Fatalf("Len() before cleanup = %d, want 3", store.Len())
	}

	removed := store.CleanupExpired(now)
	if removed != 2 {
		t.Fatalf("CleanupExpired() removed %d, want 2", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() after cleanup = %d, want 1", store.Len())
	}
}

func TestTicketStoreOptionsDecodesSize(t *testing.T) {
	store, err := NewTicketStore(map[string]interface{}{"size": 5})
	if err != nil {
		t.Fatalf("NewTicketStore() = %v, want nil", err)
	}
	if store == nil {
		t.Fatal("NewTicketStore() returned nil store")
	}
}
