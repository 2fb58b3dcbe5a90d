// Package quicsession implements session ticket storage for 0-RTT
// resumption and the bounded, time-windowed replay filter that guards
// against 0-RTT replay attacks.
package quicsession

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/kcenon/netquic/quicparams"
)

// DefaultTicketStoreSize is the default number of tickets an in-memory
// store retains before evicting by recency.
const DefaultTicketStoreSize = 10000

// Ticket binds a server endpoint to the raw TLS session ticket and the
// transport parameters captured at issuance, per spec.md §3.
type Ticket struct {
	Host string
	Port int

	RawTicket    []byte
	Params       quicparams.Parameters
	MaxEarlyData uint64
	AgeAdd       uint32

	ReceivedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the ticket is no longer valid for 0-RTT at now.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TicketStoreOptions configures a TicketStore, decoded from the backend
// option map the way the teacher's cache providers decode theirs.
type TicketStoreOptions struct {
	Size int `mapstructure:"size"`
}

// TicketStore is a bounded, concurrency-safe session ticket cache keyed
// by "host:port".
type TicketStore struct {
	lru *arc.ARCCache[string, Ticket]
}

// NewTicketStore returns a TicketStore sized per opts, decoded from a
// raw option map with mapstructure.
func NewTicketStore(opts map[string]interface{}) (*TicketStore, error) {
	var o TicketStoreOptions
	if err := mapstructure.Decode(opts, &o); err != nil {
		return nil, fmt.Errorf("quicsession: decoding ticket store options: %w", err)
	}
	size := o.Size
	if size <= 0 {
		size = DefaultTicketStoreSize
	}
	lru, err := arc.NewARC[string, Ticket](size)
	if err != nil {
		return nil, fmt.Errorf("quicsession: creating ticket cache: %w", err)
	}
	return &TicketStore{lru: lru}, nil
}

func ticketKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// Store saves t under its (Host, Port) key.
func (s *TicketStore) Store(t Ticket) {
	s.lru.Add(ticketKey(t.Host, t.Port), t)
}

// Retrieve returns the ticket saved for (host, port), or false if none
// exists or the saved ticket has expired.
func (s *TicketStore) Retrieve(host string, port int, now time.Time) (Ticket, bool) {
	t, ok := s.lru.Get(ticketKey(host, port))
	if !ok {
		return Ticket{}, false
	}
	if t.Expired(now) {
		return Ticket{}, false
	}
	return t, true
}

// CleanupExpired walks every stored ticket and evicts the ones that have
// expired, distinct from Retrieve's lazy per-call expiry check.
func (s *TicketStore) CleanupExpired(now time.Time) int {
	removed := 0
	for _, key := range s.lru.Keys() {
		t, ok := s.lru.Peek(key)
		if !ok {
			continue
		}
		if t.Expired(now) {
			s.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tickets currently stored.
func (s *TicketStore) Len() int {
	return s.lru.Len()
}
