package quicwire

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// MaxConnectionIDLength is the largest connection ID RFC 9000 permits.
const MaxConnectionIDLength = 20

// ConnectionID is a 0-20 byte identifier used to route packets to a
// connection independently of IP address and port.
type ConnectionID struct {
	b [MaxConnectionIDLength]byte
	n int
}

// NewConnectionID wraps existing bytes as a ConnectionID. It returns an
// error if b is longer than MaxConnectionIDLength.
func NewConnectionID(b []byte) (ConnectionID, error) {
	var cid ConnectionID
	if len(b) > MaxConnectionIDLength {
		return cid, fmt.Errorf("quicwire: connection ID length %d exceeds maximum %d", len(b), MaxConnectionIDLength)
	}
	cid.n = copy(cid.b[:], b)
	return cid, nil
}

// GenerateConnectionID returns a random connection ID of the given length,
// read from crypto/rand.
func GenerateConnectionID(length int) (ConnectionID, error) {
	var cid ConnectionID
	if length < 0 || length > MaxConnectionIDLength {
		return cid, fmt.Errorf("quicwire: connection ID length %d out of range", length)
	}
	if _, err := rand.Read(cid.b[:length]); err != nil {
		return cid, fmt.Errorf("quicwire: generating connection ID: %w", err)
	}
	cid.n = length
	return cid, nil
}

// Bytes returns the connection ID's raw bytes. The returned slice must not
// be mutated by the caller.
func (c ConnectionID) Bytes() []byte {
	return c.b[:c.n]
}

// Len returns the connection ID's length in bytes.
func (c ConnectionID) Len() int {
	return c.n
}

// Equal reports whether c and other hold the same bytes.
func (c ConnectionID) Equal(other ConnectionID) bool {
	return c.Compare(other) == 0
}

// Compare provides a total ordering over connection IDs, first by length
// then lexicographically by contents.
func (c ConnectionID) Compare(other ConnectionID) int {
	if c.n != other.n {
		if c.n < other.n {
			return -1
		}
		return 1
	}
	return bytes.Compare(c.b[:c.n], other.b[:other.n])
}

// String returns the connection ID's hex encoding.
func (c ConnectionID) String() string {
	return hex.EncodeToString(c.Bytes())
}
