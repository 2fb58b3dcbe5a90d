package quicwire

import "testing"

func TestNewConnectionIDTooLong(t *testing.T) {
	if _, err := NewConnectionID(make([]byte, 21)); err == nil {
		t.Fatal("NewConnectionID with 21 bytes did not return an error")
	}
}

func TestGenerateConnectionIDLength(t *testing.T) {
	cid, err := GenerateConnectionID(8)
	if err != nil {
		t.Fatalf("GenerateConnectionID returned error: %v", err)
	}
	if cid.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", cid.Len())
	}
}

func TestConnectionIDOrdering(t *testing.T) {
	short, _ := NewConnectionID([]byte{0x01})
	long, _ := NewConnectionID([]byte{0x00, 0x00})
	if short.Compare(long) >= 0 {
		t.Fatal("shorter connection ID did not sort before longer one")
	}

	a, _ := NewConnectionID([]byte{0x01, 0x02})
	b, _ := NewConnectionID([]byte{0x01, 0x03})
	if a.Compare(b) >= 0 {
		t.Fatal("lexicographically smaller connection ID did not sort first")
	}
}

func TestConnectionIDEqual(t *testing.T) {
	a, _ := NewConnectionID([]byte{1, 2, 3})
	b, _ := NewConnectionID([]byte{1, 2, 3})
	c, _ := NewConnectionID([]byte{1, 2, 4})
	if !a.Equal(b) {
		t.Fatal("identical connection IDs reported unequal")
	}
	if a.Equal(c) {
		t.Fatal("distinct connection IDs reported equal")
	}
}

func TestZeroLengthConnectionID(t *testing.T) {
	cid, err := NewConnectionID(nil)
	if err != nil {
		t.Fatalf("NewConnectionID(nil) returned error: %v", err)
	}
	if cid.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", cid.Len())
	}
}
