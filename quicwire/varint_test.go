package quicwire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 37, 63,
		64, 15293, 16383,
		16384, 494878333, 1073741823,
		1073741824, 151288809941952652, MaxVarint,
	}

	for _, v := range values {
		enc := Encode(nil, v)
		if len(enc) != Len(v) {
			t.Fatalf("Encode(%d): len = %d, want %d", v, len(enc), Len(v))
		}

		got, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) returned error: %v", v, err)
		}
		if got != v {
			t.Fatalf("Decode(Encode(%d)) = %d", v, got)
		}
		if n != len(enc) {
			t.Fatalf("Decode(Encode(%d)) consumed = %d, want %d", v, n, len(enc))
		}
	}
}

func TestEncodeOverflowClamps(t *testing.T) {
	enc := Encode(nil, MaxVarint+1000)
	got, _, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got != MaxVarint {
		t.Fatalf("overflowing Encode did not clamp: got %d, want %d", got, MaxVarint)
	}
}

func TestDecodeInsufficientData(t *testing.T) {
	cases := [][]byte{
		{},
		{0x40},       // 2-byte prefix, only 1 byte present
		{0x80, 0, 0}, // 4-byte prefix, only 3 bytes present
		{0xc0, 0, 0, 0, 0, 0, 0},
	}
	for _, b := range cases {
		if _, _, err := Decode(b); err != ErrInsufficientData {
			t.Fatalf("Decode(%v) error = %v, want ErrInsufficientData", b, err)
		}
	}
}

func TestEncodeWithLength(t *testing.T) {
	enc, err := EncodeWithLength(nil, 37, 4)
	if err != nil {
		t.Fatalf("EncodeWithLength returned error: %v", err)
	}
	if len(enc) != 4 {
		t.Fatalf("len = %d, want 4", len(enc))
	}
	got, n, err := Decode(enc)
	if err != nil || got != 37 || n != 4 {
		t.Fatalf("Decode(EncodeWithLength(37, 4)) = (%d, %d, %v)", got, n, err)
	}
}

func TestEncodeWithLengthUpgrades(t *testing.T) {
	// 16384 does not fit in 2 bytes; EncodeWithLength must upgrade to 4.
	enc, err := EncodeWithLength(nil, 16384, 2)
	if err != nil {
		t.Fatalf("EncodeWithLength returned error: %v", err)
	}
	if len(enc) != 4 {
		t.Fatalf("len = %d, want 4 (upgraded)", len(enc))
	}
}

func TestEncodeWithLengthInvalid(t *testing.T) {
	if _, err := EncodeWithLength(nil, 1, 3); err == nil {
		t.Fatal("EncodeWithLength with invalid minLen did not return an error")
	}
}

func TestLen(t *testing.T) {
	cases := map[uint64]int{
		0: 1, 63: 1,
		64: 2, 16383: 2,
		16384: 4, 1073741823: 4,
		1073741824: 8, MaxVarint: 8,
	}
	for v, want := range cases {
		if got := Len(v); got != want {
			t.Fatalf("Len(%d) = %d, want %d", v, got, want)
		}
	}
}
