package quicstream

import "testing"

func TestMakeStreamIDRoundTrip(t *testing.T) {
	cases := []struct {
		seq             uint64
		clientInitiated bool
		bidi            bool
		want            uint64
	}{
		{0, true, true, 0},
		{1, true, true, 4},
		{0, false, true, 1},
		{0, true, false, 2},
		{0, false, false, 3},
		{4, false, false, 19},
	}
	for _, c := range cases {
		got := MakeStreamID(c.seq, c.clientInitiated, c.bidi)
		if got != c.want {
			t.Errorf("MakeStreamID(%d, %v, %v) = %d, want %d", c.seq, c.clientInitiated, c.bidi, got, c.want)
		}
		if IsClientInitiated(got) != c.clientInitiated {
			t.Errorf("IsClientInitiated(%d) = %v, want %v", got, IsClientInitiated(got), c.clientInitiated)
		}
		if IsBidi(got) != c.bidi {
			t.Errorf("IsBidi(%d) = %v, want %v", got, IsBidi(got), c.bidi)
		}
		if Sequence(got) != c.seq {
			t.Errorf("Sequence(%d) = %d, want %d", got, Sequence(got), c.seq)
		}
	}
}
