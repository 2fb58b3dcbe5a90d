package quicparams

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kcenon/netquic/quicwire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Default()
	p.InitialMaxData = 1 << 20
	p.InitialMaxStreamDataBidiLocal = 65536
	p.InitialMaxStreamDataBidiRemote = 65536
	p.InitialMaxStreamDataUni = 65536
	p.InitialMaxStreamsBidi = 100
	p.InitialMaxStreamsUni = 3
	p.DisableActiveMigration = true

	cid, _ := quicwire.NewConnectionID([]byte{1, 2, 3, 4})
	p.InitialSourceConnectionID = &cid

	wire := p.Encode(nil)
	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode() = %v, want nil", err)
	}

	if got.InitialMaxData != p.InitialMaxData {
		t.Fatalf("InitialMaxData = %d, want %d", got.InitialMaxData, p.InitialMaxData)
	}
	if got.InitialMaxStreamsBidi != 100 || got.InitialMaxStreamsUni != 3 {
		t.Fatalf("stream limits = %d, %d, want 100, 3", got.InitialMaxStreamsBidi, got.InitialMaxStreamsUni)
	}
	if !got.DisableActiveMigration {
		t.Fatal("DisableActiveMigration = false, want true")
	}
	if got.InitialSourceConnectionID == nil || got.InitialSourceConnectionID.Compare(cid) != 0 {
		t.Fatalf("InitialSourceConnectionID = %v, want %v", got.InitialSourceConnectionID, cid)
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	p, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) = %v, want nil", err)
	}
	if p.AckDelayExponent != 3 || p.MaxAckDelay != 25 || p.MaxUDPPayloadSize != 65527 || p.ActiveConnectionIDLimit != 2 {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestDecodeRejectsDuplicateParameter(t *testing.T) {
	var wire []byte
	wire = quicwire.Encode(wire, uint64(IDInitialMaxData))
	wire = quicwire.Encode(wire, 2)
	wire = quicwire.Encode(wire, 100)
	wire = quicwire.Encode(wire, uint64(IDInitialMaxData))
	wire = quicwire.Encode(wire, 2)
	wire = quicwire.Encode(wire, 200)

	_, err := Decode(wire)
	if !errors.Is(err, ErrDuplicateParameter) {
		t.Fatalf("Decode() = %v, want ErrDuplicateParameter", err)
	}
}

func TestDecodeRejectsOutOfRangeAckDelayExponent(t *testing.T) {
	var wire []byte
	wire = quicwire.Encode(wire, uint64(IDAckDelayExponent))
	wire = quicwire.Encode(wire, 1)
	wire = quicwire.Encode(wire, 21)

	if _, err := Decode(wire); err == nil {
		t.Fatal("Decode() with ack_delay_exponent=21 = nil, want error")
	}
}

func TestDecodeRejectsTooSmallMaxUDPPayloadSize(t *testing.T) {
	var wire []byte
	wire = quicwire.Encode(wire, uint64(IDMaxUDPPayloadSize))
	wire = quicwire.Encode(wire, 2)
	wire = quicwire.Encode(wire, 1199)

	if _, err := Decode(wire); err == nil {
		t.Fatal("Decode() with max_udp_payload_size=1199 = nil, want error")
	}
}

func TestDecodeRejectsTruncatedValue(t *testing.T) {
	var wire []byte
	wire = quicwire.Encode(wire, uint64(IDInitialMaxData))
	wire = quicwire.Encode(wire, 4) // claims 4 bytes of value
	wire = append(wire, 0x01)       // only 1 supplied

	if _, err := Decode(wire); !errors.Is(err, ErrDecode) {
		t.Fatalf("Decode() = %v, want ErrDecode", err)
	}
}

func TestDecodeIgnoresUnknownParameter(t *testing.T) {
	var wire []byte
	wire = quicwire.Encode(wire, 0x3fff) // reserved/unknown, per RFC 9000 §18.1 greasing
	wire = quicwire.Encode(wire, 2)
	wire = append(wire, 0xab, 0xcd)

	if _, err := Decode(wire); err != nil {
		t.Fatalf("Decode() with unknown parameter = %v, want nil", err)
	}
}

func TestValidateRejectsServerOnlyParamsFromClient(t *testing.T) {
	p := Default()
	p.StatelessResetToken = make([]byte, 16)

	if err := p.Validate(false); err == nil {
		t.Fatal("Validate(false) with stateless_reset_token set = nil, want error")
	}
	if err := p.Validate(true); err != nil {
		t.Fatalf("Validate(true) = %v, want nil", err)
	}
}

func TestEncodeOmitsDefaultValuedParameters(t *testing.T) {
	p := Default()
	wire := p.Encode(nil)

	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode() = %v, want nil", err)
	}
	if !reflect.DeepEqual(decoded, Default()) {
		t.Fatalf("round trip of defaults = %+v, want %+v", decoded, Default())
	}
}
