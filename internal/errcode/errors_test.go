package errcode

import (
	"encoding/json"
	"testing"
)

func TestErrorCodeDescriptor(t *testing.T) {
	if got := ErrorCodeFlowControlError.Descriptor().TransportCode; got != 0x03 {
		t.Fatalf("TransportCode = %#x, want %#x", got, 0x03)
	}
	if got := ErrorCodeFlowControlError.String(); got != "FLOW_CONTROL_ERROR" {
		t.Fatalf("String() = %q, want %q", got, "FLOW_CONTROL_ERROR")
	}
}

func TestErrorCodeMarshalText(t *testing.T) {
	text, err := ErrorCodeProtocolViolation.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() returned error: %v", err)
	}
	if string(text) != "PROTOCOL_VIOLATION" {
		t.Fatalf("MarshalText() = %q, want %q", text, "PROTOCOL_VIOLATION")
	}

	var ec ErrorCode
	if err := ec.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() returned error: %v", err)
	}
	if ec != ErrorCodeProtocolViolation {
		t.Fatalf("UnmarshalText() = %v, want %v", ec, ErrorCodeProtocolViolation)
	}
}

func TestParseErrorCode(t *testing.T) {
	ec, err := ParseErrorCode("STREAM_STATE_ERROR")
	if err != nil {
		t.Fatalf("ParseErrorCode() returned error: %v", err)
	}
	if ec != ErrorCodeStreamStateError {
		t.Fatalf("ParseErrorCode() = %v, want %v", ec, ErrorCodeStreamStateError)
	}

	if _, err := ParseErrorCode("NOT_A_REAL_CODE"); err == nil {
		t.Fatal("ParseErrorCode() on unknown value did not return an error")
	}
}

func TestErrorWithDetail(t *testing.T) {
	err := ErrorCodeFinalSizeError.WithDetail(map[string]uint64{"got": 42, "want": 40})
	if err.ErrorCode() != ErrorCodeFinalSizeError {
		t.Fatalf("ErrorCode() = %v, want %v", err.ErrorCode(), ErrorCodeFinalSizeError)
	}
	if err.Detail == nil {
		t.Fatal("WithDetail() left Detail nil")
	}
}

func TestErrorsMarshalJSON(t *testing.T) {
	errs := Errors{
		ErrorCodeFrameEncodingError,
		ErrorCodeInvalidToken.WithDetail("token too short"),
	}

	data, err := json.Marshal(errs)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	var roundTripped Errors
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}
	if roundTripped.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", roundTripped.Len())
	}

	coder, ok := roundTripped[0].(ErrorCoder)
	if !ok {
		t.Fatalf("roundTripped[0] = %T, want ErrorCoder", roundTripped[0])
	}
	if coder.ErrorCode() != ErrorCodeFrameEncodingError {
		t.Fatalf("ErrorCode() = %v, want %v", coder.ErrorCode(), ErrorCodeFrameEncodingError)
	}
}

func TestErrorsErrorEmpty(t *testing.T) {
	var errs Errors
	if got := errs.Error(); got != "<nil>" {
		t.Fatalf("Error() = %q, want %q", got, "<nil>")
	}
}

func TestGroupDescriptors(t *testing.T) {
	descs := GroupDescriptors(transportGroup)
	if len(descs) != 17 {
		t.Fatalf("len(GroupDescriptors()) = %d, want 17", len(descs))
	}
	for i := 1; i < len(descs); i++ {
		if descs[i-1].Value > descs[i].Value {
			t.Fatalf("GroupDescriptors() not sorted at index %d", i)
		}
	}
}
