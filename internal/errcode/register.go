package errcode

import (
	"fmt"
	"sort"
	"sync"
)

var (
	errorCodeToDescriptors = map[ErrorCode]ErrorDescriptor{}
	idToDescriptors        = map[string]ErrorDescriptor{}
	groupToDescriptors     = map[string][]ErrorDescriptor{}
)

// transportGroup holds the fixed RFC 9000 §20 transport error-code space.
const transportGroup = "quic.transport"

var (
	// ErrorCodeNoError signals graceful shutdown with no error.
	ErrorCodeNoError = register(transportGroup, ErrorDescriptor{
		Value:         "NO_ERROR",
		Message:       "no error",
		Description:   `Connection or stream closed gracefully; no error occurred.`,
		TransportCode: 0x00,
	})

	// ErrorCodeInternalError signals an implementation error unrelated to
	// the wire protocol.
	ErrorCodeInternalError = register(transportGroup, ErrorDescriptor{
		Value:         "INTERNAL_ERROR",
		Message:       "internal error",
		Description:   `The endpoint encountered an internal error and cannot continue with the connection.`,
		TransportCode: 0x01,
	})

	// ErrorCodeConnectionRefused signals the server refusing to accept a
	// new connection.
	ErrorCodeConnectionRefused = register(transportGroup, ErrorDescriptor{
		Value:         "CONNECTION_REFUSED",
		Message:       "connection refused",
		Description:   `The server refused to accept a new connection.`,
		TransportCode: 0x02,
	})

	// ErrorCodeFlowControlError signals a received frame that exceeded an
	// advertised connection- or stream-level flow control limit.
	ErrorCodeFlowControlError = register(transportGroup, ErrorDescriptor{
		Value:         "FLOW_CONTROL_ERROR",
		Message:       "flow control error",
		Description:   `An endpoint received more data than an advertised data limit.`,
		TransportCode: 0x03,
	})

	// ErrorCodeStreamLimitError signals that the advertised stream-count
	// limit was exceeded.
	ErrorCodeStreamLimitError = register(transportGroup, ErrorDescriptor{
		Value:         "STREAM_LIMIT_ERROR",
		Message:       "stream limit error",
		Description:   `An endpoint received a frame for a stream identifier that exceeded its advertised stream limit.`,
		TransportCode: 0x04,
	})

	// ErrorCodeStreamStateError signals that a frame was received for a
	// stream in an incompatible state.
	ErrorCodeStreamStateError = register(transportGroup, ErrorDescriptor{
		Value:         "STREAM_STATE_ERROR",
		Message:       "stream state error",
		Description:   `An endpoint received a frame for a stream that was not in a state that permitted that frame.`,
		TransportCode: 0x05,
	})

	// ErrorCodeFinalSizeError signals a change to, or a violation of, the
	// final size of a stream.
	ErrorCodeFinalSizeError = register(transportGroup, ErrorDescriptor{
		Value:         "FINAL_SIZE_ERROR",
		Message:       "final size error",
		Description:   `An endpoint received a STREAM frame or RESET_STREAM frame containing a final size disagreeing with the size already established.`,
		TransportCode: 0x06,
	})

	// ErrorCodeFrameEncodingError signals a frame that was malformed.
	ErrorCodeFrameEncodingError = register(transportGroup, ErrorDescriptor{
		Value:         "FRAME_ENCODING_ERROR",
		Message:       "frame encoding error",
		Description:   `An endpoint received a frame that was badly formatted or otherwise in error.`,
		TransportCode: 0x07,
	})

	// ErrorCodeTransportParameterError signals an invalid or missing
	// transport parameter.
	ErrorCodeTransportParameterError = register(transportGroup, ErrorDescriptor{
		Value:         "TRANSPORT_PARAMETER_ERROR",
		Message:       "transport parameter error",
		Description:   `An endpoint received transport parameters that were badly formatted, included an invalid value, was absent even though it is mandatory, was present though it is forbidden, or was otherwise in error.`,
		TransportCode: 0x08,
	})

	// ErrorCodeConnectionIDLimitError signals more connection IDs were
	// received than the advertised limit allowed.
	ErrorCodeConnectionIDLimitError = register(transportGroup, ErrorDescriptor{
		Value:         "CONNECTION_ID_LIMIT_ERROR",
		Message:       "connection ID limit error",
		Description:   `An endpoint received more connection IDs than its advertised active_connection_id_limit.`,
		TransportCode: 0x09,
	})

	// ErrorCodeProtocolViolation signals a generic protocol violation not
	// covered by a more specific error code.
	ErrorCodeProtocolViolation = register(transportGroup, ErrorDescriptor{
		Value:         "PROTOCOL_VIOLATION",
		Message:       "protocol violation",
		Description:   `An endpoint detected an error with protocol compliance that was not covered by a more specific error code.`,
		TransportCode: 0x0a,
	})

	// ErrorCodeInvalidToken signals a token in an Initial or Retry packet
	// that could not be validated.
	ErrorCodeInvalidToken = register(transportGroup, ErrorDescriptor{
		Value:         "INVALID_TOKEN",
		Message:       "invalid token",
		Description:   `A server received a client Initial that contained an invalid Retry token.`,
		TransportCode: 0x0b,
	})

	// ErrorCodeApplicationError signals an error in the application
	// protocol running on top of QUIC.
	ErrorCodeApplicationError = register(transportGroup, ErrorDescriptor{
		Value:         "APPLICATION_ERROR",
		Message:       "application error",
		Description:   `The application or application protocol caused the connection to be closed.`,
		TransportCode: 0x0c,
	})

	// ErrorCodeCryptoBufferExceeded signals that the CRYPTO stream
	// received data too far beyond the currently processed offset.
	ErrorCodeCryptoBufferExceeded = register(transportGroup, ErrorDescriptor{
		Value:         "CRYPTO_BUFFER_EXCEEDED",
		Message:       "crypto buffer exceeded",
		Description:   `An endpoint received more data in CRYPTO frames than it can buffer.`,
		TransportCode: 0x0d,
	})

	// ErrorCodeKeyUpdateError signals an invalid key update.
	ErrorCodeKeyUpdateError = register(transportGroup, ErrorDescriptor{
		Value:         "KEY_UPDATE_ERROR",
		Message:       "key update error",
		Description:   `An endpoint detected errors in performing key updates.`,
		TransportCode: 0x0e,
	})

	// ErrorCodeAEADLimitReached signals that the AEAD confidentiality or
	// integrity limit for a connection's keys was reached.
	ErrorCodeAEADLimitReached = register(transportGroup, ErrorDescriptor{
		Value:         "AEAD_LIMIT_REACHED",
		Message:       "AEAD limit reached",
		Description:   `An endpoint has reached the confidentiality or integrity limit for the AEAD algorithm used by the given connection.`,
		TransportCode: 0x0f,
	})

	// ErrorCodeNoViablePath signals that no network path was usable.
	ErrorCodeNoViablePath = register(transportGroup, ErrorDescriptor{
		Value:         "NO_VIABLE_PATH",
		Message:       "no viable path",
		Description:   `The requested operation cannot be completed in the absence of a network path that satisfies the endpoint's requirements.`,
		TransportCode: 0x10,
	})
)

var registerLock sync.Mutex

// Register makes the passed-in error known to the package and returns its
// ErrorCode.
func Register(group string, descriptor ErrorDescriptor) ErrorCode {
	return register(group, descriptor)
}

// register pins the descriptor's wire code (rather than assigning a fresh
// identity) because the RFC 9000 §20 error-code space is already globally
// unique and fixed: a CONNECTION_CLOSE frame must carry the exact value the
// peer expects, so there is no free-running counter to hand out here.
func register(group string, descriptor ErrorDescriptor) ErrorCode {
	registerLock.Lock()
	defer registerLock.Unlock()

	descriptor.Code = ErrorCode(descriptor.TransportCode)

	if _, ok := idToDescriptors[descriptor.Value]; ok {
		panic(fmt.Sprintf("errcode: value %q is already registered", descriptor.Value))
	}
	if _, ok := errorCodeToDescriptors[descriptor.Code]; ok {
		panic(fmt.Sprintf("errcode: code %v is already registered", descriptor.Code))
	}

	groupToDescriptors[group] = append(groupToDescriptors[group], descriptor)
	errorCodeToDescriptors[descriptor.Code] = descriptor
	idToDescriptors[descriptor.Value] = descriptor

	return descriptor.Code
}

type byValue []ErrorDescriptor

func (a byValue) Len() int           { return len(a) }
func (a byValue) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byValue) Less(i, j int) bool { return a[i].Value < a[j].Value }

// GroupNames returns the list of registered error group names.
func GroupNames() []string {
	keys := make([]string, 0, len(groupToDescriptors))
	for k := range groupToDescriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GroupDescriptors returns the named group of error descriptors, sorted by
// Value.
func GroupDescriptors(name string) []ErrorDescriptor {
	desc := groupToDescriptors[name]
	sort.Sort(byValue(desc))
	return desc
}

// AllDescriptors returns every registered ErrorDescriptor, irrespective of
// group, sorted by Value.
func AllDescriptors() []ErrorDescriptor {
	result := make([]ErrorDescriptor, 0, len(idToDescriptors))
	for _, group := range GroupNames() {
		result = append(result, GroupDescriptors(group)...)
	}
	sort.Sort(byValue(result))
	return result
}
