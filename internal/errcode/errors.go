package errcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode represents a QUIC transport error code as defined by RFC 9000
// §20. Its numeric value is the wire value carried by CONNECTION_CLOSE
// frames, not an opaque registry identity.
type ErrorCode uint64

// ErrorDescriptor provides relevant information about a given error code.
type ErrorDescriptor struct {
	// Code is the ErrorCode that this descriptor describes.
	Code ErrorCode

	// Value provides a unique, string key, often captured in anger,
	// representing the error code. This value is used as the keyed value
	// when serializing api errors.
	Value string

	// Message is a short, human readable description of the error
	// condition included in API responses.
	Message string

	// Description provides a complete account of the errors purpose,
	// suitable for use in documentation.
	Description string

	// TransportCode is the fixed RFC 9000 §20 wire value for this error.
	TransportCode uint64
}

// ParseErrorCode attempts to recover an ErrorCode from a string value.
func ParseErrorCode(s string) (ErrorCode, error) {
	desc, ok := idToDescriptors[s]
	if !ok {
		return ErrorCodeInternalError, fmt.Errorf("errcode: no such error value %q", s)
	}
	return desc.Code, nil
}

// Descriptor returns the descriptor for the error code.
func (ec ErrorCode) Descriptor() ErrorDescriptor {
	d, ok := errorCodeToDescriptors[ec]
	if !ok {
		return ErrorCodeInternalError.Descriptor()
	}
	return d
}

// String returns the canonical identifier, in uppercase, for the error
// code.
func (ec ErrorCode) String() string {
	return ec.Descriptor().Value
}

// Message returned the human-readable error message for the error code.
func (ec ErrorCode) Message() string {
	return ec.Descriptor().Message
}

// MarshalText encodes the receiver into UTF-8-encoded text and returns the
// result.
func (ec ErrorCode) MarshalText() (text []byte, err error) {
	return []byte(ec.String()), nil
}

// UnmarshalText decodes the form generated by MarshalText.
func (ec *ErrorCode) UnmarshalText(text []byte) error {
	desc, ok := idToDescriptors[string(text)]
	if !ok {
		desc = ErrorCodeInternalError.Descriptor()
	}
	*ec = desc.Code
	return nil
}

// ErrorCode just returns itself.
func (ec ErrorCode) ErrorCode() ErrorCode {
	return ec
}

// Error returns the lowercase, space-separated identifier of the error code.
func (ec ErrorCode) Error() string {
	return strings.ToLower(strings.Replace(ec.String(), "_", " ", -1))
}

// WithDetail creates a new Error struct based on the passed-in info and
// set the Detail property appropriately.
func (ec ErrorCode) WithDetail(detail interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
	}.WithDetail(detail)
}

// WithArgs creates a new Error struct and sets the Args slice.
func (ec ErrorCode) WithArgs(args ...interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
	}.WithArgs(args...)
}

// Error provides a wrapper around ErrorCode with extra Details provided.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`

	// TransportCode caches the RFC 9000 §20 wire value so a CONNECTION_CLOSE
	// frame consumer does not need to re-resolve the descriptor. It is not
	// included in the JSON form.
	TransportCode uint64 `json:"-"`
}

// ErrorCoder is implemented by error types that can identify their
// associated ErrorCode.
type ErrorCoder interface {
	ErrorCode() ErrorCode
}

// ErrorCode returns the ID/Value associated with this error.
func (e Error) ErrorCode() ErrorCode {
	return e.Code
}

// Error returns a human readable representation of the error.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", strings.ToLower(e.Code.String()), e.Message)
}

// WithDetail will return a new Error, based on the current one, but with
// some Detail info added.
func (e Error) WithDetail(detail interface{}) Error {
	return Error{
		Code:          e.Code,
		Message:       e.Message,
		Detail:        detail,
		TransportCode: e.Code.Descriptor().TransportCode,
	}
}

// WithArgs uses the passed-in list of interface{} to replace the specified
// variables in the Message string.
func (e Error) WithArgs(args ...interface{}) Error {
	return Error{
		Code:          e.Code,
		Message:       fmt.Sprintf(e.Code.Message(), args...),
		Detail:        e.Detail,
		TransportCode: e.Code.Descriptor().TransportCode,
	}
}

// Errors provides the envelope for multiple errors and a few sugar methods
// for use within the application.
type Errors []error

var _ error = Errors{}

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	default:
		msg := "errors:\n"
		for _, err := range errs {
			msg += err.Error() + "\n"
		}
		return msg
	}
}

// Len returns the current number of errors.
func (errs Errors) Len() int {
	return len(errs)
}

// MarshalJSON converts slice of error, ErrorCode or Error into a
// slice of Error - then serializes.
func (errs Errors) MarshalJSON() ([]byte, error) {
	var tmpErrs struct {
		Errors []Error `json:"errors,omitempty"`
	}

	for _, daErr := range errs {
		var err Error

		switch daErr := daErr.(type) {
		case ErrorCode:
			err = daErr.WithDetail(nil)
		case Error:
			err = daErr
		default:
			err = ErrorCodeInternalError.WithDetail(daErr.Error())
		}

		tmpErrs.Errors = append(tmpErrs.Errors, err)
	}

	return json.Marshal(tmpErrs)
}

// UnmarshalJSON deserializes []Error and then converts it into slice of
// Error or ErrorCode.
func (errs *Errors) UnmarshalJSON(data []byte) error {
	var tmpErrs struct {
		Errors []Error
	}

	if err := json.Unmarshal(data, &tmpErrs); err != nil {
		return err
	}

	var newErrs Errors
	for _, daErr := range tmpErrs.Errors {
		if daErr.Detail == nil {
			newErrs = append(newErrs, daErr.Code)
		} else {
			newErrs = append(newErrs, daErr)
		}
	}

	*errs = newErrs
	return nil
}
