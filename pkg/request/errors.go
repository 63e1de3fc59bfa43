package request

import (
	"errors"
	"fmt"
)

// ErrTransport matches any CaptureError of kind KindTransport via errors.Is.
var ErrTransport = errors.New("transport error")

// ErrBodyRead matches any CaptureError of kind KindBodyRead via errors.Is.
var ErrBodyRead = errors.New("body read error")

// ErrBodyConsumed is returned when a BodySource is drained a second time.
var ErrBodyConsumed = errors.New("request body already consumed")

// ErrBodyTooLarge is returned when a body exceeds the BodySource limit.
var ErrBodyTooLarge = errors.New("request body exceeds size limit")

// ErrorKind classifies capture failures.
type ErrorKind int

const (
	// KindTransport means the request target or a header could not form a valid request.
	KindTransport ErrorKind = iota + 1
	// KindBodyRead means draining the body failed.
	KindBodyRead
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBodyRead:
		return "body_read"
	default:
		return "unknown"
	}
}

// CaptureError is returned by Capture. Err holds the underlying cause.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture request: %s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *CaptureError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrBodyRead:
		return e.Kind == KindBodyRead
	}
	return false
}

func transportError(format string, args ...any) *CaptureError {
	return &CaptureError{Kind: KindTransport, Err: fmt.Errorf(format, args...)}
}

// Body formats understood by the decoders.
const (
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatXML        = "xml"
	FormatJSONSchema = "jsonschema"
	FormatJSONPath   = "jsonpath"
)

// DecodeError is returned when a body does not parse as the requested format
// or shape.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s body: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
