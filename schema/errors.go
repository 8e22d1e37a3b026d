package schema

import "fmt"

// TransportErrorKind classifies remote delivery failures.
type TransportErrorKind string

const (
	// TransportErrorUnknown is an uncategorized transport failure.
	TransportErrorUnknown TransportErrorKind = "unknown"
	// TransportErrorEncode indicates the request payload could not be serialized.
	TransportErrorEncode TransportErrorKind = "encode"
	// TransportErrorUnavailable indicates the peer is unreachable.
	TransportErrorUnavailable TransportErrorKind = "unavailable"
	// TransportErrorClosed indicates the connection closed before a reply.
	TransportErrorClosed TransportErrorKind = "closed"
	// TransportErrorTimeout indicates the reply did not arrive in time.
	TransportErrorTimeout TransportErrorKind = "timeout"
	// TransportErrorCanceled indicates the request was canceled.
	TransportErrorCanceled TransportErrorKind = "canceled"
	// TransportErrorRemote indicates the peer answered with an error.
	TransportErrorRemote TransportErrorKind = "remote"
)

// TransportError wraps transport failures with a stable classification.
type TransportError struct {
	Kind    TransportErrorKind
	Op      string
	Message string
	Err     error
}

// NewTransportError constructs a classified transport error.
func NewTransportError(kind TransportErrorKind, op string, err error) *TransportError {
	return &TransportError{Kind: kind, Op: op, Err: err}
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Kind)
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
