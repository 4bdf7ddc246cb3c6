package httpx

import (
	"strconv"

	"dqx0.com/go/streamcall/httpx/internal/http1"
)

// Connector status codes. They never appear on the wire; they describe
// failures of the call itself.
const (
	// StatusConnectorErrorCommunication reports an I/O or parse failure
	// after the socket was connected.
	StatusConnectorErrorCommunication = 1001
	// StatusConnectorErrorInternal reports a failure before any socket was
	// connected.
	StatusConnectorErrorInternal = 1002
)

// Status is the outcome of a call: the peer's status line, or a connector
// status carrying the cause.
type Status struct {
	Code   int
	Reason string
	Cause  error

	connector bool
}

func communicationStatus(cause error) Status {
	return Status{Code: StatusConnectorErrorCommunication, Reason: "Communication Error", Cause: cause, connector: true}
}

func internalStatus(cause error) Status {
	return Status{Code: StatusConnectorErrorInternal, Reason: "Internal Connector Error", Cause: cause, connector: true}
}

// IsConnectorError reports whether s was produced locally rather than
// read from the peer. A peer answering with a code in the connector range
// is not a connector error.
func (s Status) IsConnectorError() bool { return s.connector }

func (s Status) IsSuccess() bool { return s.Code >= 200 && s.Code < 300 }

func (s Status) String() string {
	str := strconv.Itoa(s.Code)
	if s.Reason != "" {
		str += " " + s.Reason
	}
	if s.Cause != nil {
		str += ": " + s.Cause.Error()
	}
	return str
}

// Err returns the cause of a connector status, or nil for a status read
// from the peer.
func (s Status) Err() error {
	if !s.IsConnectorError() {
		return nil
	}
	if s.Cause != nil {
		return s.Cause
	}
	return newCallError(ErrCommunication, "", nil)
}

// Framing describes how a body is delimited on the wire.
type Framing = http1.Framing

// Framing modes.
const (
	Unbounded   = http1.Unbounded
	FixedLength = http1.FixedLength
	Chunked     = http1.Chunked
)

// Response is the result of Controller.Execute. Body is nil whenever
// Status is a connector status.
type Response struct {
	Status  Status
	Proto   string
	Header  Header
	Framing Framing
	Body    *EntityStream
	Call    *Call
}

// ContentLength returns the declared body length, or -1 when the body is
// chunked or close-delimited.
func (r *Response) ContentLength() int64 {
	if r.Framing.Mode == FixedLength {
		return r.Framing.Length
	}
	return -1
}
