package httpx

import (
	"errors"
	"strings"
)

var (
	// ErrConnection means no connected socket could be obtained.
	ErrConnection = errors.New("httpx: connection failed")

	// ErrNoConnectionFactory is the cause of an ErrConnection raised when
	// the Controller has no factory at all.
	ErrNoConnectionFactory = errors.New("httpx: no connection factory configured")

	// ErrCommunication means I/O failed after the socket was connected.
	ErrCommunication = errors.New("httpx: communication failed")

	// ErrProtocol means the response head or body framing was malformed.
	ErrProtocol = errors.New("httpx: malformed response")

	// ErrInvalidRequest means the request could not be resolved to a
	// target before connecting.
	ErrInvalidRequest = errors.New("httpx: invalid request")
)

var (
	errNoConnection   = errors.New("httpx: factory returned no connection")
	errEntityClosed   = errors.New("httpx: read on closed entity stream")
	errRelativeNoBase = errors.New("httpx: relative URL without base")
	errMissingHost    = errors.New("httpx: URL has no host")
	errInvalidMethod  = errors.New("httpx: invalid method")
	errInvalidPort    = errors.New("httpx: invalid port")
	errMissingURL     = errors.New("httpx: nil request or URL")
)

// CallError is the terminal failure of a call. Kind is one of the
// exported Err* sentinels; Cause is the underlying failure.
type CallError struct {
	Kind  error
	Op    string
	Cause error
}

func (e *CallError) Error() string {
	var parts []string
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Is matches the Kind; the Cause chain is reached through Unwrap.
func (e *CallError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

func (e *CallError) Unwrap() error { return e.Cause }

func newCallError(kind error, op string, cause error) *CallError {
	return &CallError{Kind: kind, Op: op, Cause: cause}
}

// IsConnectionError reports whether err is a failure to obtain a socket.
func IsConnectionError(err error) bool { return errors.Is(err, ErrConnection) }

// IsCommunicationError reports whether err is an I/O failure on a
// connected socket.
func IsCommunicationError(err error) bool { return errors.Is(err, ErrCommunication) }

// IsProtocolError reports whether err is a malformed response.
func IsProtocolError(err error) bool { return errors.Is(err, ErrProtocol) }
