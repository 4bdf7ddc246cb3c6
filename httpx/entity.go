package httpx

import (
	"io"
)

// EntityStream is the response body. It reads through the framing decoder
// and owns the connection: Close, or reading to the end of the body,
// closes the socket. Close is idempotent and the socket is closed exactly
// once.
type EntityStream struct {
	r       io.Reader
	framing Framing
	call    *Call
	eof     bool
	closed  bool
}

func (e *EntityStream) Read(p []byte) (int, error) {
	if e.eof {
		return 0, io.EOF
	}
	if e.closed {
		return 0, errEntityClosed
	}
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.eof = true
		_ = e.Close()
	}
	return n, err
}

func (e *EntityStream) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.call.finish()
}

func (e *EntityStream) Framing() Framing { return e.framing }

// Closed reports whether the stream, and with it the socket, is closed.
func (e *EntityStream) Closed() bool { return e.closed }
