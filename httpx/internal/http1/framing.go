package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

var (
	ErrBodyTooLong  = errors.New("http1: body longer than declared Content-Length")
	ErrBodyTooShort = errors.New("http1: body shorter than declared Content-Length")
	errWriterClosed = errors.New("http1: write on closed body writer")
)

// Mode is the rule deciding where a message body ends.
type Mode int

const (
	// Unbounded bodies run until the peer closes the connection.
	Unbounded Mode = iota
	FixedLength
	Chunked
)

func (m Mode) String() string {
	switch m {
	case Unbounded:
		return "unbounded"
	case FixedLength:
		return "fixed-length"
	case Chunked:
		return "chunked"
	default:
		return "unknown"
	}
}

// Framing is the framing mode of one direction of a call. Length is only
// meaningful for FixedLength.
type Framing struct {
	Mode   Mode
	Length int64
}

func (f Framing) String() string {
	if f.Mode == FixedLength {
		return "fixed-length(" + strconv.FormatInt(f.Length, 10) + ")"
	}
	return f.Mode.String()
}

// RequestFraming decides how a request body is framed. ok is false when
// there is no body to send at all. A body of unknown length (length < 0)
// or one the caller marks as streaming is chunked; anything else is sent
// with its declared length.
func RequestFraming(hasBody bool, length int64, streaming bool) (f Framing, ok bool) {
	if !hasBody {
		return Framing{}, false
	}
	if length < 0 || streaming {
		return Framing{Mode: Chunked}, true
	}
	return Framing{Mode: FixedLength, Length: length}, true
}

// BodyRequired reports whether method is expected to carry an entity, in
// which case an empty request still declares Content-Length: 0.
func BodyRequired(method string) bool {
	return method == "POST" || method == "PUT"
}

// ResponseFraming selects response body framing from the received header
// values only. Chunked transfer coding wins over any declared length;
// otherwise a non-negative Content-Length bounds the body; otherwise,
// including for a negative declared length, the body runs until connection
// close.
func ResponseFraming(transferEncoding, contentLength []string) (Framing, error) {
	for _, v := range transferEncoding {
		if hasChunkedToken(v) {
			return Framing{Mode: Chunked}, nil
		}
	}
	if len(contentLength) == 0 {
		return Framing{Mode: Unbounded}, nil
	}
	n := int64(-1)
	for _, v := range contentLength {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			m, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return Framing{}, &ParseError{Msg: "invalid Content-Length " + strconv.Quote(v)}
			}
			if m < 0 {
				return Framing{Mode: Unbounded}, nil
			}
			if n >= 0 && m != n {
				return Framing{}, &ParseError{Msg: "conflicting Content-Length values"}
			}
			n = m
		}
	}
	return Framing{Mode: FixedLength, Length: n}, nil
}

func hasChunkedToken(v string) bool {
	for _, coding := range strings.Split(v, ",") {
		if i := strings.IndexByte(coding, ';'); i >= 0 {
			coding = coding[:i]
		}
		if strings.EqualFold(strings.TrimSpace(coding), "chunked") {
			return true
		}
	}
	return false
}

// NewBodyReader wraps br in the read-side decorator for f. maxLine bounds
// chunk-size and trailer lines.
func NewBodyReader(br *bufio.Reader, f Framing, maxLine int) io.Reader {
	switch f.Mode {
	case Chunked:
		return newChunkedReader(br, maxLine)
	case FixedLength:
		return &fixedLengthReader{r: br, remain: f.Length}
	default:
		return br
	}
}

// BodyWriter is the write-side decorator around the request stream. Close
// finishes the body framing and flushes; it never closes the connection.
type BodyWriter interface {
	io.WriteCloser
	Flush() error
}

// NewBodyWriter wraps bw in the write-side decorator for f.
func NewBodyWriter(bw *bufio.Writer, f Framing) BodyWriter {
	switch f.Mode {
	case Chunked:
		return &chunkedWriter{w: &keepOpenWriter{bw: bw}}
	case FixedLength:
		return &fixedLengthWriter{w: &keepOpenWriter{bw: bw}, remain: f.Length}
	default:
		return &keepOpenWriter{bw: bw}
	}
}

// fixedLengthReader yields exactly remain bytes, then io.EOF. A peer that
// closes early produces io.ErrUnexpectedEOF.
type fixedLengthReader struct {
	r      io.Reader
	remain int64
}

func (b *fixedLengthReader) Read(p []byte) (int, error) {
	if b.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remain {
		p = p[:b.remain]
	}
	n, err := b.r.Read(p)
	b.remain -= int64(n)
	if err == io.EOF && b.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// keepOpenWriter passes bytes through to the buffered connection writer.
// Close only flushes: the connection is still needed for the response.
type keepOpenWriter struct {
	bw *bufio.Writer
}

func (w *keepOpenWriter) Write(p []byte) (int, error) { return w.bw.Write(p) }
func (w *keepOpenWriter) Flush() error                { return w.bw.Flush() }
func (w *keepOpenWriter) Close() error                { return w.bw.Flush() }

// fixedLengthWriter refuses to send more or fewer bytes than declared.
type fixedLengthWriter struct {
	w      *keepOpenWriter
	remain int64
	closed bool
}

func (w *fixedLengthWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	if int64(len(p)) > w.remain {
		n, err := w.w.Write(p[:w.remain])
		w.remain -= int64(n)
		if err != nil {
			return n, err
		}
		return n, ErrBodyTooLong
	}
	n, err := w.w.Write(p)
	w.remain -= int64(n)
	return n, err
}

func (w *fixedLengthWriter) Flush() error { return w.w.Flush() }

func (w *fixedLengthWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Close(); err != nil {
		return err
	}
	if w.remain != 0 {
		return ErrBodyTooShort
	}
	return nil
}
