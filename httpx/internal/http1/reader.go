package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformed matches every *ParseError via errors.Is.
	ErrMalformed = errors.New("http1: malformed message")
	// ErrEndOfStream is returned by readToken when the stream ends before
	// the stop byte.
	ErrEndOfStream = errors.New("http1: end of stream")
	ErrLineTooLong = &ParseError{Msg: "line too long"}
)

// ParseError reports a message that does not follow HTTP/1.1 syntax.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil && e.Err != ErrEndOfStream {
		return "http1: " + e.Msg + ": " + e.Err.Error()
	}
	return "http1: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

func eofAsParseError(err error, msg string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF || err == ErrEndOfStream {
		return &ParseError{Msg: msg, Err: ErrEndOfStream}
	}
	return err
}

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// Values returns the values of every field named name, in order.
func Values(fields []Field, name string) []string {
	var vv []string
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

// StatusLine is the first line of a response.
type StatusLine struct {
	Proto  string
	Code   int
	Reason string
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

// readToken reads bytes until stop reports true and returns the bytes
// before it together with the stop byte. It holds no state between calls.
func readToken(r io.ByteReader, stop func(byte) bool, limit int) (string, byte, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return "", 0, ErrEndOfStream
		}
		if err != nil {
			return "", 0, err
		}
		if stop(b) {
			return sb.String(), b, nil
		}
		sb.WriteByte(b)
		if limit > 0 && sb.Len() > limit {
			return "", 0, ErrLineTooLong
		}
	}
}

// ReadStatusLine scans "HTTP-Version SP status-code SP reason-phrase CRLF".
// Any truncation or syntax problem yields a *ParseError; I/O failures are
// returned unchanged.
func ReadStatusLine(br *bufio.Reader, limit int) (StatusLine, error) {
	var sl StatusLine

	proto, _, err := readToken(br, isSpace, limit)
	if err != nil {
		return sl, eofAsParseError(err, "end of stream while parsing version")
	}

	code, term, err := readToken(br, func(b byte) bool { return isSpace(b) || b == '\r' }, limit)
	if err != nil {
		return sl, eofAsParseError(err, "end of stream while parsing status code")
	}
	n, ok := parseStatusCode(code)
	if !ok {
		return sl, &ParseError{Msg: "invalid status code " + strconv.Quote(code)}
	}

	var reason string
	if term != '\r' {
		reason, _, err = readToken(br, func(b byte) bool { return b == '\r' }, limit)
		if err != nil {
			return sl, eofAsParseError(err, "end of stream while parsing reason phrase")
		}
	}

	lf, err := br.ReadByte()
	if err != nil {
		return sl, eofAsParseError(err, "end of stream while parsing reason phrase")
	}
	if lf != '\n' {
		return sl, &ParseError{Msg: "malformed line terminator"}
	}

	sl.Proto, sl.Code, sl.Reason = proto, n, reason
	return sl, nil
}

// parseStatusCode accepts exactly three decimal digits.
func parseStatusCode(s string) (int, bool) {
	if len(s) != 3 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// ReadHeader reads one header line. ok is false once the blank line ending
// the header section has been consumed. Folded continuation lines are not
// supported and are reported as malformed.
func ReadHeader(br *bufio.Reader, limit int) (f Field, ok bool, err error) {
	line, err := readLineLimit(br, limit)
	if err != nil {
		return f, false, eofAsParseError(err, "end of stream while parsing headers")
	}
	if line == "" {
		return f, false, nil
	}
	if isSpace(line[0]) {
		return f, false, &ParseError{Msg: "obsolete line folding in header section"}
	}
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return f, false, &ParseError{Msg: "malformed header line " + strconv.Quote(line)}
	}
	name := line[:i]
	if !ValidHeaderName(name) {
		return f, false, &ParseError{Msg: "invalid header name " + strconv.Quote(name)}
	}
	f.Name = name
	f.Value = strings.TrimSpace(line[i+1:])
	return f, true, nil
}

// ParsedRequest is a minimal representation parsed from the wire.
type ParsedRequest struct {
	Method     string
	RequestURI string
	Proto      string
	Header     []Field
	Framing    Framing
	Body       io.Reader
}

// Reader parses request heads. It backs the test peers that stand in for
// origin servers.
type Reader struct {
	BR             *bufio.Reader
	MaxHeaderBytes int
}

func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	line, err := readLineLimit(r.BR, r.MaxHeaderBytes)
	if err != nil {
		return nil, eofAsParseError(err, "end of stream while parsing request line")
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/1.") {
		return nil, &ParseError{Msg: "malformed request line " + strconv.Quote(line)}
	}
	pr := &ParsedRequest{Method: parts[0], RequestURI: parts[1], Proto: parts[2]}
	for {
		f, ok, err := ReadHeader(r.BR, r.MaxHeaderBytes)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		pr.Header = append(pr.Header, f)
	}
	te := Values(pr.Header, "Transfer-Encoding")
	cl := Values(pr.Header, "Content-Length")
	if len(te) > 0 && len(cl) > 0 {
		return nil, &ParseError{Msg: "both Transfer-Encoding and Content-Length present"}
	}
	pr.Framing, err = ResponseFraming(te, cl)
	if err != nil {
		return nil, err
	}
	if pr.Framing.Mode == Unbounded {
		// Requests without framing headers carry no body.
		pr.Framing = Framing{Mode: FixedLength}
	}
	pr.Body = NewBodyReader(r.BR, pr.Framing, r.MaxHeaderBytes)
	return pr, nil
}
