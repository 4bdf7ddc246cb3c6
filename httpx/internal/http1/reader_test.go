package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func readReq(t *testing.T, raw string, maxLine int) (*ParsedRequest, error) {
	t.Helper()
	r := &Reader{BR: bufio.NewReader(strings.NewReader(raw)), MaxHeaderBytes: maxLine}
	return r.ReadRequest()
}

func readHead(raw string) (StatusLine, []Field, error) {
	br := bufio.NewReader(strings.NewReader(raw))
	sl, err := ReadStatusLine(br, 8<<10)
	if err != nil {
		return sl, nil, err
	}
	var fields []Field
	for {
		f, ok, err := ReadHeader(br, 8<<10)
		if err != nil {
			return sl, fields, err
		}
		if !ok {
			return sl, fields, nil
		}
		fields = append(fields, f)
	}
}

func TestReadStatusLine_OK(t *testing.T) {
	sl, fields, err := readHead("HTTP/1.1 200 OK\r\n\r\n")
	if err != nil {
		t.Fatalf("read head: %v", err)
	}
	if sl.Proto != "HTTP/1.1" || sl.Code != 200 || sl.Reason != "OK" {
		t.Fatalf("status line = %+v", sl)
	}
	if len(fields) != 0 {
		t.Fatalf("fields = %v, want none", fields)
	}
}

func TestReadStatusLine_ReasonWithSpaces(t *testing.T) {
	sl, _, err := readHead("HTTP/1.0 404 Not Found Here\r\n\r\n")
	if err != nil {
		t.Fatalf("read head: %v", err)
	}
	if sl.Reason != "Not Found Here" || sl.Code != 404 || sl.Proto != "HTTP/1.0" {
		t.Fatalf("status line = %+v", sl)
	}
}

func TestReadStatusLine_NoReason(t *testing.T) {
	sl, _, err := readHead("HTTP/1.1 204\r\nX-A: 1\r\n\r\n")
	if err != nil {
		t.Fatalf("read head: %v", err)
	}
	if sl.Code != 204 || sl.Reason != "" {
		t.Fatalf("status line = %+v", sl)
	}
}

func TestReadStatusLine_Truncated(t *testing.T) {
	cases := map[string]string{
		"version": "HTTP/1.1",
		"code":    "HTTP/1.1 20",
		"reason":  "HTTP/1.1 200 O",
		"crlf":    "HTTP/1.1 200 OK\r",
		"empty":   "",
	}
	for name, raw := range cases {
		_, err := ReadStatusLine(bufio.NewReader(strings.NewReader(raw)), 8<<10)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !errors.Is(err, ErrMalformed) || !errors.Is(err, ErrEndOfStream) {
			t.Fatalf("%s: err = %v, want end-of-stream parse error", name, err)
		}
	}
}

func TestReadStatusLine_NonNumericCode(t *testing.T) {
	_, err := ReadStatusLine(bufio.NewReader(strings.NewReader("HTTP/1.1 2x0 OK\r\n\r\n")), 8<<10)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestReadStatusLine_CodeNotThreeDigits(t *testing.T) {
	for _, code := range []string{"1001", "99", "+20", "-20", "0200"} {
		_, err := ReadStatusLine(bufio.NewReader(strings.NewReader("HTTP/1.1 "+code+" X\r\n\r\n")), 8<<10)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("code %q: err = %v, want ErrMalformed", code, err)
		}
	}
}

func TestReadStatusLine_BadTerminator(t *testing.T) {
	_, err := ReadStatusLine(bufio.NewReader(strings.NewReader("HTTP/1.1 200 OK\rX\n")), 8<<10)
	if err == nil || !strings.Contains(err.Error(), "malformed line terminator") {
		t.Fatalf("err = %v", err)
	}
}

func TestReadStatusLine_IOErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("HTTP/1.1 2"), &failingReader{err: boom})
	_, err := ReadStatusLine(bufio.NewReader(r), 8<<10)
	if !errors.Is(err, boom) || errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want raw I/O error", err)
	}
}

func TestReadHeader_OrderAndDuplicates(t *testing.T) {
	_, fields, err := readHead("HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nX-B:  two \r\nSet-Cookie: b=2\r\n\r\n")
	if err != nil {
		t.Fatalf("read head: %v", err)
	}
	want := []Field{{"Set-Cookie", "a=1"}, {"X-B", "two"}, {"Set-Cookie", "b=2"}}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v", fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("field %d = %v, want %v", i, fields[i], want[i])
		}
	}
}

func TestReadHeader_Malformed(t *testing.T) {
	cases := map[string]string{
		"folding":  "HTTP/1.1 200 OK\r\nX-A: 1\r\n  continued\r\n\r\n",
		"no colon": "HTTP/1.1 200 OK\r\nbogus\r\n\r\n",
		"bad name": "HTTP/1.1 200 OK\r\nBad( : v\r\n\r\n",
		"eof":      "HTTP/1.1 200 OK\r\nX-A: 1\r\n",
	}
	for name, raw := range cases {
		if _, _, err := readHead(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: err = %v, want parse error", name, err)
		}
	}
}

func TestReadHeader_LineLimit(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("X-Long: " + strings.Repeat("a", 64) + "\r\n\r\n"))
	if _, _, err := ReadHeader(br, 16); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want line too long", err)
	}
}

func TestReader_ContentLengthBody(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"
	pr, err := readReq(t, raw, 8<<10)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if pr.Framing != (Framing{Mode: FixedLength, Length: 5}) {
		t.Fatalf("Framing=%v", pr.Framing)
	}
	b, _ := io.ReadAll(pr.Body)
	if string(b) != "hello" {
		t.Fatalf("body=%q", string(b))
	}
}

func TestReader_ChunkedBody(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nhey\r\n2\r\n!!\r\n0\r\n\r\n"
	pr, err := readReq(t, raw, 8<<10)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if pr.Framing.Mode != Chunked {
		t.Fatalf("Framing=%v", pr.Framing)
	}
	b, _ := io.ReadAll(pr.Body)
	if string(b) != "hey!!" {
		t.Fatalf("body=%q", string(b))
	}
}

func TestReader_NoFramingMeansNoBody(t *testing.T) {
	pr, err := readReq(t, "GET /a?b=c HTTP/1.1\r\nHost: x\r\n\r\ntrailing", 8<<10)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if pr.RequestURI != "/a?b=c" || pr.Method != "GET" {
		t.Fatalf("request line = %s %s", pr.Method, pr.RequestURI)
	}
	b, _ := io.ReadAll(pr.Body)
	if len(b) != 0 {
		t.Fatalf("body=%q, want empty", string(b))
	}
}

func TestReader_CLTEConflict(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\nContent-Length: 5\r\n\r\n"
	if _, err := readReq(t, raw, 8<<10); err == nil {
		t.Fatal("expected error for CL/TE conflict")
	}
}

func TestReader_MultipleContentLengthMismatch(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 5, 6\r\n\r\n"
	if _, err := readReq(t, raw, 8<<10); err == nil {
		t.Fatal("expected error for mismatched Content-Length")
	}
}

func TestReader_InvalidHeaderName(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nBad( : v\r\n\r\n"
	if _, err := readReq(t, raw, 8<<10); err == nil {
		t.Fatal("expected error for invalid header name")
	}
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
