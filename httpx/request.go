package httpx

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"dqx0.com/go/streamcall/httpx/internal/http1"
)

// Request describes one outbound exchange.
//
// ContentLength is -1 when unknown; a body of unknown length, or one marked
// Streaming, is sent chunked. A non-nil Body with ContentLength 0 is also
// treated as unknown unless Body is NoBody, which sends an empty entity of
// known size.
//
// Header is frozen once the request head has been sent; later changes
// panic.
type Request struct {
	Method string
	URL    *url.URL
	// Base resolves URL when it is relative.
	Base          *url.URL
	Header        Header
	Body          io.ReadCloser
	ContentLength int64
	Streaming     bool
	ctx           context.Context
}

// NewRequest builds a request for rawURL. The length of body is taken from
// the in-memory readers; any other reader is of unknown length.
func NewRequest(method, rawURL string, body io.Reader) (*Request, error) {
	return NewRequestWithContext(context.Background(), method, rawURL, body)
}

func NewRequestWithContext(ctx context.Context, method, rawURL string, body io.Reader) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = "GET"
	}
	r := &Request{Method: method, URL: u, ctx: ctx}
	if body == nil {
		return r, nil
	}
	rc, ok := body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body)
	}
	r.Body = rc
	switch v := body.(type) {
	case *bytes.Buffer:
		r.ContentLength = int64(v.Len())
	case *bytes.Reader:
		r.ContentLength = int64(v.Len())
	case *strings.Reader:
		r.ContentLength = int64(v.Len())
	default:
		r.ContentLength = -1
	}
	if r.ContentLength == 0 {
		r.Body = NoBody
	}
	return r, nil
}

// NoBody is an empty request body of known length. With it a request sends
// Content-Length: 0 whatever its method.
var NoBody = noBody{}

type noBody struct{}

func (noBody) Read([]byte) (int, error) { return 0, io.EOF }

func (noBody) Close() error { return nil }

// outgoingLength is the entity length to frame: ContentLength, except that
// a zero length on a body other than NoBody is unknown.
func (r *Request) outgoingLength() int64 {
	if r.ContentLength == 0 && r.Body != nil && r.Body != NoBody {
		return -1
	}
	return r.ContentLength
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
}

// DefaultPort is used for schemes without a known default port.
const DefaultPort = 80

// target is where and how a request is sent.
type target struct {
	url        *url.URL
	host       string
	port       int
	requestURI string
	hostHeader string
}

// resolveTarget makes the request URL absolute and derives the socket
// address, the request-target and the Host header value.
func resolveTarget(r *Request) (target, error) {
	var t target
	if r == nil || r.URL == nil {
		return t, errMissingURL
	}
	if !http1.ValidHeaderName(r.Method) {
		return t, errInvalidMethod
	}
	u := r.URL
	if !u.IsAbs() {
		if r.Base == nil {
			return t, errRelativeNoBase
		}
		u = r.Base.ResolveReference(u)
	}
	t.url = u
	t.host = u.Hostname()
	if t.host == "" {
		return t, errMissingHost
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return t, errInvalidPort
		}
		t.port = n
		t.hostHeader = net.JoinHostPort(t.host, p)
	} else {
		t.port = DefaultPort
		if n, ok := defaultPorts[strings.ToLower(u.Scheme)]; ok {
			t.port = n
		}
		t.hostHeader = t.host
		if strings.Contains(t.host, ":") {
			t.hostHeader = "[" + t.host + "]"
		}
	}

	t.requestURI = u.EscapedPath()
	if t.requestURI == "" {
		t.requestURI = "/"
	}
	if u.RawQuery != "" {
		t.requestURI += "?" + u.RawQuery
	}
	return t, nil
}
