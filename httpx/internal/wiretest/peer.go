// Package wiretest runs scripted HTTP/1.1 peers on loopback for tests.
// Each accepted connection carries one exchange: the peer reads a request,
// records it, answers through a Responder and closes the connection.
package wiretest

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"dqx0.com/go/streamcall/httpx/internal/http1"
)

// Request is what the peer received.
type Request struct {
	Method     string
	RequestURI string
	Proto      string
	Header     []http1.Field
	Framing    http1.Framing
	Body       []byte
	// Raw holds every byte read from the connection.
	Raw []byte
	Err error
}

// Get returns the first value of name.
func (r *Request) Get(name string) string {
	if vv := http1.Values(r.Header, name); len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// Responder writes the answer to req. The connection closes after it
// returns.
type Responder func(w *bufio.Writer, req *Request) error

// Raw answers with s verbatim.
func Raw(s string) Responder {
	return func(w *bufio.Writer, _ *Request) error {
		_, err := w.WriteString(s)
		return err
	}
}

// Reply answers with a Content-Length framed response.
func Reply(code int, body string, fields ...http1.Field) Responder {
	return func(w *bufio.Writer, _ *Request) error {
		ff := append(append([]http1.Field(nil), fields...), http1.Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
		if err := http1.WriteResponseHead(w, "HTTP/1.1", code, "", ff); err != nil {
			return err
		}
		_, err := w.WriteString(body)
		return err
	}
}

// ReplyChunked answers with one chunk per part.
func ReplyChunked(code int, parts ...string) Responder {
	return func(w *bufio.Writer, _ *Request) error {
		fields := []http1.Field{{Name: "Transfer-Encoding", Value: "chunked"}}
		if err := http1.WriteResponseHead(w, "HTTP/1.1", code, "", fields); err != nil {
			return err
		}
		bw := http1.NewBodyWriter(w, http1.Framing{Mode: http1.Chunked})
		for _, p := range parts {
			if _, err := bw.Write([]byte(p)); err != nil {
				return err
			}
		}
		return bw.Close()
	}
}

// Silent reads the request and closes without answering.
func Silent() Responder {
	return func(*bufio.Writer, *Request) error { return nil }
}

// Peer is a loopback listener serving Responder.
type Peer struct {
	ln      net.Listener
	respond Responder
	reqs    chan *Request
	wg      sync.WaitGroup
}

// Listen starts a peer on 127.0.0.1 with an ephemeral port.
func Listen(respond Responder) (*Peer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	p := &Peer{ln: ln, respond: respond, reqs: make(chan *Request, 16)}
	p.wg.Add(1)
	go p.serve()
	return p, nil
}

// Addr returns host:port.
func (p *Peer) Addr() string { return p.ln.Addr().String() }

// Port returns the listening port.
func (p *Peer) Port() int { return p.ln.Addr().(*net.TCPAddr).Port }

// URL returns an http URL for path on this peer.
func (p *Peer) URL(path string) string { return "http://" + p.Addr() + path }

// Next waits for the next recorded request.
func (p *Peer) Next(timeout time.Duration) (*Request, bool) {
	select {
	case r := <-p.reqs:
		return r, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (p *Peer) Close() error {
	err := p.ln.Close()
	p.wg.Wait()
	return err
}

func (p *Peer) serve() {
	defer p.wg.Done()
	for {
		c, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.wg.Add(1)
		go p.serveConn(c)
	}
}

func (p *Peer) serveConn(c net.Conn) {
	defer p.wg.Done()
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))

	var raw bytes.Buffer
	br := bufio.NewReader(io.TeeReader(c, &raw))
	bw := bufio.NewWriter(c)

	req := &Request{}
	rd := &http1.Reader{BR: br, MaxHeaderBytes: 8 << 10}
	pr, err := rd.ReadRequest()
	if err == nil {
		req.Method, req.RequestURI, req.Proto = pr.Method, pr.RequestURI, pr.Proto
		req.Header, req.Framing = pr.Header, pr.Framing
		req.Body, err = io.ReadAll(pr.Body)
	}
	req.Err = err
	req.Raw = raw.Bytes()
	p.reqs <- req

	if err != nil {
		return
	}
	if p.respond != nil {
		if err := p.respond(bw, req); err != nil {
			return
		}
	}
	_ = bw.Flush()
}
