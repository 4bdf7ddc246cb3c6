package httpx

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"

	"dqx0.com/go/streamcall/httpx/internal/http1"
)

// Proto is the only protocol version the engine speaks.
const Proto = "HTTP/1.1"

// CallState is the lifecycle position of a Call. States only move forward;
// Failed can be entered from any state that is not terminal.
type CallState int

const (
	StateIdle CallState = iota
	StateResolving
	StateConnecting
	StateSendingHead
	StateSendingBody
	StateAwaitingResponse
	StateParsingHead
	StateStreamingEntity
	StateClosed
	StateFailed
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateSendingHead:
		return "sending-head"
	case StateSendingBody:
		return "sending-body"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateParsingHead:
		return "parsing-head"
	case StateStreamingEntity:
		return "streaming-entity"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no further transition is possible.
func (s CallState) Terminal() bool { return s == StateClosed || s == StateFailed }

// ProtocolCall is one request/response exchange over a dedicated
// connection, as driven by a Controller.
type ProtocolCall interface {
	ID() string
	State() CallState
	// SendRequest writes the request head and entity.
	SendRequest(r *Request) error
	// ReceiveResponse parses the response head and exposes the entity.
	ReceiveResponse() (*Response, error)
	// Abort moves the call to Failed and closes its socket.
	Abort() error
}

var _ ProtocolCall = (*Call)(nil)

// Call is the stream-based ProtocolCall. It is used by one goroutine.
type Call struct {
	id             string
	state          CallState
	method         string
	target         target
	persistent     bool
	maxHeaderBytes int

	conn       net.Conn
	br         *bufio.Reader
	bw         *bufio.Writer
	connClosed bool

	reqHeader  Header
	reqFraming Framing
	reqHasBody bool
	reqEntity  http1.BodyWriter

	proto      string
	statusCode int
	reason     string
	respHeader Header
	respEntity *EntityStream
}

func newCall(id, method string, persistent bool, maxHeaderBytes int) *Call {
	return &Call{id: id, method: method, persistent: persistent, maxHeaderBytes: maxHeaderBytes}
}

func (c *Call) ID() string { return c.id }

func (c *Call) State() CallState { return c.state }

func (c *Call) Method() string { return c.method }

// RequestURI is the request-target written on the request line.
func (c *Call) RequestURI() string { return c.target.requestURI }

// RequestHeader returns the headers as sent, engine-set fields included.
// It is frozen once the head is on the wire.
func (c *Call) RequestHeader() *Header { return &c.reqHeader }

// RequestFraming reports how the request entity was framed; ok is false
// when the request had no entity.
func (c *Call) RequestFraming() (f Framing, ok bool) { return c.reqFraming, c.reqHasBody }

func (c *Call) Proto() string { return c.proto }

func (c *Call) StatusCode() int { return c.statusCode }

func (c *Call) ReasonPhrase() string { return c.reason }

func (c *Call) ResponseHeader() *Header { return &c.respHeader }

func (c *Call) ResponseEntity() *EntityStream { return c.respEntity }

func (c *Call) advance(to CallState) {
	if c.state.Terminal() || to <= c.state {
		panic(fmt.Sprintf("httpx: call %s cannot move from %s to %s", c.id, c.state, to))
	}
	c.state = to
}

// attach binds the connected socket. A call is bound at most once.
func (c *Call) attach(conn net.Conn) {
	if c.conn != nil {
		panic("httpx: call " + c.id + " already has a connection")
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)
	c.bw = bufio.NewWriter(conn)
}

func (c *Call) SendRequest(r *Request) error {
	c.advance(StateSendingHead)

	h := r.Header.Clone()
	h.Set("Host", c.target.hostHeader)
	f, hasBody := http1.RequestFraming(r.Body != nil, r.outgoingLength(), r.Streaming)
	switch {
	case hasBody && f.Mode == Chunked:
		h.Del("Content-Length")
		h.Set("Transfer-Encoding", "chunked")
	case hasBody:
		h.Del("Transfer-Encoding")
		h.Set("Content-Length", strconv.FormatInt(f.Length, 10))
	default:
		h.Del("Transfer-Encoding")
		h.Del("Content-Length")
		if http1.BodyRequired(c.method) {
			h.Set("Content-Length", "0")
		}
	}
	if c.persistent {
		h.Set("Connection", "keep-alive")
	} else {
		h.Set("Connection", "close")
	}
	h.Freeze()
	r.Header.Freeze()
	c.reqHeader = h
	c.reqFraming, c.reqHasBody = f, hasBody

	if err := http1.WriteRequestHead(c.bw, c.method, c.target.requestURI, Proto, wireFields(&h)); err != nil {
		return err
	}
	if err := c.bw.Flush(); err != nil {
		return err
	}

	if hasBody && (f.Mode != FixedLength || f.Length > 0) {
		c.advance(StateSendingBody)
		if err := c.sendEntity(r.Body); err != nil {
			return err
		}
	}
	c.advance(StateAwaitingResponse)
	return nil
}

func (c *Call) sendEntity(body io.Reader) error {
	c.reqEntity = http1.NewBodyWriter(c.bw, c.reqFraming)
	var err error
	if c.reqFraming.Mode == FixedLength {
		_, err = io.CopyN(c.reqEntity, body, c.reqFraming.Length)
		if err == io.EOF {
			err = http1.ErrBodyTooShort
		}
	} else {
		_, err = io.Copy(c.reqEntity, body)
	}
	if err != nil {
		return err
	}
	return c.reqEntity.Close()
}

func (c *Call) ReceiveResponse() (*Response, error) {
	// Block until the peer starts answering.
	if _, err := c.br.Peek(1); err != nil {
		return nil, err
	}

	c.advance(StateParsingHead)
	sl, err := http1.ReadStatusLine(c.br, c.maxHeaderBytes)
	if err != nil {
		return nil, err
	}
	var h Header
	for {
		f, ok, err := http1.ReadHeader(c.br, c.maxHeaderBytes)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		h.Add(f.Name, f.Value)
	}
	h.Freeze()
	c.proto, c.statusCode, c.reason = sl.Proto, sl.Code, sl.Reason
	c.respHeader = h

	f, err := http1.ResponseFraming(h.Values("Transfer-Encoding"), h.Values("Content-Length"))
	if err != nil {
		return nil, err
	}
	if f.Mode == Unbounded && c.persistent {
		return nil, &http1.ParseError{Msg: "close-delimited body on a persistent connection"}
	}
	c.respEntity = &EntityStream{r: http1.NewBodyReader(c.br, f, c.maxHeaderBytes), framing: f, call: c}
	c.advance(StateStreamingEntity)

	return &Response{
		Status:  Status{Code: sl.Code, Reason: sl.Reason},
		Proto:   sl.Proto,
		Header:  h,
		Framing: f,
		Body:    c.respEntity,
		Call:    c,
	}, nil
}

func (c *Call) Abort() error {
	if c.state.Terminal() {
		return nil
	}
	c.state = StateFailed
	if c.respEntity != nil {
		c.respEntity.closed = true
	}
	return c.closeConn()
}

// finish is the entity's close path.
func (c *Call) finish() error {
	if c.state == StateStreamingEntity {
		c.state = StateClosed
	}
	return c.closeConn()
}

func (c *Call) closeConn() error {
	if c.conn == nil || c.connClosed {
		return nil
	}
	c.connClosed = true
	return c.conn.Close()
}

func wireFields(h *Header) []http1.Field {
	ff := make([]http1.Field, 0, h.Len())
	for _, f := range h.fields {
		ff = append(ff, http1.Field{Name: f.Name, Value: f.Value})
	}
	return ff
}
