package httpx

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"dqx0.com/go/streamcall/httpx/internal/http1"
	"dqx0.com/go/streamcall/internal/obs"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultMaxHeaderBytes = 8 << 10
)

// Controller executes calls. Each call gets its own socket from Factory;
// nothing is pooled. A Controller may be shared between goroutines, but a
// Call and its EntityStream belong to one.
type Controller struct {
	Factory ConnectionFactory
	// ConnectTimeout bounds the connect step only; reads and writes on the
	// connected socket are not timed.
	ConnectTimeout time.Duration
	// MaxHeaderBytes limits each line of the response head.
	MaxHeaderBytes int
	// PersistentConnections sends Connection: keep-alive instead of close.
	// Close-delimited response bodies are then rejected.
	PersistentConnections bool

	Logger obs.Logger
	Meter  obs.Meter
}

// NewController returns a Controller with default limits.
func NewController(f ConnectionFactory) *Controller {
	return &Controller{
		Factory:        f,
		ConnectTimeout: DefaultConnectTimeout,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
	}
}

// DefaultController is used by Client when Controller is nil.
var DefaultController = NewController(&DialerFactory{TCPNoDelay: true})

// Execute runs one exchange and never returns nil. On success the
// Response carries the peer's status and a live Body the caller must read
// or close. On failure Status is a connector status, Body is nil and the
// socket, if any, is already closed. The request body is closed before
// Execute returns.
func (ctl *Controller) Execute(ctx context.Context, r *Request) *Response {
	start := time.Now()
	method := ""
	if r != nil {
		method = r.Method
		if r.Body != nil {
			defer r.Body.Close()
		}
	}
	call := newCall(callID(ctx), method, ctl.PersistentConnections, ctl.maxHeaderBytes())

	call.advance(StateResolving)
	t, err := resolveTarget(r)
	if err != nil {
		return ctl.fail(call, "resolve", internalStatus(newCallError(ErrInvalidRequest, "resolve", err)))
	}
	call.target = t

	call.advance(StateConnecting)
	if ctl.Factory == nil {
		return ctl.fail(call, "dial", internalStatus(newCallError(ErrConnection, "connect", ErrNoConnectionFactory)))
	}
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	conn, err := ctl.Factory.Connect(ctx, t.host, t.port, ctl.connectTimeout())
	if err == nil && conn == nil {
		err = errNoConnection
	}
	if err != nil {
		return ctl.fail(call, "dial", internalStatus(newCallError(ErrConnection, "connect "+addr, err)))
	}
	ctl.metricCounter("httpx_client_conn_dial_total", 1)
	call.attach(conn)

	if err := call.SendRequest(r); err != nil {
		return ctl.fail(call, "write", communicationStatus(classify("send", err)))
	}
	ctl.metricCounter("httpx_client_requests_total", 1, obs.Label{Key: "method", Value: method})

	resp, err := call.ReceiveResponse()
	if err != nil {
		return ctl.fail(call, "read_head", communicationStatus(classify("receive", err)))
	}

	code := strconv.Itoa(resp.Status.Code)
	ctl.metricCounter("httpx_client_responses_total", 1, obs.Label{Key: "status", Value: code})
	ctl.metricHistogram("httpx_client_roundtrip_duration_ms", float64(time.Since(start).Milliseconds()),
		obs.Label{Key: "method", Value: method}, obs.Label{Key: "status", Value: code})
	ctl.logf(obs.Debug, "call=%s %s %s%s -> %s, entity %s", call.id, method, addr, t.requestURI, resp.Status, resp.Framing)
	return resp
}

// classify maps a failure on a connected socket to its kind.
func classify(op string, err error) *CallError {
	if errors.Is(err, http1.ErrMalformed) {
		return newCallError(ErrProtocol, op, err)
	}
	return newCallError(ErrCommunication, op, err)
}

func (ctl *Controller) fail(call *Call, stage string, st Status) *Response {
	from := call.State()
	_ = call.Abort()
	level := obs.Debug
	if st.Code == StatusConnectorErrorInternal {
		level = obs.Error
	}
	ctl.logf(level, "call=%s failed while %s: %v", call.id, from, st.Cause)
	ctl.metricCounter("httpx_client_requests_error", 1, obs.Label{Key: "stage", Value: stage})
	return &Response{Status: st, Call: call}
}

func (ctl *Controller) connectTimeout() time.Duration {
	if ctl.ConnectTimeout > 0 {
		return ctl.ConnectTimeout
	}
	return DefaultConnectTimeout
}

func (ctl *Controller) maxHeaderBytes() int {
	if ctl.MaxHeaderBytes > 0 {
		return ctl.MaxHeaderBytes
	}
	return DefaultMaxHeaderBytes
}

func (ctl *Controller) logf(level obs.Level, format string, args ...interface{}) {
	lg := ctl.Logger
	if lg == nil {
		lg = obs.NopLogger{}
	}
	lg.Logf(level, format, args...)
}

func (ctl *Controller) metricCounter(name string, value float64, labels ...obs.Label) {
	ctl.getMeter().Counter(name, value, labels...)
}

func (ctl *Controller) metricHistogram(name string, value float64, labels ...obs.Label) {
	ctl.getMeter().Histogram(name, value, labels...)
}

func (ctl *Controller) getMeter() obs.Meter {
	if ctl.Meter != nil {
		return ctl.Meter
	}
	return obs.NopMeter{}
}
