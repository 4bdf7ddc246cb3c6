package httpx

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ConnectionFactory produces one connected socket per call. timeout bounds
// the connect step only. A nil connection with a nil error means the
// factory had nothing to offer and is reported as a connection failure.
type ConnectionFactory interface {
	Connect(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error)
}

// FactoryFunc adapts a function to ConnectionFactory.
type FactoryFunc func(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error)

func (f FactoryFunc) Connect(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	return f(ctx, host, port, timeout)
}

// DialerFactory connects plain TCP sockets.
type DialerFactory struct {
	// TCPNoDelay disables Nagle's algorithm on the connected socket.
	TCPNoDelay bool
	// KeepAlivePeriod is the TCP keep-alive period; zero uses the system
	// default and a negative value disables keep-alive.
	KeepAlivePeriod time.Duration
	LocalAddr       net.Addr
}

func (f *DialerFactory) Connect(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout, KeepAlive: f.KeepAlivePeriod, LocalAddr: f.LocalAddr}
	c, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(f.TCPNoDelay); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// LimitedFactory paces connects through a token bucket before handing off
// to Factory. Time spent waiting counts against the connect timeout.
type LimitedFactory struct {
	Factory ConnectionFactory
	Limiter *rate.Limiter
}

func (f *LimitedFactory) Connect(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	if f.Factory == nil {
		return nil, ErrNoConnectionFactory
	}
	if f.Limiter == nil {
		return f.Factory.Connect(ctx, host, port, timeout)
	}
	start := time.Now()
	wctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := f.Limiter.Wait(wctx); err != nil {
		return nil, fmt.Errorf("httpx: waiting for connect slot: %w", err)
	}
	if timeout > 0 {
		timeout -= time.Since(start)
		if timeout <= 0 {
			return nil, fmt.Errorf("httpx: connect to %s timed out while waiting for a slot", net.JoinHostPort(host, strconv.Itoa(port)))
		}
	}
	return f.Factory.Connect(ctx, host, port, timeout)
}
