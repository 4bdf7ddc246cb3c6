package httpx

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestDialerFactory_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			_ = c.Close()
		}
	}()

	f := &DialerFactory{TCPNoDelay: true, KeepAlivePeriod: -1}
	port := ln.Addr().(*net.TCPAddr).Port
	c, err := f.Connect(context.Background(), "127.0.0.1", port, time.Second)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, ln.Addr().String(), c.RemoteAddr().String())
}

func TestDialerFactory_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = (&DialerFactory{}).Connect(context.Background(), "127.0.0.1", port, time.Second)
	assert.Error(t, err)
}

func TestDialerFactory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&DialerFactory{}).Connect(ctx, "127.0.0.1", 1, time.Second)
	assert.Error(t, err)
}

func stubFactory(calls *int32) ConnectionFactory {
	return FactoryFunc(func(context.Context, string, int, time.Duration) (net.Conn, error) {
		atomic.AddInt32(calls, 1)
		a, b := net.Pipe()
		_ = b.Close()
		return a, nil
	})
}

func TestLimitedFactory_PassesThrough(t *testing.T) {
	var calls int32
	f := &LimitedFactory{Factory: stubFactory(&calls), Limiter: rate.NewLimiter(rate.Inf, 1)}
	for i := 0; i < 3; i++ {
		c, err := f.Connect(context.Background(), "h", 80, time.Second)
		require.NoError(t, err)
		_ = c.Close()
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLimitedFactory_WaitCountsAgainstTimeout(t *testing.T) {
	var calls int32
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	f := &LimitedFactory{Factory: stubFactory(&calls), Limiter: lim}

	c, err := f.Connect(context.Background(), "h", 80, 50*time.Millisecond)
	require.NoError(t, err)
	_ = c.Close()

	_, err = f.Connect(context.Background(), "h", 80, 50*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLimitedFactory_NilLimiterAndFactory(t *testing.T) {
	var calls int32
	c, err := (&LimitedFactory{Factory: stubFactory(&calls)}).Connect(context.Background(), "h", 80, time.Second)
	require.NoError(t, err)
	_ = c.Close()
	assert.Equal(t, int32(1), calls)

	_, err = (&LimitedFactory{}).Connect(context.Background(), "h", 80, time.Second)
	assert.True(t, errors.Is(err, ErrNoConnectionFactory))
}

func TestLimitedFactory_InController(t *testing.T) {
	var calls int32
	ctl := NewController(&LimitedFactory{
		Factory: stubFactory(&calls),
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})
	ctl.ConnectTimeout = 20 * time.Millisecond

	first := ctl.Execute(context.Background(), &Request{Method: "GET", URL: mustURL(t, "http://h/")})
	assert.True(t, IsCommunicationError(first.Status.Err()), "%v", first.Status)

	second := ctl.Execute(context.Background(), &Request{Method: "GET", URL: mustURL(t, "http://h/")})
	assert.True(t, IsConnectionError(second.Status.Err()), "%v", second.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
