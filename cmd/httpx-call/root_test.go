package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx0.com/go/streamcall/httpx"
	"dqx0.com/go/streamcall/internal/config"
	"dqx0.com/go/streamcall/internal/obs"
)

// serveOnce answers every connection with raw and sends each request head
// on the returned channel.
func serveOnce(t *testing.T, raw string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	heads := make(chan string, 8)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			br := bufio.NewReader(c)
			var head strings.Builder
			for {
				line, err := br.ReadString('\n')
				head.WriteString(line)
				if err != nil || line == "\r\n" {
					break
				}
			}
			drainBody(br, head.String())
			heads <- head.String()
			_, _ = io.WriteString(c, raw)
			_ = c.Close()
		}
	}()
	return "http://" + ln.Addr().String(), heads
}

// drainBody consumes the request entity so closing the connection does
// not reset it.
func drainBody(br *bufio.Reader, head string) {
	lower := strings.ToLower(head)
	switch {
	case strings.Contains(lower, "transfer-encoding: chunked"):
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if line == "0\r\n" {
				_, _ = br.ReadString('\n')
				return
			}
		}
	case strings.Contains(lower, "content-length: "):
		i := strings.Index(lower, "content-length: ") + len("content-length: ")
		n, _ := strconv.Atoi(strings.TrimSpace(lower[i : i+strings.Index(lower[i:], "\r\n")]))
		_, _ = io.CopyN(io.Discard, br, int64(n))
	}
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRun_GET(t *testing.T) {
	base, heads := serveOnce(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-Peer: yes\r\n\r\nhello")

	out, _, err := run(t, "-i", "-H", "X-Trace: abc", base+"/greet")
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\nContent-Length: 5\nX-Peer: yes\n\nhello", out)

	head := <-heads
	assert.True(t, strings.HasPrefix(head, "GET /greet HTTP/1.1\r\n"), head)
	assert.Contains(t, head, "X-Trace: abc\r\n")
	assert.Contains(t, head, "Connection: close\r\n")
}

func TestRun_DataImpliesPOST(t *testing.T) {
	base, heads := serveOnce(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	_, _, err := run(t, "-d", "a=1", base+"/")
	require.NoError(t, err)
	head := <-heads
	assert.True(t, strings.HasPrefix(head, "POST / HTTP/1.1\r\n"), head)
	assert.Contains(t, head, "Content-Length: 3\r\n")
}

func TestRun_FileBodyChunked(t *testing.T) {
	base, heads := serveOnce(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
	path := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))

	_, _, err := run(t, "-X", "PUT", "-d", "@"+path, "--chunked", base+"/up")
	require.NoError(t, err)
	head := <-heads
	assert.True(t, strings.HasPrefix(head, "PUT /up HTTP/1.1\r\n"), head)
	assert.Contains(t, head, "Transfer-Encoding: chunked\r\n")
}

func TestRun_ConnectorErrorFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, stderr, err := run(t, "--log-backend", "logrus", "--log-level", "error", "http://"+addr+"/")
	require.Error(t, err)
	assert.Contains(t, stderr, "call 1:")
	assert.Contains(t, stderr, "level=error")
}

func TestRun_Metrics(t *testing.T) {
	base, _ := serveOnce(t, "HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n")

	_, stderr, err := run(t, "--count", "2", "--metrics", "--log-level", "error", base+"/")
	require.NoError(t, err)
	assert.Contains(t, stderr, `httpx_client_responses_total{status="204"} 2`)
	assert.Contains(t, stderr, `httpx_client_requests_total{method="GET"} 2`)
}

func TestRun_BadFlags(t *testing.T) {
	_, _, err := run(t, "--count", "0", "http://127.0.0.1:1/")
	assert.Error(t, err)
	_, _, err = run(t, "-H", "no-colon", "http://127.0.0.1:1/")
	assert.Error(t, err)
	_, _, err = run(t, "--log-backend", "syslog", "http://127.0.0.1:1/")
	assert.Error(t, err)
	_, _, err = run(t)
	assert.Error(t, err)
}

func TestBuildRequest_HeadersCheckedBeforeFileOpen(t *testing.T) {
	f := &callFlags{Data: "@" + filepath.Join(t.TempDir(), "missing"), Headers: []string{"no-colon"}}
	_, err := buildRequest(context.Background(), f, "http://127.0.0.1:1/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed header")
	assert.False(t, errors.Is(err, fs.ErrNotExist))
}

func TestBuildRequest_EmptyFileSendsNoBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	req, err := buildRequest(context.Background(), &callFlags{Data: "@" + path}, "http://127.0.0.1:1/")
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, httpx.NoBody, req.Body)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogLevel = "warn"
	l, sync, err := newLogger(cfg, &buf)
	require.NoError(t, err)
	l.Logf(obs.Info, "hidden")
	l.Logf(obs.Warn, "shown %d", 1)
	sync()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}

func TestNewController_PacedDial(t *testing.T) {
	cfg := config.Default()
	cfg.DialRate = 10
	cfg.DialBurst = 2
	ctl := newController(cfg, obs.NopLogger{}, prometheus.NewRegistry())
	assert.Equal(t, cfg.ConnectTimeout, ctl.ConnectTimeout)
	assert.Equal(t, cfg.MaxHeaderBytes, ctl.MaxHeaderBytes)
	lf, ok := ctl.Factory.(*httpx.LimitedFactory)
	require.True(t, ok)
	assert.Equal(t, 2, lf.Limiter.Burst())

	cfg.DialRate = 0
	ctl = newController(cfg, obs.NopLogger{}, prometheus.NewRegistry())
	assert.IsType(t, &httpx.DialerFactory{}, ctl.Factory)
}
