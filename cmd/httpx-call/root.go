package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"dqx0.com/go/streamcall/httpx"
	"dqx0.com/go/streamcall/internal/config"
)

type callFlags struct {
	Method         string
	Headers        []string
	Data           string
	Chunked        bool
	Include        bool
	KeepAlive      bool
	Count          int
	Metrics        bool
	LogLevel       string
	LogBackend     string
	ConnectTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "httpx-call [flags] URL",
		Short: "Execute HTTP/1.1 calls over one connection per call",
		Long: `httpx-call sends a request, streams the response entity to stdout and
closes the connection. Connector failures exit non-zero.

Settings come from STREAMCALL_* environment variables; flags override them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, &f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.Method, "request", "X", "", "request method (default GET, or POST with --data)")
	fl.StringArrayVarP(&f.Headers, "header", "H", nil, `request header "Name: value", repeatable`)
	fl.StringVarP(&f.Data, "data", "d", "", "request entity; @path streams a file")
	fl.BoolVar(&f.Chunked, "chunked", false, "send the entity chunked even when its length is known")
	fl.BoolVarP(&f.Include, "include", "i", false, "print the status line and response headers")
	fl.BoolVar(&f.KeepAlive, "keep-alive", false, "send Connection: keep-alive")
	fl.IntVar(&f.Count, "count", 1, "number of calls to execute")
	fl.BoolVar(&f.Metrics, "metrics", false, "print collected metrics to stderr when done")
	fl.StringVar(&f.LogLevel, "log-level", "", "debug|info|warn|error")
	fl.StringVar(&f.LogBackend, "log-backend", "", "zap|logrus")
	fl.DurationVar(&f.ConnectTimeout, "connect-timeout", 0, "connect timeout")
	return cmd
}

func runCall(cmd *cobra.Command, f *callFlags, rawURL string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogBackend != "" {
		cfg.LogBackend = strings.ToLower(f.LogBackend)
	}
	if f.ConnectTimeout > 0 {
		cfg.ConnectTimeout = f.ConnectTimeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if f.Count < 1 {
		return errors.New("--count must be at least 1")
	}

	logger, sync, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sync()

	reg := prometheus.NewRegistry()
	ctl := newController(cfg, logger, reg)
	ctl.PersistentConnections = f.KeepAlive

	var failed error
	for i := 0; i < f.Count; i++ {
		req, err := buildRequest(cmd.Context(), f, rawURL)
		if err != nil {
			return err
		}
		if err := doCall(ctl, req, f.Include, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "call %d: %v\n", i+1, err)
			failed = err
		}
	}

	if f.Metrics {
		if err := dumpMetrics(reg, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	return failed
}

func buildRequest(ctx context.Context, f *callFlags, rawURL string) (*httpx.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	headers, err := parseHeaders(f.Headers)
	if err != nil {
		return nil, err
	}
	method := f.Method
	var body io.Reader
	var length int64 = -1
	switch {
	case strings.HasPrefix(f.Data, "@"):
		fh, err := os.Open(f.Data[1:])
		if err != nil {
			return nil, err
		}
		if st, err := fh.Stat(); err == nil && st.Mode().IsRegular() {
			length = st.Size()
		}
		body = fh
	case f.Data != "":
		body = strings.NewReader(f.Data)
		length = int64(len(f.Data))
	}
	if method == "" {
		method = "GET"
		if body != nil {
			method = "POST"
		}
	}

	req, err := httpx.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		if c, ok := body.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	if body != nil {
		req.ContentLength = length
		if length == 0 {
			_ = req.Body.Close()
			req.Body = httpx.NoBody
		}
	}
	req.Streaming = f.Chunked
	for _, h := range headers {
		req.Header.Add(h.Name, h.Value)
	}
	return req, nil
}

// parseHeaders splits "Name: value" flags. It runs before any body file is
// opened so a bad flag leaves nothing to close.
func parseHeaders(raw []string) ([]httpx.HeaderField, error) {
	fields := make([]httpx.HeaderField, 0, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed header %q, want \"Name: value\"", h)
		}
		fields = append(fields, httpx.HeaderField{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return fields, nil
}

func doCall(ctl *httpx.Controller, req *httpx.Request, include bool, out io.Writer) error {
	res := ctl.Execute(req.Context(), req)
	if err := res.Status.Err(); err != nil {
		if res.Body != nil {
			_ = res.Body.Close()
		}
		return err
	}
	defer res.Body.Close()

	if include {
		fmt.Fprintf(out, "%s %d %s\n", res.Proto, res.Status.Code, res.Status.Reason)
		for _, h := range res.Header.Fields() {
			fmt.Fprintf(out, "%s: %s\n", h.Name, h.Value)
		}
		fmt.Fprintln(out)
	}
	_, err := io.Copy(out, res.Body)
	return err
}

func dumpMetrics(g prometheus.Gatherer, w io.Writer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
