package main

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"dqx0.com/go/streamcall/httpx"
	"dqx0.com/go/streamcall/internal/config"
	"dqx0.com/go/streamcall/internal/obs"
)

// newLogger builds the diagnostic sink named by cfg.LogBackend. The
// returned func flushes it.
func newLogger(cfg *config.Config, w io.Writer) (obs.Logger, func(), error) {
	level, err := obs.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.LogBackend {
	case config.BackendLogrus:
		return obs.NewLogrusLogger(w, level), func() {}, nil
	default:
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.AddSync(w), zapLevel(level))
		zl := obs.NewZapLogger(zap.New(core))
		return zl, func() { _ = zl.Sync() }, nil
	}
}

func zapLevel(l obs.Level) zapcore.Level {
	switch l {
	case obs.Debug:
		return zapcore.DebugLevel
	case obs.Info:
		return zapcore.InfoLevel
	case obs.Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// newController wires cfg into a Controller reporting metrics to reg.
// Connects are paced when cfg.DialRate is set.
func newController(cfg *config.Config, logger obs.Logger, reg prometheus.Registerer) *httpx.Controller {
	var factory httpx.ConnectionFactory = &httpx.DialerFactory{TCPNoDelay: cfg.TCPNoDelay}
	if cfg.DialRate > 0 {
		factory = &httpx.LimitedFactory{
			Factory: factory,
			Limiter: rate.NewLimiter(rate.Limit(cfg.DialRate), cfg.DialBurst),
		}
	}
	ctl := httpx.NewController(factory)
	ctl.ConnectTimeout = cfg.ConnectTimeout
	ctl.MaxHeaderBytes = cfg.MaxHeaderBytes
	ctl.Logger = logger
	ctl.Meter = obs.NewPromMeter(reg, "")
	return ctl
}
