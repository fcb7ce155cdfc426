package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/battlelog/internal/config"
	"github.com/rzbill/battlelog/internal/metrics"
	"github.com/rzbill/battlelog/internal/runtime"
	grpcserver "github.com/rzbill/battlelog/internal/server/grpc"
	httpserver "github.com/rzbill/battlelog/internal/server/http"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = os.Getenv

type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// LogLevel and LogFormat fall back to BATTLELOG_LOG_LEVEL and
	// BATTLELOG_LOG_FORMAT, then to info and text.
	LogLevel  string
	LogFormat string
}

// ParseFsync maps a --fsync flag value to a pebble fsync mode.
func ParseFsync(s string) (pebblestore.FsyncMode, error) {
	switch s {
	case "", "always":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	default:
		return pebblestore.FsyncModeUnspecified, fmt.Errorf("invalid fsync mode %q; use always|interval|never", s)
	}
}

// NewLogger builds the process logger from opts and the environment.
func NewLogger(opts Options) (logpkg.Logger, *logpkg.Config) {
	cfg := &logpkg.Config{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
	}
	if cfg.Level == "" {
		cfg.Level = getenvDefault("BATTLELOG_LOG_LEVEL", "info")
	}
	if cfg.Format == "" {
		cfg.Format = getenvDefault("BATTLELOG_LOG_FORMAT", "text")
	}
	logger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return logger, cfg
}

// Run starts gRPC and HTTP servers and blocks until ctx is cancelled or a
// server fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger, logCfg := NewLogger(opts)
	// Pebble logs through the standard library logger.
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Metrics:       metrics.New(true),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := battlesvc.Open(sctx, rt, battlesvc.Options{Logger: procLogger.With(logpkg.Component("battles"))})
	if err != nil {
		return err
	}

	procLogger.Info("Starting battlelog server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("audit_dir", rt.Audit().Dir()),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	gsrv := grpcserver.New(rt, svc)
	hsrv := httpserver.New(rt, svc, procLogger.With(logpkg.Component("http")))

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		if err := gsrv.ListenAndServe(gctx, opts.GRPCAddr); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := hsrv.ListenAndServe(gctx, opts.HTTPAddr); err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	err = g.Wait()
	// Servers stop before the runtime closes the DB.
	gsrv.Close()
	hsrv.Close()
	if err != nil {
		procLogger.Error("server stopped", logpkg.Err(err))
	}
	return err
}
