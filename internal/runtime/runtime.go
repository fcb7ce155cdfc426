package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/battlelog/internal/auditlog"
	"github.com/rzbill/battlelog/internal/battle"
	cfgpkg "github.com/rzbill/battlelog/internal/config"
	"github.com/rzbill/battlelog/internal/metrics"
	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// Metrics receives storage observations. A private instance is created
	// when nil.
	Metrics *metrics.Metrics
}

// Runtime wires storage, config, and the audit mirror for a single-node instance.
type Runtime struct {
	db      *pebblestore.DB
	store   *battle.Store
	audit   *auditlog.Writer
	config  cfgpkg.Config
	metrics *metrics.Metrics
	dataDir string
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(false)
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	// The mirror must be at least as durable as the store it backs, so it is
	// fsynced unless durability was explicitly turned off.
	audit, err := auditlog.NewWriter(opts.Config.ResolveAuditDir(opts.DataDir), auditlog.WriterOptions{
		Sync: opts.Fsync != pebblestore.FsyncModeNever,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Runtime{
		db:      db,
		store:   battle.NewStore(db),
		audit:   audit,
		config:  opts.Config,
		metrics: opts.Metrics,
		dataDir: opts.DataDir,
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Store returns the battle store.
func (r *Runtime) Store() *battle.Store { return r.store }

// Audit returns the audit mirror writer.
func (r *Runtime) Audit() *auditlog.Writer { return r.audit }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Metrics returns the metrics the runtime reports into.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// DataDir returns the directory the runtime was opened on.
func (r *Runtime) DataDir() string { return r.dataDir }
