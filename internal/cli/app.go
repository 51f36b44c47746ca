package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/config"
	"github.com/roach88/scanledger/internal/engine"
	"github.com/roach88/scanledger/internal/images"
	"github.com/roach88/scanledger/internal/remote"
	"github.com/roach88/scanledger/internal/store"
	"github.com/roach88/scanledger/internal/syncer"
)

// app is one running engine plus the store behind it.
type app struct {
	cfg    config.Config
	store  store.Boundary
	engine *engine.Engine

	cancel context.CancelFunc
	done   chan error
}

// loadConfig applies flags on top of file and environment.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Root, opts.Config, os.Getenv, func(c *config.Config) {
		if opts.Timezone != "" {
			c.Timezone = opts.Timezone
		}
	})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openApp loads config, opens the store and starts the engine loop.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create storage root", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid timezone", err)
	}
	eng, err := engine.New(ctx, st,
		engine.WithLocation(loc),
		engine.WithPolicy(carbon.PerKg{Rate: cfg.Carbon.PointsPerKg}),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load history", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &app{cfg: cfg, store: st, engine: eng, cancel: cancel, done: make(chan error, 1)}
	go func() { a.done <- eng.Run(runCtx) }()
	return a, nil
}

// Close stops the engine after queued commands finish, then closes the store.
func (a *app) Close() error {
	a.engine.Stop()
	err := <-a.done
	a.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine stopped with error", "error", err)
	}
	return a.store.Close()
}

func openStore(ctx context.Context, cfg config.Config) (store.Boundary, error) {
	switch cfg.Store.Driver {
	case "file":
		return store.OpenFile(cfg.Store.Path)
	default:
		var opts []store.SQLiteOption
		if cfg.Store.LegacyPath != "" {
			opts = append(opts, store.WithLegacyImport(cfg.Store.LegacyPath))
		}
		return store.OpenSQLite(ctx, cfg.Store.Path, opts...)
	}
}

// errNoRemote is returned when a command needs a remote store and none is
// configured.
var errNoRemote = errors.New("no remote configured (set remote.driver)")

// openRemote returns the configured remote store and a closer for it.
func openRemote(ctx context.Context, cfg config.Config) (remote.Store, func() error, error) {
	switch cfg.Remote.Driver {
	case "postgres":
		db, err := remote.OpenDB(ctx, cfg.Remote.DSN)
		if err != nil {
			return nil, nil, err
		}
		return remote.NewPostgres(db, cfg.Remote.UserID), db.Close, nil
	case "file":
		return remote.NewFile(cfg.Remote.Path), func() error { return nil }, nil
	default:
		return nil, nil, errNoRemote
	}
}

// openUploader returns nil when image sync is disabled.
func openUploader(ctx context.Context, cfg config.Config) (images.Uploader, error) {
	switch cfg.Images.Driver {
	case "dir":
		return images.NewDirUploader(cfg.Images.Dir), nil
	case "s3":
		s3 := cfg.Images.S3
		return images.NewS3Uploader(ctx, images.S3Config{
			Region:    s3.Region,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
		})
	default:
		return nil, nil
	}
}

// syncerConfig maps the config section onto the pipeline settings.
func syncerConfig(cfg config.Config) syncer.Config {
	base, err := cfg.RetryBase()
	if err != nil {
		base = 0
	}
	return syncer.Config{
		Workers:     cfg.Sync.Workers,
		QueueSize:   cfg.Sync.QueueSize,
		MaxAttempts: cfg.Sync.MaxAttempts,
		RetryBase:   base,
		FetchLimit:  cfg.Sync.FetchLimit,
	}
}

// warningLog collects syncer warnings from worker goroutines.
type warningLog struct {
	ch   chan syncer.Warning
	list []string
}

func newWarningLog() *warningLog {
	return &warningLog{ch: make(chan syncer.Warning, 256)}
}

func (w *warningLog) handle(x syncer.Warning) {
	select {
	case w.ch <- x:
	default:
	}
}

// drain returns the warnings received so far.
func (w *warningLog) drain() []string {
	for {
		select {
		case x := <-w.ch:
			w.list = append(w.list, x.Error())
		default:
			return w.list
		}
	}
}

// runSyncer starts s and returns a function that closes the queue and waits
// for it to drain.
func runSyncer(ctx context.Context, s *syncer.Syncer) func() {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		s.Close()
		if err := <-done; err != nil {
			slog.Error("sync workers stopped with error", "error", err)
		}
	}
}

func notConfigured(what string, err error) error {
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s unavailable", what), err)
}
