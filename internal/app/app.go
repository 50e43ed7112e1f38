// Package app assembles the newsletter pipeline from configuration. Both
// commands build one App and drive it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/brief/internal/archive"
	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/ingest"
	"github.com/ignite/brief/internal/metrics"
	"github.com/ignite/brief/internal/pkg/distlock"
	"github.com/ignite/brief/internal/pkg/logger"
	"github.com/ignite/brief/internal/pkg/unsubtoken"
	"github.com/ignite/brief/internal/provider"
	"github.com/ignite/brief/internal/render"
	"github.com/ignite/brief/internal/repository/memory"
	"github.com/ignite/brief/internal/repository/postgres"
	"github.com/ignite/brief/internal/service/dispatch"
	"github.com/ignite/brief/internal/service/issue"
	"github.com/ignite/brief/internal/service/schedule"
	"github.com/ignite/brief/internal/service/subscriber"
)

// DispatchLockKey names the lock serializing dispatch passes.
const DispatchLockKey = "newsletter:dispatch"

// App holds the wired services.
type App struct {
	Config      *config.Config
	Issues      *issue.Service
	Subscribers *subscriber.Service
	Schedule    *schedule.Service
	Dispatch    *dispatch.Engine
	Ingest      *ingest.Service
	Provider    provider.Provider
	Registry    *prometheus.Registry

	// Memory is set when the app runs on the in-process store.
	Memory *memory.Store

	db    *sql.DB
	redis *redis.Client
}

type options struct {
	memory   bool
	provider provider.Provider
	archiver dispatch.Archiver
}

// Option customizes New.
type Option func(*options)

// WithMemoryStore runs on the in-process store instead of PostgreSQL.
func WithMemoryStore() Option { return func(o *options) { o.memory = true } }

// WithProvider overrides the configured email provider.
func WithProvider(p provider.Provider) Option { return func(o *options) { o.provider = p } }

// WithArchiver overrides the configured archive.
func WithArchiver(a dispatch.Archiver) Option { return func(o *options) { o.archiver = a } }

type stores struct {
	issues      issue.Repository
	subscribers subscriber.Repository
	runs        interface {
		schedule.Repository
		dispatch.Repository
	}
	ingest ingest.Repository
	audit  audit.Sink
}

// New configures logging and builds every service described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(!cfg.Log.DisableRedact)

	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := a.openStores(ctx, o.memory)
	if err != nil {
		return nil, err
	}

	if err := a.connectRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}

	sender := o.provider
	if sender == nil {
		if sender, err = provider.New(ctx, cfg.Provider); err != nil {
			a.Close()
			return nil, fmt.Errorf("email provider: %w", err)
		}
	}
	a.Provider = sender

	layout, err := loadLayout(cfg.Newsletter.LayoutPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	composer, err := render.NewComposer(cfg.Newsletter.Brand, cfg.Newsletter.BaseURL, layout)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens := unsubtoken.New(cfg.Newsletter.UnsubscribeSecret)
	a.Issues = issue.NewService(st.issues, issue.WithAudit(st.audit))
	a.Subscribers = subscriber.NewService(st.subscribers, tokens, subscriber.WithAudit(st.audit))
	a.Schedule = schedule.NewService(st.runs, schedule.WithAudit(st.audit))
	a.Ingest = ingest.NewService(st.ingest)

	engineOpts := []dispatch.Option{
		dispatch.WithAudit(st.audit),
		dispatch.WithMetrics(metrics.NewDispatch(a.Registry)),
		dispatch.WithConcurrency(cfg.Dispatch.Concurrency),
	}
	if lock := a.dispatchLock(); lock != nil {
		engineOpts = append(engineOpts, dispatch.WithLock(lock, cfg.Dispatch.LockTTL()))
	}
	archiver := o.archiver
	if archiver == nil && cfg.Archive.Enabled() {
		if archiver, err = archive.New(ctx, cfg.Archive); err != nil {
			a.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
	}
	if archiver != nil {
		engineOpts = append(engineOpts, dispatch.WithArchive(archiver))
	}

	a.Dispatch = dispatch.NewEngine(st.runs, st.subscribers, a.Issues, composer, sender, tokens, engineOpts...)

	logger.Info("newsletter pipeline ready",
		"store", storeName(o.memory),
		"provider", sender.Name(),
		"redis", a.redis != nil,
		"archive", archiver != nil,
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context, inMemory bool) (*stores, error) {
	if inMemory {
		m := memory.New()
		a.Memory = m
		return &stores{
			issues:      m.Issues(),
			subscribers: m.Subscribers(),
			runs:        m.Runs(),
			ingest:      m.Ingest(),
			audit:       m.Audit(),
		}, nil
	}

	if a.Config.DatabaseURL == "" {
		return nil, errors.New("database_url is required (or run with the in-memory store)")
	}
	db, err := postgres.Open(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = db
	return &stores{
		issues:      postgres.NewIssueRepo(db),
		subscribers: postgres.NewSubscriberRepo(db),
		runs:        postgres.NewRunRepo(db),
		ingest:      postgres.NewIngestRepo(db),
		audit:       postgres.NewAuditRepo(db),
	}, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	if a.Config.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	a.redis = client
	return nil
}

// dispatchLock prefers Redis, then a PostgreSQL advisory lock. The memory
// store runs in one process and needs neither.
func (a *App) dispatchLock() distlock.DistLock {
	if a.redis == nil && a.db == nil {
		return nil
	}
	return distlock.New(a.redis, a.db, DispatchLockKey, a.Config.Dispatch.LockTTL())
}

// Ping checks the backing stores.
func (a *App) Ping(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// DB returns the PostgreSQL handle, nil on the memory store.
func (a *App) DB() *sql.DB { return a.db }

// Close releases connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	logger.Sync()
	return errors.Join(errs...)
}

func loadLayout(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read email layout: %w", err)
	}
	return string(b), nil
}

func storeName(inMemory bool) string {
	if inMemory {
		return "memory"
	}
	return "postgres"
}
