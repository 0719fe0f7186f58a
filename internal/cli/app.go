package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sandeepkv93/rightontime/internal/config"
	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/metrics"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
	"github.com/sandeepkv93/rightontime/internal/storage"
	"github.com/sandeepkv93/rightontime/internal/tracker"
	"go.uber.org/multierr"
)

// App is everything a command needs, built once per invocation.
type App struct {
	Config   config.Config
	Log      logging.Logger
	KV       storage.KV
	Book     *scheduler.AlarmBook
	Tracker  *tracker.Tracker
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Now      func() time.Time

	closeKV func() error
}

// OpenStorage opens the adapter named by cfg.Driver. The returned func
// closes it.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.KV, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		kv, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.DriverRedis:
		kv, err := storage.OpenRedis(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.DriverMemory:
		return storage.NewMemoryKV(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage.driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// NewApp wires the tracker over kv with the persisted alarm book as its
// notification port, and loads the stored records.
func NewApp(ctx context.Context, cfg config.Config, log logging.Logger, kv storage.KV, now func() time.Time) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	book := scheduler.NewAlarmBook(kv)
	t := tracker.New(kv, book, cfg.AllowedOffsets(),
		tracker.WithClock(now),
		tracker.WithLogger(log.Named("tracker")),
		tracker.WithMetrics(m),
	)
	if err := t.Open(ctx); err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Log:      log,
		KV:       kv,
		Book:     book,
		Tracker:  t,
		Metrics:  m,
		Registry: reg,
		Now:      now,
		closeKV:  func() error { return nil },
	}, nil
}

func (a *App) Close() error {
	var err error
	if a.closeKV != nil {
		err = multierr.Append(err, a.closeKV())
	}
	// Sync on a console sink reports EINVAL/ENOTTY; nothing to flush there.
	_ = a.Log.Sync()
	return err
}
