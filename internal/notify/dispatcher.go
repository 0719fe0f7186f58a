package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
)

const DefaultSyncInterval = time.Minute

// Book is the persisted alarm store the dispatcher keeps the engine in step
// with.
type Book interface {
	MarkFired(ctx context.Context, key string) error
	Sync(ctx context.Context) error
}

// Resolver maps a fired key back to its record.
type Resolver interface {
	Describe(ctx context.Context, key string) (model.TrackedRecord, int, error)
	ReminderFired(key string)
}

type Option func(*Dispatcher)

func WithLogger(log logging.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithSyncInterval(every time.Duration) Option {
	return func(d *Dispatcher) {
		if every > 0 {
			d.interval = every
		}
	}
}

// WithObserver is called after every notification that was sent.
func WithObserver(fn func(Notification)) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

type Dispatcher struct {
	events   <-chan scheduler.Alarm
	book     Book
	resolver Resolver
	notifier DesktopNotifier
	log      logging.Logger
	interval time.Duration
	observe  func(Notification)
}

func NewDispatcher(events <-chan scheduler.Alarm, book Book, resolver Resolver, notifier DesktopNotifier, opts ...Option) *Dispatcher {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	d := &Dispatcher{
		events:   events,
		book:     book,
		resolver: resolver,
		notifier: notifier,
		log:      logging.NewNopLogger(),
		interval: DefaultSyncInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run delivers fired alarms until ctx is done or the event channel closes.
// The book is synced once up front and then every interval.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.sync(ctx)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.sync(ctx)
		case a, ok := <-d.events:
			if !ok {
				return nil
			}
			d.Handle(ctx, a)
		}
	}
}

// Handle delivers one fired alarm. It reports whether a notification went out.
func (d *Dispatcher) Handle(ctx context.Context, a scheduler.Alarm) bool {
	log := d.log.With(logging.String("key", a.Key))
	if d.book != nil {
		if err := d.book.MarkFired(ctx, a.Key); err != nil {
			log.Warn("mark alarm fired failed", logging.Err(err))
		}
	}
	rec, days, err := d.resolver.Describe(ctx, a.Key)
	switch {
	case errors.Is(err, model.ErrNotFound):
		log.Debug("alarm for removed record ignored")
		return false
	case err != nil:
		log.Warn("resolve alarm failed", logging.Err(err))
		return false
	}
	n := Compose(rec, days)
	if err := d.notifier.Send(n); err != nil {
		log.Error("send notification failed", logging.Err(err))
		return false
	}
	d.resolver.ReminderFired(a.Key)
	if d.observe != nil {
		d.observe(n)
	}
	return true
}

func (d *Dispatcher) sync(ctx context.Context) {
	if d.book == nil {
		return
	}
	if err := d.book.Sync(ctx); err != nil {
		d.log.Warn("alarm book sync failed", logging.Err(err))
	}
}
