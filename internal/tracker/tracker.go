// Package tracker runs every record mutation through the same sequence:
// change the list in memory, persist it, then reconcile reminder alarms.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/metrics"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/records"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
	"github.com/sandeepkv93/rightontime/internal/storage"
	"go.uber.org/multierr"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

func WithLogger(log logging.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	store   *records.Store
	kv      storage.KV
	port    scheduler.NotificationPort
	allowed model.OffsetSet
	now     func() time.Time
	newID   func() string
	log     logging.Logger
	metrics *metrics.Metrics
}

func New(kv storage.KV, port scheduler.NotificationPort, allowed model.OffsetSet, opts ...Option) *Tracker {
	t := &Tracker{
		kv:      kv,
		port:    port,
		allowed: allowed.Normalized(),
		now:     time.Now,
		newID:   uuid.NewString,
		log:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.store = records.NewStore(t.allowed, records.WithClock(t.now), records.WithIDGenerator(t.newID))
	return t
}

func (t *Tracker) Allowed() model.OffsetSet { return t.allowed.Clone() }

// Open loads the stored list and repairs it. A repaired list is written back;
// if that write fails the repaired list is still served from memory.
func (t *Tracker) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.loadRaw(ctx)
	if err != nil {
		return err
	}
	list, changed := records.Repair(raw, model.DateOf(t.now()), t.allowed, t.newID)
	t.store.Load(list)
	t.metrics.ObserveRecords(list, t.now())
	t.log.Debug("records loaded", logging.Int("records", len(list)), logging.Bool("repaired", changed))
	if !changed {
		return nil
	}
	if err := t.persist(ctx); err != nil {
		t.log.Warn("repaired record list not saved", logging.Err(err))
		return err
	}
	t.log.Info("repaired stored record list", logging.Int("records", len(list)))
	return nil
}

func (t *Tracker) List() []model.TrackedRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.List()
}

func (t *Tracker) Get(id string) (model.TrackedRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Get(id)
}

// Add validates and stores d. A SchedulingError comes back together with the
// saved record: the record is committed even when its alarms are not.
func (t *Tracker) Add(ctx context.Context, d records.Draft) (model.TrackedRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.Snapshot()
	rec, err := t.store.Add(d)
	if err != nil {
		return model.TrackedRecord{}, err
	}
	if err := t.commit(ctx, snap); err != nil {
		return model.TrackedRecord{}, err
	}
	t.log.Info("record added", logging.String("record_id", rec.ID), logging.String("type", string(rec.DocumentType)))
	_, err = t.reconcile(ctx, rec.ID, &rec)
	return rec, err
}

// Update merges p into the record and always reconciles it in full.
func (t *Tracker) Update(ctx context.Context, id string, p records.Patch) (model.TrackedRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.Snapshot()
	rec, err := t.store.Update(id, p)
	if err != nil {
		return model.TrackedRecord{}, err
	}
	if err := t.commit(ctx, snap); err != nil {
		return model.TrackedRecord{}, err
	}
	t.log.Info("record updated", logging.String("record_id", rec.ID))
	_, err = t.reconcile(ctx, rec.ID, &rec)
	return rec, err
}

// Remove deletes the record and cancels all of its alarms.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.Snapshot()
	if err := t.store.Remove(id); err != nil {
		return err
	}
	if err := t.commit(ctx, snap); err != nil {
		return err
	}
	t.log.Info("record removed", logging.String("record_id", id))
	_, err := t.reconcile(ctx, id, nil)
	return err
}

// Resync reconciles every record and cancels alarms left behind by records
// that no longer exist, including keys of known records that do not parse.
// Missed alarms are kept so a starting engine still fires them.
func (t *Tracker) Resync(ctx context.Context) (scheduler.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, timed, err := scheduler.Existing(ctx, t.port)
	if err != nil {
		t.metrics.SchedulingFailed(1)
		return scheduler.Result{}, &model.SchedulingError{Op: "list", Err: err}
	}

	now := t.now()
	list := t.store.List()
	known := make(map[string]struct{}, len(list))
	plan := scheduler.Plan{}
	for _, rec := range list {
		known[rec.ID] = struct{}{}
		p := t.planFor(rec, existing, timed, now)
		plan.Create = append(plan.Create, p.Create...)
		plan.Cancel = append(plan.Cancel, p.Cancel...)
	}
	for key := range existing {
		id, _, err := scheduler.ParseKey(key)
		if err != nil {
			if idx := strings.LastIndex(key, "_"); idx > 0 {
				if _, ok := known[key[:idx]]; ok {
					plan.Cancel = append(plan.Cancel, key)
				}
			}
			continue
		}
		if _, ok := known[id]; !ok {
			plan.Cancel = append(plan.Cancel, key)
		}
	}
	t.metrics.ObserveRecords(list, now)
	return t.apply(ctx, plan)
}

// Describe resolves an alarm key against the stored list, read fresh so that
// changes made by other processes are seen.
func (t *Tracker) Describe(ctx context.Context, key string) (model.TrackedRecord, int, error) {
	id, days, err := scheduler.ParseKey(key)
	if err != nil {
		return model.TrackedRecord{}, 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, err := t.loadRaw(ctx)
	if err != nil {
		return model.TrackedRecord{}, 0, err
	}
	list, _ := records.Repair(raw, model.DateOf(t.now()), t.allowed, uuid.NewString)
	for _, rec := range list {
		if rec.ID == id {
			return rec, days, nil
		}
	}
	return model.TrackedRecord{}, 0, &model.NotFoundError{ID: id}
}

// ReminderFired records delivery of a fired alarm.
func (t *Tracker) ReminderFired(key string) {
	t.metrics.Fired()
	t.log.Info("reminder fired", logging.String("key", key))
}

// DashboardEnabled reads the stored preference on every call. Absent means
// enabled.
func (t *Tracker) DashboardEnabled(ctx context.Context) (bool, error) {
	raw, err := t.kv.Get(ctx, storage.KeyDashboardEnabled)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, &model.PersistenceError{Op: "load " + storage.KeyDashboardEnabled, Err: err}
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		t.log.Warn("ignoring unreadable dashboard preference", logging.Err(err))
		return true, nil
	}
	return enabled, nil
}

func (t *Tracker) SetDashboardEnabled(ctx context.Context, enabled bool) error {
	raw, _ := json.Marshal(enabled)
	if err := t.kv.Set(ctx, storage.KeyDashboardEnabled, raw); err != nil {
		t.metrics.PersistenceFailed()
		return &model.PersistenceError{Op: "save " + storage.KeyDashboardEnabled, Err: err}
	}
	return nil
}

// Theme is "light" unless "dark" was stored.
func (t *Tracker) Theme(ctx context.Context) (string, error) {
	raw, err := t.kv.Get(ctx, storage.KeyTheme)
	if errors.Is(err, storage.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return ThemeLight, &model.PersistenceError{Op: "load " + storage.KeyTheme, Err: err}
	}
	var theme string
	if err := json.Unmarshal(raw, &theme); err != nil || theme != ThemeDark {
		return ThemeLight, nil
	}
	return ThemeDark, nil
}

func (t *Tracker) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return &model.ValidationError{Field: "theme", Reason: "must be light or dark"}
	}
	raw, _ := json.Marshal(theme)
	if err := t.kv.Set(ctx, storage.KeyTheme, raw); err != nil {
		t.metrics.PersistenceFailed()
		return &model.PersistenceError{Op: "save " + storage.KeyTheme, Err: err}
	}
	return nil
}

func (t *Tracker) loadRaw(ctx context.Context) ([]records.RawRecord, error) {
	payload, err := t.kv.Get(ctx, storage.KeyRecords)
	if errors.Is(err, storage.ErrNotFound) {
		return []records.RawRecord{}, nil
	}
	if err != nil {
		return nil, &model.PersistenceError{Op: "load", Err: err}
	}
	raw, err := records.Decode(payload)
	if err != nil {
		return nil, &model.PersistenceError{Op: "decode", Err: err}
	}
	return raw, nil
}

func (t *Tracker) persist(ctx context.Context) error {
	payload, err := records.Encode(t.store.List())
	if err != nil {
		return &model.PersistenceError{Op: "encode", Err: err}
	}
	if err := t.kv.Set(ctx, storage.KeyRecords, payload); err != nil {
		t.metrics.PersistenceFailed()
		return &model.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// commit persists the list or rolls the store back to snap.
func (t *Tracker) commit(ctx context.Context, snap records.Snapshot) error {
	if err := t.persist(ctx); err != nil {
		t.store.Restore(snap)
		t.log.Error("record list not saved, change rolled back", logging.Err(err))
		return err
	}
	t.metrics.ObserveRecords(t.store.List(), t.now())
	return nil
}

// reconcile brings one record's alarms in line with rec; a nil rec cancels
// them all.
func (t *Tracker) reconcile(ctx context.Context, recordID string, rec *model.TrackedRecord) (scheduler.Result, error) {
	existing, timed, err := scheduler.Existing(ctx, t.port)
	if err != nil {
		t.metrics.SchedulingFailed(1)
		t.log.Warn("listing alarms failed", logging.String("record_id", recordID), logging.Err(err))
		return scheduler.Result{}, &model.SchedulingError{Op: "list", Err: err}
	}
	if rec == nil {
		return t.apply(ctx, scheduler.PlanFor(recordID, existing, timed, nil))
	}
	return t.apply(ctx, t.planFor(*rec, existing, timed, t.now()))
}

func (t *Tracker) planFor(rec model.TrackedRecord, existing map[string]time.Time, timed bool, now time.Time) scheduler.Plan {
	plan := scheduler.PlanFor(rec.ID, existing, timed, scheduler.Desired(rec, now))
	cancel := make([]string, 0, len(plan.Cancel))
	for _, key := range plan.Cancel {
		if scheduler.Missed(rec, key, existing[key], now) {
			t.log.Debug("keeping missed alarm", logging.String("key", key))
			continue
		}
		cancel = append(cancel, key)
	}
	plan.Cancel = cancel
	return plan
}

func (t *Tracker) apply(ctx context.Context, plan scheduler.Plan) (scheduler.Result, error) {
	if plan.Empty() {
		return scheduler.Result{}, nil
	}
	res, err := scheduler.Apply(ctx, t.port, plan)
	t.metrics.Scheduled(res.Created)
	t.metrics.Cancelled(res.Cancelled)
	t.log.Debug("alarms reconciled",
		logging.Int("created", res.Created),
		logging.Int("cancelled", res.Cancelled),
	)
	if err != nil {
		failures := multierr.Errors(err)
		t.metrics.SchedulingFailed(len(failures))
		t.log.Warn("some alarms could not be updated", logging.Int("failures", len(failures)), logging.Err(err))
		return res, &model.SchedulingError{Op: "apply", Err: err}
	}
	return res, nil
}
