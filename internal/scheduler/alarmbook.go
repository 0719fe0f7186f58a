package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sandeepkv93/rightontime/internal/storage"
)

// AlarmBook is a NotificationPort whose alarms are stored under
// storage.KeyAlarms as {key: epochMillis}, so separate processes share them.
// An attached Engine is kept in step with every change.
type AlarmBook struct {
	mu     sync.Mutex
	kv     storage.KV
	engine *Engine
}

func NewAlarmBook(kv storage.KV) *AlarmBook {
	return &AlarmBook{kv: kv}
}

// Attach makes the book drive e. Call Sync afterwards to load existing alarms.
func (b *AlarmBook) Attach(e *Engine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engine = e
}

func (b *AlarmBook) ScheduleAt(ctx context.Context, key string, fireAt time.Time) error {
	if key == "" {
		return ErrInvalidKey
	}
	if fireAt.IsZero() {
		return ErrInvalidTriggerTime
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	book, err := b.load(ctx)
	if err != nil {
		return err
	}
	ms := fireAt.UnixMilli()
	book[key] = ms
	if err := b.save(ctx, book); err != nil {
		return err
	}
	if b.engine != nil {
		return b.engine.Schedule(Alarm{Key: key, FireAt: time.UnixMilli(ms)})
	}
	return nil
}

func (b *AlarmBook) Cancel(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	book, err := b.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := book[key]; ok {
		delete(book, key)
		if err := b.save(ctx, book); err != nil {
			return err
		}
	}
	if b.engine != nil {
		b.engine.Cancel(key)
	}
	return nil
}

func (b *AlarmBook) ListScheduled(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	book, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(book))
	for key := range book {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *AlarmBook) FireTimes(ctx context.Context) (map[string]time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	book, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(book))
	for key, ms := range book {
		out[key] = time.UnixMilli(ms)
	}
	return out, nil
}

// MarkFired drops an alarm the engine has emitted. A fired alarm is gone for
// good; reconciliation never recreates it because its time has passed.
func (b *AlarmBook) MarkFired(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	book, err := b.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := book[key]; ok {
		delete(book, key)
		if err := b.save(ctx, book); err != nil {
			return err
		}
	}
	if b.engine != nil {
		b.engine.Forget(key)
	}
	return nil
}

// Sync makes the attached engine mirror the stored book, picking up changes
// written by other processes. Alarms already past are handed to the engine
// too and fire straight away, unless the engine emitted them already and
// MarkFired has not caught up.
func (b *AlarmBook) Sync(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engine == nil {
		return nil
	}
	book, err := b.load(ctx)
	if err != nil {
		return err
	}
	for _, a := range b.engine.Pending() {
		if _, ok := book[a.Key]; !ok {
			b.engine.Cancel(a.Key)
		}
	}
	pending := make(map[string]time.Time)
	for _, a := range b.engine.Pending() {
		pending[a.Key] = a.FireAt
	}
	for key, ms := range book {
		fireAt := time.UnixMilli(ms)
		if at, ok := pending[key]; ok && at.Equal(fireAt) {
			continue
		}
		if at, ok := b.engine.Emitted(key); ok && at.Equal(fireAt) {
			continue
		}
		if err := b.engine.Schedule(Alarm{Key: key, FireAt: fireAt}); err != nil {
			return fmt.Errorf("scheduler: sync %q: %w", key, err)
		}
	}
	return nil
}

func (b *AlarmBook) load(ctx context.Context) (map[string]int64, error) {
	raw, err := b.kv.Get(ctx, storage.KeyAlarms)
	if errors.Is(err, storage.ErrNotFound) {
		return make(map[string]int64), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduler: load alarms: %w", err)
	}
	book := make(map[string]int64)
	if len(raw) == 0 {
		return book, nil
	}
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("scheduler: decode alarms: %w", err)
	}
	return book, nil
}

func (b *AlarmBook) save(ctx context.Context, book map[string]int64) error {
	raw, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("scheduler: encode alarms: %w", err)
	}
	if err := b.kv.Set(ctx, storage.KeyAlarms, raw); err != nil {
		return fmt.Errorf("scheduler: save alarms: %w", err)
	}
	return nil
}
