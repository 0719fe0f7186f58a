package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/records"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
	"github.com/sandeepkv93/rightontime/internal/storage"
	"github.com/sandeepkv93/rightontime/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tracker clock sits in the past so that scheduled alarms are already
// due on the real clock and the engine emits them straight away.
var trackerNow = time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	kv      *storage.MemoryKV
	engine  *scheduler.Engine
	book    *scheduler.AlarmBook
	tracker *tracker.Tracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv := storage.NewMemoryKV()
	engine := scheduler.NewEngine(8)
	book := scheduler.NewAlarmBook(kv)
	book.Attach(engine)
	engine.Start()
	t.Cleanup(engine.Stop)

	tr := tracker.New(kv, book, model.DefaultOffsets,
		tracker.WithClock(func() time.Time { return trackerNow }),
		tracker.WithIDGenerator(func() string { return "rec1" }),
	)
	require.NoError(t, tr.Open(context.Background()))
	return &harness{kv: kv, engine: engine, book: book, tracker: tr}
}

func (h *harness) addPassport(t *testing.T) model.TrackedRecord {
	t.Helper()
	rec, err := h.tracker.Add(context.Background(), records.Draft{
		DocumentType:    model.DocumentPassport,
		PersonCategory:  model.PersonChild,
		PersonName:      "Mira",
		ExpiryDate:      "2020-03-01",
		ReminderOffsets: model.NewOffsetSet(30),
	})
	require.NoError(t, err)
	return rec
}

func receive(t *testing.T, ch <-chan scheduler.Alarm) scheduler.Alarm {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alarm")
		return scheduler.Alarm{}
	}
}

type failingNotifier struct{}

func (failingNotifier) Send(Notification) error { return errors.New("no display") }

func TestHandleDeliversAndMarksFired(t *testing.T) {
	h := newHarness(t)
	h.addPassport(t)
	rec := &Recorder{}
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, rec)

	a := receive(t, h.engine.C())
	require.Equal(t, "rec1_30", a.Key)
	assert.True(t, d.Handle(context.Background(), a))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "PASSPORT Expiring Soon", sent[0].Title)
	assert.Equal(t, "Mira's Passport will expire in 30 days (March 1, 2020)", sent[0].Body)

	keys, err := h.book.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestHandleSkipsRemovedRecord(t *testing.T) {
	h := newHarness(t)
	rec := &Recorder{}
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, rec)

	assert.False(t, d.Handle(context.Background(), scheduler.Alarm{Key: scheduler.Key("gone", 30), FireAt: time.Now()}))
	assert.Empty(t, rec.Sent())
}

func TestHandleSkipsMalformedKey(t *testing.T) {
	h := newHarness(t)
	rec := &Recorder{}
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, rec)

	assert.False(t, d.Handle(context.Background(), scheduler.Alarm{Key: "nounderscore", FireAt: time.Now()}))
	assert.Empty(t, rec.Sent())
}

func TestHandleReportsSendFailure(t *testing.T) {
	h := newHarness(t)
	h.addPassport(t)
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, failingNotifier{})

	assert.False(t, d.Handle(context.Background(), receive(t, h.engine.C())))
}

func TestRunNotifiesObserverAndStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	observed := make(chan Notification, 1)
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, NoopNotifier{},
		WithSyncInterval(10*time.Millisecond),
		WithObserver(func(n Notification) { observed <- n }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	h.addPassport(t)

	select {
	case n := <-observed:
		assert.Equal(t, "rec1_30", n.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestRunSyncPicksUpAlarmsWrittenElsewhere(t *testing.T) {
	h := newHarness(t)
	// A second process writes the book without an attached engine.
	other := scheduler.NewAlarmBook(h.kv)
	otherTracker := tracker.New(h.kv, other, model.DefaultOffsets,
		tracker.WithClock(func() time.Time { return trackerNow }),
		tracker.WithIDGenerator(func() string { return "rec1" }),
	)
	require.NoError(t, otherTracker.Open(context.Background()))
	_, err := otherTracker.Add(context.Background(), records.Draft{
		DocumentType:    model.DocumentEAD,
		PersonCategory:  model.PersonSelf,
		ExpiryDate:      "2020-04-01",
		ReminderOffsets: model.NewOffsetSet(60),
	})
	require.NoError(t, err)

	observed := make(chan Notification, 1)
	d := NewDispatcher(h.engine.C(), h.book, h.tracker, NoopNotifier{},
		WithSyncInterval(10*time.Millisecond),
		WithObserver(func(n Notification) { observed <- n }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	select {
	case n := <-observed:
		assert.Equal(t, "Self's EAD/AP will expire in 60 days (April 1, 2020)", n.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for synced alarm")
	}
}
