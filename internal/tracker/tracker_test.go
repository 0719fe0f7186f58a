package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/records"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
	"github.com/sandeepkv93/rightontime/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.February, 9, 12, 0, 0, 0, time.UTC)

type flakyKV struct {
	*storage.MemoryKV
	failSet bool
	sets    int
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	f.sets++
	return f.MemoryKV.Set(ctx, key, value)
}

type refusingPort struct {
	scheduler.NotificationPort
}

func (refusingPort) ScheduleAt(context.Context, string, time.Time) error {
	return errors.New("alarm limit reached")
}

type fixture struct {
	kv      *flakyKV
	book    *scheduler.AlarmBook
	tracker *Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	book := scheduler.NewAlarmBook(kv)
	n := 0
	tr := New(kv, book, model.DefaultOffsets,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("rec%d", n) }),
	)
	require.NoError(t, tr.Open(context.Background()))
	return &fixture{kv: kv, book: book, tracker: tr}
}

func (f *fixture) alarms(t *testing.T) []string {
	t.Helper()
	keys, err := f.book.ListScheduled(context.Background())
	require.NoError(t, err)
	return keys
}

func draft(expiry string, offsets ...int) records.Draft {
	return records.Draft{
		DocumentType:    model.DocumentH1B,
		PersonCategory:  model.PersonSelf,
		ExpiryDate:      expiry,
		ReminderOffsets: model.NewOffsetSet(offsets...),
	}
}

func TestAddPersistsAndSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 90, 60, 30))
	require.NoError(t, err)
	assert.Equal(t, "rec1", rec.ID)

	require.Len(t, f.tracker.List(), 1)
	assert.Equal(t, []string{"rec1_30", "rec1_60", "rec1_90"}, f.alarms(t))

	reopened := New(f.kv, f.book, model.DefaultOffsets, WithClock(func() time.Time { return testNow }))
	require.NoError(t, reopened.Open(ctx))
	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
	assert.Equal(t, "2026-12-01", list[0].ExpiryDate.String())
}

func TestAddValidationFailureTouchesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Add(context.Background(), draft("not-a-date", 30))
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, f.tracker.List())
	assert.Zero(t, f.kv.sets)
	assert.Empty(t, f.alarms(t))
}

func TestAddPersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.kv.failSet = true

	_, err := f.tracker.Add(context.Background(), draft("2026-12-01", 90))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Empty(t, f.tracker.List())

	f.kv.failSet = false
	assert.Empty(t, f.alarms(t), "no alarm for a record that was never saved")
}

func TestAddSchedulingFailureKeepsRecord(t *testing.T) {
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	port := refusingPort{NotificationPort: scheduler.NewAlarmBook(kv)}
	tr := New(kv, port, model.DefaultOffsets, WithClock(func() time.Time { return testNow }))
	require.NoError(t, tr.Open(context.Background()))

	rec, err := tr.Add(context.Background(), draft("2026-12-01", 90, 30))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrScheduling)
	assert.NotEmpty(t, rec.ID)

	list := tr.List()
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
}

func TestAddSkipsPastOffsets(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Add(context.Background(), draft(model.DateOf(testNow).AddDays(45).String(), 90, 60, 30))
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1_30"}, f.alarms(t))

	_, err = f.tracker.Add(context.Background(), draft(model.DateOf(testNow).String(), 90))
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1_30"}, f.alarms(t))
}

func TestUpdateReconcilesOffsets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 90, 60, 30))
	require.NoError(t, err)

	offsets := model.NewOffsetSet(30)
	_, err = f.tracker.Update(ctx, rec.ID, records.Patch{ReminderOffsets: &offsets})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1_30"}, f.alarms(t))
}

func TestUpdateMovesFireTimeWhenExpiryChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 30))
	require.NoError(t, err)

	expiry := "2027-01-31"
	_, err = f.tracker.Update(ctx, rec.ID, records.Patch{ExpiryDate: &expiry})
	require.NoError(t, err)

	times, err := f.book.FireTimes(ctx)
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.True(t, times["rec1_30"].Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestUpdateUnknownRecord(t *testing.T) {
	f := newFixture(t)
	notes := "x"
	_, err := f.tracker.Update(context.Background(), "missing", records.Patch{Notes: &notes})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRemoveCancelsAlarms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep, err := f.tracker.Add(ctx, draft("2026-12-01", 90))
	require.NoError(t, err)
	gone, err := f.tracker.Add(ctx, draft("2026-12-01", 90, 30))
	require.NoError(t, err)

	require.NoError(t, f.tracker.Remove(ctx, gone.ID))
	assert.Equal(t, []string{keep.ID + "_90"}, f.alarms(t))
	assert.ErrorIs(t, f.tracker.Remove(ctx, gone.ID), model.ErrNotFound)
}

func TestRemovePersistenceFailureRestoresRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 90))
	require.NoError(t, err)

	f.kv.failSet = true
	assert.ErrorIs(t, f.tracker.Remove(ctx, rec.ID), model.ErrPersistence)
	f.kv.failSet = false

	_, err = f.tracker.Get(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"rec1_90"}, f.alarms(t))
}

func TestOpenRepairsLegacyStorageOnce(t *testing.T) {
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	ctx := context.Background()
	require.NoError(t, kv.MemoryKV.Set(ctx, storage.KeyRecords, []byte(
		`[null, {"type":"passport","for":"spouse","expiryDate":"2027-01-01","notifications":{"days90":true}}, {"id":"x","type":"i94","person":"self"}]`,
	)))

	tr := New(kv, scheduler.NewAlarmBook(kv), model.DefaultOffsets, WithClock(func() time.Time { return testNow }))
	require.NoError(t, tr.Open(ctx))
	assert.Equal(t, 1, kv.sets, "repaired list is written back")

	list := tr.List()
	require.Len(t, list, 2)
	assert.NotEmpty(t, list[0].ID)
	assert.Equal(t, model.PersonSpouse, list[0].PersonCategory)
	assert.Equal(t, model.OffsetSet{90}, list[0].ReminderOffsets)
	assert.Equal(t, model.DateOf(testNow), list[1].ExpiryDate)

	again := New(kv, scheduler.NewAlarmBook(kv), model.DefaultOffsets, WithClock(func() time.Time { return testNow }))
	require.NoError(t, again.Open(ctx))
	assert.Equal(t, 1, kv.sets, "clean list is not rewritten")
	assert.Equal(t, list, again.List())
}

func TestOpenRejectsNonArrayPayload(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), storage.KeyRecords, []byte(`{"oops":true}`)))
	tr := New(kv, scheduler.NewAlarmBook(kv), model.DefaultOffsets)
	assert.ErrorIs(t, tr.Open(context.Background()), model.ErrPersistence)
}

func TestResyncRestoresMissingAndCancelsOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 90, 30))
	require.NoError(t, err)

	require.NoError(t, f.book.Cancel(ctx, rec.ID+"_90"))
	require.NoError(t, f.book.ScheduleAt(ctx, "ghost_30", testNow.Add(time.Hour)))
	require.NoError(t, f.book.ScheduleAt(ctx, "not-ours", testNow.Add(time.Hour)))

	res, err := f.tracker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Cancelled)
	assert.Equal(t, []string{"not-ours", "rec1_30", "rec1_90"}, f.alarms(t))

	res, err = f.tracker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Result{}, res)
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.tracker.Add(ctx, draft("2026-12-01", 60))
	require.NoError(t, err)

	got, days, err := f.tracker.Describe(ctx, scheduler.Key(rec.ID, 60))
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 60, days)

	_, _, err = f.tracker.Describe(ctx, "deleted_30")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, _, err = f.tracker.Describe(ctx, "garbage")
	assert.ErrorIs(t, err, scheduler.ErrMalformedKey)
}

func TestDashboardPreferenceIsReadFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	enabled, err := f.tracker.DashboardEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled, "absent preference means enabled")

	require.NoError(t, f.tracker.SetDashboardEnabled(ctx, false))
	enabled, err = f.tracker.DashboardEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Another writer flips it behind the tracker's back.
	require.NoError(t, f.kv.MemoryKV.Set(ctx, storage.KeyDashboardEnabled, []byte("true")))
	enabled, err = f.tracker.DashboardEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	f.kv.failSet = true
	assert.ErrorIs(t, f.tracker.SetDashboardEnabled(ctx, false), model.ErrPersistence)
}

func TestTheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	theme, err := f.tracker.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	require.NoError(t, f.tracker.SetTheme(ctx, ThemeDark))
	theme, err = f.tracker.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	assert.ErrorIs(t, f.tracker.SetTheme(ctx, "sepia"), model.ErrValidation)
}

func TestOpenDropsInvalidStoredOffsets(t *testing.T) {
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	ctx := context.Background()
	require.NoError(t, kv.MemoryKV.Set(ctx, storage.KeyRecords, []byte(
		`[{"id":"a","type":"h1b","person":"self","expiryDate":"2026-12-01","notifications":[-5,15,30]}]`,
	)))
	// Left behind by an earlier version that let negative offsets through.
	require.NoError(t, scheduler.NewAlarmBook(kv.MemoryKV).ScheduleAt(ctx, "a_-5", time.Date(2026, time.December, 6, 0, 0, 0, 0, time.UTC)))
	book := scheduler.NewAlarmBook(kv)

	tr := New(kv, book, model.DefaultOffsets, WithClock(func() time.Time { return testNow }))
	require.NoError(t, tr.Open(ctx))
	assert.Equal(t, 1, kv.sets, "cleaned offsets are written back")

	rec, err := tr.Get("a")
	require.NoError(t, err)
	assert.Equal(t, model.OffsetSet{30}, rec.ReminderOffsets)

	res, err := tr.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Result{Created: 1, Cancelled: 1}, res)
	keys, err := book.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_30"}, keys)

	res, err = tr.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Result{}, res, "resync is idempotent")

	notes := "renewal filed"
	_, err = tr.Update(ctx, "a", records.Patch{Notes: &notes})
	assert.NoError(t, err)
}

func TestResyncAfterRestartKeepsMissedAlarm(t *testing.T) {
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	ctx := context.Background()
	first := New(kv, scheduler.NewAlarmBook(kv), model.DefaultOffsets,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "rec1" }),
	)
	require.NoError(t, first.Open(ctx))
	_, err := first.Add(ctx, draft("2026-03-15", 90, 30))
	require.NoError(t, err)

	// Nothing runs between 2026-02-13, when rec1_30 was due, and the restart.
	restart := time.Date(2026, time.February, 20, 8, 0, 0, 0, time.UTC)
	book := scheduler.NewAlarmBook(kv)
	require.NoError(t, book.ScheduleAt(ctx, "rec1_60", restart.Add(-time.Hour)))
	second := New(kv, book, model.DefaultOffsets, WithClock(func() time.Time { return restart }))
	require.NoError(t, second.Open(ctx))

	engine := scheduler.NewEngine(4)
	book.Attach(engine)
	engine.Start()
	defer engine.Stop()

	res, err := second.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cancelled, "an offset the record no longer has is cancelled")
	keys, err := book.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1_30"}, keys)

	notes := "still pending"
	_, err = second.Update(ctx, "rec1", records.Patch{Notes: &notes})
	require.NoError(t, err)
	keys, err = book.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1_30"}, keys, "unrelated edits keep the missed alarm")

	require.NoError(t, book.Sync(ctx))
	select {
	case a := <-engine.C():
		assert.Equal(t, "rec1_30", a.Key)
	case <-time.After(time.Second):
		t.Fatal("missed alarm was not emitted after restart")
	}
}

func TestUpdateCancelsMissedAlarmWhenExpiryMoves(t *testing.T) {
	kv := &flakyKV{MemoryKV: storage.NewMemoryKV()}
	ctx := context.Background()
	book := scheduler.NewAlarmBook(kv)
	first := New(kv, book, model.DefaultOffsets,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "rec1" }),
	)
	require.NoError(t, first.Open(ctx))
	_, err := first.Add(ctx, draft("2026-03-15", 30))
	require.NoError(t, err)

	restart := time.Date(2026, time.February, 20, 8, 0, 0, 0, time.UTC)
	second := New(kv, book, model.DefaultOffsets, WithClock(func() time.Time { return restart }))
	require.NoError(t, second.Open(ctx))

	expiry := "2026-03-10"
	_, err = second.Update(ctx, "rec1", records.Patch{ExpiryDate: &expiry})
	require.NoError(t, err)
	keys, err := book.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
