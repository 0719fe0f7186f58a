package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
)

var ErrMalformedKey = errors.New("scheduler: malformed reminder key")

type Instant = model.ReminderInstant

// Key derives the alarm name for one (record, offset) pair.
func Key(recordID string, offsetDays int) string {
	return recordID + "_" + strconv.Itoa(offsetDays)
}

func KeyOf(in Instant) string {
	return Key(in.RecordID, in.OffsetDays)
}

// ParseKey splits on the last underscore so record ids may contain one.
func ParseKey(key string) (string, int, error) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	days, err := strconv.Atoi(key[idx+1:])
	if err != nil || days < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return key[:idx], days, nil
}

// Desired lists the instants that should be scheduled for rec. Fire times
// are local midnight of expiry minus offset days, in now's location; those
// not strictly after now are left out.
func Desired(rec model.TrackedRecord, now time.Time) []Instant {
	out := make([]Instant, 0, len(rec.ReminderOffsets))
	for _, days := range rec.ReminderOffsets.Normalized() {
		fireAt := rec.ExpiryDate.AddDays(-days).At(now.Location())
		if !fireAt.After(now) {
			continue
		}
		out = append(out, Instant{RecordID: rec.ID, OffsetDays: days, FireAt: fireAt})
	}
	return out
}

// Missed reports whether the alarm key found at fireAt is one of rec's that
// came due while nothing was running to fire it: its offset is still wanted
// and its fire time is unchanged but no longer in the future. Such an alarm
// is left for an engine to emit late rather than cancelled.
func Missed(rec model.TrackedRecord, key string, fireAt, now time.Time) bool {
	id, days, err := ParseKey(key)
	if err != nil || id != rec.ID || fireAt.IsZero() || fireAt.After(now) {
		return false
	}
	if !rec.ReminderOffsets.Contains(days) {
		return false
	}
	return rec.ExpiryDate.AddDays(-days).At(now.Location()).Equal(fireAt)
}

// Plan is the minimal set of port calls that makes a record's alarms match
// its desired instants.
type Plan struct {
	Create []Instant
	Cancel []string
}

func (p Plan) Empty() bool { return len(p.Create) == 0 && len(p.Cancel) == 0 }

// Reconcile diffs desired against existing alarm keys. Keys of other records
// and keys that do not parse are ignored.
func Reconcile(recordID string, existing []string, desired []Instant) Plan {
	times := make(map[string]time.Time, len(existing))
	for _, key := range existing {
		times[key] = time.Time{}
	}
	return reconcile(recordID, times, desired, false)
}

// ReconcileTimes is Reconcile for ports that report fire times. An existing
// alarm whose fire time differs from the desired one is planned for creation
// again, which replaces it.
func ReconcileTimes(recordID string, existing map[string]time.Time, desired []Instant) Plan {
	return reconcile(recordID, existing, desired, true)
}

func reconcile(recordID string, existing map[string]time.Time, desired []Instant, compareTimes bool) Plan {
	want := make(map[string]Instant, len(desired))
	for _, in := range desired {
		if in.RecordID != recordID {
			continue
		}
		want[KeyOf(in)] = in
	}

	plan := Plan{Create: make([]Instant, 0), Cancel: make([]string, 0)}
	for key, fireAt := range existing {
		id, _, err := ParseKey(key)
		if err != nil || id != recordID {
			continue
		}
		in, ok := want[key]
		if !ok {
			plan.Cancel = append(plan.Cancel, key)
			continue
		}
		if compareTimes && !fireAt.Equal(in.FireAt) {
			continue
		}
		delete(want, key)
	}
	for _, in := range want {
		plan.Create = append(plan.Create, in)
	}

	sort.Slice(plan.Create, func(i, j int) bool {
		return plan.Create[i].OffsetDays > plan.Create[j].OffsetDays
	})
	sort.Strings(plan.Cancel)
	return plan
}
