package scheduler

import (
	"context"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
	"go.uber.org/multierr"
)

// NotificationPort is the host alarm facility reminders are scheduled on.
type NotificationPort interface {
	ScheduleAt(ctx context.Context, key string, fireAt time.Time) error
	Cancel(ctx context.Context, key string) error
	ListScheduled(ctx context.Context) ([]string, error)
}

// FireTimer is implemented by ports that can report when each alarm fires.
type FireTimer interface {
	FireTimes(ctx context.Context) (map[string]time.Time, error)
}

// Existing reads the port's current alarms. Ports without fire times report
// zero times.
func Existing(ctx context.Context, port NotificationPort) (map[string]time.Time, bool, error) {
	if ft, ok := port.(FireTimer); ok {
		times, err := ft.FireTimes(ctx)
		return times, true, err
	}
	keys, err := port.ListScheduled(ctx)
	if err != nil {
		return nil, false, err
	}
	out := make(map[string]time.Time, len(keys))
	for _, key := range keys {
		out[key] = time.Time{}
	}
	return out, false, nil
}

// PlanFor computes the plan for one record against the port's alarms.
func PlanFor(recordID string, existing map[string]time.Time, timed bool, desired []Instant) Plan {
	if timed {
		return ReconcileTimes(recordID, existing, desired)
	}
	keys := make([]string, 0, len(existing))
	for key := range existing {
		keys = append(keys, key)
	}
	return Reconcile(recordID, keys, desired)
}

// Result counts the calls Apply made successfully.
type Result struct {
	Created   int
	Cancelled int
}

// Apply cancels first, then creates. Every call is attempted; failures are
// collected as SchedulingErrors and combined. An instant that fails
// validation is never handed to the port.
func Apply(ctx context.Context, port NotificationPort, plan Plan) (Result, error) {
	var res Result
	var errs error
	for _, key := range plan.Cancel {
		if err := port.Cancel(ctx, key); err != nil {
			errs = multierr.Append(errs, &model.SchedulingError{Op: "cancel", Key: key, Err: err})
			continue
		}
		res.Cancelled++
	}
	for _, in := range plan.Create {
		key := KeyOf(in)
		if err := in.Validate(); err != nil {
			errs = multierr.Append(errs, &model.SchedulingError{Op: "create", Key: key, Err: err})
			continue
		}
		if err := port.ScheduleAt(ctx, key, in.FireAt); err != nil {
			errs = multierr.Append(errs, &model.SchedulingError{Op: "create", Key: key, Err: err})
			continue
		}
		res.Created++
	}
	return res, errs
}
