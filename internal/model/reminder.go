package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReminderInstant is derived from a record; it is never stored on its own.
type ReminderInstant struct {
	RecordID   string
	OffsetDays int
	FireAt     time.Time
}

func (r ReminderInstant) Validate() error {
	if strings.TrimSpace(r.RecordID) == "" {
		return errors.New("model: reminder record id is required")
	}
	if r.OffsetDays < 0 {
		return fmt.Errorf("model: reminder offset %d is negative", r.OffsetDays)
	}
	if r.FireAt.IsZero() {
		return errors.New("model: reminder fire time is required")
	}
	return nil
}
