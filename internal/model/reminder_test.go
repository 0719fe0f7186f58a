package model

import (
	"testing"
	"time"
)

func TestReminderInstantValidateSuccess(t *testing.T) {
	rem := ReminderInstant{
		RecordID:   "rec-1",
		OffsetDays: 30,
		FireAt:     time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
	}
	if err := rem.Validate(); err != nil {
		t.Fatalf("expected valid reminder, got error: %v", err)
	}
}

func TestReminderInstantValidateRejectsNegativeOffset(t *testing.T) {
	rem := ReminderInstant{RecordID: "rec-1", OffsetDays: -1, FireAt: time.Now()}
	if err := rem.Validate(); err == nil {
		t.Fatal("expected error, got nil")
	}
}
