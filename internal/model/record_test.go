package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validRecord() TrackedRecord {
	return TrackedRecord{
		ID:              "rec-1",
		DocumentType:    DocumentPassport,
		PersonCategory:  PersonSelf,
		ExpiryDate:      MustDate(2027, time.March, 14),
		ReminderOffsets: NewOffsetSet(90, 30),
	}
}

func TestRecordValidateSuccess(t *testing.T) {
	if err := validRecord().Validate(DefaultOffsets); err != nil {
		t.Fatalf("expected valid record, got error: %v", err)
	}
}

func TestRecordValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*TrackedRecord)
		field string
	}{
		{"missing type", func(r *TrackedRecord) { r.DocumentType = "" }, "documentType"},
		{"unknown type", func(r *TrackedRecord) { r.DocumentType = "greencard" }, "documentType"},
		{"missing person", func(r *TrackedRecord) { r.PersonCategory = "" }, "personCategory"},
		{"unknown person", func(r *TrackedRecord) { r.PersonCategory = "cousin" }, "personCategory"},
		{"missing expiry", func(r *TrackedRecord) { r.ExpiryDate = Date{} }, "expiryDate"},
		{"offset outside allowed", func(r *TrackedRecord) { r.ReminderOffsets = NewOffsetSet(45) }, "reminderOffsets"},
	}
	for _, tc := range cases {
		rec := validRecord()
		tc.edit(&rec)
		err := rec.Validate(DefaultOffsets)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %v", tc.name, tc.field, err)
		}
	}
}

func TestRecordEmptyOffsetsAreLegal(t *testing.T) {
	rec := validRecord()
	rec.ReminderOffsets = OffsetSet{}
	if err := rec.Validate(DefaultOffsets); err != nil {
		t.Fatalf("expected empty offsets to be legal, got %v", err)
	}
}

func TestDisplayNamePrefersPersonName(t *testing.T) {
	rec := validRecord()
	if got := rec.DisplayName(); got != "Self" {
		t.Fatalf("display name = %q, want Self", got)
	}
	rec.PersonName = "   "
	if got := rec.DisplayName(); got != "Self" {
		t.Fatalf("blank name should fall back, got %q", got)
	}
	rec.PersonName = "  Asha "
	if got := rec.DisplayName(); got != "Asha" {
		t.Fatalf("display name = %q, want Asha", got)
	}
}

func TestDocumentTypeLabels(t *testing.T) {
	if DocumentEAD.Label() != "EAD/AP" || DocumentDL.Label() != "Driver's License" {
		t.Fatalf("unexpected labels: %q %q", DocumentEAD.Label(), DocumentDL.Label())
	}
	if DocumentType("mystery").Label() != "mystery" {
		t.Fatal("unknown type should label as its tag")
	}
	for _, dt := range DocumentTypes {
		if !dt.IsValid() {
			t.Fatalf("expected %q valid", dt)
		}
	}
}

func TestRecordJSONShape(t *testing.T) {
	rec := validRecord()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if generic["expiryDate"] != "2027-03-14" || generic["type"] != "passport" || generic["person"] != "self" {
		t.Fatalf("unexpected wire shape: %s", raw)
	}
}

func TestCloneDoesNotShareOffsets(t *testing.T) {
	rec := validRecord()
	cp := rec.Clone()
	cp.ReminderOffsets[0] = 60
	if rec.ReminderOffsets[0] != 90 {
		t.Fatalf("clone shares offsets: %v", rec.ReminderOffsets)
	}
}
