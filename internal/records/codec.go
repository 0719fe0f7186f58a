package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
)

var ErrMalformedList = errors.New("records: stored record list is not a JSON array")

// RawRecord is one stored entry as found on disk, before repair. Legacy
// shapes are already folded into the current fields; Legacy records that
// some field had to be rewritten.
type RawRecord struct {
	Null       bool
	ID         string
	Type       string
	Person     string
	PersonName string
	ExpiryDate string
	Notes      string
	Offsets    model.OffsetSet
	CreatedAt  time.Time
	Legacy     bool
}

type wireRecord struct {
	ID            json.RawMessage `json:"id"`
	Type          json.RawMessage `json:"type"`
	Person        json.RawMessage `json:"person"`
	For           json.RawMessage `json:"for"`
	PersonName    json.RawMessage `json:"personName"`
	ExpiryDate    json.RawMessage `json:"expiryDate"`
	Notes         json.RawMessage `json:"notes"`
	Notifications json.RawMessage `json:"notifications"`
	CreatedAt     json.RawMessage `json:"createdAt"`
}

// Decode reads a stored record list. Individual entries never fail: anything
// that is not an object decodes as a Null entry for Repair to drop. Only a
// payload that is not an array at all is an error.
func Decode(payload []byte) ([]RawRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []RawRecord{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	out := make([]RawRecord, 0, len(entries))
	for _, entry := range entries {
		out = append(out, decodeEntry(entry))
	}
	return out, nil
}

// Encode writes records in the current shape.
func Encode(list []model.TrackedRecord) ([]byte, error) {
	out := make([]model.TrackedRecord, len(list))
	for i, rec := range list {
		out[i] = rec.Clone()
		if out[i].ReminderOffsets == nil {
			out[i].ReminderOffsets = model.OffsetSet{}
		}
	}
	return json.Marshal(out)
}

func decodeEntry(entry json.RawMessage) RawRecord {
	var w wireRecord
	if err := json.Unmarshal(entry, &w); err != nil || isNull(entry) {
		return RawRecord{Null: true}
	}
	var out RawRecord
	text := func(raw json.RawMessage) string {
		v, ok := decodeString(raw)
		out.Legacy = out.Legacy || !ok
		return v
	}
	out.Type = strings.TrimSpace(text(w.Type))
	out.Person = strings.TrimSpace(text(w.Person))
	out.PersonName = text(w.PersonName)
	out.Notes = text(w.Notes)
	if legacyFor := strings.TrimSpace(text(w.For)); out.Person == "" && legacyFor != "" {
		out.Person = legacyFor
		out.Legacy = true
	}

	id, legacyID := decodeID(w.ID)
	out.ID = id
	out.Legacy = out.Legacy || legacyID

	expiry, legacyExpiry := decodeExpiry(w.ExpiryDate)
	out.ExpiryDate = expiry
	out.Legacy = out.Legacy || legacyExpiry

	offsets, legacyOffsets := decodeOffsets(w.Notifications)
	out.Offsets = offsets
	out.Legacy = out.Legacy || legacyOffsets

	out.CreatedAt = decodeTime(w.CreatedAt)
	return out
}

// decodeString reads an optional text field. A value of any other JSON type
// reads as empty and reports !ok so the entry gets rewritten.
func decodeString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeID(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "undefined" || s == "null" {
			return "", false
		}
		return s, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func decodeExpiry(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if len(s) > len(model.DateLayout) {
		if _, err := model.ParseDate(s[:len(model.DateLayout)]); err == nil {
			return s[:len(model.DateLayout)], true
		}
	}
	return s, false
}

// decodeOffsets accepts the array shape and the legacy
// {"days90":true,...} object shape.
func decodeOffsets(raw json.RawMessage) (model.OffsetSet, bool) {
	if isNull(raw) {
		return model.OffsetSet{}, true
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err == nil {
		set := model.NewOffsetSet(list...)
		return set, !sameOrder(list, set)
	}
	var flags map[string]bool
	if err := json.Unmarshal(raw, &flags); err == nil {
		days := make([]int, 0, len(flags))
		keys := make([]string, 0, len(flags))
		for k := range flags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !flags[k] {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(k, "days"))
			if err != nil || n < 0 {
				continue
			}
			days = append(days, n)
		}
		return model.NewOffsetSet(days...), true
	}
	return model.OffsetSet{}, true
}

func decodeTime(raw json.RawMessage) time.Time {
	if isNull(raw) {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func sameOrder(list []int, set model.OffsetSet) bool {
	if len(list) != len(set) {
		return false
	}
	for i := range list {
		if list[i] != set[i] {
			return false
		}
	}
	return true
}
