package records

import (
	"github.com/samber/lo"
	"github.com/sandeepkv93/rightontime/internal/model"
)

// Repair turns a possibly corrupted stored collection into valid records.
// Null entries are dropped; entries with a missing or duplicate id get a
// fresh one (the first holder of an id keeps it); a missing or unparseable
// expiry date becomes today; offsets that are negative or outside allowed are
// dropped (an empty allowed set only drops negatives). changed reports whether the output differs from
// what was stored, so the caller knows to persist it. Repair never fails and
// is idempotent on its own encoded output.
func Repair(raw []RawRecord, today model.Date, allowed model.OffsetSet, newID func() string) ([]model.TrackedRecord, bool) {
	changed := false
	taken := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		if !entry.Null && entry.ID != "" {
			taken[entry.ID] = struct{}{}
		}
	}

	out := make([]model.TrackedRecord, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		if entry.Null {
			changed = true
			continue
		}
		if entry.Legacy {
			changed = true
		}

		id := entry.ID
		if _, dup := seen[id]; id == "" || dup {
			id = freshID(newID, taken)
			changed = true
		}
		seen[id] = struct{}{}
		taken[id] = struct{}{}

		expiry, err := model.ParseDate(entry.ExpiryDate)
		if err != nil {
			expiry = today
			changed = true
		}

		offsets := entry.Offsets.Normalized()
		kept := lo.Filter(offsets, func(days int, _ int) bool {
			return days >= 0 && (len(allowed) == 0 || allowed.Contains(days))
		})
		if len(kept) != len(offsets) {
			changed = true
		}

		out = append(out, model.TrackedRecord{
			ID:              id,
			DocumentType:    model.DocumentType(entry.Type),
			PersonCategory:  model.PersonCategory(entry.Person),
			PersonName:      entry.PersonName,
			ExpiryDate:      expiry,
			Notes:           entry.Notes,
			ReminderOffsets: model.OffsetSet(kept),
			CreatedAt:       entry.CreatedAt,
		})
	}
	return out, changed
}

func freshID(newID func() string, taken map[string]struct{}) string {
	for {
		id := newID()
		if id == "" {
			continue
		}
		if _, clash := taken[id]; !clash {
			return id
		}
	}
}
