package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/urgency"
)

const DateFormat = "January 2, 2006"

type Filter string

const (
	FilterAll      Filter = "all"
	FilterPersonal Filter = "personal"
	FilterFamily   Filter = "family"
	FilterUrgent   Filter = "urgent"
)

var Filters = []Filter{FilterAll, FilterPersonal, FilterFamily, FilterUrgent}

func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	if f == "" {
		return FilterAll, nil
	}
	if !lo.Contains(Filters, f) {
		return "", fmt.Errorf("unknown filter %q (want all, personal, family or urgent)", raw)
	}
	return f, nil
}

// Match reports whether rec belongs under f. Personal means the self
// category, family everyone else, urgent anything within the urgent window,
// expired included.
func (f Filter) Match(rec model.TrackedRecord, now time.Time) bool {
	switch f {
	case FilterPersonal:
		return rec.PersonCategory == model.PersonSelf
	case FilterFamily:
		return rec.PersonCategory != model.PersonSelf
	case FilterUrgent:
		return urgency.IsUrgent(urgency.DaysRemaining(rec.ExpiryDate, now))
	default:
		return true
	}
}

func Apply(list []model.TrackedRecord, f Filter, now time.Time) []model.TrackedRecord {
	return lo.Filter(list, func(rec model.TrackedRecord, _ int) bool {
		return f.Match(rec, now)
	})
}

// SortByExpiry returns a copy ordered by expiry ascending. Equal expiries
// keep their stored order.
func SortByExpiry(list []model.TrackedRecord) []model.TrackedRecord {
	out := append([]model.TrackedRecord(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out
}

type PersonGroup struct {
	Category model.PersonCategory
	Label    string
	Records  []model.TrackedRecord
}

// GroupByPerson groups by category in form order, each group sorted by
// expiry. Empty groups are omitted.
func GroupByPerson(list []model.TrackedRecord) []PersonGroup {
	byCategory := lo.GroupBy(list, func(rec model.TrackedRecord) model.PersonCategory {
		return rec.PersonCategory
	})
	out := make([]PersonGroup, 0, len(byCategory))
	for _, cat := range model.PersonCategories {
		recs, ok := byCategory[cat]
		if !ok {
			continue
		}
		out = append(out, PersonGroup{Category: cat, Label: cat.Label(), Records: SortByExpiry(recs)})
	}
	return out
}

func FormatDate(d model.Date) string {
	return d.Format(DateFormat)
}

// Title reads like "Asha's H1B".
func Title(rec model.TrackedRecord) string {
	return fmt.Sprintf("%s's %s", rec.DisplayName(), rec.DocumentType.Label())
}

type Row struct {
	ID       string
	Type     string
	Person   string
	Expiry   string
	Days     int
	DaysText string
	Tier     urgency.Tier
	Offsets  string
}

func RowOf(rec model.TrackedRecord, now time.Time) Row {
	days := urgency.DaysRemaining(rec.ExpiryDate, now)
	return Row{
		ID:       rec.ID,
		Type:     rec.DocumentType.Label(),
		Person:   rec.DisplayName(),
		Expiry:   FormatDate(rec.ExpiryDate),
		Days:     days,
		DaysText: urgency.DaysText(days),
		Tier:     urgency.TierFor(days),
		Offsets:  rec.ReminderOffsets.String(),
	}
}

func Rows(list []model.TrackedRecord, now time.Time) []Row {
	return lo.Map(list, func(rec model.TrackedRecord, _ int) Row {
		return RowOf(rec, now)
	})
}
