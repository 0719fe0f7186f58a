package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// OffsetSet is a normalized set of days-before-expiry, sorted descending.
type OffsetSet []int

var DefaultOffsets = OffsetSet{90, 60, 30}

func NewOffsetSet(days ...int) OffsetSet {
	out := OffsetSet(lo.Uniq(days))
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// ParseOffsets reads a comma separated list such as "90,30".
// An empty string yields an empty set.
func ParseOffsets(raw string) (OffsetSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return OffsetSet{}, nil
	}
	days := make([]int, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &ValidationError{Field: "reminderOffsets", Reason: fmt.Sprintf("%q is not a number", part)}
		}
		days = append(days, n)
	}
	return NewOffsetSet(days...), nil
}

func (s OffsetSet) Contains(days int) bool {
	return lo.Contains(s, days)
}

// Normalized returns s de-duplicated and sorted descending.
func (s OffsetSet) Normalized() OffsetSet {
	return NewOffsetSet(s...)
}

// Outside returns the offsets of s missing from allowed.
func (s OffsetSet) Outside(allowed OffsetSet) []int {
	return lo.Filter(s, func(d int, _ int) bool { return !allowed.Contains(d) })
}

func (s OffsetSet) Equal(other OffsetSet) bool {
	a, b := s.Normalized(), other.Normalized()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s OffsetSet) Clone() OffsetSet {
	out := make(OffsetSet, len(s))
	copy(out, s)
	return out
}

func (s OffsetSet) String() string {
	if len(s) == 0 {
		return "none"
	}
	parts := lo.Map(s, func(d int, _ int) string { return strconv.Itoa(d) })
	return strings.Join(parts, ",")
}

// Validate checks non-negativity and membership in allowed. A nil allowed
// set accepts any non-negative offset.
func (s OffsetSet) Validate(allowed OffsetSet) error {
	for _, d := range s {
		if d < 0 {
			return &ValidationError{Field: "reminderOffsets", Reason: fmt.Sprintf("offset %d is negative", d)}
		}
	}
	if allowed == nil {
		return nil
	}
	if bad := s.Outside(allowed); len(bad) > 0 {
		return &ValidationError{Field: "reminderOffsets", Reason: fmt.Sprintf("offset %d not in allowed set %s", bad[0], allowed)}
	}
	return nil
}
