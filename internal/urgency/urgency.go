// Package urgency maps an expiry date to days remaining and a coarse tier.
package urgency

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/rightontime/internal/model"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

const (
	HighThreshold   = 30
	MediumThreshold = 60
	// UrgentWindow is the horizon of the "urgent" list filter.
	UrgentWindow = 90
)

// DaysRemaining counts whole calendar days from today's date (in today's
// location) to expiry. Tomorrow is always 1, today is 0, yesterday is -1.
func DaysRemaining(expiry model.Date, today time.Time) int {
	return model.DateOf(today).DaysUntil(expiry)
}

// TierFor is non-increasing in days; expired records stay high.
func TierFor(days int) Tier {
	switch {
	case days <= HighThreshold:
		return TierHigh
	case days <= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

func TierOf(expiry model.Date, today time.Time) Tier {
	return TierFor(DaysRemaining(expiry, today))
}

func IsUrgent(days int) bool {
	return days <= UrgentWindow
}

func DaysText(days int) string {
	switch {
	case days < 0:
		return "Expired"
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}
