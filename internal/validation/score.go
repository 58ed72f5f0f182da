package validation

import (
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// ScoreInput is the slice of a token record the health score depends on.
type ScoreInput struct {
	CreatedAt  time.Time
	LastUsed   *time.Time
	DeviceID   string
	DeviceName string
}

// Age bucket boundaries in days. Newer records score higher; the same buckets
// apply to creation age and recency of use.
const (
	bucketWeek    = 7
	bucketMonth   = 30
	bucketQuarter = 90
)

// HealthScore computes the 0..100 health score for a token record given its
// validation result. Holding everything else equal, a record with strictly
// newer createdAt and lastUsed never scores lower than an older one.
func HealthScore(now time.Time, in ScoreInput, v Result) int {
	score := 0
	if v.IsValid {
		score = 40
	}

	score += recencyPoints(now, in.CreatedAt)

	if in.LastUsed != nil {
		score += recencyPoints(now, *in.LastUsed)
	} else {
		score += 5
	}

	switch {
	case v.Format == domain.FormatExpo:
		score += 10
	case v.Format == domain.FormatExpoLegacy:
		score += 5
	}

	hasID := in.DeviceID != ""
	hasName := in.DeviceName != ""
	switch {
	case hasID && hasName:
		score += 10
	case hasID || hasName:
		score += 5
	}

	if score < domain.MinValidationScore {
		return domain.MinValidationScore
	}
	if score > domain.MaxValidationScore {
		return domain.MaxValidationScore
	}
	return score
}

func recencyPoints(now, at time.Time) int {
	days := int(now.Sub(at).Hours() / 24)
	switch {
	case days < bucketWeek:
		return 20
	case days < bucketMonth:
		return 15
	case days < bucketQuarter:
		return 10
	default:
		return 5
	}
}
