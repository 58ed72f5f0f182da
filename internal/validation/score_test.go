package validation

import (
	"testing"
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

func TestHealthScoreArithmetic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)

	tests := []struct {
		name  string
		in    ScoreInput
		token string
		want  int
	}{
		{
			name: "fresh expo token with full device metadata",
			in: ScoreInput{
				CreatedAt:  fresh,
				LastUsed:   &fresh,
				DeviceID:   "d1",
				DeviceName: "iPhone 15",
			},
			token: "ExponentPushToken[fresh-device]",
			want:  100,
		},
		{
			name: "fresh legacy token without metadata",
			in: ScoreInput{
				CreatedAt: fresh,
				LastUsed:  &fresh,
			},
			token: "ExpoPushToken[legacy-device]",
			want:  40 + 20 + 20 + 5,
		},
		{
			name: "invalid old token",
			in: ScoreInput{
				CreatedAt: now.AddDate(0, 0, -365),
			},
			token: "not a token!",
			want:  0 + 5 + 5 + 0,
		},
		{
			name: "month-old token with one device field",
			in: ScoreInput{
				CreatedAt: now.AddDate(0, 0, -20),
				DeviceID:  "d1",
			},
			token: "ExponentPushToken[aging-device]",
			want:  40 + 15 + 5 + 10 + 5,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := HealthScore(now, tt.in, Validate(tt.token))
			if got != tt.want {
				t.Fatalf("HealthScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHealthScoreNewerNeverScoresLower(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Validate("ExponentPushToken[device-42]")

	ages := []int{1, 10, 45, 200}
	prev := domain.MaxValidationScore + 1
	for _, days := range ages {
		at := now.AddDate(0, 0, -days)
		got := HealthScore(now, ScoreInput{CreatedAt: at, LastUsed: &at}, v)
		if got > prev {
			t.Fatalf("score for %d-day-old record = %d, exceeds newer record's %d", days, got, prev)
		}
		prev = got
	}
}

func TestHealthScoreClampsToRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := HealthScore(now, ScoreInput{CreatedAt: now.AddDate(-1, 0, 0)}, Validate(""))
	if got < domain.MinValidationScore || got > domain.MaxValidationScore {
		t.Fatalf("HealthScore() = %d, outside [%d, %d]", got, domain.MinValidationScore, domain.MaxValidationScore)
	}
}
