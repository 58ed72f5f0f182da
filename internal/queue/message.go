package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// ActivityMessage is the broker payload for activity-driven delivery.
type ActivityMessage struct {
	ActivityID    string          `json:"activityId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Activity      domain.Activity `json:"activity"`
}

func (m ActivityMessage) Validate() error {
	if strings.TrimSpace(m.ActivityID) == "" {
		return fmt.Errorf("activityId is required")
	}
	if err := m.Activity.Validate(); err != nil {
		return fmt.Errorf("invalid activity: %w", err)
	}
	return nil
}
