package domain

import (
	"fmt"
	"strings"
)

// PushPayload is the message content delivered to every recipient of one call.
type PushPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority Priority          `json:"priority,omitempty"`
}

func (p *PushPayload) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: payload requires a title or body", ErrValidation)
	}
	if p.Priority != "" && !p.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, p.Priority)
	}
	return nil
}

// Priority is the gateway delivery priority.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// NotificationDeliveryResult is the immutable outcome of one delivery call.
// RecipientCount is taken after self-notification filtering but before token
// validity filtering, so deliveredCount+failedCount always equals it.
type NotificationDeliveryResult struct {
	NotificationID   string   `json:"notificationId"`
	RecipientCount   int      `json:"recipientCount"`
	DeliveredCount   int      `json:"deliveredCount"`
	FailedCount      int      `json:"failedCount"`
	Errors           []string `json:"errors,omitempty"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
}

// ActivityDeliveryResult groups the delivery outcomes of one activity.
// Secondary is set only for transfer activities ("transferred out" scope).
// Success is the conjunction of both deliveries completing without failures.
type ActivityDeliveryResult struct {
	Primary   *NotificationDeliveryResult `json:"primary"`
	Secondary *NotificationDeliveryResult `json:"secondary,omitempty"`
	Success   bool                        `json:"success"`
}
