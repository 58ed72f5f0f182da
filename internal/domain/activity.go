package domain

import (
	"fmt"
	"strings"
)

// ActivityKind discriminates the activity payload variants produced by the
// surrounding routes (material updates, staff changes, property transfers).
type ActivityKind string

const (
	ActivityMaterial      ActivityKind = "MATERIAL_ACTIVITY"
	ActivityTransfer      ActivityKind = "PROPERTY_TRANSFER"
	ActivityStaffAssigned ActivityKind = "STAFF_ASSIGNED"
	ActivityStaffRemoved  ActivityKind = "STAFF_REMOVED"
)

func (k ActivityKind) String() string { return string(k) }

func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityMaterial, ActivityTransfer, ActivityStaffAssigned, ActivityStaffRemoved:
		return true
	}
	return false
}

func ParseActivityKindFromString(s string) (ActivityKind, error) {
	k := ActivityKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid activity kind %q", ErrValidation, s)
	}
	return k, nil
}

// ActivityUser identifies the user that performed the activity.
type ActivityUser struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
}

// Activity is the tagged payload delivered by the activity-producing routes.
// ClientID/ProjectID describe the destination scope; SourceClientID and
// SourceProjectID are set only for transfers and describe where the property
// was transferred out of.
type Activity struct {
	Kind            ActivityKind `json:"kind"`
	ClientID        string       `json:"clientId"`
	ProjectID       string       `json:"projectId,omitempty"`
	SourceClientID  string       `json:"sourceClientId,omitempty"`
	SourceProjectID string       `json:"sourceProjectId,omitempty"`
	User            ActivityUser `json:"user"`
	Materials       []string     `json:"materials,omitempty"`
	Description     string       `json:"description,omitempty"`
	Message         string       `json:"message,omitempty"`
}

func (a *Activity) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: activity is required", ErrValidation)
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: invalid activity kind %q", ErrValidation, a.Kind)
	}
	if strings.TrimSpace(a.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if a.Kind == ActivityTransfer && strings.TrimSpace(a.SourceClientID) == "" {
		return fmt.Errorf("%w: transfer requires a source client id", ErrValidation)
	}
	return nil
}

// NotificationPlan is the derived recipient scope and message text for one
// delivery of an activity.
type NotificationPlan struct {
	ClientID      string
	ProjectID     string
	RecipientType UserType
	Title         string
	Body          string
}

// Plan derives the primary notification for the activity. One pure mapping per
// variant; no field-presence sniffing.
func (a *Activity) Plan() (NotificationPlan, error) {
	if err := a.Validate(); err != nil {
		return NotificationPlan{}, err
	}

	switch a.Kind {
	case ActivityMaterial:
		return NotificationPlan{
			ClientID:      a.ClientID,
			ProjectID:     a.ProjectID,
			RecipientType: UserTypeStaff,
			Title:         "Material update",
			Body:          materialBody(a),
		}, nil
	case ActivityTransfer:
		return NotificationPlan{
			ClientID:      a.ClientID,
			ProjectID:     a.ProjectID,
			RecipientType: UserTypeStaff,
			Title:         "Property transferred in",
			Body:          transferBody(a, "transferred in"),
		}, nil
	case ActivityStaffAssigned:
		return NotificationPlan{
			ClientID:      a.ClientID,
			ProjectID:     a.ProjectID,
			RecipientType: UserTypeClientAdmin,
			Title:         "Staff assigned",
			Body:          staffBody(a, "was assigned"),
		}, nil
	case ActivityStaffRemoved:
		return NotificationPlan{
			ClientID:      a.ClientID,
			ProjectID:     a.ProjectID,
			RecipientType: UserTypeClientAdmin,
			Title:         "Staff removed",
			Body:          staffBody(a, "was removed"),
		}, nil
	}

	return NotificationPlan{}, fmt.Errorf("%w: invalid activity kind %q", ErrValidation, a.Kind)
}

// SecondaryPlan derives the "transferred out" notification for the transfer
// source scope. It returns false for every non-transfer kind.
func (a *Activity) SecondaryPlan() (NotificationPlan, bool) {
	if a == nil || a.Kind != ActivityTransfer {
		return NotificationPlan{}, false
	}

	return NotificationPlan{
		ClientID:      a.SourceClientID,
		ProjectID:     a.SourceProjectID,
		RecipientType: UserTypeStaff,
		Title:         "Property transferred out",
		Body:          transferBody(a, "transferred out"),
	}, true
}

func materialBody(a *Activity) string {
	if msg := strings.TrimSpace(a.Message); msg != "" {
		return msg
	}
	if len(a.Materials) == 0 {
		return fmt.Sprintf("%s updated materials", actorName(a))
	}
	return fmt.Sprintf("%s updated %d material(s): %s",
		actorName(a), len(a.Materials), strings.Join(a.Materials, ", "))
}

func transferBody(a *Activity, direction string) string {
	if msg := strings.TrimSpace(a.Message); msg != "" {
		return msg
	}
	desc := strings.TrimSpace(a.Description)
	if desc == "" {
		desc = "property"
	}
	return fmt.Sprintf("%s %s by %s", desc, direction, actorName(a))
}

func staffBody(a *Activity, verb string) string {
	if msg := strings.TrimSpace(a.Message); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s %s", actorName(a), verb)
}

func actorName(a *Activity) string {
	if name := strings.TrimSpace(a.User.FullName); name != "" {
		return name
	}
	return "A user"
}
