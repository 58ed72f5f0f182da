package domain

import (
	"fmt"
	"strings"
)

// ResolutionSource tells where a resolution result came from.
type ResolutionSource string

const (
	SourcePrimary  ResolutionSource = "PRIMARY"
	SourceCache    ResolutionSource = "CACHE"
	SourceFallback ResolutionSource = "FALLBACK"
)

func (s ResolutionSource) String() string { return string(s) }

// ResolutionKey identifies one cached resolution scope.
type ResolutionKey struct {
	ClientID      string
	ProjectID     string
	RecipientType UserType
}

func (k ResolutionKey) Validate() error {
	if strings.TrimSpace(k.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if !k.RecipientType.IsValid() {
		return fmt.Errorf("%w: invalid recipient type %q", ErrValidation, k.RecipientType)
	}
	return nil
}

// String renders the cache key. An unscoped project renders as "-" so key
// layouts stay fixed-width per client.
func (k ResolutionKey) String() string {
	project := strings.TrimSpace(k.ProjectID)
	if project == "" {
		project = "-"
	}
	return fmt.Sprintf("recipients:%s:%s:%s", k.ClientID, project, strings.ToLower(k.RecipientType.String()))
}

// Recipient is one deliverable target: a user with a concrete device token.
type Recipient struct {
	UserID   string      `json:"userId"`
	FullName string      `json:"fullName,omitempty"`
	UserType UserType    `json:"userType"`
	Token    string      `json:"token"`
	Platform Platform    `json:"platform"`
	Format   TokenFormat `json:"format,omitempty"`
}

// ResolutionResult is the transient, cacheable outcome of one recipient
// resolution. It is replaced wholesale, never partially updated.
type ResolutionResult struct {
	Key                ResolutionKey    `json:"key"`
	Recipients         []Recipient      `json:"recipients"`
	Source             ResolutionSource `json:"source"`
	Errors             []string         `json:"errors,omitempty"`
	ResolutionTimeMs   int64            `json:"resolutionTimeMs"`
	RecipientCount     int              `json:"recipientCount"`
	DeduplicationCount int              `json:"deduplicationCount"`
}
