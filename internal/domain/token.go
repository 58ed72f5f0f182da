package domain

import (
	"fmt"
	"strings"
	"time"
)

// UserType represents the role of a token owner.
type UserType string

const (
	UserTypeAdmin       UserType = "ADMIN"
	UserTypeStaff       UserType = "STAFF"
	UserTypeClientAdmin UserType = "CLIENT_ADMIN"
	UserTypeCustomer    UserType = "CUSTOMER"
)

func (u UserType) String() string { return string(u) }

func (u UserType) IsValid() bool {
	switch u {
	case UserTypeAdmin, UserTypeStaff, UserTypeClientAdmin, UserTypeCustomer:
		return true
	}
	return false
}

func ParseUserTypeFromString(s string) (UserType, error) {
	u := UserType(strings.ToUpper(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: invalid user type %q", ErrValidation, s)
	}
	return u, nil
}

// Platform represents the device platform a token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "IOS"
	PlatformAndroid Platform = "ANDROID"
	PlatformWeb     Platform = "WEB"
)

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

func ParsePlatformFromString(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid platform %q", ErrValidation, s)
	}
	return p, nil
}

// TokenFormat is the syntactic family a push token belongs to.
type TokenFormat string

const (
	FormatExpo       TokenFormat = "EXPO"
	FormatExpoLegacy TokenFormat = "EXPO_LEGACY"
	FormatFCM        TokenFormat = "FCM"
	FormatAPNS       TokenFormat = "APNS"
	FormatUnknown    TokenFormat = "UNKNOWN"
)

func (f TokenFormat) String() string { return string(f) }

// IsBracketed reports whether the format is one of the bracketed identifier variants.
func (f TokenFormat) IsBracketed() bool {
	return f == FormatExpo || f == FormatExpoLegacy
}

// Health score boundaries.
const (
	MinValidationScore = 0
	MaxValidationScore = 100
)

// PushToken is the stored device-token record.
type PushToken struct {
	ID         string
	UserID     string
	UserType   UserType
	Token      string
	Platform   Platform
	DeviceID   string
	DeviceName string
	IsActive   bool

	ValidationScore int
	IsHealthy       bool
	FailureCount    int
	LastHealthCheck *time.Time
	LastFailure     *time.Time

	Format   TokenFormat
	IsLegacy bool

	DeactivationReason *string
	DeactivatedAt      *time.Time
	LastUsed           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (t *PushToken) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: token record is required", ErrValidation)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Token) == "" {
		return fmt.Errorf("%w: token value is required", ErrValidation)
	}
	if !t.UserType.IsValid() {
		return fmt.Errorf("%w: invalid user type %q", ErrValidation, t.UserType)
	}
	if !t.Platform.IsValid() {
		return fmt.Errorf("%w: invalid platform %q", ErrValidation, t.Platform)
	}
	if t.ValidationScore < MinValidationScore || t.ValidationScore > MaxValidationScore {
		return fmt.Errorf("%w: validation score %d out of range", ErrValidation, t.ValidationScore)
	}
	return nil
}

// TokenValidationError is one entry in a token's ordered error log.
type TokenValidationError struct {
	ID        string
	TokenID   string
	Error     string
	CreatedAt time.Time
}

// DeactivationDecision is the pure policy deciding whether a token must be
// deactivated after a new failure was counted. failureCount is the
// post-increment value.
func DeactivationDecision(failureCount, threshold int) (bool, string) {
	if threshold <= 0 {
		threshold = 5
	}
	if failureCount < threshold {
		return false, ""
	}
	return true, fmt.Sprintf("auto-deactivated after %d delivery failures", failureCount)
}

// DirectoryUser is a resolvable notification target owned by a client.
type DirectoryUser struct {
	UserID   string
	ClientID string
	UserType UserType
	FullName string
}
