// Package validation implements pure push-token format validation and health
// scoring. Nothing here touches the network, the clock, or the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

const (
	// MinTokenLength and MaxTokenLength bound every accepted token value.
	MinTokenLength = 10
	MaxTokenLength = 4096

	// fcmMinLength is the minimum length of the flat alphanumeric family. The
	// platform is unknown at validation time, so the shorter web-token bound
	// is the effective one.
	fcmMinLength = 100

	// apnsTokenLength is the fixed hex-token length.
	apnsTokenLength = 64
)

var (
	charsetRe    = regexp.MustCompile(`^[A-Za-z0-9_\-\[\]]+$`)
	expoModernRe = regexp.MustCompile(`^ExponentPushToken\[[A-Za-z0-9_\-]+\]$`)
	expoLegacyRe = regexp.MustCompile(`^ExpoPushToken\[[A-Za-z0-9_\-]+\]$`)
	flatRe       = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	hexRe        = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

const unregisteredSentinel = "ExponentPushToken[unregistered]"

// Metadata describes the recognized shape of a token value.
type Metadata struct {
	Format   domain.TokenFormat `json:"format"`
	IsLegacy bool               `json:"isLegacy"`
}

// Result is the outcome of validating one token value. Errors are descriptive
// strings; validation never fails with a Go error.
type Result struct {
	IsValid  bool               `json:"isValid"`
	Format   domain.TokenFormat `json:"format"`
	Errors   []string           `json:"errors,omitempty"`
	Metadata Metadata           `json:"metadata"`
}

func invalid(format domain.TokenFormat, errs ...string) Result {
	return Result{
		IsValid:  false,
		Format:   format,
		Errors:   errs,
		Metadata: Metadata{Format: format},
	}
}

// Validate classifies a token value into exactly one of the three mutually
// exclusive format families, or UNKNOWN. Identical input always yields an
// identical result.
func Validate(token string) Result {
	if token == "" {
		return invalid(domain.FormatUnknown, "token is empty")
	}
	if len(token) < MinTokenLength {
		return invalid(domain.FormatUnknown,
			fmt.Sprintf("token is shorter than %d characters", MinTokenLength))
	}
	if len(token) > MaxTokenLength {
		return invalid(domain.FormatUnknown,
			fmt.Sprintf("token is longer than %d characters", MaxTokenLength))
	}
	if !charsetRe.MatchString(token) {
		return invalid(domain.FormatUnknown, "token contains invalid characters")
	}

	if expoModernRe.MatchString(token) {
		if token == unregisteredSentinel {
			return invalid(domain.FormatExpo, "token is the unregistered placeholder")
		}
		return Result{
			IsValid:  true,
			Format:   domain.FormatExpo,
			Metadata: Metadata{Format: domain.FormatExpo},
		}
	}
	if expoLegacyRe.MatchString(token) {
		return Result{
			IsValid:  true,
			Format:   domain.FormatExpoLegacy,
			Metadata: Metadata{Format: domain.FormatExpoLegacy, IsLegacy: true},
		}
	}

	// The hex family is checked before the flat family so a value matching
	// both is classified exactly once.
	if hexRe.MatchString(token) {
		return Result{
			IsValid:  true,
			Format:   domain.FormatAPNS,
			Metadata: Metadata{Format: domain.FormatAPNS},
		}
	}

	if flatRe.MatchString(token) && !strings.ContainsAny(token, "[]") {
		if len(token) >= fcmMinLength {
			return Result{
				IsValid:  true,
				Format:   domain.FormatFCM,
				Metadata: Metadata{Format: domain.FormatFCM},
			}
		}
	}

	return invalid(domain.FormatUnknown, "token format not recognized")
}
