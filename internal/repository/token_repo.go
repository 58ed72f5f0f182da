package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository is the persistence port for push-token records.
type TokenRepository interface {
	Register(ctx context.Context, t *domain.PushToken) error
	GetByToken(ctx context.Context, token string) (*domain.PushToken, error)
	RecordUse(ctx context.Context, token string) error
	RecordFailure(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error)
	Deactivate(ctx context.Context, token string, reason string) error
	ValidationErrors(ctx context.Context, tokenID string) ([]domain.TokenValidationError, error)
	FindHealthyForUsers(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error)
	FindStaleOrUnhealthy(ctx context.Context, maxAgeDays int) ([]domain.PushToken, error)
	FindActive(ctx context.Context) ([]domain.PushToken, error)
	UpdateHealth(ctx context.Context, tokenID string, score int, healthy bool, checkedAt time.Time) error
	DeleteByIDs(ctx context.Context, tokenIDs []string) (int64, error)
	Analytics(ctx context.Context) (*domain.TokenAnalytics, error)
}

type GormTokenRepo struct {
	db *gorm.DB

	// failureThreshold feeds the pure deactivation decision applied after
	// each counted failure.
	failureThreshold int
	now              func() time.Time
}

func NewGormTokenRepo(db *gorm.DB, failureThreshold int) *GormTokenRepo {
	return &GormTokenRepo{
		db:               db,
		failureThreshold: failureThreshold,
		now:              time.Now,
	}
}

// Register upserts a token record by its globally unique token value. A
// re-registration refreshes ownership and device metadata, reactivates the
// token, and resets the failure history.
func (r *GormTokenRepo) Register(ctx context.Context, t *domain.PushToken) error {
	if err := t.Validate(); err != nil {
		return err
	}

	model := tokenModelFromDomain(t)
	if strings.TrimSpace(model.ID) == "" {
		model.ID = uuid.NewString()
	}
	model.IsActive = true
	model.FailureCount = 0
	model.DeactivationReason = nil
	model.DeactivatedAt = nil
	model.LastFailure = nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "user_type", "platform", "device_id", "device_name",
				"is_active", "failure_count", "deactivation_reason", "deactivated_at",
				"validation_score", "is_healthy", "last_health_check", "last_failure",
				"format", "is_legacy", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	*t = *tokenModelToDomain(model)
	return nil
}

func (r *GormTokenRepo) GetByToken(ctx context.Context, token string) (*domain.PushToken, error) {
	var model PushTokenModel
	err := r.db.WithContext(ctx).First(&model, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tokenModelToDomain(&model), nil
}

func (r *GormTokenRepo) RecordUse(ctx context.Context, token string) error {
	result := r.db.WithContext(ctx).
		Model(&PushTokenModel{}).
		Where("token = ?", token).
		Update("last_used", r.now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordFailure appends to the token's error log, increments its failure
// counter with a true SQL increment (no read-modify-write race), and applies
// the deactivation policy against the post-increment count.
func (r *GormTokenRepo) RecordFailure(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error) {
	now := r.now().UTC()

	var model PushTokenModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&PushTokenModel{}).
			Where("token = ?", token).
			Updates(map[string]any{
				"failure_count": gorm.Expr("failure_count + 1"),
				"last_failure":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.First(&model, "token = ?", token).Error; err != nil {
			return err
		}

		entry := TokenValidationErrorModel{
			ID:        uuid.NewString(),
			TokenID:   model.ID,
			Error:     errorMsg,
			CreatedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		deactivate, reason := domain.DeactivationDecision(model.FailureCount, r.failureThreshold)
		if deactivate && model.IsActive {
			updates := map[string]any{
				"is_active":           false,
				"deactivation_reason": reason,
				"deactivated_at":      now,
			}
			if err := tx.Model(&PushTokenModel{}).Where("id = ?", model.ID).Updates(updates).Error; err != nil {
				return err
			}
			model.IsActive = false
			model.DeactivationReason = &reason
			model.DeactivatedAt = &now
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return tokenModelToDomain(&model), nil
}

// Deactivate is idempotent: deactivating an already-inactive token is a
// successful no-op.
func (r *GormTokenRepo) Deactivate(ctx context.Context, token string, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: deactivation reason is required", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Model(&PushTokenModel{}).
		Where("token = ? AND is_active = ?", token, true).
		Updates(map[string]any{
			"is_active":           false,
			"deactivation_reason": reason,
			"deactivated_at":      r.now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Distinguish the no-op from a missing record.
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&PushTokenModel{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTokenRepo) ValidationErrors(ctx context.Context, tokenID string) ([]domain.TokenValidationError, error) {
	var models []TokenValidationErrorModel
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TokenValidationError, 0, len(models))
	for i := range models {
		entries = append(entries, domain.TokenValidationError{
			ID:        models[i].ID,
			TokenID:   models[i].TokenID,
			Error:     models[i].Error,
			CreatedAt: models[i].CreatedAt,
		})
	}
	return entries, nil
}

func (r *GormTokenRepo) FindHealthyForUsers(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var models []PushTokenModel
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ? AND is_healthy = ? AND validation_score >= ?",
			userIDs, true, true, minScore).
		Order("user_id ASC, last_used DESC NULLS LAST").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return tokenModelsToDomain(models), nil
}

// FindStaleOrUnhealthy selects the maintenance cleanup candidates:
// inactive-and-old, unused past the cutoff, or unhealthy with repeated
// failures.
func (r *GormTokenRepo) FindStaleOrUnhealthy(ctx context.Context, maxAgeDays int) ([]domain.PushToken, error) {
	cutoff := r.now().UTC().AddDate(0, 0, -maxAgeDays)

	var models []PushTokenModel
	err := r.db.WithContext(ctx).
		Where("(is_active = ? AND deactivated_at < ?)", false, cutoff).
		Or("(last_used IS NOT NULL AND last_used < ?)", cutoff).
		Or("(is_healthy = ? AND failure_count >= ?)", false, 3).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return tokenModelsToDomain(models), nil
}

func (r *GormTokenRepo) FindActive(ctx context.Context) ([]domain.PushToken, error) {
	var models []PushTokenModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return tokenModelsToDomain(models), nil
}

func (r *GormTokenRepo) UpdateHealth(ctx context.Context, tokenID string, score int, healthy bool, checkedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&PushTokenModel{}).
		Where("id = ?", tokenID).
		Updates(map[string]any{
			"validation_score":  score,
			"is_healthy":        healthy,
			"last_health_check": checkedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTokenRepo) DeleteByIDs(ctx context.Context, tokenIDs []string) (int64, error) {
	if len(tokenIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id IN ?", tokenIDs).Delete(&TokenValidationErrorModel{}).Error; err != nil {
			return err
		}

		result := tx.Where("id IN ?", tokenIDs).Delete(&PushTokenModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *GormTokenRepo) Analytics(ctx context.Context) (*domain.TokenAnalytics, error) {
	analytics := &domain.TokenAnalytics{
		ByPlatform: make(map[domain.Platform]int64),
		ByFormat:   make(map[domain.TokenFormat]int64),
	}

	base := r.db.WithContext(ctx).Model(&PushTokenModel{})

	if err := base.Session(&gorm.Session{}).Count(&analytics.TotalTokens).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&analytics.ActiveTokens).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_active = ? AND is_healthy = ?", true, true).
		Count(&analytics.HealthyTokens).Error; err != nil {
		return nil, err
	}
	analytics.UnhealthyTokens = analytics.ActiveTokens - analytics.HealthyTokens

	type groupCount struct {
		Key   string `gorm:"column:key"`
		Count int64  `gorm:"column:count"`
	}

	var byPlatform []groupCount
	if err := base.Session(&gorm.Session{}).
		Select("platform AS key, COUNT(*) AS count").
		Group("platform").
		Scan(&byPlatform).Error; err != nil {
		return nil, err
	}
	for _, row := range byPlatform {
		analytics.ByPlatform[domain.Platform(row.Key)] = row.Count
	}

	var byFormat []groupCount
	if err := base.Session(&gorm.Session{}).
		Select("format AS key, COUNT(*) AS count").
		Group("format").
		Scan(&byFormat).Error; err != nil {
		return nil, err
	}
	for _, row := range byFormat {
		analytics.ByFormat[domain.TokenFormat(row.Key)] = row.Count
	}

	var avg *float64
	if err := base.Session(&gorm.Session{}).
		Where("is_active = ?", true).
		Select("AVG(validation_score)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		analytics.AverageScore = *avg
	}

	return analytics, nil
}

func tokenModelsToDomain(models []PushTokenModel) []domain.PushToken {
	tokens := make([]domain.PushToken, 0, len(models))
	for i := range models {
		tokens = append(tokens, *tokenModelToDomain(&models[i]))
	}
	return tokens
}
