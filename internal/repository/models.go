package repository

import (
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// PushTokenModel is the persistence model for the push_tokens table.
type PushTokenModel struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	UserID     string          `gorm:"type:varchar(64);not null;index"`
	UserType   domain.UserType `gorm:"type:varchar(20);not null"`
	Token      string          `gorm:"type:varchar(4096);not null;uniqueIndex"`
	Platform   domain.Platform `gorm:"type:varchar(10);not null"`
	DeviceID   string          `gorm:"type:varchar(128)"`
	DeviceName string          `gorm:"type:varchar(255)"`
	IsActive   bool            `gorm:"not null;default:true"`

	ValidationScore int  `gorm:"not null;default:0"`
	IsHealthy       bool `gorm:"not null;default:false"`
	FailureCount    int  `gorm:"not null;default:0"`
	LastHealthCheck *time.Time
	LastFailure     *time.Time

	Format   domain.TokenFormat `gorm:"type:varchar(20);not null;default:'UNKNOWN'"`
	IsLegacy bool               `gorm:"not null;default:false"`

	DeactivationReason *string `gorm:"type:text"`
	DeactivatedAt      *time.Time
	LastUsed           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PushTokenModel) TableName() string {
	return "push_tokens"
}

// TokenValidationErrorModel is the persistence model for the ordered
// per-token error log.
type TokenValidationErrorModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	TokenID   string `gorm:"type:uuid;not null;index"`
	Error     string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (TokenValidationErrorModel) TableName() string {
	return "token_validation_errors"
}

// DirectoryUserModel is the persistence model for resolvable users.
type DirectoryUserModel struct {
	UserID    string          `gorm:"type:varchar(64);primaryKey"`
	ClientID  string          `gorm:"type:varchar(64);not null;index"`
	UserType  domain.UserType `gorm:"type:varchar(20);not null"`
	FullName  string          `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DirectoryUserModel) TableName() string {
	return "directory_users"
}

// StaffAssignmentModel maps staff users onto projects.
type StaffAssignmentModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:varchar(64);not null;index"`
	ClientID  string `gorm:"type:varchar(64);not null;index"`
	ProjectID string `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time
}

func (StaffAssignmentModel) TableName() string {
	return "staff_assignments"
}

func tokenModelFromDomain(t *domain.PushToken) *PushTokenModel {
	if t == nil {
		return nil
	}

	return &PushTokenModel{
		ID:                 t.ID,
		UserID:             t.UserID,
		UserType:           t.UserType,
		Token:              t.Token,
		Platform:           t.Platform,
		DeviceID:           t.DeviceID,
		DeviceName:         t.DeviceName,
		IsActive:           t.IsActive,
		ValidationScore:    t.ValidationScore,
		IsHealthy:          t.IsHealthy,
		FailureCount:       t.FailureCount,
		LastHealthCheck:    t.LastHealthCheck,
		LastFailure:        t.LastFailure,
		Format:             t.Format,
		IsLegacy:           t.IsLegacy,
		DeactivationReason: t.DeactivationReason,
		DeactivatedAt:      t.DeactivatedAt,
		LastUsed:           t.LastUsed,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func tokenModelToDomain(m *PushTokenModel) *domain.PushToken {
	if m == nil {
		return nil
	}

	return &domain.PushToken{
		ID:                 m.ID,
		UserID:             m.UserID,
		UserType:           m.UserType,
		Token:              m.Token,
		Platform:           m.Platform,
		DeviceID:           m.DeviceID,
		DeviceName:         m.DeviceName,
		IsActive:           m.IsActive,
		ValidationScore:    m.ValidationScore,
		IsHealthy:          m.IsHealthy,
		FailureCount:       m.FailureCount,
		LastHealthCheck:    m.LastHealthCheck,
		LastFailure:        m.LastFailure,
		Format:             m.Format,
		IsLegacy:           m.IsLegacy,
		DeactivationReason: m.DeactivationReason,
		DeactivatedAt:      m.DeactivatedAt,
		LastUsed:           m.LastUsed,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func directoryUserModelToDomain(m *DirectoryUserModel) *domain.DirectoryUser {
	if m == nil {
		return nil
	}

	return &domain.DirectoryUser{
		UserID:   m.UserID,
		ClientID: m.ClientID,
		UserType: m.UserType,
		FullName: m.FullName,
	}
}
