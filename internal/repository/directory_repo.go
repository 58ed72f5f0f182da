package repository

import (
	"context"

	"github.com/kursadbilgin/push-engine/internal/domain"
	"gorm.io/gorm"
)

// DirectoryRepository resolves notification targets per client scope.
type DirectoryRepository interface {
	UsersForClient(ctx context.Context, clientID string, userType domain.UserType) ([]domain.DirectoryUser, error)
	StaffForProject(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error)
}

type GormDirectoryRepo struct {
	db *gorm.DB
}

func NewGormDirectoryRepo(db *gorm.DB) *GormDirectoryRepo {
	return &GormDirectoryRepo{db: db}
}

func (r *GormDirectoryRepo) UsersForClient(ctx context.Context, clientID string, userType domain.UserType) ([]domain.DirectoryUser, error) {
	var models []DirectoryUserModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND user_type = ?", clientID, userType).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return directoryUserModelsToDomain(models), nil
}

// StaffForProject narrows client staff to those assigned to the project.
func (r *GormDirectoryRepo) StaffForProject(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error) {
	var models []DirectoryUserModel
	err := r.db.WithContext(ctx).
		Joins("JOIN staff_assignments ON staff_assignments.user_id = directory_users.user_id").
		Where("staff_assignments.client_id = ? AND staff_assignments.project_id = ?", clientID, projectID).
		Where("directory_users.user_type = ?", domain.UserTypeStaff).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return directoryUserModelsToDomain(models), nil
}

func directoryUserModelsToDomain(models []DirectoryUserModel) []domain.DirectoryUser {
	users := make([]domain.DirectoryUser, 0, len(models))
	for i := range models {
		users = append(users, *directoryUserModelToDomain(&models[i]))
	}
	return users
}
