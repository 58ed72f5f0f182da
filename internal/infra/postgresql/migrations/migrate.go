package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_push_tokens",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.PushTokenModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_push_tokens_user_active ON push_tokens (user_id, is_active)`,
					`CREATE INDEX IF NOT EXISTS idx_push_tokens_health ON push_tokens (is_active, is_healthy, validation_score)`,
					`CREATE INDEX IF NOT EXISTS idx_push_tokens_last_used ON push_tokens (last_used)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.PushTokenModel{})
			},
		},
		{
			ID: "000002_create_token_validation_errors",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.TokenValidationErrorModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.TokenValidationErrorModel{})
			},
		},
		{
			ID: "000003_create_directory_users",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DirectoryUserModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_directory_users_client_type ON directory_users (client_id, user_type)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DirectoryUserModel{})
			},
		},
		{
			ID: "000004_create_staff_assignments",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.StaffAssignmentModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_assignments_scope ON staff_assignments (user_id, client_id, project_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.StaffAssignmentModel{})
			},
		},
	})

	return m.Migrate()
}
