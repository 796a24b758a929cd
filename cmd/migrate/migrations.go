package main

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		// Accounts
		&models.User{},

		// Projects & lifecycle ledger
		&models.Project{},
		&models.ProjectStatusHistory{},

		// Deliverables
		&models.Asset{},
		&models.Notification{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}

	// Run AutoMigrate for all models
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}

	// Run custom migrations
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectStatusCheck,
		addNotificationCleanupIndex,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addProjectStatusCheck pins projects.status to the known lifecycle states.
// Dropped and recreated so a new state only needs a re-run.
func addProjectStatusCheck(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`ALTER TABLE projects DROP CONSTRAINT IF EXISTS chk_projects_status`).Error; err != nil {
			return err
		}
		return tx.Exec(statusCheckSQL()).Error
	})
}

func statusCheckSQL() string {
	quoted := make([]string, 0, len(lifecycle.AllStatuses()))
	for _, s := range lifecycle.AllStatuses() {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return fmt.Sprintf(`ALTER TABLE projects ADD CONSTRAINT chk_projects_status CHECK (status IN (%s))`,
		strings.Join(quoted, ", "))
}

// addNotificationCleanupIndex covers the retention sweep over read rows
func addNotificationCleanupIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notifications_read_created
		ON notifications(created_at)
		WHERE read = true
	`).Error
}
