package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for every domain model. Called once at startup.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.Group{},
		&models.Tutor{},
		&models.FacultyAdmin{},
		&models.Admin{},
		&models.Permission{},
		&models.Apartment{},
		&models.Notification{},
		&models.TutorNotification{},
		&models.ChatMessage{},
		&models.SyncState{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
