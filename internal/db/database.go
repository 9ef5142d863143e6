package db

import (
	"errors"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/core/models"

	"github.com/glebarez/sqlite" // pure Go SQLite driver
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

// DB holds the global GORM database connection pool.
var DB *gorm.DB

// Open opens a SQLite database at the given path and runs migrations.
// Used directly by tests with an in-memory DSN.
func Open(path string) (*gorm.DB, error) {
	gormConfiguredLogger := gormlog.New(
		log.StandardLogger(),
		gormlog.Config{
			SlowThreshold:             time.Second * 2,
			LogLevel:                  gormlog.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormConfiguredLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := conn.AutoMigrate(
		&models.Identity{},
		&models.RecognitionEvent{},
	); err != nil {
		return nil, err
	}

	return conn, nil
}

// Init initializes the global database connection from configuration.
func Init(cfg config.DBConfig) error {
	log.Infof("Connecting to database: %s", cfg.File)
	conn, err := Open(cfg.File)
	if err != nil {
		log.Errorf("Failed to initialize database '%s': %v", cfg.File, err)
		return err
	}

	DB = conn
	log.Info("Database connection established and migrations completed.")
	return nil
}

// GetDB returns the initialized GORM DB instance.
func GetDB() (*gorm.DB, error) {
	if DB == nil {
		return nil, errors.New("database is not initialized")
	}
	return DB, nil
}
