package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mdm-platform/feedhub/internal/logging"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

const (
	connectAttempts = 10
	connectBackoff  = 500 * time.Millisecond
)

// InitPostgresORM opens the configuration and catalog store, retrying while
// the database container comes up
func InitPostgresORM(ctx context.Context, dsn string) (*gorm.DB, error) {
	var lastErr error

	for i := 0; i < connectAttempts; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			if err = Ping(ctx, db); err == nil {
				logging.Info("Connected to Postgres via GORM", "attempt", i+1)
				return db, nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to postgres: %w", ctx.Err())
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres: %w", lastErr)
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks the underlying connection pool
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
