package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

type ScheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// GetByID returns nil, nil when no schedule has the id
func (r *ScheduleRepo) GetByID(ctx context.Context, id string) (*gormModels.Schedule, error) {
	var s gormModels.Schedule

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	return &s, nil
}

func (r *ScheduleRepo) List(ctx context.Context, activeOnly bool) ([]gormModels.Schedule, error) {
	var schedules []gormModels.Schedule

	q := r.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	if err := q.Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s *gormModels.Schedule) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) Update(ctx context.Context, s *gormModels.Schedule) error {
	result := r.db.WithContext(ctx).
		Model(s).
		Select("data_source_id", "mapping_template_id", "path", "label", "frequency", "hour", "minute",
			"day_of_week", "day_of_month", "custom_cron", "next_run", "start_date", "end_date", "active").
		Updates(s)

	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordRun stores the bookkeeping of one execution. A nil nextRun clears it.
func (r *ScheduleRepo) RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, status, message string) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Schedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_run":     lastRun,
			"next_run":     nextRun,
			"last_status":  status,
			"last_message": message,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to record schedule run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate is used after a once schedule has run
func (r *ScheduleRepo) Deactivate(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&gormModels.Schedule{}).
		Where("id = ?", id).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&gormModels.Schedule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) CreateTestPullLog(ctx context.Context, l *gormModels.TestPullLog) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create test pull log: %w", err)
	}
	return nil
}

// ListTestPullLogs returns the most recent pulls of one connection
func (r *ScheduleRepo) ListTestPullLogs(ctx context.Context, connectionID string, opts ListOptions) ([]gormModels.TestPullLog, error) {
	var logs []gormModels.TestPullLog

	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("created_at DESC").
		Limit(opts.limit()).
		Offset(opts.Offset).
		Find(&logs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list test pull logs: %w", err)
	}
	return logs, nil
}
