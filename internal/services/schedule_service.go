package services

import (
	"context"
	"errors"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
	"mdm-platform/feedhub/internal/scheduler"
)

// ScheduleService keeps schedule rows and the scheduler's job table in step.
// Every write validates the rule by computing the next run before anything
// is persisted.
type ScheduleService struct {
	repo        *repositories.ScheduleRepo
	dataSources *repositories.DataSourceRepo
	sched       *scheduler.Scheduler
}

func NewScheduleService(repo *repositories.ScheduleRepo, dataSources *repositories.DataSourceRepo, sched *scheduler.Scheduler) *ScheduleService {
	return &ScheduleService{repo: repo, dataSources: dataSources, sched: sched}
}

func (s *ScheduleService) Create(ctx context.Context, req dtos.ScheduleRequest) (*gormModels.Schedule, error) {
	row := &gormModels.Schedule{Active: true}
	if err := s.apply(ctx, row, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, storage("failed to create schedule", err)
	}
	if err := s.sync(row, false); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *ScheduleService) Get(ctx context.Context, id string) (*gormModels.Schedule, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch schedule", err)
	}
	if row == nil {
		return nil, notFound("schedule", id)
	}
	return row, nil
}

func (s *ScheduleService) List(ctx context.Context, activeOnly bool) ([]gormModels.Schedule, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, storage("failed to list schedules", err)
	}
	return rows, nil
}

func (s *ScheduleService) Update(ctx context.Context, id string, req dtos.ScheduleRequest) (*gormModels.Schedule, error) {
	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, row, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, storage("failed to update schedule", err)
	}
	if err := s.sync(row, true); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storage("failed to delete schedule "+id, err)
	}
	s.sched.Remove(id)
	return nil
}

// Trigger runs a loaded schedule now. The outcome is the same one a due run
// would record.
func (s *ScheduleService) Trigger(ctx context.Context, id string) (*scheduler.RunOutcome, error) {
	outcome, err := s.sched.TriggerNow(ctx, id)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		return nil, notFound("job", id)
	}
	if err != nil {
		return nil, &ServiceError{Code: constants.ErrCodeInternal, Message: "failed to run job", Err: err}
	}
	return outcome, nil
}

// Jobs is the scheduler's table, including default jobs
func (s *ScheduleService) Jobs() []scheduler.Job {
	return s.sched.Jobs()
}

// sync mirrors an active row into the job table and drops inactive ones
func (s *ScheduleService) sync(row *gormModels.Schedule, update bool) error {
	if !row.Active {
		s.sched.Remove(row.ID)
		return nil
	}
	job := scheduler.JobFromSchedule(*row)
	var err error
	if _, exists := s.sched.Get(row.ID); update && exists {
		_, err = s.sched.Update(job)
	} else {
		_, err = s.sched.Add(job)
	}
	if err != nil {
		return rejected(constants.ErrCodeScheduleInvalid, err)
	}
	return nil
}

func (s *ScheduleService) apply(ctx context.Context, row *gormModels.Schedule, req dtos.ScheduleRequest) error {
	if strings.TrimSpace(req.DataSourceID) == "" {
		return invalid("dataSourceId is required", nil)
	}
	ds, err := s.dataSources.GetByID(ctx, req.DataSourceID)
	if err != nil {
		return storage("failed to fetch data source", err)
	}
	if ds == nil {
		return notFound("data source", req.DataSourceID)
	}
	if req.MappingTemplateID != nil && *req.MappingTemplateID == "" {
		req.MappingTemplateID = nil
	}
	if req.MappingTemplateID != nil {
		tpl, err := s.dataSources.GetTemplate(ctx, *req.MappingTemplateID)
		if err != nil {
			return storage("failed to fetch mapping template", err)
		}
		if tpl == nil {
			return notFound("mapping template", *req.MappingTemplateID)
		}
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return invalid("endDate is before startDate", nil)
	}

	row.DataSourceID = req.DataSourceID
	row.MappingTemplateID = req.MappingTemplateID
	row.Path = req.Path
	row.Label = req.Label
	row.Frequency = constants.Frequency(strings.ToLower(req.Frequency))
	row.Hour = req.Hour
	row.Minute = req.Minute
	row.DayOfWeek = req.DayOfWeek
	row.DayOfMonth = req.DayOfMonth
	row.CustomCron = strings.TrimSpace(req.CustomCron)
	row.StartDate = req.StartDate
	row.EndDate = req.EndDate
	if req.Active != nil {
		row.Active = *req.Active
	}

	next, err := s.sched.NextRun(scheduler.JobFromSchedule(*row))
	if err != nil {
		return rejected(constants.ErrCodeScheduleInvalid, err)
	}
	row.NextRun = next
	return nil
}
