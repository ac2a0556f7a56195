// Package scheduler keeps the in-memory job table, computes next runs and
// dispatches due jobs to their handlers.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/constants"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// Recurrence holds the rule fields; which ones apply depends on the frequency
type Recurrence struct {
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	DayOfWeek  int    `json:"dayOfWeek"`
	DayOfMonth int    `json:"dayOfMonth"`
	CustomCron string `json:"customCron,omitempty"`
}

// Job is one entry of the scheduler table
type Job struct {
	ID                string              `json:"id"`
	Type              constants.JobType   `json:"type"`
	Label             string              `json:"label,omitempty"`
	ScheduleID        string              `json:"scheduleId,omitempty"`
	DataSourceID      string              `json:"dataSourceId,omitempty"`
	ConnectionID      string              `json:"connectionId,omitempty"`
	MappingTemplateID string              `json:"mappingTemplateId,omitempty"`
	Path              string              `json:"path,omitempty"`
	Frequency         constants.Frequency `json:"frequency"`
	Recurrence        Recurrence          `json:"recurrence"`
	StartDate         *time.Time          `json:"startDate,omitempty"`
	EndDate           *time.Time          `json:"endDate,omitempty"`
	LastRun           *time.Time          `json:"lastRun,omitempty"`
	NextRun           *time.Time          `json:"nextRun,omitempty"`
	LastStatus        string              `json:"lastStatus,omitempty"`
	LastMessage       string              `json:"lastMessage,omitempty"`
}

// Handler runs the body of one job type. The returned message is stored as
// the job's last message.
type Handler interface {
	Run(ctx context.Context, job Job) (string, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, job Job) (string, error)

func (f HandlerFunc) Run(ctx context.Context, job Job) (string, error) {
	return f(ctx, job)
}

// JobFromSchedule builds the ingestion job of a persisted schedule
func JobFromSchedule(s gormModels.Schedule) Job {
	job := Job{
		ID:           s.ID,
		Type:         constants.JobIngestion,
		Label:        s.Label,
		ScheduleID:   s.ID,
		DataSourceID: s.DataSourceID,
		Path:         s.Path,
		Frequency:    s.Frequency,
		Recurrence: Recurrence{
			Hour:       s.Hour,
			Minute:     s.Minute,
			DayOfWeek:  s.DayOfWeek,
			DayOfMonth: s.DayOfMonth,
			CustomCron: s.CustomCron,
		},
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		LastRun:     s.LastRun,
		NextRun:     s.NextRun,
		LastStatus:  s.LastStatus,
		LastMessage: s.LastMessage,
	}
	if s.MappingTemplateID != nil {
		job.MappingTemplateID = *s.MappingTemplateID
	}
	return job
}

// JobFromDefault builds a process-level job declared in configuration
func JobFromDefault(d config.DefaultJob) (Job, error) {
	if d.ID == "" {
		return Job{}, fmt.Errorf("%w: default job needs an id", ErrInvalidRecurrence)
	}
	jobType := constants.JobType(strings.ToLower(d.Type))
	if jobType == "" {
		jobType = constants.JobConnectionHealth
	}
	job := Job{
		ID:        d.ID,
		Type:      jobType,
		Label:     d.ID,
		Frequency: constants.Frequency(strings.ToLower(d.Frequency)),
		Recurrence: Recurrence{
			Hour:       d.Hour,
			Minute:     d.Minute,
			DayOfWeek:  d.DayOfWeek,
			DayOfMonth: d.DayOfMonth,
			CustomCron: d.Cron,
		},
	}
	if err := validateRecurrence(job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (j Job) clone() Job {
	c := j
	c.StartDate = copyTime(j.StartDate)
	c.EndDate = copyTime(j.EndDate)
	c.LastRun = copyTime(j.LastRun)
	c.NextRun = copyTime(j.NextRun)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
