package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"mdm-platform/feedhub/internal/constants"
)

// OnceDelay is how far in the future a once job is placed
const OnceDelay = 10 * time.Second

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// CronStrategy computes the next activation of a custom expression strictly
// after from
type CronStrategy interface {
	Next(expr string, from time.Time) (time.Time, error)
}

// StandardCron parses five-field expressions and descriptors such as @daily
type StandardCron struct{}

func (StandardCron) Next(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidRecurrence, expr)
	}
	return next, nil
}

// ComputeNextRun returns the next activation of job after from using the
// standard cron parser. A nil time means the job has no further runs.
func ComputeNextRun(job Job, from time.Time) (*time.Time, error) {
	return NextRun(job, from, StandardCron{})
}

// NextRun is ComputeNextRun with a pluggable cron strategy
func NextRun(job Job, from time.Time, strategy CronStrategy) (*time.Time, error) {
	if err := validateRecurrence(job); err != nil {
		return nil, err
	}

	next, err := nextAfter(job, from, strategy)
	if err != nil {
		return nil, err
	}

	if job.StartDate != nil && next.Before(*job.StartDate) {
		if job.Frequency == constants.FrequencyOnce {
			next = *job.StartDate
		} else if next, err = nextAfter(job, job.StartDate.Add(-time.Nanosecond), strategy); err != nil {
			return nil, err
		}
	}
	if job.EndDate != nil && next.After(*job.EndDate) {
		return nil, nil
	}
	return &next, nil
}

func nextAfter(job Job, from time.Time, strategy CronStrategy) (time.Time, error) {
	r := job.Recurrence
	loc := from.Location()

	switch job.Frequency {
	case constants.FrequencyOnce:
		return from.Add(OnceDelay), nil

	case constants.FrequencyHourly:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), r.Minute, 0, 0, loc)
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		return next, nil

	case constants.FrequencyDaily:
		next := time.Date(from.Year(), from.Month(), from.Day(), r.Hour, r.Minute, 0, 0, loc)
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case constants.FrequencyWeekly:
		ahead := (r.DayOfWeek - int(from.Weekday()) + 7) % 7
		next := time.Date(from.Year(), from.Month(), from.Day()+ahead, r.Hour, r.Minute, 0, 0, loc)
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case constants.FrequencyMonthly:
		next := monthlySlot(from.Year(), from.Month(), r, loc)
		if !next.After(from) {
			next = monthlySlot(from.Year(), from.Month()+1, r, loc)
		}
		return next, nil

	case constants.FrequencyCustom:
		if strategy == nil {
			strategy = StandardCron{}
		}
		return strategy.Next(r.CustomCron, from)

	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrence, job.Frequency)
	}
}

// monthlySlot clamps the configured day to the month's last day. time.Date
// normalizes month 13 into January of the next year.
func monthlySlot(year int, month time.Month, r Recurrence, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	day := min(r.DayOfMonth, last)
	return time.Date(first.Year(), first.Month(), day, r.Hour, r.Minute, 0, 0, loc)
}

func validateRecurrence(job Job) error {
	r := job.Recurrence
	if !job.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrence, job.Frequency)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidRecurrence, r.Hour)
	}
	if r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidRecurrence, r.Minute)
	}
	switch job.Frequency {
	case constants.FrequencyWeekly:
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return fmt.Errorf("%w: day of week %d out of range", ErrInvalidRecurrence, r.DayOfWeek)
		}
	case constants.FrequencyMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRecurrence, r.DayOfMonth)
		}
	case constants.FrequencyCustom:
		if r.CustomCron == "" {
			return fmt.Errorf("%w: custom frequency needs a cron expression", ErrInvalidRecurrence)
		}
	}
	if job.StartDate != nil && job.EndDate != nil && job.EndDate.Before(*job.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidRecurrence)
	}
	return nil
}
