package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdm-platform/feedhub/internal/constants"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func job(freq constants.Frequency, r Recurrence) Job {
	return Job{ID: "j1", Type: constants.JobIngestion, Frequency: freq, Recurrence: r}
}

func TestComputeNextRun_Daily(t *testing.T) {
	daily := job(constants.FrequencyDaily, Recurrence{Hour: 9})

	next, err := ComputeNextRun(daily, at(2024, 3, 4, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 4, 9, 0), *next)

	next, err = ComputeNextRun(daily, at(2024, 3, 4, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 5, 9, 0), *next)

	next, err = ComputeNextRun(daily, at(2024, 3, 4, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 5, 9, 0), *next, "a slot equal to from is not in the future")
}

func TestComputeNextRun_WeeklyRollover(t *testing.T) {
	monday := job(constants.FrequencyWeekly, Recurrence{DayOfWeek: 1, Hour: 9})

	// 2024-03-04 is a Monday
	next, err := ComputeNextRun(monday, at(2024, 3, 4, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 11, 9, 0), *next)

	next, err = ComputeNextRun(monday, at(2024, 3, 4, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 11, 9, 0), *next)

	next, err = ComputeNextRun(monday, at(2024, 3, 4, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 4, 9, 0), *next)

	// from a Thursday
	next, err = ComputeNextRun(monday, at(2024, 3, 7, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 11, 9, 0), *next)
}

func TestComputeNextRun_Hourly(t *testing.T) {
	hourly := job(constants.FrequencyHourly, Recurrence{Minute: 15})

	next, err := ComputeNextRun(hourly, at(2024, 3, 4, 10, 14))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 4, 10, 15), *next)

	next, err = ComputeNextRun(hourly, at(2024, 3, 4, 10, 15))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 4, 11, 15), *next)

	next, err = ComputeNextRun(hourly, at(2024, 3, 4, 23, 30))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 5, 0, 15), *next)
}

func TestComputeNextRun_MonthlyClampsDay(t *testing.T) {
	monthly := job(constants.FrequencyMonthly, Recurrence{DayOfMonth: 31, Hour: 9})

	next, err := ComputeNextRun(monthly, at(2025, 1, 31, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2025, 2, 28, 9, 0), *next)

	next, err = ComputeNextRun(monthly, at(2024, 2, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 2, 29, 9, 0), *next, "leap year")

	next, err = ComputeNextRun(monthly, at(2024, 12, 31, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2025, 1, 31, 9, 0), *next)
}

func TestComputeNextRun_Once(t *testing.T) {
	from := at(2024, 3, 4, 8, 0)

	next, err := ComputeNextRun(job(constants.FrequencyOnce, Recurrence{}), from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(OnceDelay), *next)

	start := at(2024, 3, 6, 12, 0)
	later := job(constants.FrequencyOnce, Recurrence{})
	later.StartDate = &start
	next, err = ComputeNextRun(later, from)
	require.NoError(t, err)
	assert.Equal(t, start, *next)
}

func TestComputeNextRun_Custom(t *testing.T) {
	custom := job(constants.FrequencyCustom, Recurrence{CustomCron: "0 */6 * * *"})

	next, err := ComputeNextRun(custom, at(2024, 3, 4, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 4, 12, 0), *next)

	descriptor := job(constants.FrequencyCustom, Recurrence{CustomCron: "@daily"})
	next, err = ComputeNextRun(descriptor, at(2024, 3, 4, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 5, 0, 0), *next)
}

type fixedCron struct{ at time.Time }

func (f fixedCron) Next(string, time.Time) (time.Time, error) { return f.at, nil }

func TestNextRun_PluggableStrategy(t *testing.T) {
	want := at(2030, 1, 1, 0, 0)
	next, err := NextRun(job(constants.FrequencyCustom, Recurrence{CustomCron: "whatever"}), at(2024, 3, 4, 7, 0), fixedCron{at: want})
	require.NoError(t, err)
	assert.Equal(t, want, *next)
}

func TestComputeNextRun_Window(t *testing.T) {
	daily := job(constants.FrequencyDaily, Recurrence{Hour: 9})
	start := at(2024, 3, 10, 0, 0)
	daily.StartDate = &start

	next, err := ComputeNextRun(daily, at(2024, 3, 4, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 10, 9, 0), *next)

	ended := job(constants.FrequencyDaily, Recurrence{Hour: 9})
	end := at(2024, 3, 4, 8, 30)
	ended.EndDate = &end
	next, err = ComputeNextRun(ended, at(2024, 3, 4, 8, 0))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestComputeNextRun_RejectsInvalidRules(t *testing.T) {
	cases := map[string]Job{
		"hour":         job(constants.FrequencyDaily, Recurrence{Hour: 24}),
		"minute":       job(constants.FrequencyHourly, Recurrence{Minute: 60}),
		"day of week":  job(constants.FrequencyWeekly, Recurrence{DayOfWeek: 7}),
		"day of month": job(constants.FrequencyMonthly, Recurrence{DayOfMonth: 0}),
		"empty cron":   job(constants.FrequencyCustom, Recurrence{}),
		"bad cron":     job(constants.FrequencyCustom, Recurrence{CustomCron: "every tuesday"}),
		"frequency":    job(constants.Frequency("fortnightly"), Recurrence{}),
	}
	for name, j := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeNextRun(j, at(2024, 3, 4, 8, 0))
			assert.ErrorIs(t, err, ErrInvalidRecurrence)
		})
	}
}
