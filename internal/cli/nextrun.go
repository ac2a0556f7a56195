package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/scheduler"
)

func newNextRunCmd() *cobra.Command {
	var (
		frequency string
		rec       scheduler.Recurrence
		from      string
		timezone  string
		start     string
		end       string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "next-run",
		Short: "Print the next activations of a recurrence rule",
		Long: `Print the next activations of a recurrence rule without touching any store.

Examples:
  feedctl next-run --frequency daily --hour 6 --minute 30
  feedctl next-run --frequency weekly --day-of-week 1 --hour 9 --count 4 --timezone Europe/Berlin
  feedctl next-run --frequency custom --cron "*/15 8-18 * * 1-5" --from 2024-03-04T08:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", timezone, err)
			}

			now := time.Now().In(loc)
			if from != "" {
				if now, err = parseTime(from, loc); err != nil {
					return err
				}
			}

			job := scheduler.Job{
				ID:         "cli",
				Type:       constants.JobIngestion,
				Frequency:  constants.Frequency(strings.ToLower(frequency)),
				Recurrence: rec,
			}
			if start != "" {
				t, err := parseTime(start, loc)
				if err != nil {
					return err
				}
				job.StartDate = &t
			}
			if end != "" {
				t, err := parseTime(end, loc)
				if err != nil {
					return err
				}
				job.EndDate = &t
			}

			runs, err := nextRuns(job, now, count)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no further runs")
				return nil
			}
			for _, t := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frequency, "frequency", "", "once, hourly, daily, weekly, monthly or custom")
	cmd.Flags().IntVar(&rec.Hour, "hour", 0, "hour of day")
	cmd.Flags().IntVar(&rec.Minute, "minute", 0, "minute of hour")
	cmd.Flags().IntVar(&rec.DayOfWeek, "day-of-week", 0, "0=Sunday through 6=Saturday")
	cmd.Flags().IntVar(&rec.DayOfMonth, "day-of-month", 1, "day of month, clamped to the month's last day")
	cmd.Flags().StringVar(&rec.CustomCron, "cron", "", "five-field cron expression for custom")
	cmd.Flags().StringVar(&from, "from", "", "reference time, RFC3339 (default now)")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA time zone of the rule")
	cmd.Flags().StringVar(&start, "start", "", "window start, RFC3339")
	cmd.Flags().StringVar(&end, "end", "", "window end, RFC3339")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of activations to print")
	_ = cmd.MarkFlagRequired("frequency")
	return cmd
}

// nextRuns chains next-run computations; a once rule yields a single run
func nextRuns(job scheduler.Job, from time.Time, count int) ([]time.Time, error) {
	var runs []time.Time
	for i := 0; i < count; i++ {
		next, err := scheduler.ComputeNextRun(job, from)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		runs = append(runs, *next)
		if job.Frequency == constants.FrequencyOnce {
			break
		}
		from = *next
	}
	return runs, nil
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", v, err)
	}
	return t.In(loc), nil
}
