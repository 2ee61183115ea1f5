package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of work fired on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler fires jobs on their cron schedules until stopped.
type Scheduler struct {
	jobs []Job
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate reports whether schedule is a cron expression the scheduler accepts.
func Validate(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// New creates a Scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs: jobs,
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers every job that has a schedule and starts the cron ticker.
// Jobs run with ctx; an invalid schedule is logged and skipped.
func (s *Scheduler) Start(ctx context.Context) int {
	registered := 0
	for _, job := range s.jobs {
		if job.Schedule == "" || job.Run == nil {
			continue
		}

		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			slog.Info("cron firing job", "name", job.Name)
			if err := job.Run(ctx); err != nil {
				slog.Error("cron job failed", "name", job.Name, "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		registered++
		slog.Info("scheduled job", "name", job.Name, "schedule", job.Schedule)
	}

	s.cron.Start()
	return registered
}

// Stop stops the cron ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
