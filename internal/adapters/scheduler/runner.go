// Package scheduler triggers sweeps on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/ports/input"
)

// DefaultSchedule matches the historical ten minute reminder loop.
const DefaultSchedule = "@every 10m"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner runs a sweep on every tick. A tick that fires while the previous
// sweep is still running is skipped.
type Runner struct {
	sweep    input.SweepUseCase
	schedule string
	log      zerolog.Logger
}

func NewRunner(sweep input.SweepUseCase, schedule string, log zerolog.Logger) (*Runner, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %v: %w", schedule, err, domain.ErrConfiguration)
	}
	return &Runner{sweep: sweep, schedule: schedule, log: log.With().Str("component", "scheduler").Logger()}, nil
}

// Run sweeps once right away, then on schedule until ctx is done. It waits
// for a running sweep to return before it returns.
func (r *Runner) Run(ctx context.Context) error {
	cl := cronLogger{r.log}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(cl))
	// One wrapper shared by the first sweep and the ticks.
	job := cron.NewChain(cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() { r.tick(ctx) }))
	if _, err := c.AddJob(r.schedule, job); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	r.log.Info().Str("schedule", r.schedule).Msg("scheduler started")

	job.Run()

	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info().Msg("scheduler stopped")
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.sweep.Run(ctx); err != nil {
		r.log.Error().Err(err).Msg("sweep failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
