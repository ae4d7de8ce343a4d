package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/ports/input"
	"github.com/anyaat/Atlas/internal/ports/output"
)

var _ input.SweepUseCase = (*Sweeper)(nil)

// SweepConfig bounds one sweep.
type SweepConfig struct {
	Workers int           // concurrent evaluations
	Batch   int           // due listings fetched per sweep
	Budget  time.Duration // wall-clock limit, 0 = none
}

func (c SweepConfig) normalized() SweepConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Batch <= 0 {
		c.Batch = 500
	}
	return c
}

// Sweeper evaluates every due listing. Listings left over when the budget
// runs out stay due and are picked up by the next sweep.
type Sweeper struct {
	svc   *LifecycleService
	repo  output.ListingRepository
	clock output.Clock
	cfg   SweepConfig
	owner string
	log   zerolog.Logger
}

func NewSweeper(svc *LifecycleService, repo output.ListingRepository, clock output.Clock, cfg SweepConfig, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		svc:   svc,
		repo:  repo,
		clock: clock,
		cfg:   cfg.normalized(),
		owner: "sweep-" + uuid.NewString(),
		log:   log.With().Str("component", "sweep").Logger(),
	}
}

// Owner is the claim owner used by this sweeper.
func (s *Sweeper) Owner() string { return s.owner }

func (s *Sweeper) Run(ctx context.Context) (input.SweepReport, error) {
	started := time.Now()
	now := s.clock.Now()
	report := input.SweepReport{Started: now}

	if s.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Budget)
		defer cancel()
	}

	ids, err := s.repo.DueBefore(ctx, now, s.cfg.Batch)
	if err != nil {
		return report, fmt.Errorf("sweep: list due listings: %w", err)
	}
	report.Due = len(ids)

	var evaluated, transitioned, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out, err := s.svc.EvaluateListing(ctx, id, now, s.owner)
			switch {
			case errors.Is(err, domain.ErrClaimHeld):
				skipped.Add(1)
				s.svc.metrics.evaluated(ctx, "skipped")
			case err != nil:
				failed.Add(1)
				s.svc.metrics.evaluated(ctx, "failed")
				s.log.Error().Err(err).Int64("listing_id", id).Msg("evaluation failed")
			default:
				evaluated.Add(1)
				s.svc.metrics.evaluated(ctx, "evaluated")
				if out.Changed() {
					transitioned.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Evaluated = int(evaluated.Load())
	report.Transitioned = int(transitioned.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	report.Interrupted = ctx.Err() != nil
	report.Took = time.Since(started)

	ev := s.log.Info()
	if report.Failed > 0 || report.Interrupted {
		ev = s.log.Warn()
	}
	ev.Int("due", report.Due).
		Int("evaluated", report.Evaluated).
		Int("transitioned", report.Transitioned).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Bool("interrupted", report.Interrupted).
		Dur("took", report.Took).
		Msg("sweep finished")
	return report, nil
}
