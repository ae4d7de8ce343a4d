package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/ports/input"
	"github.com/anyaat/Atlas/internal/ports/output"
)

const (
	maxAttempts     = 3
	defaultClaimTTL = 2 * time.Minute
)

var _ input.LifecycleUseCase = (*LifecycleService)(nil)

// LifecycleService runs the lifecycle machine against stored listings. Every
// change is a read-modify-write guarded by the listing version; notices are
// sent only once the new state is stored.
type LifecycleService struct {
	machine  *lifecycle.Machine
	repo     output.ListingRepository
	claimer  output.Claimer
	notifier output.Notifier
	clock    output.Clock
	log      zerolog.Logger
	metrics  *metrics
	claimTTL time.Duration
}

func NewLifecycleService(
	machine *lifecycle.Machine,
	repo output.ListingRepository,
	claimer output.Claimer,
	notifier output.Notifier,
	clock output.Clock,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		machine:  machine,
		repo:     repo,
		claimer:  claimer,
		notifier: notifier,
		clock:    clock,
		log:      log.With().Str("component", "lifecycle").Logger(),
		metrics:  newMetrics(),
		claimTTL: defaultClaimTTL,
	}
}

// SetClaimTTL bounds how long a sweep may hold a listing.
func (s *LifecycleService) SetClaimTTL(d time.Duration) {
	if d > 0 {
		s.claimTTL = d
	}
}

func (s *LifecycleService) CreateListing(ctx context.Context, listing *entities.Listing) error {
	if listing.Recurring() {
		if err := listing.Recurrence.Validate(); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
	}
	if listing.Kind == "" {
		listing.Kind = entities.KindVenue
		if listing.Recurring() {
			listing.Kind = entities.KindEvent
		}
	}
	out := s.machine.Initialize(listing, s.clock.Now())
	if err := s.repo.Create(ctx, listing); err != nil {
		return err
	}
	s.log.Info().Int64("listing_id", listing.ID).Str("kind", string(listing.Kind)).
		Time("reassess_at", listing.ShouldReassessAt).Msg("listing created")
	s.dispatch(ctx, listing.ID, out.Notices)
	return nil
}

func (s *LifecycleService) GetListing(ctx context.Context, id int64) (*entities.Listing, error) {
	return s.repo.FindByID(ctx, id)
}

// EditListing applies a content edit. Any edit counts as a fresh
// verification by the manager.
func (s *LifecycleService) EditListing(ctx context.Context, id int64, edit func(*entities.Listing) error) (*entities.Listing, error) {
	now := s.clock.Now()
	l, _, err := s.mutate(ctx, id, func(l *entities.Listing) (lifecycle.Outcome, bool, error) {
		version := l.Version
		if err := edit(l); err != nil {
			return lifecycle.Outcome{}, false, err
		}
		l.ID, l.Version = id, version
		if l.Recurring() {
			if err := l.Recurrence.Validate(); err != nil {
				return lifecycle.Outcome{}, false, err
			}
		}
		return s.machine.Reverify(l, now), true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit listing %d: %w", id, err)
	}
	return l, nil
}

func (s *LifecycleService) ReverifyListing(ctx context.Context, id int64) (*entities.Listing, error) {
	now := s.clock.Now()
	l, out, err := s.mutate(ctx, id, func(l *entities.Listing) (lifecycle.Outcome, bool, error) {
		return s.machine.Reverify(l, now), true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reverify listing %d: %w", id, err)
	}
	s.log.Info().Int64("listing_id", id).Str("from", string(out.From)).
		Time("reassess_at", l.ShouldReassessAt).Msg("listing reverified")
	return l, nil
}

// EvaluateListing claims the listing for owner, moves it forward for now,
// stores the result and releases the claim. A listing claimed by someone
// else yields domain.ErrClaimHeld.
func (s *LifecycleService) EvaluateListing(ctx context.Context, id int64, now time.Time, owner string) (lifecycle.Outcome, error) {
	ok, err := s.claimer.Claim(ctx, id, owner, s.claimTTL)
	if err != nil {
		return lifecycle.Outcome{}, fmt.Errorf("claim listing %d: %w", id, err)
	}
	if !ok {
		return lifecycle.Outcome{}, fmt.Errorf("listing %d: %w", id, domain.ErrClaimHeld)
	}
	defer func() {
		if err := s.claimer.Release(context.WithoutCancel(ctx), id, owner); err != nil {
			s.log.Warn().Err(err).Int64("listing_id", id).Msg("release claim failed")
		}
	}()

	_, out, err := s.mutate(ctx, id, func(l *entities.Listing) (lifecycle.Outcome, bool, error) {
		before := l.Lifecycle
		out, err := s.machine.Evaluate(l, now)
		if err != nil {
			return out, false, err
		}
		return out, !before.Equal(l.Lifecycle), nil
	})
	if err != nil {
		return lifecycle.Outcome{}, fmt.Errorf("evaluate listing %d: %w", id, err)
	}
	if out.Changed() {
		s.metrics.transitioned(ctx, out)
		s.log.Info().Int64("listing_id", id).Str("from", string(out.From)).Str("to", string(out.To)).
			Int("steps", len(out.Steps)).Msg("listing status changed")
	}
	s.dispatch(ctx, id, out.Notices)
	return out, nil
}

func (s *LifecycleService) DeleteListing(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *LifecycleService) IsVisible(ctx context.Context, id int64) (bool, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return lifecycle.Visible(l, s.clock.Now()), nil
}

// ListVisible returns the listings that may be published right now.
func (s *LifecycleService) ListVisible(ctx context.Context) ([]entities.Listing, error) {
	listings, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := listings[:0]
	for i := range listings {
		if lifecycle.Visible(&listings[i], now) {
			out = append(out, listings[i])
		}
	}
	return out, nil
}

// mutate loads the listing, lets fn change a copy and saves the copy when fn
// reports it dirty. Version conflicts restart the cycle from a fresh load; on
// any failure the copy is dropped.
func (s *LifecycleService) mutate(
	ctx context.Context,
	id int64,
	fn func(*entities.Listing) (lifecycle.Outcome, bool, error),
) (*entities.Listing, lifecycle.Outcome, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cur, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, lifecycle.Outcome{}, err
		}
		next := cur.Clone()
		out, dirty, err := fn(next)
		if err != nil {
			return nil, lifecycle.Outcome{}, err
		}
		if !dirty {
			return cur, out, nil
		}
		err = s.repo.Save(ctx, next)
		if err == nil {
			return next, out, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return nil, lifecycle.Outcome{}, err
		}
		lastErr = err
		s.log.Debug().Int64("listing_id", id).Int("attempt", attempt).Msg("version conflict, retrying")
	}
	return nil, lifecycle.Outcome{}, lastErr
}

func (s *LifecycleService) dispatch(ctx context.Context, id int64, notices []lifecycle.Notice) {
	if s.notifier == nil {
		return
	}
	for _, n := range notices {
		n.ListingID = id
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.log.Error().Err(err).Int64("listing_id", id).Str("reason", string(n.Reason)).Msg("notify failed")
		}
	}
}
