package input

import (
	"context"
	"time"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

type LifecycleUseCase interface {
	CreateListing(ctx context.Context, listing *entities.Listing) error
	GetListing(ctx context.Context, id int64) (*entities.Listing, error)
	EditListing(ctx context.Context, id int64, edit func(*entities.Listing) error) (*entities.Listing, error)
	ReverifyListing(ctx context.Context, id int64) (*entities.Listing, error)
	EvaluateListing(ctx context.Context, id int64, now time.Time, owner string) (lifecycle.Outcome, error)
	DeleteListing(ctx context.Context, id int64) error
	IsVisible(ctx context.Context, id int64) (bool, error)
	ListVisible(ctx context.Context) ([]entities.Listing, error)
}

type SweepUseCase interface {
	Run(ctx context.Context) (SweepReport, error)
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Started      time.Time
	Took         time.Duration
	Due          int
	Evaluated    int
	Transitioned int
	Skipped      int
	Failed       int
	Interrupted  bool
}
