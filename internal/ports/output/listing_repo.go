package output

import (
	"context"
	"time"

	"github.com/anyaat/Atlas/internal/domain/entities"
)

// ListingRepository persists listings and their lifecycle snapshot.
type ListingRepository interface {
	// Create stores a new listing and assigns its ID, version and CreatedAt.
	Create(ctx context.Context, listing *entities.Listing) error
	// FindByID returns domain.ErrListingNotFound when id is unknown.
	FindByID(ctx context.Context, id int64) (*entities.Listing, error)
	// Save writes the listing if its stored version still equals
	// listing.Version, then bumps listing.Version. A stale version fails with
	// domain.ErrConcurrentModification and nothing is written.
	Save(ctx context.Context, listing *entities.Listing) error
	Delete(ctx context.Context, id int64) error
	// DueBefore returns up to limit non-terminal listings whose reassessment
	// instant is at or before at, earliest first.
	DueBefore(ctx context.Context, at time.Time, limit int) ([]int64, error)
	// ListPublished returns listings in a published status, ordered by id.
	ListPublished(ctx context.Context) ([]entities.Listing, error)
}

// Claimer gives a sweep exclusive ownership of a listing for ttl.
type Claimer interface {
	Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id int64, owner string) error
}

// ManagerCounter keeps per-manager counts of managed records. Repositories
// call it after creating or deleting a listing.
type ManagerCounter interface {
	Adjust(ctx context.Context, managerID int64, kind entities.Kind, delta int) error
}
