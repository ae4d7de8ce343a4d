package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/ports/output"
)

var (
	_ output.ListingRepository = (*ListingRepository)(nil)
	_ output.Claimer           = (*ListingRepository)(nil)
	_ output.ManagerCounter    = (*ListingRepository)(nil)
)

// ListingRepository stores listings in PostgreSQL. Claims live on the listing
// row so a sweep can run from several processes against one database.
type ListingRepository struct {
	pool    *pgxpool.Pool
	clock   output.Clock
	counter output.ManagerCounter
	log     zerolog.Logger
}

func NewListingRepository(pool *pgxpool.Pool, clock output.Clock, log zerolog.Logger) *ListingRepository {
	r := &ListingRepository{pool: pool, clock: clock, log: log.With().Str("component", "postgres").Logger()}
	r.counter = r
	return r
}

func (r *ListingRepository) Create(ctx context.Context, l *entities.Listing) error {
	args := append(listingArgs(l), timeToTimestamptz(r.clock.Now()))
	row := r.pool.QueryRow(ctx, `INSERT INTO listings(
		kind, title, manager_id, parent_manager_ids,
		recurrence, start_date, start_time, end_date, end_time, time_zone, ends_at,
		status, updated_at, verified_at, needs_review_at, needs_urgent_review_at,
		expired_at, archived_at, finished_at, should_reassess_at, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id, version, created_at`, args...)
	var created time.Time
	if err := row.Scan(&l.ID, &l.Version, &created); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	l.CreatedAt = created.UTC()
	if r.counter != nil {
		if err := r.counter.Adjust(ctx, l.ManagerID, l.Kind, 1); err != nil {
			r.log.Warn().Err(err).Int64("manager_id", l.ManagerID).Msg("manager counter not incremented")
		}
	}
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id int64) (*entities.Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *entities.Listing) error {
	args := append(listingArgs(l), l.ID, l.Version)
	tag, err := r.pool.Exec(ctx, `UPDATE listings SET
		kind = $1, title = $2, manager_id = $3, parent_manager_ids = $4,
		recurrence = $5, start_date = $6, start_time = $7, end_date = $8, end_time = $9, time_zone = $10, ends_at = $11,
		status = $12, updated_at = $13, verified_at = $14, needs_review_at = $15, needs_urgent_review_at = $16,
		expired_at = $17, archived_at = $18, finished_at = $19, should_reassess_at = $20,
		version = version + 1
		WHERE id = $21 AND version = $22`, args...)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if err := r.exists(ctx, l.ID); err != nil {
			return err
		}
		return fmt.Errorf("listing %d version %d: %w", l.ID, l.Version, domain.ErrConcurrentModification)
	}
	l.Version++
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id int64) error {
	var (
		managerID int64
		kind      string
	)
	err := r.pool.QueryRow(ctx, `DELETE FROM listings WHERE id = $1 RETURNING manager_id, kind`, id).Scan(&managerID, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if r.counter != nil {
		if err := r.counter.Adjust(ctx, managerID, entities.Kind(kind), -1); err != nil {
			r.log.Warn().Err(err).Int64("manager_id", managerID).Msg("manager counter not decremented")
		}
	}
	return nil
}

func (r *ListingRepository) DueBefore(ctx context.Context, at time.Time, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM listings
		WHERE should_reassess_at IS NOT NULL AND should_reassess_at <= $1
		AND status NOT IN ('archived', 'finished')
		ORDER BY should_reassess_at, id LIMIT $2`, at, limit)
	if err != nil {
		return nil, fmt.Errorf("find due listings: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("find due listings: %w", err)
	}
	return ids, nil
}

func (r *ListingRepository) ListPublished(ctx context.Context) ([]entities.Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings
		WHERE status IN ('verified', 'needs_review', 'needs_urgent_review') ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list published listings: %w", err)
	}
	defer rows.Close()
	var out []entities.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *ListingRepository) Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	now := r.clock.Now()
	tag, err := r.pool.Exec(ctx, `UPDATE listings SET claimed_by = $1, claimed_until = $2
		WHERE id = $3 AND (claimed_by IS NULL OR claimed_by = $1 OR claimed_until < $4)`,
		owner, now.Add(ttl), id, now)
	if err != nil {
		return false, fmt.Errorf("claim listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, r.exists(ctx, id)
	}
	return true, nil
}

func (r *ListingRepository) Release(ctx context.Context, id int64, owner string) error {
	_, err := r.pool.Exec(ctx, `UPDATE listings SET claimed_by = NULL, claimed_until = NULL
		WHERE id = $1 AND claimed_by = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("release listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) Adjust(ctx context.Context, managerID int64, kind entities.Kind, delta int) error {
	var q string
	switch kind {
	case entities.KindEvent:
		q = `INSERT INTO managers(id, managed_events_counter) VALUES($1, GREATEST(0, $2))
			ON CONFLICT (id) DO UPDATE SET managed_events_counter = GREATEST(0, managers.managed_events_counter + $2)`
	case entities.KindVenue:
		q = `INSERT INTO managers(id, managed_venues_counter) VALUES($1, GREATEST(0, $2))
			ON CONFLICT (id) DO UPDATE SET managed_venues_counter = GREATEST(0, managers.managed_venues_counter + $2)`
	default:
		return fmt.Errorf("no manager counter for kind %q", kind)
	}
	if _, err := r.pool.Exec(ctx, q, managerID, delta); err != nil {
		return fmt.Errorf("adjust manager counter: %w", err)
	}
	return nil
}

func (r *ListingRepository) exists(ctx context.Context, id int64) error {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM listings WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	return err
}
