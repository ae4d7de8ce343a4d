package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/ports/output"
)

//go:embed schema.sql
var schema string

var (
	_ output.ListingRepository = (*Store)(nil)
	_ output.Claimer           = (*Store)(nil)
	_ output.ManagerCounter    = (*Store)(nil)
)

// Store keeps listings in a single SQLite file. It implements the listing
// repository, row claims and manager counters.
type Store struct {
	db      *sql.DB
	clock   output.Clock
	counter output.ManagerCounter
	log     zerolog.Logger
}

// Open opens (and creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string, clock output.Clock, log zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; it also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	s := &Store{db: db, clock: clock, log: log.With().Str("component", "sqlite").Logger()}
	s.counter = s
	log.Info().Str("path", path).Msg("sqlite store ready")
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, l *entities.Listing) error {
	args, err := listingArgs(l)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	created := s.clock.Now()
	args = append(args, created.UnixMilli())
	res, err := s.db.ExecContext(ctx, `INSERT INTO listings(
		kind, title, manager_id, parent_manager_ids,
		recurrence, start_date, start_time, end_date, end_time, time_zone, ends_at,
		status, updated_at, verified_at, needs_review_at, needs_urgent_review_at,
		expired_at, archived_at, finished_at, should_reassess_at, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	l.ID = id
	l.Version = 1
	l.CreatedAt = time.UnixMilli(created.UnixMilli()).UTC()
	if s.counter != nil {
		if err := s.counter.Adjust(ctx, l.ManagerID, l.Kind, 1); err != nil {
			s.log.Warn().Err(err).Int64("manager_id", l.ManagerID).Msg("manager counter not incremented")
		}
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*entities.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

func (s *Store) Save(ctx context.Context, l *entities.Listing) error {
	args, err := listingArgs(l)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	args = append(args, l.ID, l.Version)
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET
		kind = ?, title = ?, manager_id = ?, parent_manager_ids = ?,
		recurrence = ?, start_date = ?, start_time = ?, end_date = ?, end_time = ?, time_zone = ?, ends_at = ?,
		status = ?, updated_at = ?, verified_at = ?, needs_review_at = ?, needs_urgent_review_at = ?,
		expired_at = ?, archived_at = ?, finished_at = ?, should_reassess_at = ?,
		version = version + 1
		WHERE id = ? AND version = ?`, args...)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	if n == 0 {
		if err := s.exists(ctx, l.ID); err != nil {
			return err
		}
		return fmt.Errorf("listing %d version %d: %w", l.ID, l.Version, domain.ErrConcurrentModification)
	}
	l.Version++
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	l, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if s.counter != nil {
		if err := s.counter.Adjust(ctx, l.ManagerID, l.Kind, -1); err != nil {
			s.log.Warn().Err(err).Int64("manager_id", l.ManagerID).Msg("manager counter not decremented")
		}
	}
	return nil
}

func (s *Store) DueBefore(ctx context.Context, at time.Time, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM listings
		WHERE should_reassess_at IS NOT NULL AND should_reassess_at <= ?
		AND status NOT IN ('archived', 'finished')
		ORDER BY should_reassess_at, id LIMIT ?`, at.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("find due listings: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListPublished(ctx context.Context) ([]entities.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings
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

// Claim takes the listing for owner unless another owner holds an unexpired
// claim. Re-claiming by the same owner extends the claim.
func (s *Store) Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	now := s.clock.Now()
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET claimed_by = ?, claimed_until = ?
		WHERE id = ? AND (claimed_by IS NULL OR claimed_by = ? OR claimed_until < ?)`,
		owner, now.Add(ttl).UnixMilli(), id, owner, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("claim listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, s.exists(ctx, id)
	}
	return true, nil
}

func (s *Store) Release(ctx context.Context, id int64, owner string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE listings SET claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND claimed_by = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("release listing: %w", err)
	}
	return nil
}

// Adjust moves the per-kind counter of a manager by delta.
func (s *Store) Adjust(ctx context.Context, managerID int64, kind entities.Kind, delta int) error {
	column, err := counterColumn(kind)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO managers(id) VALUES(?) ON CONFLICT(id) DO NOTHING`, managerID); err != nil {
		return fmt.Errorf("adjust manager counter: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE managers SET `+column+` = MAX(0, `+column+` + ?) WHERE id = ?`, delta, managerID)
	if err != nil {
		return fmt.Errorf("adjust manager counter: %w", err)
	}
	return nil
}

// Counts returns the managed event and venue counters of a manager.
func (s *Store) Counts(ctx context.Context, managerID int64) (events, venues int, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT managed_events_counter, managed_venues_counter FROM managers WHERE id = ?`,
		managerID).Scan(&events, &venues)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return events, venues, err
}

func (s *Store) exists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("listing %d: %w", id, domain.ErrListingNotFound)
	}
	return err
}

func counterColumn(kind entities.Kind) (string, error) {
	switch kind {
	case entities.KindEvent:
		return "managed_events_counter", nil
	case entities.KindVenue:
		return "managed_venues_counter", nil
	default:
		return "", fmt.Errorf("no manager counter for kind %q", kind)
	}
}
