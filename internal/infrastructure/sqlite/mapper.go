package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

const listingColumns = `id, kind, title, manager_id, parent_manager_ids,
	recurrence, start_date, start_time, end_date, end_time, time_zone, ends_at,
	status, updated_at, verified_at, needs_review_at, needs_urgent_review_at,
	expired_at, archived_at, finished_at, should_reassess_at, version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func millis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.UnixMilli(n.Int64).UTC()
}

func nullString(s string, ok bool) sql.NullString {
	return sql.NullString{String: s, Valid: ok}
}

// ruleColumns holds the stored form of a recurrence rule.
type ruleColumns struct {
	label, startDate, startTime, endDate, endTime, zone sql.NullString
}

func ruleToColumns(r *recurrence.Rule) ruleColumns {
	if r == nil {
		return ruleColumns{}
	}
	c := ruleColumns{
		label:     nullString(r.Label(), true),
		startDate: nullString(r.StartDate.String(), true),
		startTime: nullString(r.StartTime.String(), true),
		zone:      nullString(r.TimeZone, true),
	}
	if r.EndDate != nil {
		c.endDate = nullString(r.EndDate.String(), true)
	}
	if r.EndTime != nil {
		c.endTime = nullString(r.EndTime.String(), true)
	}
	return c
}

func (c ruleColumns) rule() (*recurrence.Rule, error) {
	if !c.label.Valid {
		return nil, nil
	}
	kind, wd, err := recurrence.ParseKind(c.label.String)
	if err != nil {
		return nil, err
	}
	r := &recurrence.Rule{Kind: kind, Weekday: wd, TimeZone: c.zone.String}
	if r.StartDate, err = civil.ParseDate(c.startDate.String); err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	if r.StartTime, err = civil.ParseTime(c.startTime.String); err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	if c.endDate.Valid {
		d, err := civil.ParseDate(c.endDate.String)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		r.EndDate = &d
	}
	if c.endTime.Valid {
		t, err := civil.ParseTime(c.endTime.String)
		if err != nil {
			return nil, fmt.Errorf("end_time: %w", err)
		}
		r.EndTime = &t
	}
	return r, nil
}

func scanListing(row scanner) (*entities.Listing, error) {
	var (
		l        entities.Listing
		kind     string
		parents  string
		rc       ruleColumns
		endsAt   sql.NullInt64
		status   string
		updated  int64
		reached  [entities.StatusCount]sql.NullInt64
		reassess sql.NullInt64
		created  int64
	)
	err := row.Scan(
		&l.ID, &kind, &l.Title, &l.ManagerID, &parents,
		&rc.label, &rc.startDate, &rc.startTime, &rc.endDate, &rc.endTime, &rc.zone, &endsAt,
		&status, &updated, &reached[0], &reached[1], &reached[2],
		&reached[3], &reached[4], &reached[5], &reassess, &l.Version, &created,
	)
	if err != nil {
		return nil, err
	}
	l.Kind = entities.Kind(kind)
	if err := json.Unmarshal([]byte(parents), &l.ParentManagerIDs); err != nil {
		return nil, fmt.Errorf("listing %d parent_manager_ids: %w", l.ID, err)
	}
	if l.Recurrence, err = rc.rule(); err != nil {
		return nil, fmt.Errorf("listing %d recurrence: %w", l.ID, err)
	}
	if l.Status, err = entities.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("listing %d: %w", l.ID, err)
	}
	l.EndsAt = fromMillis(endsAt)
	l.UpdatedAt = time.UnixMilli(updated).UTC()
	for i := range reached {
		l.ReachedAt[i] = fromMillis(reached[i])
	}
	l.ShouldReassessAt = fromMillis(reassess)
	l.CreatedAt = time.UnixMilli(created).UTC()
	return &l, nil
}

// listingArgs returns the column values shared by INSERT and UPDATE, in
// listingColumns order minus id, version and created_at.
func listingArgs(l *entities.Listing) ([]any, error) {
	parents := l.ParentManagerIDs
	if parents == nil {
		parents = []int64{}
	}
	pj, err := json.Marshal(parents)
	if err != nil {
		return nil, err
	}
	rc := ruleToColumns(l.Recurrence)
	return []any{
		string(l.Kind), l.Title, l.ManagerID, string(pj),
		rc.label, rc.startDate, rc.startTime, rc.endDate, rc.endTime, rc.zone, millis(l.EndsAt),
		string(l.Status), l.UpdatedAt.UnixMilli(),
		millis(l.ReachedAt[0]), millis(l.ReachedAt[1]), millis(l.ReachedAt[2]),
		millis(l.ReachedAt[3]), millis(l.ReachedAt[4]), millis(l.ReachedAt[5]),
		millis(l.ShouldReassessAt),
	}, nil
}
