package database

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

const listingColumns = `id, kind, title, manager_id, parent_manager_ids,
	recurrence, start_date, start_time, end_date, end_time, time_zone, ends_at,
	status, updated_at, verified_at, needs_review_at, needs_urgent_review_at,
	expired_at, archived_at, finished_at, should_reassess_at, version, created_at`

// pgtypeTimestamptzToTime returns t.Time when Valid, else zero time.
func pgtypeTimestamptzToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func dateToPg(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func pgToDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	cd := civil.DateOf(d.Time)
	return &cd
}

func timeOfDayToPg(t *civil.Time) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	us := int64(t.Hour)*3600e6 + int64(t.Minute)*60e6 + int64(t.Second)*1e6 + int64(t.Nanosecond/1000)
	return pgtype.Time{Microseconds: us, Valid: true}
}

func pgToTimeOfDay(t pgtype.Time) *civil.Time {
	if !t.Valid {
		return nil
	}
	ct := civil.TimeOf(time.UnixMicro(t.Microseconds).UTC())
	return &ct
}

type scanner interface {
	Scan(dest ...any) error
}

// ruleRow holds the stored form of a recurrence rule.
type ruleRow struct {
	label     pgtype.Text
	startDate pgtype.Date
	startTime pgtype.Time
	endDate   pgtype.Date
	endTime   pgtype.Time
	zone      pgtype.Text
}

func ruleToRow(r *recurrence.Rule) ruleRow {
	if r == nil {
		return ruleRow{}
	}
	return ruleRow{
		label:     pgtype.Text{String: r.Label(), Valid: true},
		startDate: dateToPg(&r.StartDate),
		startTime: timeOfDayToPg(&r.StartTime),
		endDate:   dateToPg(r.EndDate),
		endTime:   timeOfDayToPg(r.EndTime),
		zone:      pgtype.Text{String: r.TimeZone, Valid: true},
	}
}

func (rr ruleRow) toDomain() (*recurrence.Rule, error) {
	if !rr.label.Valid {
		return nil, nil
	}
	kind, wd, err := recurrence.ParseKind(rr.label.String)
	if err != nil {
		return nil, err
	}
	r := &recurrence.Rule{
		Kind:     kind,
		Weekday:  wd,
		TimeZone: rr.zone.String,
		EndDate:  pgToDate(rr.endDate),
		EndTime:  pgToTimeOfDay(rr.endTime),
	}
	if d := pgToDate(rr.startDate); d != nil {
		r.StartDate = *d
	}
	if t := pgToTimeOfDay(rr.startTime); t != nil {
		r.StartTime = *t
	}
	return r, nil
}

func scanListing(row scanner) (*entities.Listing, error) {
	var (
		l        entities.Listing
		kind     string
		rr       ruleRow
		endsAt   pgtype.Timestamptz
		status   string
		updated  pgtype.Timestamptz
		reached  [entities.StatusCount]pgtype.Timestamptz
		reassess pgtype.Timestamptz
		created  pgtype.Timestamptz
	)
	err := row.Scan(
		&l.ID, &kind, &l.Title, &l.ManagerID, &l.ParentManagerIDs,
		&rr.label, &rr.startDate, &rr.startTime, &rr.endDate, &rr.endTime, &rr.zone, &endsAt,
		&status, &updated, &reached[0], &reached[1], &reached[2],
		&reached[3], &reached[4], &reached[5], &reassess, &l.Version, &created,
	)
	if err != nil {
		return nil, err
	}
	l.Kind = entities.Kind(kind)
	if l.Recurrence, err = rr.toDomain(); err != nil {
		return nil, fmt.Errorf("listing %d recurrence: %w", l.ID, err)
	}
	if l.Status, err = entities.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("listing %d: %w", l.ID, err)
	}
	l.EndsAt = pgtypeTimestamptzToTime(endsAt)
	l.UpdatedAt = pgtypeTimestamptzToTime(updated)
	for i := range reached {
		l.ReachedAt[i] = pgtypeTimestamptzToTime(reached[i])
	}
	l.ShouldReassessAt = pgtypeTimestamptzToTime(reassess)
	l.CreatedAt = pgtypeTimestamptzToTime(created)
	return &l, nil
}

// listingArgs returns the column values shared by INSERT and UPDATE, in
// listingColumns order minus id, version and created_at.
func listingArgs(l *entities.Listing) []any {
	parents := l.ParentManagerIDs
	if parents == nil {
		parents = []int64{}
	}
	rr := ruleToRow(l.Recurrence)
	return []any{
		string(l.Kind), l.Title, l.ManagerID, parents,
		rr.label, rr.startDate, rr.startTime, rr.endDate, rr.endTime, rr.zone, timeToTimestamptz(l.EndsAt),
		string(l.Status), timeToTimestamptz(l.UpdatedAt),
		timeToTimestamptz(l.ReachedAt[0]), timeToTimestamptz(l.ReachedAt[1]), timeToTimestamptz(l.ReachedAt[2]),
		timeToTimestamptz(l.ReachedAt[3]), timeToTimestamptz(l.ReachedAt[4]), timeToTimestamptz(l.ReachedAt[5]),
		timeToTimestamptz(l.ShouldReassessAt),
	}
}
