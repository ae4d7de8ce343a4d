package recurrence

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"

	"github.com/anyaat/Atlas/internal/domain"
)

// DefaultLimit is the number of occurrences listed when callers have no
// preference.
const DefaultLimit = 10

// Occurrence is a single concrete instance of a rule. End is zero when the
// rule has no end time.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// NextOccurrences returns up to limit occurrence instants of rule strictly
// after ref, in increasing order and in the venue zone.
//
// The first occurrence is derived from the anchor day max(StartDate, day of
// ref): daily rules use the anchor day unless its slot is already past, weekly
// rules use the target weekday of the following seven days, never the anchor
// day itself. Later occurrences step by one period in wall-clock time, so
// daylight-saving changes keep the local time of day. Occurrences falling on
// a day after EndDate are excluded.
func NextOccurrences(rule Rule, ref time.Time, limit int) ([]time.Time, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", domain.ErrInvalidRule, limit)
	}
	freq, err := rule.frequency()
	if err != nil {
		return nil, err
	}
	loc, err := rule.Location()
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return nil, nil
	}

	refDate := civil.DateOf(ref.In(loc))
	if rule.EndDate != nil && rule.EndDate.Before(refDate) {
		return nil, nil
	}

	anchor := rule.StartDate
	if refDate.After(anchor) {
		anchor = refDate
	}

	var first time.Time
	switch rule.Kind {
	case Daily:
		first = rule.at(anchor, loc)
		if !first.After(ref) {
			first = rule.at(anchor.AddDays(1), loc)
		}
	case Weekly:
		first = rule.at(nextWeekday(anchor, rule.Weekday), loc)
	}
	if rule.EndDate != nil && civil.DateOf(first).After(*rule.EndDate) {
		return nil, nil
	}

	// first may sit in a spring-forward gap; the slot is pinned separately so
	// later days keep the rule's local time.
	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  first,
		Count:    limit,
		Byhour:   []int{rule.StartTime.Hour},
		Byminute: []int{rule.StartTime.Minute},
		Bysecond: []int{rule.StartTime.Second},
	}
	if rule.Kind == Weekly {
		opt.Byweekday = []rrule.Weekday{rruleWeekday(rule.Weekday)}
	}
	if rule.EndDate != nil {
		opt.Until = rule.EndDate.AddDays(1).In(loc).Add(-time.Second)
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	return rr.All(), nil
}

// Occurrences is NextOccurrences with each start paired with the rule's end
// time on the same local day.
func Occurrences(rule Rule, ref time.Time, limit int) ([]Occurrence, error) {
	starts, err := NextOccurrences(rule, ref, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Occurrence, len(starts))
	for i, s := range starts {
		out[i] = Occurrence{Start: s}
		if rule.EndTime != nil {
			out[i].End = time.Date(s.Year(), s.Month(), s.Day(),
				rule.EndTime.Hour, rule.EndTime.Minute, rule.EndTime.Second, 0, s.Location())
		}
	}
	return out, nil
}

// HasNext reports whether rule has at least one occurrence after ref.
func HasNext(rule Rule, ref time.Time) (bool, error) {
	next, err := NextOccurrences(rule, ref, 1)
	if err != nil {
		return false, err
	}
	return len(next) > 0, nil
}

func (r Rule) frequency() (rrule.Frequency, error) {
	switch r.Kind {
	case Daily:
		return rrule.DAILY, nil
	case Weekly:
		return rrule.WEEKLY, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %v", domain.ErrInvalidRule, r.Kind)
	}
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	return [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[wd]
}

// nextWeekday returns the first day after d falling on wd, within a week.
func nextWeekday(d civil.Date, wd time.Weekday) civil.Date {
	offset := (int(wd) - int(d.In(time.UTC).Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDays(offset)
}
