package recurrence

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/pkg/tz"
)

// Kind is how often a rule repeats.
type Kind int

const (
	Daily Kind = iota + 1
	Weekly
)

func (k Kind) String() string {
	switch k {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule describes a recurring event: daily, or weekly on a fixed weekday, at a
// venue-local time of day, optionally bounded by an end date.
type Rule struct {
	Kind      Kind
	Weekday   time.Weekday // Weekly only
	StartDate civil.Date
	StartTime civil.Time
	EndDate   *civil.Date
	EndTime   *civil.Time // optional; must be after StartTime
	TimeZone  string      // IANA zone of the venue
}

// Label returns the stored recurrence label: "day" for daily rules and the
// lowercase weekday name for weekly ones.
func (r Rule) Label() string {
	if r.Kind == Weekly {
		return strings.ToLower(r.Weekday.String())
	}
	if r.Kind == Daily {
		return "day"
	}
	return ""
}

// ParseKind parses a recurrence label as written by Label. "daily" is
// accepted as an alias of "day".
func ParseKind(label string) (Kind, time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "day" || s == "daily" {
		return Daily, time.Sunday, nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s == strings.ToLower(wd.String()) {
			return Weekly, wd, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unknown recurrence %q", domain.ErrInvalidRule, label)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	layout := "15:04:05"
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return civil.Time{}, fmt.Errorf("%w: time of day %q", domain.ErrInvalidRule, s)
	}
	return civil.TimeOf(t), nil
}

// FormatTimeOfDay renders t as "HH:MM".
func FormatTimeOfDay(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Location resolves the rule's time zone.
func (r Rule) Location() (*time.Location, error) {
	loc, err := tz.Load(r.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	return loc, nil
}

// Validate reports rules that can never be evaluated. Unknown kinds, weekdays
// and zones wrap ErrInvalidRule; inconsistent bounds wrap ErrConfiguration.
func (r Rule) Validate() error {
	switch r.Kind {
	case Daily:
	case Weekly:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d", domain.ErrInvalidRule, int(r.Weekday))
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", domain.ErrInvalidRule, r.Kind)
	}
	if !r.StartDate.IsValid() {
		return fmt.Errorf("%w: start date %v", domain.ErrInvalidRule, r.StartDate)
	}
	if !r.StartTime.IsValid() {
		return fmt.Errorf("%w: start time %v", domain.ErrInvalidRule, r.StartTime)
	}
	if _, err := r.Location(); err != nil {
		return err
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", domain.ErrConfiguration, r.EndDate, r.StartDate)
	}
	if r.EndTime != nil && minutesOf(*r.EndTime) <= minutesOf(r.StartTime) {
		return fmt.Errorf("%w: end time %s is not after start time %s",
			domain.ErrConfiguration, FormatTimeOfDay(*r.EndTime), FormatTimeOfDay(r.StartTime))
	}
	return nil
}

// EndInstant is the first instant after the rule's last day, in the venue
// zone. ok is false for open-ended rules.
func (r Rule) EndInstant() (end time.Time, ok bool, err error) {
	if r.EndDate == nil {
		return time.Time{}, false, nil
	}
	loc, err := r.Location()
	if err != nil {
		return time.Time{}, false, err
	}
	return r.EndDate.AddDays(1).In(loc), true, nil
}

// at places the rule's start time on day d in loc.
func (r Rule) at(d civil.Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, r.StartTime.Hour, r.StartTime.Minute, r.StartTime.Second, 0, loc)
}

func minutesOf(t civil.Time) int {
	return t.Hour*60 + t.Minute
}
