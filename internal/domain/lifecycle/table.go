package lifecycle

import (
	"fmt"
	"time"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
)

const week = 7 * 24 * time.Hour

// Guard can hold a listing on its current rung even after the next
// threshold has elapsed. A nil guard always allows the step. Guards are set in
// code only; built-in and YAML profiles have none. A held listing keeps
// ShouldReassessAt at the elapsed threshold, so every sweep re-evaluates it
// until the guard lets it through.
type Guard func(l *entities.Listing, now time.Time) bool

// Step is one rung of the ladder: the listing may enter Status once After has
// elapsed since its last update.
type Step struct {
	Status entities.Status
	After  time.Duration
	Guard  Guard
}

// Table is the ordered transition table interpreted by Machine.
type Table struct {
	Steps []Step
	// RoundToHour truncates threshold instants to the start of their hour.
	RoundToHour bool
}

// NewTable validates steps: they must be the ladder states in order, start
// with verified at zero, and have strictly increasing durations.
func NewTable(steps []Step, roundToHour bool) (Table, error) {
	if len(steps) != len(entities.Ladder) {
		return Table{}, fmt.Errorf("%w: lifecycle table needs %d steps, got %d",
			domain.ErrConfiguration, len(entities.Ladder), len(steps))
	}
	for i, st := range steps {
		if st.Status != entities.Ladder[i] {
			return Table{}, fmt.Errorf("%w: lifecycle step %d is %q, want %q",
				domain.ErrConfiguration, i, st.Status, entities.Ladder[i])
		}
		if i == 0 {
			if st.After != 0 {
				return Table{}, fmt.Errorf("%w: %s must start at 0, got %s",
					domain.ErrConfiguration, st.Status, st.After)
			}
			continue
		}
		if st.After <= steps[i-1].After {
			return Table{}, fmt.Errorf("%w: %s after %s is not later than %s after %s",
				domain.ErrConfiguration, st.Status, st.After, steps[i-1].Status, steps[i-1].After)
		}
	}
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return Table{Steps: cp, RoundToHour: roundToHour}, nil
}

// Production is the default profile: review after 8 weeks, escalate after 9,
// expire after 10 and archive after 12.
func Production() Table {
	t, _ := NewTable([]Step{
		{Status: entities.StatusVerified},
		{Status: entities.StatusNeedsReview, After: 8 * week},
		{Status: entities.StatusNeedsUrgentReview, After: 9 * week},
		{Status: entities.StatusExpired, After: 10 * week},
		{Status: entities.StatusArchived, After: 12 * week},
	}, true)
	return t
}

// Accelerated runs the same ladder on minutes, for staging and demos.
func Accelerated() Table {
	t, _ := NewTable([]Step{
		{Status: entities.StatusVerified},
		{Status: entities.StatusNeedsReview, After: 5 * time.Minute},
		{Status: entities.StatusNeedsUrgentReview, After: 10 * time.Minute},
		{Status: entities.StatusExpired, After: 15 * time.Minute},
		{Status: entities.StatusArchived, After: 20 * time.Minute},
	}, false)
	return t
}

// Profile returns a built-in table by name.
func Profile(name string) (Table, bool) {
	switch name {
	case "production", "":
		return Production(), true
	case "accelerated":
		return Accelerated(), true
	default:
		return Table{}, false
	}
}

// step returns the table entry for s.
func (t Table) step(s entities.Status) (Step, bool) {
	r := s.Rank()
	if r < 0 || r >= len(t.Steps) {
		return Step{}, false
	}
	return t.Steps[r], true
}

// next returns the entry following s on the ladder.
func (t Table) next(s entities.Status) (Step, bool) {
	if s.Terminal() {
		return Step{}, false
	}
	r := s.Rank()
	if r < 0 || r+1 >= len(t.Steps) {
		return Step{}, false
	}
	return t.Steps[r+1], true
}
