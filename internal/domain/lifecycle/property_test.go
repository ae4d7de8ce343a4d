package lifecycle

import (
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

func propertyListing(endOffsetDays int) *entities.Listing {
	l := &entities.Listing{ID: 1, Kind: entities.KindEvent, ManagerID: 1}
	rule := &recurrence.Rule{
		Kind:      recurrence.Daily,
		StartDate: civil.DateOf(created),
		StartTime: civil.Time{Hour: 19},
		TimeZone:  "UTC",
	}
	if endOffsetDays >= 0 {
		end := civil.DateOf(created).AddDays(endOffsetDays)
		rule.EndDate = &end
	}
	l.Recurrence = rule
	return l
}

// TestEvaluateIsIdempotent verifies that a second evaluation at the same
// instant changes nothing.
// Property: Evaluate(Evaluate(l, now), now) == Evaluate(l, now)
func TestEvaluateIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is idempotent", prop.ForAll(
		func(minutes int64, endOffsetDays int, accelerated bool) bool {
			tbl := Production()
			if accelerated {
				tbl = Accelerated()
			}
			m := NewMachine(tbl)
			l := propertyListing(endOffsetDays)
			m.Initialize(l, created)
			now := created.Add(time.Duration(minutes) * time.Minute)

			if _, err := m.Evaluate(l, now); err != nil {
				return false
			}
			once := l.Lifecycle
			out, err := m.Evaluate(l, now)
			if err != nil {
				return false
			}
			return !out.Changed() && len(out.Notices) == 0 && once.Equal(l.Lifecycle)
		},
		gen.Int64Range(0, 20*7*24*60),
		gen.IntRange(-1, 120),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestStatusNeverMovesBackward verifies monotonicity over increasing sweep
// instants without re-verification.
// Property: rank(status(t_i)) <= rank(status(t_{i+1})) for t_i < t_{i+1}
func TestStatusNeverMovesBackward(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("status rank is monotonic", prop.ForAll(
		func(offsets []int64, endOffsetDays int) bool {
			sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
			m := NewMachine(Production())
			l := propertyListing(endOffsetDays)
			m.Initialize(l, created)

			rank := l.Status.Rank()
			for _, off := range offsets {
				if _, err := m.Evaluate(l, created.Add(time.Duration(off)*time.Hour)); err != nil {
					return false
				}
				if l.Status.Rank() < rank {
					return false
				}
				if l.Status.Terminal() != l.ShouldReassessAt.IsZero() {
					return false
				}
				rank = l.Status.Rank()
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 20*7*24)),
		gen.IntRange(-1, 200),
	))

	properties.TestingRun(t)
}
