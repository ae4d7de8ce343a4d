package entities

import (
	"time"

	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

// Kind is the kind of record a listing represents.
type Kind string

const (
	KindEvent Kind = "event"
	KindVenue Kind = "venue"
)

// Lifecycle is the publication state of a listing. Zero times mean "not set".
type Lifecycle struct {
	Status    Status
	UpdatedAt time.Time // last content change or re-verification
	// ReachedAt is indexed by Status.Rank.
	ReachedAt        [StatusCount]time.Time
	ShouldReassessAt time.Time // zero once terminal
	Version          int64
}

// Reached returns when the listing last entered s.
func (l Lifecycle) Reached(s Status) time.Time {
	if !s.Valid() {
		return time.Time{}
	}
	return l.ReachedAt[s.Rank()]
}

// Equal compares two lifecycles, ignoring Version.
func (l Lifecycle) Equal(o Lifecycle) bool {
	if l.Status != o.Status || !l.UpdatedAt.Equal(o.UpdatedAt) || !l.ShouldReassessAt.Equal(o.ShouldReassessAt) {
		return false
	}
	for i := range l.ReachedAt {
		if !l.ReachedAt[i].Equal(o.ReachedAt[i]) {
			return false
		}
	}
	return true
}

// Listing is a manageable record subject to the publication lifecycle: a
// recurring event, or a venue-owned record.
type Listing struct {
	ID               int64
	Kind             Kind
	Title            string
	ManagerID        int64
	ParentManagerIDs []int64 // managers of the enclosing region
	Recurrence       *recurrence.Rule
	EndsAt           time.Time // non-recurring end, zero = open-ended
	Lifecycle
	CreatedAt time.Time
}

// Recurring reports whether the listing follows a recurrence rule.
func (l *Listing) Recurring() bool {
	return l.Recurrence != nil
}

// Clone returns a deep copy of l, so a candidate state can be built and
// discarded without touching the original.
func (l *Listing) Clone() *Listing {
	cp := *l
	cp.ParentManagerIDs = append([]int64(nil), l.ParentManagerIDs...)
	if l.Recurrence != nil {
		r := *l.Recurrence
		if r.EndDate != nil {
			d := *r.EndDate
			r.EndDate = &d
		}
		if r.EndTime != nil {
			t := *r.EndTime
			r.EndTime = &t
		}
		cp.Recurrence = &r
	}
	return &cp
}
