package lifecycle

import (
	"time"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

// Reason says why a notice is owed.
type Reason string

const (
	ReasonCreated      Reason = "created"
	ReasonUrgentReview Reason = "urgent_review"
	ReasonFinished     Reason = "finished"
)

// Notice declares that managers must be told about a transition. Delivery
// belongs to the notifier.
type Notice struct {
	ListingID  int64
	Title      string
	From       entities.Status // empty on creation
	To         entities.Status
	Reason     Reason
	Recipients []int64 // manager ids, owner first
}

// Outcome describes one evaluation.
type Outcome struct {
	From    entities.Status
	To      entities.Status
	Steps   []entities.Status // states entered, in order
	Notices []Notice
}

// Changed reports whether the status moved.
func (o Outcome) Changed() bool { return len(o.Steps) > 0 }

// Machine applies a Table to listings. It holds no mutable state and is safe
// for concurrent use.
type Machine struct {
	table Table
}

func NewMachine(t Table) *Machine {
	return &Machine{table: t}
}

func (m *Machine) Table() Table { return m.table }

// Threshold is the instant at which l becomes eligible for status s.
func (m *Machine) Threshold(l *entities.Listing, s entities.Status) (time.Time, bool) {
	st, ok := m.table.step(s)
	if !ok {
		return time.Time{}, false
	}
	return m.threshold(l, st), true
}

func (m *Machine) threshold(l *entities.Listing, st Step) time.Time {
	at := l.UpdatedAt.Add(st.After)
	if m.table.RoundToHour {
		at = at.Truncate(time.Hour)
	}
	return at
}

// NextReassessAt is the threshold of the rung after l's status, or zero when
// l is terminal.
func (m *Machine) NextReassessAt(l *entities.Listing) time.Time {
	st, ok := m.table.next(l.Status)
	if !ok {
		return time.Time{}
	}
	return m.threshold(l, st)
}

// Initialize puts a new listing in verified as of now. The returned outcome
// carries the owner verification prompt.
func (m *Machine) Initialize(l *entities.Listing, now time.Time) Outcome {
	l.Status = entities.StatusVerified
	l.UpdatedAt = now
	l.ReachedAt = [entities.StatusCount]time.Time{}
	l.ReachedAt[entities.StatusVerified.Rank()] = now
	l.ShouldReassessAt = m.NextReassessAt(l)
	return Outcome{
		To:      entities.StatusVerified,
		Steps:   []entities.Status{entities.StatusVerified},
		Notices: []Notice{notice(l, "", entities.StatusVerified, ReasonCreated, false)},
	}
}

// Reverify resets l to verified as of now. Content edits go through the same
// reset. Every state l has reached is re-stamped with now.
func (m *Machine) Reverify(l *entities.Listing, now time.Time) Outcome {
	from := l.Status
	l.Status = entities.StatusVerified
	l.UpdatedAt = now
	for i := range l.ReachedAt {
		if !l.ReachedAt[i].IsZero() {
			l.ReachedAt[i] = now
		}
	}
	l.ReachedAt[entities.StatusVerified.Rank()] = now
	l.ShouldReassessAt = m.NextReassessAt(l)
	out := Outcome{From: from, To: entities.StatusVerified}
	if from != entities.StatusVerified {
		out.Steps = []entities.Status{entities.StatusVerified}
	}
	return out
}

// Evaluate moves l forward for now. Finishing takes priority over the ladder;
// otherwise l climbs one rung at a time while the next threshold has elapsed.
// Terminal listings are left untouched. Evaluate is idempotent for a fixed now.
func (m *Machine) Evaluate(l *entities.Listing, now time.Time) (Outcome, error) {
	out := Outcome{From: l.Status, To: l.Status}
	if l.Status.Terminal() {
		return out, nil
	}

	finish, err := ShouldFinish(l, now)
	if err != nil {
		return out, err
	}
	if finish {
		from := l.Status
		m.enter(l, entities.StatusFinished, now)
		out.To = l.Status
		out.Steps = append(out.Steps, entities.StatusFinished)
		out.Notices = append(out.Notices, notice(l, from, entities.StatusFinished, ReasonFinished, false))
		return out, nil
	}

	for {
		st, ok := m.table.next(l.Status)
		if !ok || now.Before(m.threshold(l, st)) {
			break
		}
		if st.Guard != nil && !st.Guard(l, now) {
			break
		}
		from := l.Status
		m.enter(l, st.Status, now)
		out.Steps = append(out.Steps, st.Status)
		if st.Status == entities.StatusNeedsUrgentReview {
			out.Notices = append(out.Notices, notice(l, from, st.Status, ReasonUrgentReview, true))
		}
	}
	l.ShouldReassessAt = m.NextReassessAt(l)
	out.To = l.Status
	return out, nil
}

func (m *Machine) enter(l *entities.Listing, s entities.Status, now time.Time) {
	l.Status = s
	l.ReachedAt[s.Rank()] = now
	l.ShouldReassessAt = m.NextReassessAt(l)
}

// ShouldFinish reports whether l has no future left: a recurring listing
// without another occurrence, or a one-off listing whose end has passed.
func ShouldFinish(l *entities.Listing, now time.Time) (bool, error) {
	if l.Recurring() {
		more, err := recurrence.HasNext(*l.Recurrence, now)
		if err != nil {
			return false, err
		}
		return !more, nil
	}
	return !l.EndsAt.IsZero() && !now.Before(l.EndsAt), nil
}

// Visible reports whether l may be published at now: its end has not passed
// and its status is verified or awaiting review.
func Visible(l *entities.Listing, now time.Time) bool {
	if !l.Status.Published() {
		return false
	}
	if l.Recurring() {
		end, ok, err := l.Recurrence.EndInstant()
		if err != nil {
			return false
		}
		return !ok || now.Before(end)
	}
	return l.EndsAt.IsZero() || now.Before(l.EndsAt)
}

func notice(l *entities.Listing, from, to entities.Status, reason Reason, withParents bool) Notice {
	recipients := []int64{l.ManagerID}
	if withParents {
		for _, id := range l.ParentManagerIDs {
			if id != l.ManagerID {
				recipients = append(recipients, id)
			}
		}
	}
	return Notice{
		ListingID:  l.ID,
		Title:      l.Title,
		From:       from,
		To:         to,
		Reason:     reason,
		Recipients: recipients,
	}
}
