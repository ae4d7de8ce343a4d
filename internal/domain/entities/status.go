package entities

import "fmt"

// Status is the publication lifecycle state of a listing.
type Status string

const (
	StatusVerified          Status = "verified"
	StatusNeedsReview       Status = "needs_review"
	StatusNeedsUrgentReview Status = "needs_urgent_review"
	StatusExpired           Status = "expired"
	StatusArchived          Status = "archived"
	StatusFinished          Status = "finished"
)

// StatusCount is the number of lifecycle states.
const StatusCount = 6

// Ladder is the ordered sequence of states a listing walks through as it ages.
var Ladder = [...]Status{
	StatusVerified,
	StatusNeedsReview,
	StatusNeedsUrgentReview,
	StatusExpired,
	StatusArchived,
}

// Rank is the position of s in the lifecycle; finished ranks last.
func (s Status) Rank() int {
	switch s {
	case StatusVerified:
		return 0
	case StatusNeedsReview:
		return 1
	case StatusNeedsUrgentReview:
		return 2
	case StatusExpired:
		return 3
	case StatusArchived:
		return 4
	case StatusFinished:
		return 5
	default:
		return -1
	}
}

func (s Status) Valid() bool { return s.Rank() >= 0 }

// Terminal states are never reassessed automatically.
func (s Status) Terminal() bool {
	return s == StatusArchived || s == StatusFinished
}

// Published reports whether a listing in state s may be shown publicly.
func (s Status) Published() bool {
	return s == StatusVerified || s == StatusNeedsReview || s == StatusNeedsUrgentReview
}

// ParseStatus parses a stored status value.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}
