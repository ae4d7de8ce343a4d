// Package ics exports upcoming occurrences as an iCalendar feed.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

const productID = "-//Atlas//Listing occurrences//EN"

// BuildFeed renders up to perListing upcoming occurrences after from for every
// recurring listing. One-off listings carry no schedule and are left out.
func BuildFeed(listings []entities.Listing, from time.Time, perListing int) (string, error) {
	if perListing <= 0 {
		perListing = recurrence.DefaultLimit
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Atlas")

	for i := range listings {
		l := &listings[i]
		if !l.Recurring() {
			continue
		}
		occ, err := recurrence.Occurrences(*l.Recurrence, from, perListing)
		if err != nil {
			return "", fmt.Errorf("listing %d: %w", l.ID, err)
		}
		for _, o := range occ {
			ev := cal.AddEvent(fmt.Sprintf("%d-%d@atlas", l.ID, o.Start.Unix()))
			ev.SetDtStampTime(from)
			ev.SetStartAt(o.Start)
			if !o.End.IsZero() {
				ev.SetEndAt(o.End)
			}
			ev.SetSummary(l.Title)
		}
	}
	return cal.Serialize(), nil
}
