package ics

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

func TestBuildFeed(t *testing.T) {
	endTime := civil.Time{Hour: 20}
	listings := []entities.Listing{
		{
			ID:    4,
			Title: "Wednesday chanting",
			Recurrence: &recurrence.Rule{
				Kind:      recurrence.Weekly,
				Weekday:   time.Wednesday,
				StartDate: civil.Date{Year: 2024, Month: time.January, Day: 3},
				StartTime: civil.Time{Hour: 19},
				EndTime:   &endTime,
				TimeZone:  "UTC",
			},
		},
		{ID: 5, Title: "Library", EndsAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	from := time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC)

	out, err := BuildFeed(listings, from, 2)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	assert.Equal(t, "4-1704913200@atlas", events[0].Id())
	assert.Equal(t, "Wednesday chanting", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, time.January, 10, 19, 0, 0, 0, time.UTC)), "got %s", start)
	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC)))
}

func TestBuildFeed_Empty(t *testing.T) {
	out, err := BuildFeed(nil, time.Now(), 0)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
