package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyaat/Atlas/internal/domain"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func clock(h, m int) civil.Time {
	return civil.Time{Hour: h, Minute: m}
}

func TestNextOccurrences_WeeklySkipsSameDaySlot(t *testing.T) {
	rule := Rule{
		Kind:      Weekly,
		Weekday:   time.Wednesday,
		StartDate: date(2024, time.January, 1),
		StartTime: clock(9, 0),
		TimeZone:  "UTC",
	}
	ref := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC) // Wednesday

	got, err := NextOccurrences(rule, ref, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(time.Date(2024, time.January, 17, 9, 0, 0, 0, time.UTC)), "got %s", got[0])
	assert.True(t, got[1].Equal(time.Date(2024, time.January, 24, 9, 0, 0, 0, time.UTC)))
	assert.True(t, got[2].Equal(time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)))
}

func TestNextOccurrences_WeeklyFromOtherWeekday(t *testing.T) {
	rule := Rule{
		Kind:      Weekly,
		Weekday:   time.Wednesday,
		StartDate: date(2024, time.January, 1),
		StartTime: clock(19, 30),
		TimeZone:  "UTC",
	}
	ref := time.Date(2024, time.January, 8, 12, 0, 0, 0, time.UTC) // Monday

	got, err := NextOccurrences(rule, ref, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(time.Date(2024, time.January, 10, 19, 30, 0, 0, time.UTC)), "got %s", got[0])
}

func TestNextOccurrences_WeeklyFutureStartSkipsAnchorDay(t *testing.T) {
	rule := Rule{
		Kind:      Weekly,
		Weekday:   time.Wednesday,
		StartDate: date(2024, time.January, 10),
		StartTime: clock(9, 0),
		TimeZone:  "UTC",
	}
	ref := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	got, err := NextOccurrences(rule, ref, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(time.Date(2024, time.January, 17, 9, 0, 0, 0, time.UTC)), "got %s", got[0])
}

func TestNextOccurrences_DailyUsesTodayWhenSlotAhead(t *testing.T) {
	rule := Rule{Kind: Daily, StartDate: date(2024, time.January, 1), StartTime: clock(18, 0), TimeZone: "UTC"}

	got, err := NextOccurrences(rule, time.Date(2024, time.February, 2, 17, 59, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(time.Date(2024, time.February, 2, 18, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2024, time.February, 3, 18, 0, 0, 0, time.UTC)))

	got, err = NextOccurrences(rule, time.Date(2024, time.February, 2, 18, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(time.Date(2024, time.February, 3, 18, 0, 0, 0, time.UTC)), "slot at ref is not in the future")
}

func TestNextOccurrences_DailyFutureStart(t *testing.T) {
	rule := Rule{Kind: Daily, StartDate: date(2024, time.March, 1), StartTime: clock(8, 15), TimeZone: "UTC"}

	got, err := NextOccurrences(rule, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(time.Date(2024, time.March, 1, 8, 15, 0, 0, time.UTC)))
}

func TestNextOccurrences_StopsAtEndDate(t *testing.T) {
	end := date(2024, time.January, 5)
	rule := Rule{Kind: Daily, StartDate: date(2024, time.January, 1), StartTime: clock(18, 0), EndDate: &end, TimeZone: "UTC"}

	got, err := NextOccurrences(rule, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 5, got[4].Day())
}

func TestNextOccurrences_WeeklyFirstCandidatePastEndDate(t *testing.T) {
	end := date(2024, time.January, 12)
	rule := Rule{Kind: Weekly, Weekday: time.Wednesday, StartDate: date(2024, time.January, 1), StartTime: clock(9, 0), EndDate: &end, TimeZone: "UTC"}

	got, err := NextOccurrences(rule, time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNextOccurrences_SingleDayEventFinishedNextDay(t *testing.T) {
	day := date(2024, time.June, 1)
	rule := Rule{Kind: Daily, StartDate: day, StartTime: clock(10, 0), EndDate: &day, TimeZone: "Europe/Paris"}

	before, err := NextOccurrences(rule, time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Len(t, before, 1)

	after, err := NextOccurrences(rule, time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestNextOccurrences_KeepsLocalTimeAcrossDST(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	rule := Rule{Kind: Weekly, Weekday: time.Sunday, StartDate: date(2024, time.March, 1), StartTime: clock(18, 0), TimeZone: "Europe/Paris"}

	got, err := NextOccurrences(rule, time.Date(2024, time.March, 18, 12, 0, 0, 0, paris), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, occ := range got {
		local := occ.In(paris)
		assert.Equal(t, 18, local.Hour())
		assert.Equal(t, time.Sunday, local.Weekday())
	}
	assert.Equal(t, 24, got[0].Day())
	assert.Equal(t, 7*24*time.Hour-time.Hour, got[1].Sub(got[0]), "spring forward shortens the week")
	assert.Equal(t, 7*24*time.Hour, got[2].Sub(got[1]))

	// 02:30 does not exist on 2024-03-10 in New York.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	gap := clock(2, 30)

	daily := Rule{Kind: Daily, StartDate: date(2024, time.March, 1), StartTime: gap, TimeZone: "America/New_York"}
	got, err = NextOccurrences(daily, time.Date(2024, time.March, 10, 0, 0, 0, 0, ny), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(time.Date(2024, time.March, 10, 2, 30, 0, 0, ny)))
	for i, day := range []int{11, 12} {
		local := got[i+1].In(ny)
		assert.Equal(t, day, local.Day())
		assert.Equal(t, 2, local.Hour())
		assert.Equal(t, 30, local.Minute())
	}

	weekly := Rule{Kind: Weekly, Weekday: time.Sunday, StartDate: date(2024, time.March, 1), StartTime: gap, TimeZone: "America/New_York"}
	got, err = NextOccurrences(weekly, time.Date(2024, time.March, 9, 12, 0, 0, 0, ny), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(time.Date(2024, time.March, 10, 2, 30, 0, 0, ny)))
	for i, day := range []int{17, 24} {
		local := got[i+1].In(ny)
		assert.Equal(t, day, local.Day())
		assert.Equal(t, time.Sunday, local.Weekday())
		assert.Equal(t, 2, local.Hour())
		assert.Equal(t, 30, local.Minute())
	}
}

func TestNextOccurrences_LimitEdges(t *testing.T) {
	rule := Rule{Kind: Daily, StartDate: date(2024, time.January, 1), StartTime: clock(9, 0), TimeZone: "UTC"}
	ref := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	got, err := NextOccurrences(rule, ref, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NextOccurrences(rule, ref, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidRule)

	_, err = NextOccurrences(Rule{Kind: Kind(42), TimeZone: "UTC"}, ref, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidRule)

	_, err = NextOccurrences(Rule{Kind: Daily, StartDate: rule.StartDate, TimeZone: "Mars/Olympus"}, ref, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}

func TestOccurrences_PairsEndTime(t *testing.T) {
	end := clock(20, 30)
	rule := Rule{Kind: Daily, StartDate: date(2024, time.January, 1), StartTime: clock(18, 0), EndTime: &end, TimeZone: "UTC"}

	got, err := Occurrences(rule, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 150*time.Minute, got[0].End.Sub(got[0].Start))
}

func TestRuleValidate(t *testing.T) {
	start := date(2024, time.January, 10)
	earlier := date(2024, time.January, 9)
	badEnd := clock(17, 0)

	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"valid daily", Rule{Kind: Daily, StartDate: start, StartTime: clock(18, 0), TimeZone: "UTC"}, nil},
		{"end before start", Rule{Kind: Daily, StartDate: start, StartTime: clock(18, 0), EndDate: &earlier, TimeZone: "UTC"}, domain.ErrConfiguration},
		{"end time before start time", Rule{Kind: Daily, StartDate: start, StartTime: clock(18, 0), EndTime: &badEnd, TimeZone: "UTC"}, domain.ErrConfiguration},
		{"unknown kind", Rule{StartDate: start, TimeZone: "UTC"}, domain.ErrInvalidRule},
		{"unknown zone", Rule{Kind: Daily, StartDate: start, TimeZone: "Nowhere/Land"}, domain.ErrInvalidRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	kind, _, err := ParseKind("day")
	require.NoError(t, err)
	assert.Equal(t, Daily, kind)

	kind, wd, err := ParseKind("Thursday")
	require.NoError(t, err)
	assert.Equal(t, Weekly, kind)
	assert.Equal(t, time.Thursday, wd)
	assert.Equal(t, "thursday", Rule{Kind: kind, Weekday: wd}.Label())

	_, _, err = ParseKind("fortnightly")
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("18:05")
	require.NoError(t, err)
	assert.Equal(t, "18:05", FormatTimeOfDay(got))

	_, err = ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}
