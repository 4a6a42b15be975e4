package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func TestParseToken(t *testing.T) {
	for _, tok := range Tokens {
		got, err := ParseToken(string(tok))
		require.NoError(t, err)
		assert.Equal(t, tok, got)
	}

	got, err := ParseToken("  THIS_MONTH ")
	require.NoError(t, err)
	assert.Equal(t, ThisMonth, got)

	_, err = ParseToken("yesterday")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestResolve(t *testing.T) {
	loc := warsaw(t)
	// Thursday
	now := time.Date(2024, 3, 14, 15, 30, 0, 0, loc)
	endOfDay := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	}

	tests := []struct {
		token Token
		start time.Time
		end   time.Time
	}{
		{ThisWeek, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), now},
		{ThisMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), endOfDay(2024, 3, 31)},
		{LastMonth, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), endOfDay(2024, 2, 29)},
		{Last3Months, time.Date(2023, 12, 14, 15, 30, 0, 0, loc), now},
		{ThisYear, time.Date(2024, 1, 1, 0, 0, 0, 0, loc), endOfDay(2024, 12, 31)},
		{LastYear, time.Date(2023, 1, 1, 0, 0, 0, 0, loc), endOfDay(2023, 12, 31)},
		{Last12Months, time.Date(2023, 3, 14, 15, 30, 0, 0, loc), now},
		{AllTime, time.Date(1970, 1, 1, 0, 0, 0, 0, loc), now},
	}

	for _, tt := range tests {
		t.Run(string(tt.token), func(t *testing.T) {
			r, err := Resolve(tt.token, now)
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(r.Start), "start %s, want %s", r.Start, tt.start)
			assert.True(t, tt.end.Equal(r.End), "end %s, want %s", r.End, tt.end)
		})
	}

	_, err := Resolve("fortnight", now)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestResolve_ThisWeekOnSunday(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	r, err := Resolve(ThisWeek, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), r.Start)
}

func TestResolve_LastMonthInJanuary(t *testing.T) {
	now := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	r, err := Resolve(LastMonth, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, 31, r.Days())
}

func TestResolve_ThisMonthContainsNow(t *testing.T) {
	loc := warsaw(t)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, loc)

	for i := 0; i < 800; i++ {
		now := start.AddDate(0, 0, i).Add(time.Duration(i%24) * time.Hour)
		r, err := Resolve(ThisMonth, now)
		require.NoError(t, err)

		assert.True(t, r.Contains(now), "now=%s", now)
		assert.Equal(t, 1, r.Start.Day())
		assert.Zero(t, r.Start.Hour())
		assert.Zero(t, r.Start.Minute())
	}
}

func TestRange_Contains(t *testing.T) {
	r := Range{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}
	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.False(t, r.Contains(r.Start.Add(-time.Nanosecond)))
	assert.False(t, r.Contains(r.End.Add(time.Second)))
}

func TestRange_Dates(t *testing.T) {
	loc := warsaw(t)
	r, err := Resolve(ThisMonth, time.Date(2024, 3, 14, 0, 30, 0, 0, loc))
	require.NoError(t, err)

	from, to := r.Dates()
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), to)
}

func TestActiveDays(t *testing.T) {
	loc := warsaw(t)
	now := time.Date(2024, 3, 14, 15, 30, 0, 0, loc)

	assert.Equal(t, 14, ActiveDays(ThisMonth, now))
	assert.Equal(t, 29, ActiveDays(LastMonth, now))
	assert.Equal(t, 5, ActiveDays(ThisWeek, now))
	assert.Equal(t, 366, ActiveDays(ThisYear, now))
	assert.Equal(t, 365, ActiveDays(LastYear, now))
	assert.Equal(t, 92, ActiveDays(Last3Months, now))

	sunday := time.Date(2024, 3, 10, 0, 5, 0, 0, loc)
	assert.Equal(t, 1, ActiveDays(ThisWeek, sunday))
	assert.Equal(t, 1, ActiveDays("bogus", now))
}

func TestGranularity(t *testing.T) {
	for _, tok := range []Token{ThisYear, AllTime, Last3Months, LastYear, Last12Months} {
		assert.Equal(t, Month, Granularity(tok), tok)
	}
	for _, tok := range []Token{ThisWeek, ThisMonth, LastMonth} {
		assert.Equal(t, Day, Granularity(tok), tok)
	}
	assert.Equal(t, "2006-01", Month.Layout())
	assert.Equal(t, "2006-01-02", Day.Layout())
}
