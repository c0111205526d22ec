package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drlau/megumin.love/internal/core/series"
)

func TestClick_AdvancesEveryFigure(t *testing.T) {
	s := State{DaysThisMonth: 1}

	for i := 0; i < 5; i++ {
		s = s.Click()
	}

	require.Equal(t, int64(5), s.Total)
	require.Equal(t, int64(5), s.Daily)
	require.Equal(t, int64(5), s.Weekly)
	require.Equal(t, int64(5), s.Monthly)
	require.Equal(t, int64(5), s.Average)
}

func TestClick_AverageRounding(t *testing.T) {
	tests := []struct {
		name    string
		monthly int64
		days    int64
		want    int64
	}{
		{name: "exact", monthly: 10, days: 2, want: 5},
		{name: "rounds down", monthly: 10, days: 3, want: 3},
		{name: "half rounds up", monthly: 9, days: 2, want: 5},
		{name: "just below half rounds down", monthly: 7, days: 5, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := State{Monthly: tc.monthly - 1, DaysThisMonth: tc.days}.Click()
			require.Equal(t, tc.want, s.Average)
		})
	}
}

func TestRolloverDay(t *testing.T) {
	s := State{Total: 100, Daily: 7, Weekly: 30, Monthly: 60, DaysThisMonth: 2}

	s = s.RolloverDay()

	require.Equal(t, int64(0), s.Daily)
	require.Equal(t, int64(3), s.DaysThisMonth)
	require.Equal(t, int64(20), s.Average)
	require.Equal(t, int64(30), s.Weekly, "weekly untouched by day rollover")
	require.Equal(t, int64(60), s.Monthly, "monthly untouched by day rollover")
	require.Equal(t, int64(100), s.Total)
}

func TestRolloverWeek(t *testing.T) {
	s := State{Daily: 1, Weekly: 30, Monthly: 60, DaysThisMonth: 9}

	s = s.RolloverWeek()

	require.Equal(t, int64(0), s.Weekly)
	require.Equal(t, int64(1), s.Daily)
	require.Equal(t, int64(60), s.Monthly)
}

func TestRolloverMonth_ResetWinsOverDayIncrement(t *testing.T) {
	// On the first of a month the day rollover runs first, then the
	// month rollover. The month reset must land last so the new month
	// starts at exactly one observed day.
	s := State{Daily: 4, Weekly: 10, Monthly: 200, DaysThisMonth: 31}

	s = s.RolloverDay().RolloverMonth()

	require.Equal(t, int64(0), s.Daily)
	require.Equal(t, int64(0), s.Monthly)
	require.Equal(t, int64(1), s.DaysThisMonth)
	require.Equal(t, int64(0), s.Average)
	require.Equal(t, int64(10), s.Weekly, "week rollover is a separate transition")
}

func TestDerive(t *testing.T) {
	jan := func(d int) series.Date { return series.Date{Year: 2024, Month: time.January, Day: d} }

	// 2024-01-10 is a Wednesday; the week starts Monday 2024-01-08.
	s := series.Series{
		jan(2):  5,  // same month, before this week
		jan(8):  3,  // Monday this week
		jan(9):  4,  // Tuesday
		jan(10): 2,  // today
		series.Date{Year: 2023, Month: time.December, Day: 31}: 50, // previous month, ignored
	}

	got := Derive(s, jan(10), 500)

	require.Equal(t, int64(500), got.Total)
	require.Equal(t, int64(2), got.Daily)
	require.Equal(t, int64(9), got.Weekly)
	require.Equal(t, int64(14), got.Monthly)
	require.Equal(t, int64(4), got.DaysThisMonth)
	require.Equal(t, int64(4), got.Average) // 14/4 = 3.5 → 4
}

func TestDerive_EmptySeries(t *testing.T) {
	got := Derive(series.Series{}, series.Date{Year: 2024, Month: time.March, Day: 1}, 0)

	require.Equal(t, State{DaysThisMonth: 1}, got)
}
