package counter

import (
	"github.com/shopspring/decimal"

	"github.com/drlau/megumin.love/internal/core/series"
)

// State holds the live counter figures. All transitions are pure value
// methods with no clock access — the caller decides when a day, week, or
// month boundary has been crossed, which keeps every transition
// deterministic and directly testable.
type State struct {
	Total   int64
	Daily   int64
	Weekly  int64
	Monthly int64

	// Average is Monthly divided by DaysThisMonth, rounded half away
	// from zero. Kept materialized so every snapshot is consistent
	// without recomputation at read time.
	Average int64

	// DaysThisMonth counts the calendar days observed so far in the
	// current month, including the current one. Never below 1.
	DaysThisMonth int64
}

// Click records one click: every figure advances and the average is
// recomputed from the new monthly value.
func (s State) Click() State {
	s.Total++
	s.Daily++
	s.Weekly++
	s.Monthly++
	s.Average = average(s.Monthly, s.DaysThisMonth)
	return s
}

// RolloverDay starts a new calendar day: the daily figure resets, one
// more day counts toward the monthly average.
func (s State) RolloverDay() State {
	s.Daily = 0
	s.DaysThisMonth++
	s.Average = average(s.Monthly, s.DaysThisMonth)
	return s
}

// RolloverWeek starts a new week (Monday).
func (s State) RolloverWeek() State {
	s.Weekly = 0
	return s
}

// RolloverMonth starts a new month. Applied after RolloverDay on a month
// boundary, so its DaysThisMonth reset is the one that sticks.
func (s State) RolloverMonth() State {
	s.Monthly = 0
	s.DaysThisMonth = 1
	s.Average = average(s.Monthly, s.DaysThisMonth)
	return s
}

// Derive rebuilds the figures from the persisted click series at boot.
// today's entry contributes the daily figure; the weekly figure sums the
// days since the most recent Monday; the monthly figure and day count
// come from the entries recorded in today's month.
func Derive(s series.Series, today series.Date, total int64) State {
	var monthly, days int64
	for d, c := range s {
		if !d.SameMonth(today) {
			continue
		}
		monthly += c
		days++
	}
	if days < 1 {
		days = 1
	}

	return State{
		Total:         total,
		Daily:         s[today],
		Weekly:        series.Sum(series.Clip(s, today.WeekStart(), today)),
		Monthly:       monthly,
		Average:       average(monthly, days),
		DaysThisMonth: days,
	}
}

// average divides with exact decimal arithmetic so large totals never
// drift the way repeated float division would.
func average(monthly, days int64) int64 {
	if days < 1 {
		days = 1
	}
	return decimal.NewFromInt(monthly).
		DivRound(decimal.NewFromInt(days), 0).
		IntPart()
}
