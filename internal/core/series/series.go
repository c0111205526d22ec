package series

// Series maps calendar days to click counts. Days with no recorded
// clicks may be absent; Dense fills the gaps when a contiguous view is
// needed.
type Series map[Date]int64

// Clone returns an independent copy.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	for d, c := range s {
		out[d] = c
	}
	return out
}

// Bounds returns the earliest and latest recorded days.
// ok is false for an empty series.
func (s Series) Bounds() (first, last Date, ok bool) {
	for d := range s {
		if !ok {
			first, last, ok = d, d, true
			continue
		}
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, ok
}

// Dense returns the inclusive [from, to] range with every absent day
// materialized as zero. An inverted range yields an empty series.
func Dense(s Series, from, to Date) Series {
	out := Series{}
	for d := from; !d.After(to); d = d.Next() {
		out[d] = s[d]
	}
	return out
}

// Clip restricts the series to days within the inclusive [from, to]
// range without filling gaps.
func Clip(s Series, from, to Date) Series {
	out := Series{}
	for d, c := range s {
		if d.Before(from) || d.After(to) {
			continue
		}
		out[d] = c
	}
	return out
}

// Match keeps only the entries whose count satisfies pred.
func Match(s Series, pred func(int64) bool) Series {
	out := Series{}
	for d, c := range s {
		if pred(c) {
			out[d] = c
		}
	}
	return out
}

// Sum totals every count in the series.
func Sum(s Series) int64 {
	var total int64
	for _, c := range s {
		total += c
	}
	return total
}
