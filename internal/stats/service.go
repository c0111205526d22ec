package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/drlau/megumin.love/internal/core/series"
)

// ErrInvalidQuery marks selector validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid statistics query")

// Source supplies the click series the engine reads. Queries never
// mutate it; the snapshot is an independent copy.
type Source interface {
	SeriesSnapshot() series.Series
}

// QueryRequest carries the raw selectors as received. Everything stays
// a string so validation failures surface as the engine's own error
// taxonomy rather than binding errors.
type QueryRequest struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Equals string `form:"equals"`
	Over   string `form:"over"`
	Under  string `form:"under"`
}

func (r QueryRequest) hasCountFilter() bool {
	return r.Equals != "" || r.Over != "" || r.Under != ""
}

func (r QueryRequest) hasDateFilter() bool {
	return r.From != "" || r.To != ""
}

// key identifies equivalent queries for deduplication.
func (r QueryRequest) key() string {
	return strings.Join([]string{r.From, r.To, r.Equals, r.Over, r.Under}, "|")
}

// query is the validated form of a request.
type query struct {
	from, to            *series.Date
	equals, over, under *int64
}

// Service implements the statistics read path: pure filtering over a
// point-in-time copy of the click series.
type Service struct {
	source Source

	// queryGroup dedupes concurrent identical queries; dashboards tend
	// to fire the same selectors in bursts on every update.
	queryGroup singleflight.Group
}

// NewService creates a statistics query service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Query validates the selectors and computes the matching date->count
// mapping, keyed by YYYY-MM-DD.
func (s *Service) Query(req QueryRequest) (map[string]int64, error) {
	result, err, _ := s.queryGroup.Do(req.key(), func() (interface{}, error) {
		return s.execute(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]int64), nil
}

func (s *Service) execute(req QueryRequest) (map[string]int64, error) {
	view := s.source.SeriesSnapshot()
	first, latest, known := view.Bounds()

	q, err := validate(req, latest, known)
	if err != nil {
		return nil, err
	}

	// No selectors: the full known range, gap-filled.
	if !req.hasCountFilter() && !req.hasDateFilter() {
		if !known {
			return map[string]int64{}, nil
		}
		return render(series.Dense(view, first, latest)), nil
	}

	matched := view
	if req.hasCountFilter() {
		// Walk the dense range so the predicate sees every calendar
		// day, then drop the zero-count days again: the padding exists
		// only to make the walk contiguous, never to appear in results.
		matched = series.Match(series.Dense(view, first, latest), predicate(q))
		matched = series.Match(matched, func(c int64) bool { return c != 0 })
	}

	if !req.hasDateFilter() {
		return render(matched), nil
	}

	switch {
	case q.from != nil && q.to != nil:
		if req.hasCountFilter() {
			return render(series.Clip(matched, *q.from, *q.to)), nil
		}
		return render(series.Dense(matched, *q.from, *q.to)), nil

	case q.to != nil:
		if req.hasCountFilter() {
			return render(series.Clip(matched, first, *q.to)), nil
		}
		return render(series.Dense(matched, first, *q.to)), nil

	default:
		// from alone selects that day's exact entry, no padding.
		out := map[string]int64{}
		if c, ok := matched[*q.from]; ok {
			out[q.from.String()] = c
		}
		return out, nil
	}
}

func validate(req QueryRequest, latest series.Date, known bool) (query, error) {
	var q query

	if req.From != "" {
		d, err := series.ParseDate(req.From)
		if err != nil {
			return q, invalidQueryf("from is not a valid date: %s", req.From)
		}
		q.from = &d
	}
	if req.To != "" {
		d, err := series.ParseDate(req.To)
		if err != nil {
			return q, invalidQueryf("to is not a valid date: %s", req.To)
		}
		q.to = &d
	}

	if q.from != nil && (!known || q.from.After(latest)) {
		return q, invalidQueryf("dates may not be in the future")
	}
	if q.to != nil && (!known || q.to.After(latest)) {
		return q, invalidQueryf("dates may not be in the future")
	}
	if q.from != nil && q.to != nil && q.to.Before(*q.from) {
		return q, invalidQueryf("to must not precede from")
	}

	var err error
	if q.equals, err = parseThreshold("equals", req.Equals); err != nil {
		return q, err
	}
	if q.over, err = parseThreshold("over", req.Over); err != nil {
		return q, err
	}
	if q.under, err = parseThreshold("under", req.Under); err != nil {
		return q, err
	}

	if q.over != nil && q.under != nil && *q.over >= *q.under {
		return q, invalidQueryf("over must be strictly less than under")
	}

	return q, nil
}

func parseThreshold(name, raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, invalidQueryf("%s must be a non-negative integer: %s", name, raw)
	}
	return &n, nil
}

// predicate combines the count selectors into one test. Selectors
// compose by conjunction.
func predicate(q query) func(int64) bool {
	return func(c int64) bool {
		if q.equals != nil && c != *q.equals {
			return false
		}
		if q.over != nil && c <= *q.over {
			return false
		}
		if q.under != nil && c >= *q.under {
			return false
		}
		return true
	}
}

func render(s series.Series) map[string]int64 {
	out := make(map[string]int64, len(s))
	for d, c := range s {
		out[d.String()] = c
	}
	return out
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
