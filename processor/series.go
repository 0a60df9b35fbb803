package processor

import (
	"fmt"
	"sort"
	"time"

	"tcaflow/models"
)

// SeriesIndex holds one ascending time series of market observations per
// instrument and resolves benchmark prices for arbitrary timestamps. Built
// once at load time, read-only afterwards.
type SeriesIndex struct {
	series    map[string][]models.MarketObservation
	tolerance time.Duration
}

// FilterObservations drops observations outside the given market state.
// An empty state disables the filter.
func FilterObservations(obs []models.MarketObservation, state string) []models.MarketObservation {
	if state == "" {
		return obs
	}
	kept := make([]models.MarketObservation, 0, len(obs))
	for _, o := range obs {
		if o.State == state {
			kept = append(kept, o)
		}
	}
	return kept
}

// NewSeriesIndex groups observations by instrument and sorts each group by
// timestamp. Two observations at the same timestamp with identical prices are
// deduplicated; with differing prices they are an unresolvable ambiguity and
// abort the load.
func NewSeriesIndex(obs []models.MarketObservation, tolerance time.Duration) (*SeriesIndex, error) {
	if tolerance <= 0 {
		return nil, fmt.Errorf("%w: series tolerance must be positive", models.ErrDataIntegrity)
	}

	series := make(map[string][]models.MarketObservation)
	for _, o := range obs {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		series[o.InstrumentID] = append(series[o.InstrumentID], o)
	}

	for id, s := range series {
		sort.SliceStable(s, func(i, j int) bool {
			return s[i].Timestamp.Before(s[j].Timestamp)
		})

		deduped := s[:0]
		for _, o := range s {
			if len(deduped) > 0 {
				prev := deduped[len(deduped)-1]
				if prev.Timestamp.Equal(o.Timestamp) {
					if !prev.SamePrices(o) {
						return nil, fmt.Errorf("%w: conflicting prices for %s at %s",
							models.ErrDataIntegrity, id, o.Timestamp.Format(time.RFC3339Nano))
					}
					continue
				}
			}
			deduped = append(deduped, o)
		}
		series[id] = deduped
	}

	return &SeriesIndex{series: series, tolerance: tolerance}, nil
}

// Instruments returns the number of instruments with at least one
// observation.
func (x *SeriesIndex) Instruments() int {
	return len(x.series)
}

// ResolveBenchmark resolves a single benchmark price for an instrument at a
// target timestamp: linear interpolation between the nearest usable
// observations at-or-before and at-or-after the timestamp, falling back to
// the single neighbour at the series edges. Observations without any usable
// price are skipped and the search continues outward, bounded by the
// tolerance window on each side.
func (x *SeriesIndex) ResolveBenchmark(instrumentID string, ts time.Time) (float64, error) {
	s, ok := x.series[instrumentID]
	if !ok || len(s) == 0 {
		return 0, fmt.Errorf("%w: no market data for instrument %s", models.ErrUnresolved, instrumentID)
	}

	// First observation strictly after ts; s[i-1] is then at-or-before.
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Timestamp.After(ts)
	})

	var (
		beforePrice, afterPrice float64
		beforeTs, afterTs       time.Time
		beforeOK, afterOK       bool
	)

	for j := i - 1; j >= 0; j-- {
		if ts.Sub(s[j].Timestamp) > x.tolerance {
			break
		}
		if p, usable := s[j].UsablePrice(); usable {
			beforePrice, beforeTs, beforeOK = p, s[j].Timestamp, true
			break
		}
	}

	for j := i; j < len(s); j++ {
		if s[j].Timestamp.Sub(ts) > x.tolerance {
			break
		}
		if p, usable := s[j].UsablePrice(); usable {
			afterPrice, afterTs, afterOK = p, s[j].Timestamp, true
			break
		}
	}

	switch {
	case beforeOK && afterOK:
		span := afterTs.Sub(beforeTs)
		if span <= 0 {
			return beforePrice, nil
		}
		frac := float64(ts.Sub(beforeTs)) / float64(span)
		return beforePrice + (afterPrice-beforePrice)*frac, nil
	case beforeOK:
		return beforePrice, nil
	case afterOK:
		return afterPrice, nil
	}
	return 0, fmt.Errorf("%w: no observation within tolerance for %s at %s",
		models.ErrUnresolved, instrumentID, ts.Format(time.RFC3339Nano))
}
