package processor

import (
	"sort"

	"tcaflow/models"
)

type groupID struct {
	dimension string
	key       string
}

// bucket accumulates the running sums for one group. Weighted slippage keeps
// the sum of weighted values and the sum of weights separately and divides
// once at the end, so the result does not depend on input ordering.
type bucket struct {
	count       int64
	quantity    float64
	notional    float64
	slipWeight  float64
	wSlippage   float64
	wSlippageBp float64
}

// Aggregator folds metric records into grouped summaries: per instrument,
// per side, and one overall row. Accumulation is order-independent.
type Aggregator struct {
	groups map[groupID]*bucket
}

func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[groupID]*bucket)}
}

// Add folds one metric record into its instrument, side and overall groups.
func (a *Aggregator) Add(rec models.MetricRecord) {
	a.fold(groupID{models.DimensionInstrument, rec.InstrumentID}, rec)
	a.fold(groupID{models.DimensionSide, string(rec.Side)}, rec)
	a.fold(groupID{models.DimensionOverall, models.OverallKey}, rec)
}

func (a *Aggregator) fold(id groupID, rec models.MetricRecord) {
	b, ok := a.groups[id]
	if !ok {
		b = &bucket{}
		a.groups[id] = b
	}
	b.count++
	b.quantity += rec.Quantity
	b.notional += rec.Notional
	b.slipWeight += rec.Quantity
	b.wSlippage += rec.Quantity * rec.Slippage
	b.wSlippageBp += rec.Quantity * rec.SlippageBps
}

// Count returns the number of records folded so far.
func (a *Aggregator) Count() int64 {
	if b, ok := a.groups[groupID{models.DimensionOverall, models.OverallKey}]; ok {
		return b.count
	}
	return 0
}

// Rows emits the final report rows in a deterministic order: instruments,
// then sides, then the overall row. An empty aggregator still emits a defined
// zero overall row.
func (a *Aggregator) Rows() []models.AggregateRow {
	ids := make([]groupID, 0, len(a.groups))
	for id := range a.groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].dimension != ids[j].dimension {
			return dimensionRank(ids[i].dimension) < dimensionRank(ids[j].dimension)
		}
		return ids[i].key < ids[j].key
	})

	rows := make([]models.AggregateRow, 0, len(ids)+1)
	for _, id := range ids {
		rows = append(rows, a.groups[id].row(id))
	}

	if _, ok := a.groups[groupID{models.DimensionOverall, models.OverallKey}]; !ok {
		rows = append(rows, models.AggregateRow{
			Dimension: models.DimensionOverall,
			Key:       models.OverallKey,
		})
	}
	return rows
}

func (b *bucket) row(id groupID) models.AggregateRow {
	row := models.AggregateRow{
		Dimension:     id.dimension,
		Key:           id.key,
		Count:         b.count,
		TotalQuantity: b.quantity,
		TotalNotional: b.notional,
	}
	if b.slipWeight > 0 {
		row.WeightedSlippage = b.wSlippage / b.slipWeight
		row.WeightedSlippageBps = b.wSlippageBp / b.slipWeight
	}
	return row
}

func dimensionRank(dim string) int {
	switch dim {
	case models.DimensionInstrument:
		return 0
	case models.DimensionSide:
		return 1
	default:
		return 2
	}
}
