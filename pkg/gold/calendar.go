package gold

import (
	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/date"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/silver"
)

var pairKeys = []string{silver.ColIDStore, silver.ColIDProduct}

// DenseCalendar fills every (id_store, id_product) series so that it has a row for each day
// between its first and last observed date. Added days carry zero measures and no stockout;
// price is carried forward, then backward, along the series.
func DenseCalendar(fact *frame.Table) (*frame.Table, error) {
	if fact.Empty() {
		return frame.New(FactColumns...), nil
	}

	observed := fact.Project(FactColumns...)
	if err := observed.CoerceDate(bronze.ColTargetDate, true); err != nil {
		return nil, err
	}

	out := frame.New(FactColumns...)
	for _, series := range splitSeries(observed) {
		byDay := make(map[civil.Date][]int, len(series))
		first := observed.Value(series[0], bronze.ColTargetDate).(civil.Date)
		last := first
		for _, r := range series {
			d := observed.Value(r, bronze.ColTargetDate).(civil.Date)
			byDay[d] = append(byDay[d], r)
			if d.Before(first) {
				first = d
			}
			if d.After(last) {
				last = d
			}
		}

		start := out.Len()
		for _, d := range date.Range(first, last) {
			rows, ok := byDay[d]
			if !ok {
				out.AppendRecord(map[string]any{
					silver.ColIDStore:    observed.Value(series[0], silver.ColIDStore),
					silver.ColIDProduct:  observed.Value(series[0], silver.ColIDProduct),
					bronze.ColTargetDate: d,
				})
				continue
			}
			for _, r := range rows {
				out.AppendRecord(observed.Record(r))
			}
		}
		fillPrice(out, start, out.Len())
	}

	for _, c := range []string{bronze.ColSalesQty, bronze.ColReturnQty, bronze.ColDeliveryQty} {
		if err := out.CoerceMeasure(c, false); err != nil {
			return nil, err
		}
	}
	out.CoerceBool(silver.ColStockout)

	return out, nil
}

// splitSeries groups row indices by (id_store, id_product) in order of first appearance.
func splitSeries(t *frame.Table) [][]int {
	index := make(map[string]int)
	series := make([][]int, 0)
	for r := 0; r < t.Len(); r++ {
		key := t.Key(r, pairKeys...)
		i, ok := index[key]
		if !ok {
			i = len(series)
			index[key] = i
			series = append(series, nil)
		}
		series[i] = append(series[i], r)
	}
	return series
}

// fillPrice forward-fills and then back-fills the price column on rows [start, end).
func fillPrice(t *frame.Table, start, end int) {
	var carry any
	for r := start; r < end; r++ {
		if frame.IsMissing(t.Value(r, bronze.ColPrice)) {
			t.Set(r, bronze.ColPrice, carry)
			continue
		}
		carry = t.Value(r, bronze.ColPrice)
	}

	carry = nil
	for r := end - 1; r >= start; r-- {
		if frame.IsMissing(t.Value(r, bronze.ColPrice)) {
			t.Set(r, bronze.ColPrice, carry)
			continue
		}
		carry = t.Value(r, bronze.ColPrice)
	}
}
