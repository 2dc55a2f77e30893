package bronze

import (
	"strings"
	"time"

	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

// hashRules are tried in order; the first rule whose columns all exist selects the row hash
// columns.
var hashRules = [][]string{
	{ColTargetDate, ColNumberStore, ColNumberProduct, ColCustomerID},
	{ColNumberProduct, ColCustomerID},
	{ColNumberStore, ColCustomerID},
}

// Merge combines normalized tables of one entity across customers. Empty tables are dropped,
// types are canonicalized, exact duplicates are removed and every row is stamped with the same
// ingest timestamp. When key columns can be identified the rows also get a _row_hash.
func Merge(ingestTS time.Time, tables ...*frame.Table) (*frame.Table, error) {
	parts := lo.Filter(tables, func(t *frame.Table, _ int) bool {
		return !t.Empty()
	})
	if len(parts) == 0 {
		return frame.New(), nil
	}

	df := frame.Concat(parts...)
	if err := canonicalize(df); err != nil {
		return nil, err
	}
	df = df.DropDuplicates()

	df.Fill(ColIngestTS, ingestTS.UTC())

	if keys := hashColumns(df); len(keys) > 0 {
		df.SetColumn(ColRowHash, func(r int) any {
			return RowHash(df, r, keys)
		})
	}

	return df, nil
}

func canonicalize(df *frame.Table) error {
	for _, c := range labelColumns {
		if df.HasColumn(c) {
			df.CoerceString(c)
		}
	}
	if df.HasColumn(ColTargetDate) {
		if err := df.CoerceDate(ColTargetDate, false); err != nil {
			return err
		}
	}
	for _, c := range measureColumns {
		if df.HasColumn(c) {
			if err := df.CoerceMeasure(c, true); err != nil {
				return err
			}
		}
	}
	if df.HasColumn(ColPrice) {
		df.CoerceAttribute(ColPrice)
	}
	if df.HasColumn(ColMOQ) {
		df.CoerceCount(ColMOQ)
	}
	return nil
}

func hashColumns(df *frame.Table) []string {
	for _, rule := range hashRules {
		if lo.EveryBy(rule, df.HasColumn) {
			return rule
		}
	}
	for _, rule := range hashRules {
		if subset := lo.Filter(rule, func(c string, _ int) bool { return df.HasColumn(c) }); len(subset) > 0 {
			return subset
		}
	}
	return nil
}

// RowHash fingerprints the given columns of a row. Missing values hash as empty strings.
func RowHash(df *frame.Table, row int, columns []string) uint64 {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = df.String(row, c)
	}
	return xxhash.Sum64String(strings.Join(parts, "\x1f"))
}
