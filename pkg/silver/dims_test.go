package silver

import (
	"testing"
	"time"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducts(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)
	products := frame.New(bronze.ColNumberProduct, bronze.ColProductName, bronze.ColPrice, bronze.ColCustomerID, bronze.ColIngestTS, bronze.ColRowHash)
	require.NoError(t, products.Append("072", "Kürbisbrötchen", 1.35, "1001 ", ts, uint64(1)))
	require.NoError(t, products.Append("29", "Teigling", 16.2, "1001", ts, uint64(2)))
	require.NoError(t, products.Append("72", "Brötchen", 0.9, "1002", ts, uint64(3)))

	mapping := frame.New(ColIDProduct, bronze.ColNumberProduct, bronze.ColCustomerID)
	require.NoError(t, mapping.Append(int64(10010003), "72", "1001"))
	require.NoError(t, mapping.Append(int64(10010002), "29", "1001"))

	out, err := BuildProducts(products, mapping)
	require.NoError(t, err)

	assert.Equal(t, ProductColumns, out.Columns())
	assert.Equal(t, []any{int64(10010003), int64(10010002), nil}, out.Column(ColIDProduct))
	assert.Equal(t, []any{"72", "29", "72"}, out.Column(bronze.ColNumberProduct))
	assert.Equal(t, []any{nil, nil, nil}, out.Column(bronze.ColProductGroup))
	assert.Equal(t, ts, out.Value(0, bronze.ColIngestTS))
}

func TestBuildStores_DuplicateMapping(t *testing.T) {
	t.Parallel()

	stores := frame.New(bronze.ColNumberStore, bronze.ColStoreName, bronze.ColCustomerID)
	require.NoError(t, stores.Append("2", "Filiale", "1001"))

	mapping := frame.New(ColIDStore, bronze.ColNumberStore, bronze.ColCustomerID)
	require.NoError(t, mapping.Append(int64(100190001), "2", "1001"))
	require.NoError(t, mapping.Append(int64(100190009), "2", "1001"))

	_, err := BuildStores(stores, mapping)
	var cardinality *frame.JoinCardinalityError
	require.ErrorAs(t, err, &cardinality)
}

func TestBuildDimensions_Empty(t *testing.T) {
	t.Parallel()

	out, err := BuildStores(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StoreColumns, out.Columns())
	assert.Equal(t, 0, out.Len())

	out, err = BuildProducts(frame.New(bronze.ColNumberProduct), nil)
	require.NoError(t, err)
	assert.Equal(t, ProductColumns, out.Columns())
}

func TestBuildStores_WithoutMapping(t *testing.T) {
	t.Parallel()

	stores := frame.New(bronze.ColNumberStore, bronze.ColStoreName, bronze.ColCustomerID)
	require.NoError(t, stores.Append("2", "Filiale", "1001"))

	out, err := BuildStores(stores, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, out.Column(ColIDStore))
	assert.Equal(t, []any{"Filiale"}, out.Column(bronze.ColStoreName))
}
