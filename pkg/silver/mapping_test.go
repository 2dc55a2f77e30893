package silver

import (
	"testing"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productMapping(t *testing.T, rows ...[]any) *frame.Table {
	t.Helper()

	tbl := frame.New(ColIDProduct, bronze.ColNumberProduct)
	for _, r := range rows {
		require.NoError(t, tbl.Append(r...))
	}
	return tbl
}

func TestUnionMapping(t *testing.T) {
	t.Parallel()

	mp1 := productMapping(t, []any{10010001.0, 405.0}, []any{10010002.0, "029"})
	mp3 := productMapping(t, []any{"10030001", "405"})

	out, err := UnionMapping("product",
		CustomerTable{CustomerID: "1001", Table: mp1},
		CustomerTable{CustomerID: "1002", Table: frame.New()},
		CustomerTable{CustomerID: "1003", Table: mp3},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{ColIDProduct, bronze.ColNumberProduct, bronze.ColCustomerID}, out.Columns())
	assert.Equal(t, []any{int64(10010001), int64(10010002), int64(10030001)}, out.Column(ColIDProduct))
	assert.Equal(t, []any{"405", "29", "405"}, out.Column(bronze.ColNumberProduct))
	assert.Equal(t, []any{"1001", "1001", "1003"}, out.Column(bronze.ColCustomerID))
}

func TestUnionMapping_CustomerFallsBackToIDPrefix(t *testing.T) {
	t.Parallel()

	ms := frame.New(ColIDStore, bronze.ColNumberStore)
	require.NoError(t, ms.Append(100190001.0, 2.0))
	require.NoError(t, ms.Append(100190002.0, 11.0))
	require.NoError(t, ms.Append(100190002.0, "11"))

	out, err := UnionMapping("store", CustomerTable{Table: ms})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []any{"1001", "1001"}, out.Column(bronze.ColCustomerID))
	assert.Equal(t, []any{"2", "11"}, out.Column(bronze.ColNumberStore))
}

func TestUnionMapping_Failures(t *testing.T) {
	t.Parallel()

	_, err := UnionMapping("product", CustomerTable{CustomerID: "1001", Table: productMapping(t, []any{"x1", "405"})})
	var coercion *frame.CoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, ColIDProduct, coercion.Column)

	_, err = UnionMapping("product", CustomerTable{CustomerID: "1001", Table: productMapping(t, []any{10010001.0, "A-7"})})
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, bronze.ColNumberProduct, coercion.Column)

	_, err = UnionMapping("product", CustomerTable{CustomerID: "1001", Table: productMapping(t, []any{10010001.0, nil})})
	require.ErrorAs(t, err, &coercion)

	_, err = UnionMapping("product", CustomerTable{CustomerID: "1001", Table: productMapping(t, []any{10010001.0, "99999999999999999999"})})
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, bronze.ColNumberProduct, coercion.Column)

	wrong := frame.New("id", "number")
	require.NoError(t, wrong.Append(1.0, 2.0))
	_, err = UnionMapping("product", CustomerTable{CustomerID: "1001", Table: wrong})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColIDProduct)
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "29", NormalizeKey("029"))
	assert.Equal(t, "29", NormalizeKey(29.0))
	assert.Equal(t, "29", NormalizeKey(" 29 "))
	assert.Equal(t, "A-7", NormalizeKey(" A-7"))
	assert.Nil(t, NormalizeKey(nil))
	assert.Nil(t, NormalizeKey("  "))

	assert.Equal(t, "12345678901234567", NormalizeKey("12345678901234567"))
	assert.Equal(t, "12345678901234568", NormalizeKey("12345678901234568"))
	assert.Equal(t, "99999999999999999999", NormalizeKey("99999999999999999999"))
}
