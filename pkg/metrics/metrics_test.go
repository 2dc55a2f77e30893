package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Records(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.ObserveTask("silver.sales_daily", "main", false, 2*time.Second)
	r.ObserveTask("silver.sales_daily", "main", true, time.Second)
	r.ObserveTask("silver.sales_daily", "column_check", false, time.Millisecond)
	r.SetRows("silver.sales_daily", 42)
	r.SetRows("silver.sales_daily", 40)

	assert.InDelta(t, 1.0, testutil.ToFloat64(r.TaskRuns.WithLabelValues("silver.sales_daily", "main", "succeeded")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(r.TaskRuns.WithLabelValues("silver.sales_daily", "main", "failed")), 0)
	assert.InDelta(t, 40.0, testutil.ToFloat64(r.DatasetRows.WithLabelValues("silver.sales_daily")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.TaskDuration))
}

func TestRegistry_WriteTextfile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	r := NewRegistry()
	r.SetRows("gold.dim_store", 3)

	require.NoError(t, r.WriteTextfile(fs, "logs/metrics/pos.prom"))

	content, err := afero.ReadFile(fs, "logs/metrics/pos.prom")
	require.NoError(t, err)
	assert.Contains(t, string(content), "# TYPE medallion_dataset_rows gauge")
	assert.Contains(t, string(content), `medallion_dataset_rows{dataset="gold.dim_store"} 3`)
}

func TestRegistry_NilIsNoop(t *testing.T) {
	t.Parallel()

	var r *Registry
	r.ObserveTask("a", "main", false, time.Second)
	r.SetRows("a", 1)
	require.NoError(t, r.WriteTextfile(afero.NewMemMapFs(), "x.prom"))
}
