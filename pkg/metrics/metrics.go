package metrics

import (
	"bytes"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
)

// Registry holds the metrics of one pipeline run. A nil *Registry records nothing.
type Registry struct {
	reg          *prometheus.Registry
	TaskRuns     *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	DatasetRows  *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	taskRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_task_runs_total",
		Help: "Task instances executed, by asset, instance type and final status.",
	}, []string{"asset", "type", "status"})
	taskDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medallion_task_duration_seconds",
		Help:    "Wall time of asset transforms.",
		Buckets: prometheus.DefBuckets,
	}, []string{"asset"})
	datasetRows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medallion_dataset_rows",
		Help: "Rows written to a dataset by the last run.",
	}, []string{"dataset"})

	r.MustRegister(taskRuns, taskDuration, datasetRows)
	return &Registry{
		reg:          r,
		TaskRuns:     taskRuns,
		TaskDuration: taskDuration,
		DatasetRows:  datasetRows,
	}
}

func (r *Registry) ObserveTask(asset, instanceType string, failed bool, duration time.Duration) {
	if r == nil {
		return
	}

	status := "succeeded"
	if failed {
		status = "failed"
	}
	r.TaskRuns.WithLabelValues(asset, instanceType, status).Inc()
	if instanceType == "main" {
		r.TaskDuration.WithLabelValues(asset).Observe(duration.Seconds())
	}
}

func (r *Registry) SetRows(dataset string, rows int) {
	if r == nil {
		return
	}
	r.DatasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// WriteTextfile renders every metric in the Prometheus text format, the layout the node
// exporter textfile collector reads.
func (r *Registry) WriteTextfile(fs afero.Fs, path string) error {
	if r == nil {
		return nil
	}

	families, err := r.reg.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return errors.Wrapf(err, "failed to encode metric %s", mf.GetName())
		}
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0o644)
}
