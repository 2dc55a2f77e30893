package executor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/metrics"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/quality"
	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func printf(ctx context.Context, format string, args ...any) {
	if printer, ok := ctx.Value(KeyPrinter).(io.Writer); ok {
		_, _ = fmt.Fprintf(printer, format, args...)
	}
}

// TransformOperator loads the inputs of an asset from the catalog, runs its transform and saves
// every declared output back.
type TransformOperator struct {
	catalog catalog.Catalog
	metrics *metrics.Registry
}

func NewTransformOperator(c catalog.Catalog, registry *metrics.Registry) *TransformOperator {
	return &TransformOperator{catalog: c, metrics: registry}
}

func (o TransformOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	return o.RunAsset(ctx, ti.GetAsset())
}

func (o TransformOperator) RunAsset(ctx context.Context, asset *pipeline.Asset) error {
	if asset.Transform == nil {
		return errors.Errorf("asset '%s' has no transform", asset.Name)
	}

	inputs, err := o.load(ctx, asset.Inputs)
	if err != nil {
		return err
	}

	outputs, err := asset.Transform(ctx, inputs)
	if err != nil {
		return errors.Wrapf(err, "asset '%s' failed", asset.Name)
	}

	for _, name := range asset.Outputs {
		if _, ok := outputs[name]; !ok {
			return errors.Errorf("asset '%s' did not produce its output '%s'", asset.Name, name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range asset.Outputs {
		ds := outputs[name]
		g.Go(func() error {
			if err := o.catalog.Save(gctx, name, ds); err != nil {
				return errors.Wrapf(err, "failed to save dataset '%s'", name)
			}
			o.metrics.SetRows(name, ds.Rows())
			printf(ctx, "Saved '%s' (%d rows)\n", name, ds.Rows())
			return nil
		})
	}

	return g.Wait()
}

func (o TransformOperator) load(ctx context.Context, names []string) (pipeline.Datasets, error) {
	var mu sync.Mutex
	inputs := make(pipeline.Datasets, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			ds, err := o.catalog.Load(gctx, name)
			if err != nil {
				return errors.Wrapf(err, "failed to load dataset '%s'", name)
			}

			mu.Lock()
			inputs[name] = ds
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return inputs, nil
}

func loadCheckedTable(ctx context.Context, c catalog.Catalog, asset *pipeline.Asset) (string, *catalog.Dataset, error) {
	name := asset.CheckedDataset()
	if name == "" {
		return "", nil, errors.Errorf("asset '%s' has no output to check", asset.Name)
	}

	ds, err := c.Load(ctx, name)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to load dataset '%s' for checks", name)
	}
	if ds.Table == nil {
		return "", nil, errors.Errorf("dataset '%s' is not a table and cannot be checked", name)
	}

	return name, ds, nil
}

type ColumnCheckOperator struct {
	catalog catalog.Catalog
}

func NewColumnCheckOperator(c catalog.Catalog) *ColumnCheckOperator {
	return &ColumnCheckOperator{catalog: c}
}

func (o ColumnCheckOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	instance, ok := ti.(*scheduler.ColumnCheckInstance)
	if !ok {
		return errors.New("cannot run a non-column check instance as a column check")
	}

	name, ds, err := loadCheckedTable(ctx, o.catalog, instance.GetAsset())
	if err != nil {
		return err
	}

	if err := quality.RunColumnCheck(name, ds.Table, instance.Column.Name, *instance.Check); err != nil {
		return err
	}

	printf(ctx, "Check '%s' passed on column '%s'\n", instance.Check.Name, instance.Column.Name)
	return nil
}

type CustomCheckOperator struct {
	catalog catalog.Catalog
}

func NewCustomCheckOperator(c catalog.Catalog) *CustomCheckOperator {
	return &CustomCheckOperator{catalog: c}
}

func (o CustomCheckOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	instance, ok := ti.(*scheduler.CustomCheckInstance)
	if !ok {
		return errors.New("cannot run a non-custom check instance as a custom check")
	}

	name, ds, err := loadCheckedTable(ctx, o.catalog, instance.GetAsset())
	if err != nil {
		return err
	}

	if err := quality.RunCustomCheck(name, ds.Table, *instance.Check); err != nil {
		return err
	}

	printf(ctx, "Custom check '%s' passed\n", instance.Check.Name)
	return nil
}
