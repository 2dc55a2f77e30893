package catalog

import (
	"context"

	"github.com/pkg/errors"
)

// Database is a table in the DuckDB warehouse or in Postgres.
type Database struct {
	conns connectionFetcher
	kind  string
	table string
}

func (d *Database) Load(ctx context.Context, _ string) (*Dataset, error) {
	store, err := d.conns.GetConnection(ctx, d.kind)
	if err != nil {
		return nil, err
	}

	t, err := store.ReadTable(ctx, d.table)
	if err != nil {
		return nil, err
	}
	return TableDataset(t), nil
}

func (d *Database) Save(ctx context.Context, name string, ds *Dataset) error {
	if ds.Table == nil {
		return errors.Errorf("dataset '%s' is stored in %s and needs a table", name, d.kind)
	}

	store, err := d.conns.GetConnection(ctx, d.kind)
	if err != nil {
		return err
	}
	return store.WriteTable(ctx, d.table, ds.Table)
}
