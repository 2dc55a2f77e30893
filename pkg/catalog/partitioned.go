package catalog

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Partitioned is a directory of csv or json files, one partition per file. A missing directory
// is an empty set of partitions.
type Partitioned struct {
	fs        afero.Fs
	dir       string
	format    string
	delimiter string
}

type partition struct {
	label string
	table *frame.Table
}

func (p *Partitioned) Load(ctx context.Context, name string) (*Dataset, error) {
	files, err := p.files()
	if err != nil {
		return nil, err
	}

	workers := max(runtime.NumCPU(), 4)
	readers := pool.NewWithResults[partition]().WithContext(ctx).WithMaxGoroutines(workers)
	for _, file := range files {
		readers.Go(func(ctx context.Context) (partition, error) {
			if err := ctx.Err(); err != nil {
				return partition{}, err
			}
			t, err := readTable(p.fs, filepath.Join(p.dir, file), p.format, p.delimiter)
			if err != nil {
				return partition{}, err
			}
			return partition{label: file, table: t}, nil
		})
	}

	read, err := readers.Wait()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read partitions of dataset '%s'", name)
	}

	parts := make(frame.Partitions, len(read))
	for _, r := range read {
		parts[r.label] = r.table
	}
	return &Dataset{Partitions: parts}, nil
}

func (p *Partitioned) files() ([]string, error) {
	exists, err := afero.DirExists(p.fs, p.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check directory %s", p.dir)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list directory %s", p.dir)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(strings.TrimPrefix(filepath.Ext(e.Name()), "."), p.format) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Save writes every partition as its own file. A table is written as a single partition named
// after the dataset.
func (p *Partitioned) Save(_ context.Context, name string, ds *Dataset) error {
	parts := ds.Partitions
	if parts == nil && ds.Table != nil {
		parts = frame.Partitions{name + "." + p.format: ds.Table}
	}
	if parts == nil {
		return errors.Errorf("dataset '%s' is partitioned and needs partitions or a table", name)
	}

	for _, label := range parts.Labels() {
		if err := writeTable(p.fs, filepath.Join(p.dir, label), p.format, p.delimiter, parts[label]); err != nil {
			return err
		}
	}
	return nil
}
