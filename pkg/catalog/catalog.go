package catalog

import (
	"context"
	"strings"

	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/connection"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var ErrNotFound = errors.New("dataset not found")

// Dataset is what a named dataset resolves to: a table, a set of partitions keyed by file name,
// or a text artifact.
type Dataset struct {
	Table      *frame.Table
	Partitions frame.Partitions
	Text       string
}

func TableDataset(t *frame.Table) *Dataset {
	return &Dataset{Table: t}
}

func TextDataset(text string) *Dataset {
	return &Dataset{Text: text}
}

// Rows counts the rows of the dataset: table rows, partition rows or non-empty text lines.
func (d *Dataset) Rows() int {
	if d == nil {
		return 0
	}
	if d.Table != nil {
		return d.Table.Len()
	}
	if d.Partitions != nil {
		total := 0
		for _, p := range d.Partitions {
			total += p.Len()
		}
		return total
	}

	lines := 0
	for _, l := range strings.Split(d.Text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	return lines
}

type Catalog interface {
	Load(ctx context.Context, name string) (*Dataset, error)
	Save(ctx context.Context, name string, ds *Dataset) error
}

type connectionFetcher interface {
	GetConnection(ctx context.Context, kind string) (connection.TableStore, error)
}

// DataCatalog routes declared datasets to their backend and keeps every other dataset in memory.
type DataCatalog struct {
	declared map[string]Catalog
	memory   *Memory
}

func New(cfg *config.Config, fs afero.Fs, conns connectionFetcher) (*DataCatalog, error) {
	c := &DataCatalog{
		declared: make(map[string]Catalog, len(cfg.Catalog)),
		memory:   NewMemory(),
	}

	for _, d := range cfg.Catalog {
		backend, err := newBackend(cfg, fs, conns, d)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid catalog entry '%s'", d.Name)
		}
		c.declared[d.Name] = backend
	}

	return c, nil
}

func newBackend(cfg *config.Config, fs afero.Fs, conns connectionFetcher, d config.Dataset) (Catalog, error) {
	switch d.Type {
	case "memory":
		return NewMemory(), nil
	case "csv", "json":
		if d.Path == "" {
			return nil, errors.New("file datasets need a path")
		}
		return &File{fs: fs, path: cfg.ResolvePath(d.Path), format: d.Type, delimiter: d.Delimiter}, nil
	case "partitioned":
		if d.Path == "" {
			return nil, errors.New("partitioned datasets need a path")
		}
		format := d.Format
		if format == "" {
			format = "csv"
		}
		if format != "csv" && format != "json" {
			return nil, errors.Errorf("unsupported partition format '%s'", format)
		}
		return &Partitioned{fs: fs, dir: cfg.ResolvePath(d.Path), format: format, delimiter: d.Delimiter}, nil
	case "text":
		if d.Path == "" {
			return nil, errors.New("text datasets need a path")
		}
		return &Text{fs: fs, path: cfg.ResolvePath(d.Path), append: d.Append}, nil
	case connection.DuckDB, connection.Postgres:
		table := d.Table
		if table == "" {
			table = d.Name
		}
		if conns == nil {
			return nil, errors.Errorf("%s datasets need a connection", d.Type)
		}
		return &Database{conns: conns, kind: d.Type, table: table}, nil
	}

	return nil, errors.Errorf("unknown dataset type '%s'", d.Type)
}

func (c *DataCatalog) backend(name string) Catalog {
	if b, ok := c.declared[name]; ok {
		return b
	}
	return c.memory
}

func (c *DataCatalog) Load(ctx context.Context, name string) (*Dataset, error) {
	return c.backend(name).Load(ctx, name)
}

func (c *DataCatalog) Save(ctx context.Context, name string, ds *Dataset) error {
	if ds == nil {
		return errors.Errorf("cannot save an empty dataset to '%s'", name)
	}
	return c.backend(name).Save(ctx, name, ds)
}

// Declared reports whether the dataset is declared in the catalog configuration.
func (c *DataCatalog) Declared(name string) bool {
	_, ok := c.declared[name]
	return ok
}
