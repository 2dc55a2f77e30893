package connection

import (
	"context"
	"sync"

	"github.com/bruin-data/medallion/pkg/config"
	duck "github.com/bruin-data/medallion/pkg/duckdb"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/postgres"
	"github.com/pkg/errors"
)

const (
	DuckDB   = "duckdb"
	Postgres = "postgres"
)

// TableStore is a database that can hold whole tables.
type TableStore interface {
	ReadTable(ctx context.Context, tableName string) (*frame.Table, error)
	WriteTable(ctx context.Context, tableName string, t *frame.Table) error
}

// Manager opens the configured database connections on first use and shares them.
type Manager struct {
	duckDBConfig   *duck.Config
	postgresConfig *postgres.Config

	mu       sync.Mutex
	duckDB   *duck.Client
	postgres *postgres.Client
}

func NewManagerFromConfig(cm *config.Config) *Manager {
	m := &Manager{}
	if path := cm.Connections.DuckDB.Path; path != "" {
		m.duckDBConfig = &duck.Config{Path: cm.ResolvePath(path)}
	}
	if uri := cm.Connections.Postgres.URI; uri != "" {
		m.postgresConfig = &postgres.Config{URI: uri}
	}
	return m
}

// GetConnection returns the store of the given kind, "duckdb" or "postgres".
func (m *Manager) GetConnection(ctx context.Context, kind string) (TableStore, error) {
	switch kind {
	case DuckDB:
		db, err := m.GetDuckDBConnection()
		if err != nil {
			return nil, err
		}
		return db, nil
	case Postgres:
		db, err := m.GetPgConnection(ctx)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown connection type '%s'", kind)
}

func (m *Manager) GetDuckDBConnection() (*duck.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.duckDB != nil {
		return m.duckDB, nil
	}
	if m.duckDBConfig == nil {
		return nil, errors.New("no duckdb connection configured, set connections.duckdb.path")
	}

	db, err := duck.NewClient(*m.duckDBConfig)
	if err != nil {
		return nil, err
	}
	m.duckDB = db
	return db, nil
}

func (m *Manager) GetPgConnection(ctx context.Context) (*postgres.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres != nil {
		return m.postgres, nil
	}
	if m.postgresConfig == nil {
		return nil, errors.New("no postgres connection configured, set connections.postgres.uri")
	}

	db, err := postgres.NewClient(ctx, *m.postgresConfig)
	if err != nil {
		return nil, err
	}
	m.postgres = db
	return db, nil
}

// Close closes every connection that was opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres != nil {
		m.postgres.Close()
		m.postgres = nil
	}
	if m.duckDB != nil {
		err := m.duckDB.Close()
		m.duckDB = nil
		return err
	}
	return nil
}
