package duck

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type SchemaCreator struct {
	schemaNameCache *sync.Map
}

func NewSchemaCreator() *SchemaCreator {
	return &SchemaCreator{
		schemaNameCache: &sync.Map{},
	}
}

type queryRunner interface {
	RunQueryWithoutResult(ctx context.Context, query string) error
}

// CreateSchemaIfNotExist creates the schema of a "schema.table" name once per creator.
func (sc *SchemaCreator) CreateSchemaIfNotExist(ctx context.Context, qr queryRunner, tableName string) error {
	tableComponents := strings.Split(tableName, ".")
	var schemaName string
	switch len(tableComponents) {
	case 2:
		schemaName = strings.ToLower(tableComponents[0])
	case 3:
		schemaName = strings.ToLower(tableComponents[1])
	default:
		return nil
	}
	if _, exists := sc.schemaNameCache.Load(schemaName); exists {
		return nil
	}
	if err := qr.RunQueryWithoutResult(ctx, "CREATE SCHEMA IF NOT EXISTS "+schemaName); err != nil {
		return errors.Wrapf(err, "failed to create or ensure schema: %s", schemaName)
	}
	sc.schemaNameCache.Store(schemaName, true)

	return nil
}
