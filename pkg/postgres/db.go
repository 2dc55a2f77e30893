package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Client struct {
	connection connection
	config     PgConfig
}

type PgConfig interface {
	ToDBConnectionURI() string
}

type connection interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

func NewClient(ctx context.Context, c PgConfig) (*Client, error) {
	conn, err := pgxpool.New(ctx, c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}

	return &Client{connection: conn, config: c}, nil
}

func (c *Client) Close() {
	if pool, ok := c.connection.(interface{ Close() }); ok {
		pool.Close()
	}
}

func (c *Client) RunQueryWithoutResult(ctx context.Context, query string) error {
	_, err := c.connection.Exec(ctx, query)
	return err
}

// Select runs a query and returns the results.
func (c *Client) Select(ctx context.Context, query string) ([][]interface{}, error) {
	rows, err := c.connection.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	collectedRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]interface{}, error) {
		return row.Values()
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect row values")
	}

	if len(collectedRows) == 0 {
		return make([][]interface{}, 0), nil
	}

	return collectedRows, nil
}

// Ping runs a simple query (SELECT 1) to validate the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.RunQueryWithoutResult(ctx, "SELECT 1"); err != nil {
		return errors.Wrap(err, "failed to run test query on Postgres connection")
	}

	return nil
}

// ReadTable loads a whole table. DATE columns come back as civil.Date.
func (c *Client) ReadTable(ctx context.Context, tableName string) (*frame.Table, error) {
	rows, err := c.connection.Query(ctx, "SELECT * FROM "+tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read table '%s'", tableName)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	collectedRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]interface{}, error) {
		return row.Values()
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect row values")
	}

	t := frame.New(columns...)
	for _, row := range collectedRows {
		for i, v := range row {
			row[i] = convertValue(v, fields[i].DataTypeOID)
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func convertValue(v any, oid uint32) any {
	switch val := v.(type) {
	case time.Time:
		if oid == pgtype.DateOID {
			return civil.DateOf(val)
		}
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case float32:
		return float64(val)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}

// WriteTable replaces the table with the contents of t in a single transaction: the table is
// recreated and the rows are loaded with COPY.
func (c *Client) WriteTable(ctx context.Context, tableName string, t *frame.Table) (err error) {
	columns := t.Columns()
	if len(columns) == 0 {
		return errors.Errorf("cannot write table '%s' without columns", tableName)
	}

	identifier := pgx.Identifier(strings.Split(tableName, "."))
	types := make([]string, len(columns))
	definitions := make([]string, len(columns))
	for i, col := range columns {
		types[i] = ColumnType(t.Column(col))
		definitions[i] = fmt.Sprintf("%s %s", pgx.Identifier{col}.Sanitize(), types[i])
	}

	rows := make([][]any, t.Len())
	for r := range rows {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i], err = toCopyValue(t.Value(r, col), types[i])
			if err != nil {
				return errors.Wrapf(err, "failed to convert column '%s' of row %d", col, r)
			}
		}
		rows[r] = row
	}

	tx, err := c.connection.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to start a transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	statements := make([]string, 0, 3)
	if len(identifier) > 1 {
		statements = append(statements, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{identifier[0]}.Sanitize())
	}
	statements = append(statements,
		"DROP TABLE IF EXISTS "+identifier.Sanitize(),
		fmt.Sprintf("CREATE TABLE %s (%s)", identifier.Sanitize(), strings.Join(definitions, ", ")),
	)
	for _, statement := range statements {
		if _, err = tx.Exec(ctx, statement); err != nil {
			return errors.Wrapf(err, "failed to prepare table '%s'", tableName)
		}
	}

	if _, err = tx.CopyFrom(ctx, identifier, columns, pgx.CopyFromRows(rows)); err != nil {
		return errors.Wrapf(err, "failed to copy rows into '%s'", tableName)
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Wrapf(err, "failed to commit table '%s'", tableName)
	}
	return nil
}

// ColumnType picks the Postgres type for a column. Hashes, mixed and nested values are stored
// as TEXT.
func ColumnType(values []any) string {
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case nil:
			continue
		case float64, float32:
			k = "DOUBLE PRECISION"
		case int64, int, int32:
			k = "BIGINT"
		case bool:
			k = "BOOLEAN"
		case civil.Date:
			k = "DATE"
		case time.Time:
			k = "TIMESTAMPTZ"
		default:
			k = "TEXT"
		}
		if kind != "" && kind != k {
			return "TEXT"
		}
		kind = k
	}

	if kind == "" {
		return "TEXT"
	}
	return kind
}

func toCopyValue(v any, columnType string) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case civil.Date:
		if columnType == "DATE" {
			return val.In(time.UTC), nil
		}
	case int:
		return int64(val), nil
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}

	if columnType == "TEXT" {
		s, _ := frame.ToString(v)
		return s, nil
	}
	return v, nil
}
