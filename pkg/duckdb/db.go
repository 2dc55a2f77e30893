package duck

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/jmoiron/sqlx"
	"github.com/marcboeker/go-duckdb"
	"github.com/pkg/errors"
)

const insertBatchSize = 500

type Client struct {
	connection    connection
	config        DuckDBConfig
	schemaCreator *SchemaCreator
}

type DuckDBConfig interface {
	ToDBConnectionURI() string
}

type connection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
}

func NewClient(c DuckDBConfig) (*Client, error) {
	conn, err := sqlx.Open("duckdb", c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, errors.Wrapf(err, "failed to open duckdb database '%s'", c.ToDBConnectionURI())
	}

	return &Client{
		connection:    conn,
		config:        c,
		schemaCreator: NewSchemaCreator(),
	}, nil
}

func (c *Client) Close() error {
	if closer, ok := c.connection.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) RunQueryWithoutResult(ctx context.Context, query string) error {
	_, err := c.connection.ExecContext(ctx, query)
	return err
}

// Select runs a query and returns the results.
func (c *Client) Select(ctx context.Context, query string) ([][]interface{}, error) {
	LockDatabase(c.config.ToDBConnectionURI())
	defer UnlockDatabase(c.config.ToDBConnectionURI())

	_, rows, err := c.query(ctx, query)
	return rows, err
}

// ReadTable loads a whole table. DATE columns come back as civil.Date.
func (c *Client) ReadTable(ctx context.Context, tableName string) (*frame.Table, error) {
	LockDatabase(c.config.ToDBConnectionURI())
	defer UnlockDatabase(c.config.ToDBConnectionURI())

	cols, rows, err := c.query(ctx, "SELECT * FROM "+tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read table '%s'", tableName)
	}

	t := frame.New(cols...)
	for _, row := range rows {
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c *Client) query(ctx context.Context, query string) ([]string, [][]interface{}, error) {
	rows, err := c.connection.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	if rows.Err() != nil {
		return nil, nil, rows.Err()
	}

	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}

	result := make([][]interface{}, 0)
	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, nil, err
		}

		for i, val := range columns {
			columns[i] = convertValue(val, columnTypes[i].DatabaseTypeName())
		}

		result = append(result, columns)
	}

	return cols, result, rows.Err()
}

func convertValue(val interface{}, databaseType string) interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case duckdb.Decimal:
		return v.Float64()
	case []byte:
		return string(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case time.Time:
		if strings.EqualFold(databaseType, "DATE") {
			return civil.DateOf(v)
		}
		return v
	case string:
		if strings.EqualFold(databaseType, "DATE") {
			if d, err := civil.ParseDate(v); err == nil {
				return d
			}
		}
	}

	return val
}

// WriteTable replaces the table with the contents of t, creating its schema if needed.
func (c *Client) WriteTable(ctx context.Context, tableName string, t *frame.Table) error {
	LockDatabase(c.config.ToDBConnectionURI())
	defer UnlockDatabase(c.config.ToDBConnectionURI())

	if err := c.schemaCreator.CreateSchemaIfNotExist(ctx, c, tableName); err != nil {
		return err
	}

	columns := t.Columns()
	if len(columns) == 0 {
		return errors.Errorf("cannot write table '%s' without columns", tableName)
	}

	definitions := make([]string, len(columns))
	for i, col := range columns {
		definitions[i] = fmt.Sprintf("%s %s", quoteIdentifier(col), ColumnType(t.Column(col)))
	}
	createQuery := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", tableName, strings.Join(definitions, ", "))
	if err := c.RunQueryWithoutResult(ctx, createQuery); err != nil {
		return errors.Wrapf(err, "failed to create table '%s'", tableName)
	}

	for start := 0; start < t.Len(); start += insertBatchSize {
		end := min(start+insertBatchSize, t.Len())

		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(columns))
		rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
		for r := start; r < end; r++ {
			placeholders = append(placeholders, rowPlaceholder)
			for _, col := range columns {
				v, err := toDriverValue(t.Value(r, col))
				if err != nil {
					return errors.Wrapf(err, "failed to convert column '%s' of row %d", col, r)
				}
				args = append(args, v)
			}
		}

		insertQuery := fmt.Sprintf("INSERT INTO %s VALUES %s", tableName, strings.Join(placeholders, ", "))
		if _, err := c.connection.ExecContext(ctx, insertQuery, args...); err != nil {
			return errors.Wrapf(err, "failed to insert rows into '%s'", tableName)
		}
	}

	return nil
}

// ColumnType picks the DuckDB type able to hold every non-null value of a column. Columns with
// mixed or nested values are stored as VARCHAR.
func ColumnType(values []any) string {
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case nil:
			continue
		case float64, float32:
			k = "DOUBLE"
		case int64, int, int32:
			k = "BIGINT"
		case uint64:
			k = "UBIGINT"
		case bool:
			k = "BOOLEAN"
		case civil.Date:
			k = "DATE"
		case time.Time:
			k = "TIMESTAMPTZ"
		default:
			k = "VARCHAR"
		}
		if kind != "" && kind != k {
			return "VARCHAR"
		}
		kind = k
	}

	if kind == "" {
		return "VARCHAR"
	}
	return kind
}

// toDriverValue renders cells the database/sql converter cannot take directly. DuckDB casts the
// string forms back to the column type on insert.
func toDriverValue(v any) (any, error) {
	switch val := v.(type) {
	case civil.Date:
		return val.String(), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case int:
		return int64(val), nil
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
