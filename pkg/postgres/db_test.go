package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Select(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   string
		want      [][]interface{}
	}{
		{
			name:  "test select rows",
			query: "SELECT * FROM table",
			want:  [][]interface{}{{1, "Filiale Hochbetrieb"}, {2, "Filiale Nord"}},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRowsWithColumnDefinition(
					pgconn.FieldDescription{Name: "id"},
					pgconn.FieldDescription{Name: "name"},
				).AddRow(1, "Filiale Hochbetrieb").AddRow(2, "Filiale Nord")
				mock.ExpectQuery("SELECT \\* FROM table").WillReturnRows(rows)
			},
		},
		{
			name:  "test select empty rows",
			query: "SELECT * FROM table",
			want:  [][]interface{}{},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRowsWithColumnDefinition(
					pgconn.FieldDescription{Name: "id"},
					pgconn.FieldDescription{Name: "name"},
				)
				mock.ExpectQuery("SELECT \\* FROM table").WillReturnRows(rows)
			},
		},
		{
			name:    "test select errors",
			query:   "SELECT * FROM table",
			wantErr: "Some error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT \\* FROM table").WillReturnError(errors.New("Some error"))
			},
		},
		{
			name:    "test fail scanning rows errors",
			query:   "SELECT * FROM table",
			wantErr: "failed to collect row values: Some scan error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRowsWithColumnDefinition(
					pgconn.FieldDescription{Name: "id"},
					pgconn.FieldDescription{Name: "name"},
				).AddRow(1, "Filiale Hochbetrieb")
				rows.RowError(1, errors.New("Some scan error"))
				mock.ExpectQuery("SELECT \\* FROM table").WillReturnRows(rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			client := Client{connection: mock}

			result, err := client.Select(context.TODO(), tt.query)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}

			assert.Equal(t, tt.want, result)
		})
	}
}

func TestClient_ReadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRowsWithColumnDefinition(
		pgconn.FieldDescription{Name: "target_date", DataTypeOID: pgtype.DateOID},
		pgconn.FieldDescription{Name: "id_store", DataTypeOID: pgtype.Int4OID},
		pgconn.FieldDescription{Name: "_ingest_ts", DataTypeOID: pgtype.TimestamptzOID},
	).AddRow(time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC), int32(7), time.Date(2025, 8, 10, 6, 0, 0, 0, time.UTC))
	mock.ExpectQuery("SELECT \\* FROM views.app_view_daily").WillReturnRows(rows)

	client := Client{connection: mock}
	got, err := client.ReadTable(context.Background(), "views.app_view_daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"target_date", "id_store", "_ingest_ts"}, got.Columns())
	assert.Equal(t, civil.Date{Year: 2025, Month: 8, Day: 10}, got.Value(0, "target_date"))
	assert.Equal(t, int64(7), got.Value(0, "id_store"))
	assert.Equal(t, time.Date(2025, 8, 10, 6, 0, 0, 0, time.UTC), got.Value(0, "_ingest_ts"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func appViewTable(t *testing.T) *frame.Table {
	t.Helper()

	tbl := frame.New("id_product", "target_date", "stockout", "product_name")
	require.NoError(t, tbl.Append(int64(10010003), civil.Date{Year: 2025, Month: 8, Day: 10}, false, "Kürbisbrötchen"))
	require.NoError(t, tbl.Append(int64(10010002), civil.Date{Year: 2025, Month: 8, Day: 11}, true, nil))
	return tbl
}

func TestClient_WriteTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "views"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`DROP TABLE IF EXISTS "views"."app_view_daily"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "views"."app_view_daily" ("id_product" BIGINT, "target_date" DATE, "stockout" BOOLEAN, "product_name" TEXT)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"views", "app_view_daily"}, []string{"id_product", "target_date", "stockout", "product_name"}).
		WillReturnResult(2)
	mock.ExpectCommit()

	client := Client{connection: mock}
	require.NoError(t, client.WriteTable(context.Background(), "views.app_view_daily", appViewTable(t)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_WriteTable_RollsBackOnCopyFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "app_view_daily"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "app_view_daily" ("id_product" BIGINT, "target_date" DATE, "stockout" BOOLEAN, "product_name" TEXT)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"app_view_daily"}, []string{"id_product", "target_date", "stockout", "product_name"}).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	client := Client{connection: mock}
	err = client.WriteTable(context.Background(), "app_view_daily", appViewTable(t))
	require.Error(t, err)
	assert.Equal(t, "failed to copy rows into 'app_view_daily': connection reset", err.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DOUBLE PRECISION", ColumnType([]any{nil, 1.5}))
	assert.Equal(t, "BIGINT", ColumnType([]any{int64(1)}))
	assert.Equal(t, "DATE", ColumnType([]any{civil.Date{Year: 2025, Month: 8, Day: 10}}))
	assert.Equal(t, "TEXT", ColumnType([]any{uint64(1)}))
	assert.Equal(t, "TEXT", ColumnType([]any{1.0, true}))
	assert.Equal(t, "TEXT", ColumnType(nil))
}
