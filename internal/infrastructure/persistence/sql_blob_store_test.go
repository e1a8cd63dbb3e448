package persistence

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractgen/backend/internal/infrastructure/database"
)

func newMockStore(t *testing.T, dialect database.Dialect) (*SQLBlobStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewSQLBlobStore(database.NewConnection(db, dialect))
	store.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestSQLBlobStore_Get(t *testing.T) {
	store, mock := newMockStore(t, database.DialectMySQL)
	query := "SELECT payload FROM contract_blobs WHERE blob_key = ?"

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("contractGenerator").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"contractType":"nda"}`))
	got, err := store.Get(context.Background(), "contractGenerator")
	require.NoError(t, err)
	assert.JSONEq(t, `{"contractType":"nda"}`, string(got))

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	got, err = store.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("broken").WillReturnError(errors.New("connection reset"))
	_, err = store.Get(context.Background(), "broken")
	assert.ErrorContains(t, err, "connection reset")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBlobStore_PutUsesDialectUpsert(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
		query   string
	}{
		{
			name:    "mysql",
			dialect: database.DialectMySQL,
			query:   "INSERT INTO contract_blobs (blob_key, payload, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)",
		},
		{
			name:    "sqlite",
			dialect: database.DialectSQLite,
			query:   "INSERT INTO contract_blobs (blob_key, payload, updated_at) VALUES (?, ?, ?) ON CONFLICT(blob_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t, tt.dialect)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).
				WithArgs("k", "v", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)).
				WillReturnResult(sqlmock.NewResult(1, 1))

			assert.NoError(t, store.Put(context.Background(), "k", []byte("v")))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLBlobStore_ListEscapesPrefix(t *testing.T) {
	store, mock := newMockStore(t, database.DialectSQLite)
	query := "SELECT blob_key FROM contract_blobs WHERE blob_key LIKE ? ESCAPE '!' ORDER BY blob_key ASC"

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("contractGenerator!_backup!_%").
		WillReturnRows(sqlmock.NewRows([]string{"blob_key"}).
			AddRow("contractGenerator_backup_2024-03-30").
			AddRow("contractGenerator_backup_2024-03-31"))

	keys, err := store.List(context.Background(), "contractGenerator_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"contractGenerator_backup_2024-03-30", "contractGenerator_backup_2024-03-31"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBlobStore_Delete(t *testing.T) {
	store, mock := newMockStore(t, database.DialectMySQL)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contract_blobs WHERE blob_key = ?")).
		WithArgs("k").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "a!_b!%c!!", EscapeLike("a_b%c!"))
	assert.Equal(t, "plain", EscapeLike("plain"))
}
