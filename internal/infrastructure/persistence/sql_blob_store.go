package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/internal/infrastructure/database"
	"github.com/contractgen/backend/pkg/constants"
)

// SQLBlobStore keeps blobs in the contract_blobs table of a MySQL or SQLite database
type SQLBlobStore struct {
	conn *database.Connection
	now  func() time.Time
}

var _ ports.BlobStore = (*SQLBlobStore)(nil)

// NewSQLBlobStore creates a store over an open connection. The table must
// already exist; see bootstrap.InitializeSchema.
func NewSQLBlobStore(conn *database.Connection) *SQLBlobStore {
	return &SQLBlobStore{conn: conn, now: time.Now}
}

// Get returns the payload stored under key, or nil when absent
func (s *SQLBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", ColumnPayload, constants.TableBlobs, ColumnBlobKey)

	var payload string
	err := s.conn.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Put inserts or replaces the payload under key
func (s *SQLBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.conn.ExecContext(ctx, s.upsertQuery(), key, string(value), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *SQLBlobStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableBlobs, ColumnBlobKey)
	if _, err := s.conn.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// List returns the keys starting with prefix in ascending order
func (s *SQLBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE ? ESCAPE '%c' ORDER BY %s ASC",
		ColumnBlobKey, constants.TableBlobs, ColumnBlobKey, likeEscape, ColumnBlobKey)

	rows, err := s.conn.QueryContext(ctx, query, EscapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan blob key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLBlobStore) upsertQuery() string {
	insert := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
		constants.TableBlobs, ColumnBlobKey, ColumnPayload, ColumnUpdatedAt)
	if s.conn.Dialect() == database.DialectMySQL {
		return fmt.Sprintf("%s %s %s = VALUES(%s), %s = VALUES(%s)",
			insert, KeywordOnDuplicate, ColumnPayload, ColumnPayload, ColumnUpdatedAt, ColumnUpdatedAt)
	}
	return fmt.Sprintf("%s %s(%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s",
		insert, KeywordOnConflict, ColumnBlobKey, ColumnPayload, ColumnPayload, ColumnUpdatedAt, ColumnUpdatedAt)
}

// EscapeLike escapes the LIKE wildcards in s
func EscapeLike(s string) string {
	esc := string(likeEscape)
	return strings.NewReplacer(esc, esc+esc, "%", esc+"%", "_", esc+"_").Replace(s)
}
