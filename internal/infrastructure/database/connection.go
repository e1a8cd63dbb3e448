package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// Connection wraps a *sql.DB together with its dialect.
// sql.DB is already safe for concurrent use and pools its own connections.
type Connection struct {
	db      *sql.DB
	dialect Dialect
}

// MySQLConfig holds the connection settings of a MySQL-compatible server
type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

var tlsOnce sync.Once // TLS config may be registered only once per process

// OpenMySQL connects to a MySQL-compatible server. Remote hosts use TLS.
func OpenMySQL(cfg MySQLConfig) (*Connection, error) {
	if cfg.Port == "" {
		cfg.Port = "3306"
	}
	if cfg.Database == "" {
		cfg.Database = "contractgen"
	}

	tlsParam := ""
	if cfg.Host != "" && cfg.Host != "127.0.0.1" && cfg.Host != "localhost" {
		var regErr error
		tlsOnce.Do(func() {
			regErr = mysql.RegisterTLSConfig("contractgen", &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			})
		})
		if regErr != nil {
			return nil, fmt.Errorf("failed to register TLS config: %w", regErr)
		}
		tlsParam = "&tls=contractgen"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, tlsParam)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Idle connections match open connections so the pool does not churn.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Connection{db: db, dialect: DialectMySQL}, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string) (*Connection, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Connection{db: db, dialect: DialectSQLite}, nil
}

// NewConnection wraps an already opened database, e.g. a sqlmock handle
func NewConnection(db *sql.DB, dialect Dialect) *Connection {
	return &Connection{db: db, dialect: dialect}
}

// Dialect returns the backend dialect
func (c *Connection) Dialect() Dialect {
	return c.dialect
}

// ExecContext executes an INSERT, UPDATE, DELETE or DDL statement
func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a SELECT query
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a SELECT query that returns at most one row
func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// DB returns the underlying *sql.DB
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}
