package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Import database drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// NewDB opens a database connection for the given driver and runs migrations.
func NewDB(driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer, and ":memory:" databases exist per connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	for _, m := range db.dialect.migrations() {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping runs a trivial query to verify the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	var one int
	return db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Session acquires a dedicated connection from the pool. The caller must
// Close the session to return the connection.
func (db *DB) Session(ctx context.Context) (*Session, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, dialect: db.dialect}, nil
}

// StatsCollector exposes connection pool statistics to Prometheus.
func (db *DB) StatsCollector(name string) prometheus.Collector {
	return collectors.NewDBStatsCollector(db.conn, name)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Session is a single pooled connection bound to one request.
type Session struct {
	conn    *sql.Conn
	dialect dialect
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}
