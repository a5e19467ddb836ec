package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	driver string
}

// NewDB opens the database and makes sure the schema exists.
// For SQLite the DSN is a file path (or ":memory:").
func NewDB(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one connection: in-memory databases are per connection and
		// SQLite serializes writers anyway
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

// Driver reports which backend is in use
func (db *DB) Driver() string {
	return db.driver
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		serial = "SERIAL PRIMARY KEY"
	}

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id TEXT PRIMARY KEY,
			board TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			pages INTEGER NOT NULL DEFAULT 0,
			listings INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_runs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id ` + serial + `,
			run_id TEXT NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			page INTEGER NOT NULL,
			agency TEXT,
			region TEXT,
			position_title TEXT,
			plantilla_no TEXT,
			posting_date TEXT,
			closing_date TEXT,
			action TEXT NOT NULL,
			extra TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS postings (
			job_id BIGINT PRIMARY KEY,
			region TEXT,
			place_of_assignment TEXT,
			position_title TEXT,
			plantilla_no TEXT,
			salary_grade TEXT,
			monthly_salary BIGINT,
			eligibility TEXT,
			education TEXT,
			training TEXT,
			experience TEXT,
			competency TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create postings table: %w", err)
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_action ON listings(action)`)
	if err != nil {
		slog.Warn("failed to create index on listings.action", "err", err)
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_run_id ON listings(run_id)`)
	if err != nil {
		slog.Warn("failed to create index on listings.run_id", "err", err)
	}

	slog.Debug("database schema initialized", "driver", db.driver)
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
