// Package store provides the relational destination for harvest sync runs.
//
// The destination is an embedded SQLite database opened with WAL mode. It
// holds one table per record kind:
//   - harvests: one row per harvest event, keyed by id, with an insert_date
//     column refreshed on every write (insert or update) that records when
//     the row was last synced
//   - daily_totals: one row per calendar date
//
// The upsert engine in this package is the only persistent mutation point
// in the system. Rows are never deleted; a sync only inserts absent keys
// and overwrites matched ones.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agritracer/harvestsync/internal/record"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite destination connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a destination connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created; call InitSchema before the first sync.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the destination tables if they don't exist.
// This is idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the destination tables with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS harvests (
		id TEXT PRIMARY KEY,
		farm TEXT NOT NULL,
		plot TEXT NOT NULL,
		produce TEXT NOT NULL,
		worker TEXT NOT NULL,
		unit TEXT NOT NULL,
		harvest_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration REAL NOT NULL,
		containers INTEGER NOT NULL,
		kgs_harvested REAL NOT NULL,

		-- Last synced at, refreshed on every write
		insert_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_totals (
		date TEXT PRIMARY KEY,
		kgs_harvest_tvn REAL NOT NULL,
		kgs_packed_cnd REAL NOT NULL
	);

	-- Window reporting queries filter harvests by date
	CREATE INDEX IF NOT EXISTS idx_harvests_date ON harvests(harvest_date);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// CountRows returns the number of rows in the table backing the given kind.
func (db *DB) CountRows(ctx context.Context, kind record.Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var count int
	// Table name comes from the static kind registry, never from row data.
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", table, err)
	}
	return count, nil
}

// GetHarvest retrieves a single harvest row by id along with its last-synced
// timestamp. Returns sql.ErrNoRows if the row is not found.
func (db *DB) GetHarvest(ctx context.Context, id string) (*record.Harvest, string, error) {
	query := `
	SELECT id, farm, plot, produce, worker, unit,
	       harvest_date, start_time, end_time,
	       duration, containers, kgs_harvested, insert_date
	FROM harvests
	WHERE id = ?
	`

	var h record.Harvest
	var harvestDate, insertDate string
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&h.ID, &h.Farm, &h.Plot, &h.Produce, &h.Worker, &h.Unit,
		&harvestDate, &h.StartTime, &h.EndTime,
		&h.Duration, &h.Containers, &h.KgsHarvested, &insertDate,
	)
	if err != nil {
		return nil, "", err
	}

	if t, err := time.Parse(record.DateTimeLayout, harvestDate); err == nil {
		h.HarvestDate = t
	}

	return &h, insertDate, nil
}

// GetDailyTotal retrieves a single daily totals row by date (YYYY-MM-DD).
// Returns sql.ErrNoRows if the row is not found.
func (db *DB) GetDailyTotal(ctx context.Context, date string) (*record.DailyTotal, error) {
	query := `
	SELECT date, kgs_harvest_tvn, kgs_packed_cnd
	FROM daily_totals
	WHERE date = ?
	`

	var d record.DailyTotal
	var dateStr string
	err := db.conn.QueryRowContext(ctx, query, date).Scan(
		&dateStr, &d.KgsHarvestTVN, &d.KgsPackedCND,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(record.DateLayout, dateStr); err == nil {
		d.Date = t
	}

	return &d, nil
}

func tableFor(kind record.Kind) (string, error) {
	switch kind {
	case record.KindHarvest:
		return "harvests", nil
	case record.KindDailyTotal:
		return "daily_totals", nil
	default:
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
}
