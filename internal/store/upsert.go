package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/agritracer/harvestsync/internal/record"
)

// progressEvery is the row cadence at which the observer is invoked.
const progressEvery = 10

// Observer receives batch progress. It is purely observational: the engine
// never changes behavior based on it. done/total are row counts; done is
// monotonically increasing within one Apply call.
type Observer func(done, total int)

// Result summarizes one upsert batch.
type Result struct {
	RowsProcessed int
	Succeeded     bool
}

// WriteError wraps a destination failure during an upsert batch. The batch
// was rolled back; the destination is unchanged from before the call.
type WriteError struct {
	Table string
	Ref   string // key of the failing row, empty for batch-level failures
	Err   error
}

func (e *WriteError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("destination write failed on %s row %s: %v", e.Table, e.Ref, e.Err)
	}
	return fmt.Sprintf("destination write failed on %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Engine applies canonical row batches to the destination. Each Apply call
// runs under a single transaction: every row commits or none do.
type Engine struct {
	db     *DB
	logger *log.Logger
}

// NewEngine creates an upsert engine over an open destination.
//
// If logger is nil, a default logger writing to stderr is used.
func NewEngine(db *DB, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[upsert] ", log.LstdFlags)
	}
	return &Engine{
		db:     db,
		logger: logger,
	}
}

// Apply upserts all rows as one atomic batch.
//
// Every row in the batch must belong to the same record kind; the first row
// defines the statement shape. Rows whose key is absent are inserted, rows
// whose key matches are overwritten (exact equality on the key columns).
// Tables carrying a sync timestamp get it refreshed on both paths.
//
// The transaction commits only if every row succeeds. Any single-row
// failure rolls back the whole batch and returns a *WriteError; there is no
// partial commit and no retry.
//
// An empty batch succeeds without touching the destination.
func (e *Engine) Apply(ctx context.Context, rows []record.Row, observe Observer) (Result, error) {
	if len(rows) == 0 {
		return Result{RowsProcessed: 0, Succeeded: true}, nil
	}

	table := rows[0].Table()
	for _, row := range rows[1:] {
		if row.Table() != table {
			return Result{}, fmt.Errorf("mixed tables in one batch: %s and %s", table, row.Table())
		}
	}

	query := buildUpsertQuery(rows[0])

	tx, err := e.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, &WriteError{Table: table, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return Result{}, &WriteError{Table: table, Err: fmt.Errorf("failed to prepare upsert: %w", err)}
	}
	defer stmt.Close()

	total := len(rows)
	if observe != nil {
		observe(0, total)
	}

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Values()...); err != nil {
			return Result{RowsProcessed: i, Succeeded: false},
				&WriteError{Table: table, Ref: row.Ref(), Err: err}
		}

		done := i + 1
		if observe != nil && (done%progressEvery == 0 || done == total) {
			observe(done, total)
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{RowsProcessed: total, Succeeded: false},
			&WriteError{Table: table, Err: fmt.Errorf("failed to commit batch: %w", err)}
	}

	e.logger.Printf("Upserted %d rows into %s", total, table)
	return Result{RowsProcessed: total, Succeeded: true}, nil
}

// buildUpsertQuery assembles the single parameterized statement used for
// every row of a batch. Column and key names come from the static Row
// descriptors; row data only ever travels through bind parameters.
func buildUpsertQuery(row record.Row) string {
	cols := row.Columns()
	keys := row.KeyColumns()

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	insertCols := make([]string, len(cols))
	copy(insertCols, cols)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}

	var sets []string
	for _, c := range cols {
		if keySet[c] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	if row.HasSyncStamp() {
		insertCols = append(insertCols, "insert_date")
		placeholders = append(placeholders, "datetime('now')")
		sets = append(sets, "insert_date = excluded.insert_date")
	}

	return fmt.Sprintf(`
	INSERT INTO %s (%s)
	VALUES (%s)
	ON CONFLICT(%s) DO UPDATE SET
		%s
	`,
		row.Table(),
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(keys, ", "),
		strings.Join(sets, ",\n\t\t"),
	)
}
