// Package syncer sequences one sync run: fetch raw rows for a date window,
// normalize them into canonical rows, apply them as one atomic upsert
// batch, and report the outcome to a notification sink.
package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/agritracer/harvestsync/internal/notify"
	"github.com/agritracer/harvestsync/internal/record"
	"github.com/agritracer/harvestsync/internal/source"
	"github.com/agritracer/harvestsync/internal/store"
)

// Outcome is the result of one sync run.
type Outcome struct {
	Success       bool
	Kind          record.Kind
	Window        Window
	RowsAttempted int // rows returned by the source
	RowsProcessed int // rows written before commit or failure
	Err           error
	Duration      time.Duration
}

// Config assembles a Syncer's collaborators. Source and Engine are
// required; the rest default sensibly.
type Config struct {
	Source source.Adapter
	Mapper *record.Mapper
	Engine *store.Engine
	Sink   notify.Sink

	// Observer receives upsert progress. Optional.
	Observer store.Observer

	// Logger for run activity. Defaults to stderr.
	Logger *log.Logger
}

// Syncer runs date-windowed sync batches. Execution is strictly
// sequential: fetch, normalize, and upsert happen one after another with
// no overlap, and the destination transaction is held exclusively by one
// run for its full duration.
type Syncer struct {
	src     source.Adapter
	mapper  *record.Mapper
	engine  *store.Engine
	sink    notify.Sink
	observe store.Observer
	logger  *log.Logger
}

// New creates a Syncer from its collaborators.
func New(cfg Config) (*Syncer, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg.Mapper == nil {
		cfg.Mapper = record.NewMapper()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if cfg.Sink == nil {
		cfg.Sink = notify.NewLogSink(cfg.Logger)
	}

	return &Syncer{
		src:     cfg.Source,
		mapper:  cfg.Mapper,
		engine:  cfg.Engine,
		sink:    cfg.Sink,
		observe: cfg.Observer,
		logger:  cfg.Logger,
	}, nil
}

// Run executes one sync for the given kind and window.
//
// Any stage error stops the run immediately; nothing is written unless the
// whole batch commits. The outcome is handed to the notification sink
// exactly once per run, success or failure, and a sink failure is logged
// without altering the outcome.
func (s *Syncer) Run(ctx context.Context, kind record.Kind, w Window) Outcome {
	start := time.Now()
	s.logger.Printf("Starting sync: kind=%s window=%s", kind, w)

	outcome := Outcome{Kind: kind, Window: w}
	if err := s.run(ctx, kind, w, &outcome); err != nil {
		outcome.Err = err
		s.logger.Printf("Sync failed: kind=%s window=%s: %v", kind, w, err)
	} else {
		outcome.Success = true
		s.logger.Printf("Sync complete: kind=%s window=%s rows=%d", kind, w, outcome.RowsProcessed)
	}
	outcome.Duration = time.Since(start)

	s.report(ctx, outcome)
	return outcome
}

func (s *Syncer) run(ctx context.Context, kind record.Kind, w Window, outcome *Outcome) error {
	raws, err := s.src.Fetch(ctx, kind, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("failed to fetch source rows: %w", err)
	}
	outcome.RowsAttempted = len(raws)
	s.logger.Printf("Fetched %d rows from source", len(raws))

	// Normalize everything before any destination write: one malformed row
	// aborts the batch, never a per-row skip.
	rows := make([]record.Row, 0, len(raws))
	for _, raw := range raws {
		row, err := s.mapper.Normalize(raw, kind)
		if err != nil {
			return fmt.Errorf("failed to normalize source rows: %w", err)
		}
		rows = append(rows, row)
	}

	result, err := s.engine.Apply(ctx, rows, s.observe)
	outcome.RowsProcessed = result.RowsProcessed
	if err != nil {
		return fmt.Errorf("failed to apply batch: %w", err)
	}

	return nil
}

// report hands the outcome to the sink. Best-effort: delivery failure must
// not mask the sync result already logged.
func (s *Syncer) report(ctx context.Context, outcome Outcome) {
	msg := notify.Message{
		Success:       outcome.Success,
		Kind:          string(outcome.Kind),
		Start:         outcome.Window.Start.Format(record.DateLayout),
		End:           outcome.Window.End.Format(record.DateLayout),
		RowsProcessed: outcome.RowsProcessed,
	}
	if outcome.Err != nil {
		msg.ErrorText = outcome.Err.Error()
	}

	if err := s.sink.Notify(ctx, msg); err != nil {
		s.logger.Printf("WARNING: failed to deliver notification: %v", err)
	}
}
