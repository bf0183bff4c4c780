package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/agritracer/harvestsync/internal/notify"
	"github.com/agritracer/harvestsync/internal/record"
	"github.com/agritracer/harvestsync/internal/source"
	"github.com/agritracer/harvestsync/internal/store"
)

// fakeSource serves canned rows or a canned error.
type fakeSource struct {
	rows  []map[string]any
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, _ record.Kind, _, _ time.Time) ([]map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

// captureSink records every message it receives.
type captureSink struct {
	msgs []notify.Message
	err  error
}

func (c *captureSink) Notify(_ context.Context, msg notify.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func setupTestStore(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return db
}

func newTestSyncer(t *testing.T, db *store.DB, src source.Adapter, sink notify.Sink) *Syncer {
	t.Helper()

	s, err := New(Config{
		Source: src,
		Engine: store.NewEngine(db, nil),
		Sink:   sink,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func testWindow() Window {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: day, End: day}
}

func rawHarvestRow(id string) map[string]any {
	return map[string]any{
		"id":            id,
		"farm":          "El Roble",
		"plot":          "P-12",
		"produce":       "blueberry",
		"worker":        "W-503",
		"unit":          "kg",
		"harvest_date":  "2024-06-01 08:30:00",
		"start_time":    "08:30",
		"end_time":      "12:15",
		"duration":      3.75,
		"containers":    float64(14),
		"kgs_harvested": 182.5,
	}
}

func TestRun_Success(t *testing.T) {
	db := setupTestStore(t)
	sink := &captureSink{}
	src := &fakeSource{rows: []map[string]any{rawHarvestRow("H100")}}
	s := newTestSyncer(t, db, src, sink)

	outcome := s.Run(context.Background(), record.KindHarvest, testWindow())

	if !outcome.Success {
		t.Fatalf("Run() failed: %v", outcome.Err)
	}
	if outcome.RowsProcessed != 1 || outcome.RowsAttempted != 1 {
		t.Errorf("outcome = %+v, want 1 row attempted and processed", outcome)
	}

	got, _, err := db.GetHarvest(context.Background(), "H100")
	if err != nil {
		t.Fatalf("destination missing H100: %v", err)
	}
	if got.KgsHarvested != 182.5 {
		t.Errorf("kgs_harvested = %v, want 182.5", got.KgsHarvested)
	}

	if len(sink.msgs) != 1 {
		t.Fatalf("sink notified %d times, want exactly 1", len(sink.msgs))
	}
	msg := sink.msgs[0]
	if !msg.Success || msg.RowsProcessed != 1 || msg.Start != "2024-06-01" {
		t.Errorf("notification = %+v", msg)
	}
}

func TestRun_EmptyWindow(t *testing.T) {
	db := setupTestStore(t)
	sink := &captureSink{}
	s := newTestSyncer(t, db, &fakeSource{}, sink)

	outcome := s.Run(context.Background(), record.KindHarvest, testWindow())

	if !outcome.Success {
		t.Fatalf("Run() failed on empty window: %v", outcome.Err)
	}
	if outcome.RowsProcessed != 0 {
		t.Errorf("RowsProcessed = %d, want 0", outcome.RowsProcessed)
	}

	count, err := db.CountRows(context.Background(), record.KindHarvest)
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("destination changed on empty window: %d rows", count)
	}
	if len(sink.msgs) != 1 {
		t.Errorf("sink notified %d times, want exactly 1", len(sink.msgs))
	}
}

func TestRun_SourceUnavailable(t *testing.T) {
	db := setupTestStore(t)
	sink := &captureSink{}
	src := &fakeSource{err: &source.UnavailableError{Err: errors.New("connection refused")}}
	s := newTestSyncer(t, db, src, sink)

	outcome := s.Run(context.Background(), record.KindHarvest, testWindow())

	if outcome.Success {
		t.Fatal("Run() succeeded, want failure")
	}

	var unavailable *source.UnavailableError
	if !errors.As(outcome.Err, &unavailable) {
		t.Errorf("outcome error is %T, want *source.UnavailableError in chain", outcome.Err)
	}

	if len(sink.msgs) != 1 {
		t.Fatalf("sink notified %d times, want exactly 1", len(sink.msgs))
	}
	if sink.msgs[0].Success || sink.msgs[0].ErrorText == "" {
		t.Errorf("failure notification = %+v", sink.msgs[0])
	}
}

// TestRun_MalformedRowAbortsBatch serves one valid and one malformed row
// and checks nothing reaches the destination.
func TestRun_MalformedRowAbortsBatch(t *testing.T) {
	db := setupTestStore(t)
	sink := &captureSink{}

	bad := rawHarvestRow("H101")
	delete(bad, "harvest_date")
	src := &fakeSource{rows: []map[string]any{rawHarvestRow("H100"), bad}}
	s := newTestSyncer(t, db, src, sink)

	outcome := s.Run(context.Background(), record.KindHarvest, testWindow())

	if outcome.Success {
		t.Fatal("Run() succeeded with malformed row")
	}

	var malformed *record.MalformedRecordError
	if !errors.As(outcome.Err, &malformed) {
		t.Fatalf("outcome error is %T, want *record.MalformedRecordError in chain", outcome.Err)
	}
	if malformed.Field != "harvest_date" {
		t.Errorf("Field = %q, want harvest_date", malformed.Field)
	}

	count, err := db.CountRows(context.Background(), record.KindHarvest)
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("destination changed despite malformed batch: %d rows", count)
	}
	if len(sink.msgs) != 1 {
		t.Errorf("sink notified %d times, want exactly 1", len(sink.msgs))
	}
}

// TestRun_SinkFailureDoesNotMaskOutcome delivers to a failing sink and
// checks the run result is unaffected.
func TestRun_SinkFailureDoesNotMaskOutcome(t *testing.T) {
	db := setupTestStore(t)
	sink := &captureSink{err: fmt.Errorf("smtp down")}
	src := &fakeSource{rows: []map[string]any{rawHarvestRow("H100")}}
	s := newTestSyncer(t, db, src, sink)

	outcome := s.Run(context.Background(), record.KindHarvest, testWindow())

	if !outcome.Success {
		t.Errorf("sink failure altered the outcome: %v", outcome.Err)
	}
	if len(sink.msgs) != 1 {
		t.Errorf("sink notified %d times, want exactly 1", len(sink.msgs))
	}
}

// TestRun_Rerun checks end-to-end idempotence: running the same window
// twice leaves the destination in the same state as one run.
func TestRun_Rerun(t *testing.T) {
	db := setupTestStore(t)
	src := &fakeSource{rows: []map[string]any{rawHarvestRow("H100")}}
	s := newTestSyncer(t, db, src, &captureSink{})

	for run := 1; run <= 2; run++ {
		if outcome := s.Run(context.Background(), record.KindHarvest, testWindow()); !outcome.Success {
			t.Fatalf("run %d failed: %v", run, outcome.Err)
		}
	}
	if src.calls != 2 {
		t.Errorf("source fetched %d times, want 2", src.calls)
	}

	count, err := db.CountRows(context.Background(), record.KindHarvest)
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("destination has %d rows after rerun, want 1", count)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Engine: store.NewEngine(setupTestStore(t), nil)}); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := New(Config{Source: &fakeSource{}}); err == nil {
		t.Error("expected error for nil engine")
	}
}
