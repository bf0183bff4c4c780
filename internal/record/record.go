// Package record defines the canonical row shapes synced into the destination
// database and the mapper that normalizes raw source rows into them.
package record

import (
	"fmt"
	"math"
	"time"
)

// Kind selects which record shape a sync run operates on.
type Kind string

const (
	// KindHarvest is one harvest event, keyed by its externally assigned id.
	KindHarvest Kind = "harvest"
	// KindDailyTotal is one row of per-day totals, keyed by calendar date.
	KindDailyTotal Kind = "daily_total"
)

// Layouts used when parsing source text and formatting destination values.
const (
	DateLayout       = "2006-01-02"
	DateTimeLayout   = "2006-01-02 15:04:05"
	TimeOfDayLayout  = "15:04"
	StoredTimeLayout = "15:04:05"
)

// Row is the destination-facing view of one canonical record. The upsert
// engine builds a single parameterized statement per batch from these
// descriptors; Columns and Values must stay aligned.
type Row interface {
	// Table returns the destination table name.
	Table() string

	// KeyColumns returns the natural key columns matched on conflict.
	KeyColumns() []string

	// Columns returns every insertable column (keys included, sync
	// timestamp excluded) in statement order.
	Columns() []string

	// Values returns the bind values aligned with Columns.
	Values() []any

	// HasSyncStamp reports whether the destination table carries an
	// insert_date column refreshed on every write.
	HasSyncStamp() bool

	// Ref identifies the row in error and log messages.
	Ref() string
}

// Harvest is one canonical harvest event.
type Harvest struct {
	ID           string
	Farm         string
	Plot         string
	Produce      string
	Worker       string
	Unit         string
	HarvestDate  time.Time
	StartTime    string // stored as 15:04:05
	EndTime      string // stored as 15:04:05
	Duration     float64
	Containers   int
	KgsHarvested float64
}

// Validate checks the canonical type constraints before any upsert.
func (h *Harvest) Validate() error {
	if h.ID == "" {
		return fmt.Errorf("id is required")
	}
	if h.HarvestDate.IsZero() {
		return fmt.Errorf("harvest_date is required")
	}
	if !isFinite(h.Duration) {
		return fmt.Errorf("duration must be finite (got %v)", h.Duration)
	}
	if !isFinite(h.KgsHarvested) {
		return fmt.Errorf("kgs_harvested must be finite (got %v)", h.KgsHarvested)
	}
	return nil
}

// Table implements Row.
func (h *Harvest) Table() string { return "harvests" }

// KeyColumns implements Row.
func (h *Harvest) KeyColumns() []string { return []string{"id"} }

// Columns implements Row.
func (h *Harvest) Columns() []string {
	return []string{
		"id", "farm", "plot", "produce", "worker", "unit",
		"harvest_date", "start_time", "end_time",
		"duration", "containers", "kgs_harvested",
	}
}

// Values implements Row.
func (h *Harvest) Values() []any {
	return []any{
		h.ID, h.Farm, h.Plot, h.Produce, h.Worker, h.Unit,
		h.HarvestDate.Format(DateTimeLayout), h.StartTime, h.EndTime,
		h.Duration, h.Containers, h.KgsHarvested,
	}
}

// HasSyncStamp implements Row. The harvests table tracks when each row was
// last synced, refreshed on both insert and update.
func (h *Harvest) HasSyncStamp() bool { return true }

// Ref implements Row.
func (h *Harvest) Ref() string { return h.ID }

// DailyTotal is one canonical row of per-day harvest and packing totals.
type DailyTotal struct {
	Date          time.Time
	KgsHarvestTVN float64
	KgsPackedCND  float64
}

// Validate checks the canonical type constraints before any upsert.
func (d *DailyTotal) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !isFinite(d.KgsHarvestTVN) {
		return fmt.Errorf("kgs_harvest_tvn must be finite (got %v)", d.KgsHarvestTVN)
	}
	if !isFinite(d.KgsPackedCND) {
		return fmt.Errorf("kgs_packed_cnd must be finite (got %v)", d.KgsPackedCND)
	}
	return nil
}

// Table implements Row.
func (d *DailyTotal) Table() string { return "daily_totals" }

// KeyColumns implements Row.
func (d *DailyTotal) KeyColumns() []string { return []string{"date"} }

// Columns implements Row.
func (d *DailyTotal) Columns() []string {
	return []string{"date", "kgs_harvest_tvn", "kgs_packed_cnd"}
}

// Values implements Row.
func (d *DailyTotal) Values() []any {
	return []any{d.Date.Format(DateLayout), d.KgsHarvestTVN, d.KgsPackedCND}
}

// HasSyncStamp implements Row.
func (d *DailyTotal) HasSyncStamp() bool { return false }

// Ref implements Row.
func (d *DailyTotal) Ref() string { return d.Date.Format(DateLayout) }

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
