package record

import (
	"math"
	"testing"
	"time"
)

func validHarvest() *Harvest {
	return &Harvest{
		ID:           "H100",
		Farm:         "El Roble",
		Plot:         "P-12",
		Produce:      "blueberry",
		Worker:       "W-503",
		Unit:         "kg",
		HarvestDate:  time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
		StartTime:    "08:30:00",
		EndTime:      "12:15:00",
		Duration:     3.75,
		Containers:   14,
		KgsHarvested: 182.5,
	}
}

func TestHarvestValidate_Success(t *testing.T) {
	if err := validHarvest().Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

func TestHarvestValidate_MissingID(t *testing.T) {
	h := validHarvest()
	h.ID = ""
	if err := h.Validate(); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestHarvestValidate_NonFinite(t *testing.T) {
	h := validHarvest()
	h.KgsHarvested = math.NaN()
	if err := h.Validate(); err == nil {
		t.Error("expected error for NaN kgs_harvested")
	}

	h = validHarvest()
	h.Duration = math.Inf(1)
	if err := h.Validate(); err == nil {
		t.Error("expected error for infinite duration")
	}
}

func TestDailyTotalValidate(t *testing.T) {
	d := &DailyTotal{
		Date:          time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		KgsHarvestTVN: 100,
		KgsPackedCND:  80,
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	d.Date = time.Time{}
	if err := d.Validate(); err == nil {
		t.Error("expected error for zero date")
	}
}

// TestRowDescriptors checks that Columns and Values stay aligned, since the
// upsert engine zips them into one statement.
func TestRowDescriptors(t *testing.T) {
	rows := []Row{
		validHarvest(),
		&DailyTotal{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), KgsHarvestTVN: 1, KgsPackedCND: 2},
	}

	for _, row := range rows {
		if len(row.Columns()) != len(row.Values()) {
			t.Errorf("%s: %d columns but %d values", row.Table(), len(row.Columns()), len(row.Values()))
		}
		if len(row.KeyColumns()) == 0 {
			t.Errorf("%s: no key columns", row.Table())
		}
	}
}

func TestHarvestValues_Formats(t *testing.T) {
	h := validHarvest()
	vals := h.Values()

	// harvest_date is the 7th column
	if got := vals[6]; got != "2024-06-01 08:30:00" {
		t.Errorf("harvest_date = %v, want 2024-06-01 08:30:00", got)
	}
}

func TestDailyTotalValues_DateFormat(t *testing.T) {
	d := &DailyTotal{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), KgsHarvestTVN: 1, KgsPackedCND: 2}
	if got := d.Values()[0]; got != "2024-06-01" {
		t.Errorf("date = %v, want 2024-06-01", got)
	}
	if got := d.Ref(); got != "2024-06-01" {
		t.Errorf("Ref() = %q, want 2024-06-01", got)
	}
}
