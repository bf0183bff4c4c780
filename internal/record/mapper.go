package record

import (
	"fmt"
	"strconv"
	"time"
)

// MalformedRecordError reports a source row that cannot be normalized into
// its canonical shape. Any single malformed row aborts the whole batch
// before the destination is touched.
type MalformedRecordError struct {
	Ref    string // row identity if known, otherwise a positional reference
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s: field %q: %s", e.Ref, e.Field, e.Reason)
}

// Mapper normalizes raw source rows into canonical rows. Normalize is pure:
// it never mutates its input and has no side effects.
type Mapper struct {
	mappings map[Kind]Mapping
}

// NewMapper creates a Mapper with the built-in field mappings.
func NewMapper() *Mapper {
	return &Mapper{mappings: defaultMappings()}
}

// NewMapperWithOverrides creates a Mapper from a YAML override document.
// See ParseMappingOverrides.
func NewMapperWithOverrides(doc []byte) (*Mapper, error) {
	mappings, err := ParseMappingOverrides(doc)
	if err != nil {
		return nil, err
	}
	return &Mapper{mappings: mappings}, nil
}

// Normalize converts one raw source row into its canonical Row. It returns
// a *MalformedRecordError when a required field is missing, date/time text
// does not parse against the kind's expected layout, or a numeric field is
// not finite.
func (m *Mapper) Normalize(raw map[string]any, kind Kind) (Row, error) {
	mapping, ok := m.mappings[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}

	row := mapping.applyRenames(raw)
	ref := rowRef(row, kind)

	for _, field := range mapping.Required {
		if v, ok := row[field]; !ok || v == nil {
			return nil, &MalformedRecordError{Ref: ref, Field: field, Reason: "required field is missing"}
		}
	}

	switch kind {
	case KindHarvest:
		return normalizeHarvest(row, ref)
	case KindDailyTotal:
		return normalizeDailyTotal(row, ref)
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

func normalizeHarvest(row map[string]any, ref string) (Row, error) {
	h := &Harvest{}
	var err error

	if h.ID, err = stringField(row, "id"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "id", Reason: err.Error()}
	}
	if h.Farm, err = stringField(row, "farm"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "farm", Reason: err.Error()}
	}
	if h.Plot, err = stringField(row, "plot"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "plot", Reason: err.Error()}
	}
	if h.Produce, err = stringField(row, "produce"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "produce", Reason: err.Error()}
	}
	if h.Worker, err = stringField(row, "worker"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "worker", Reason: err.Error()}
	}
	if h.Unit, err = stringField(row, "unit"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "unit", Reason: err.Error()}
	}

	if h.HarvestDate, err = timeField(row, "harvest_date", DateTimeLayout); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "harvest_date", Reason: err.Error()}
	}
	if h.StartTime, err = timeOfDayField(row, "start_time"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "start_time", Reason: err.Error()}
	}
	if h.EndTime, err = timeOfDayField(row, "end_time"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "end_time", Reason: err.Error()}
	}

	if h.Duration, err = numberField(row, "duration"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "duration", Reason: err.Error()}
	}
	if h.Containers, err = intField(row, "containers"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "containers", Reason: err.Error()}
	}
	if h.KgsHarvested, err = numberField(row, "kgs_harvested"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "kgs_harvested", Reason: err.Error()}
	}

	if err := h.Validate(); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "-", Reason: err.Error()}
	}
	return h, nil
}

func normalizeDailyTotal(row map[string]any, ref string) (Row, error) {
	d := &DailyTotal{}
	var err error

	if d.Date, err = timeField(row, "date", DateLayout); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "date", Reason: err.Error()}
	}
	if d.KgsHarvestTVN, err = numberField(row, "kgs_harvest_tvn"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "kgs_harvest_tvn", Reason: err.Error()}
	}
	if d.KgsPackedCND, err = numberField(row, "kgs_packed_cnd"); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "kgs_packed_cnd", Reason: err.Error()}
	}

	if err := d.Validate(); err != nil {
		return nil, &MalformedRecordError{Ref: ref, Field: "-", Reason: err.Error()}
	}
	return d, nil
}

// rowRef extracts the natural key of a raw row for error messages, falling
// back to a placeholder when the key itself is absent.
func rowRef(row map[string]any, kind Kind) string {
	keyField := "id"
	if kind == KindDailyTotal {
		keyField = "date"
	}
	if v, ok := row[keyField]; ok {
		return fmt.Sprintf("%v", v)
	}
	return "<no key>"
}

func stringField(row map[string]any, field string) (string, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return "", fmt.Errorf("required field is missing")
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		// Identifiers occasionally arrive as JSON numbers.
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func numberField(row map[string]any, field string) (float64, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return 0, fmt.Errorf("required field is missing")
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func intField(row map[string]any, field string) (int, error) {
	f, err := numberField(row, field)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int(f), nil
}

func timeField(row map[string]any, field, layout string) (time.Time, error) {
	s, err := stringField(row, field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q with layout %q", s, layout)
	}
	return t, nil
}

// timeOfDayField parses source 15:04 text and reformats it to the 15:04:05
// shape the destination stores.
func timeOfDayField(row map[string]any, field string) (string, error) {
	s, err := stringField(row, field)
	if err != nil {
		return "", err
	}
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		// Some exports already carry seconds.
		t, err = time.Parse(StoredTimeLayout, s)
		if err != nil {
			return "", fmt.Errorf("cannot parse %q as time of day", s)
		}
	}
	return t.Format(StoredTimeLayout), nil
}
