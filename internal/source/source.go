// Package source provides adapters that fetch raw rows from the external
// systems feeding harvest sync runs.
//
// Two adapters exist, one per upstream:
//   - APIClient queries the production REST API for harvest rows
//   - TableClient queries the hosted table service for daily totals
//
// Adapters return rows in source-native shape; field renaming and type
// validation happen later in the record mapper. An empty result set is
// success, not an error.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agritracer/harvestsync/internal/record"
)

// Adapter fetches raw rows for one record kind over an inclusive date
// window. Callers are expected to pass start <= end; the adapter does not
// enforce ordering.
type Adapter interface {
	Fetch(ctx context.Context, kind record.Kind, start, end time.Time) ([]map[string]any, error)
}

// UnavailableError reports a transport, auth, or protocol failure talking
// to the source system.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// SchemaError reports a non-empty source response in which expected fields
// were absent from every row.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source response missing expected fields: %s", strings.Join(e.Missing, ", "))
}

// fetchRows performs the request and decodes a JSON array of objects.
func fetchRows(client *http.Client, req *http.Request) ([]map[string]any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{Err: fmt.Errorf("source returned status %d", resp.StatusCode)}
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return rows, nil
}

// checkSchema returns a *SchemaError when any expected field is absent from
// every row of a non-empty response. A field present in even one row passes;
// per-row gaps are the mapper's problem, not a schema failure.
func checkSchema(rows []map[string]any, expected []string) error {
	if len(rows) == 0 {
		return nil
	}

	var missing []string
	for _, field := range expected {
		found := false
		for _, row := range rows {
			if _, ok := row[field]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	// No internal timeout: cancellation comes from the caller's context.
	return &http.Client{}
}
