package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agritracer/harvestsync/internal/record"
)

// tableColumns are the columns selected from the hosted table service.
// These are source-native names; the mapper renames them downstream.
var tableColumns = []string{"date", "kilos_harvested", "kilos_packed"}

// TableConfig configures the hosted table service adapter.
type TableConfig struct {
	BaseURL string
	APIKey  string

	// Table is the source table name. Defaults to "tracefruit_harvest".
	Table string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// TableClient fetches daily totals from the hosted table service. The
// service exposes tables over REST with column selection and date range
// filters (gte/lte operators in query parameters).
type TableClient struct {
	cfg    TableConfig
	client *http.Client
}

// NewTableClient creates an adapter for the hosted table service.
func NewTableClient(cfg TableConfig) *TableClient {
	if cfg.Table == "" {
		cfg.Table = "tracefruit_harvest"
	}
	return &TableClient{
		cfg:    cfg,
		client: defaultHTTPClient(cfg.HTTPClient),
	}
}

// Fetch implements Adapter for KindDailyTotal.
func (c *TableClient) Fetch(ctx context.Context, kind record.Kind, start, end time.Time) ([]map[string]any, error) {
	if kind != record.KindDailyTotal {
		return nil, fmt.Errorf("table adapter does not serve kind %q", kind)
	}

	u, err := url.Parse(fmt.Sprintf("%s/rest/v1/%s", c.cfg.BaseURL, c.cfg.Table))
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("invalid base URL: %w", err)}
	}

	q := u.Query()
	q.Set("select", "date,kilos_harvested,kilos_packed")
	q.Set("date", "gte."+start.Format(record.DateLayout))
	q.Add("date", "lte."+end.Format(record.DateLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	rows, err := fetchRows(c.client, req)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(rows, tableColumns); err != nil {
		return nil, err
	}

	return rows, nil
}
