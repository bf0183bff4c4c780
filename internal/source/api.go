package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agritracer/harvestsync/internal/record"
)

// harvestPath is the production-data endpoint serving harvest rows.
const harvestPath = "/api/magopco/get-bi-produccion"

// harvestExpected are the fields a harvest response must carry in at least
// one row for the response to be considered well-formed.
var harvestExpected = []string{"id", "harvest_date", "kgs_harvested"}

// APIConfig configures the REST API adapter.
type APIConfig struct {
	BaseURL string
	APIKey  string
	Env     string // x-env header, e.g. "prod"
	Company string // Empresa header

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// APIClient fetches harvest rows from the production REST API.
type APIClient struct {
	cfg    APIConfig
	client *http.Client
}

// NewAPIClient creates an adapter for the harvest REST API.
func NewAPIClient(cfg APIConfig) *APIClient {
	return &APIClient{
		cfg:    cfg,
		client: defaultHTTPClient(cfg.HTTPClient),
	}
}

// Fetch implements Adapter for KindHarvest.
func (c *APIClient) Fetch(ctx context.Context, kind record.Kind, start, end time.Time) ([]map[string]any, error) {
	if kind != record.KindHarvest {
		return nil, fmt.Errorf("api adapter does not serve kind %q", kind)
	}

	u, err := url.Parse(c.cfg.BaseURL + harvestPath)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("invalid base URL: %w", err)}
	}

	q := u.Query()
	q.Set("type", "harvest")
	q.Set("dateStart", start.Format(record.DateLayout))
	q.Set("dateEnd", end.Format(record.DateLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("x-env", c.cfg.Env)
	req.Header.Set("Empresa", c.cfg.Company)

	rows, err := fetchRows(c.client, req)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(rows, harvestExpected); err != nil {
		return nil, err
	}

	return rows, nil
}
