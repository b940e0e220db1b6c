// Package scenarios contains the claims-search API traffic content
// executed by the load engine. The engine knows nothing about these
// payloads; it only dispatches the scenario functions built here.
package scenarios

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
	"github.com/narender-kumar-asurion/search-poc-sub001/pkg/jsonschema"
)

// Config contains the target service settings scenario functions
// close over.
type Config struct {
	// BaseURL of the claims-search API
	BaseURL string

	// APIKey sent as the x-api-key header
	APIKey string

	// Timeout for individual HTTP requests
	Timeout time.Duration
}

// Catalog holds the compiled scenario set: a shared pooled HTTP
// client, the response-shape validator, and the collector the
// scenarios report into.
type Catalog struct {
	cfg       Config
	client    *http.Client
	collector *metrics.Collector
	schema    *jsonschema.Validator
}

// NewCatalog builds the scenario catalog. The HTTP client is shared
// across all virtual users for connection pooling.
func NewCatalog(cfg Config, collector *metrics.Collector) (*Catalog, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	schema, err := jsonschema.NewValidator(searchResponseSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling search response schema: %w", err)
	}

	return &Catalog{
		cfg:       cfg,
		client:    newHTTPClient(cfg.Timeout),
		collector: collector,
		schema:    schema,
	}, nil
}

// newHTTPClient creates a pooled HTTP client sized for load testing.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Lookup resolves a plan scenario name to its function. Unknown names
// are a configuration error, caught before the run starts.
func (c *Catalog) Lookup(name string) (loadgen.ScenarioFunc, error) {
	switch name {
	case "searchByClaimNumber":
		return c.SearchByClaimNumber, nil
	case "searchByCustomer":
		return c.SearchByCustomer, nil
	case "browseRecentClaims":
		return c.BrowseRecentClaims, nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
}

// Probe checks that the claims-search API is reachable. Used as the
// run's setup hook: a failure here aborts the run before any virtual
// user spawns.
func (c *Catalog) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reachability probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("reachability probe: %s returned %d", req.URL, resp.StatusCode)
	}
	return nil
}

// addHeaders sets the headers common to all claims-search requests.
func (c *Catalog) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}
}
