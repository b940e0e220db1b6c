package scenarios

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Per-operation metric names reported by the claims-search scenarios.
const (
	MetricHTTPRequests = "http_requests"

	MetricSearchByClaimDuration = "search_by_claim_duration"
	MetricSearchByClaimOK       = "search_by_claim_ok"

	MetricSearchByCustomerDuration = "search_by_customer_duration"
	MetricSearchByCustomerOK       = "search_by_customer_ok"

	MetricBrowseRecentDuration = "browse_recent_duration"
	MetricBrowseRecentOK       = "browse_recent_ok"
)

// Sample identifiers drawn at random per iteration. These mirror the
// seed data loaded into the POC environment.
var (
	sampleClaimNumbers = []string{
		"CLM-00012345",
		"CLM-00012346",
		"CLM-00012401",
		"CLM-00013877",
		"CLM-00014220",
		"CLM-00015093",
	}

	sampleCustomerIDs = []string{
		"CUST-88201",
		"CUST-88202",
		"CUST-88345",
		"CUST-90011",
		"CUST-90128",
	}
)

// SearchByClaimNumber looks up a single claim by its claim number and
// verifies the result references the claim that was asked for.
func (c *Catalog) SearchByClaimNumber(ctx context.Context) error {
	claimNumber := sampleClaimNumbers[rand.Intn(len(sampleClaimNumbers))]

	payload := map[string]interface{}{
		"claimNumber": claimNumber,
	}

	return c.search(ctx, MetricSearchByClaimDuration, MetricSearchByClaimOK, payload, func(body []byte) error {
		claims := gjson.GetBytes(body, "claims")
		if !claims.IsArray() {
			return fmt.Errorf("search by claim %s: claims is not an array", claimNumber)
		}
		if len(claims.Array()) == 0 {
			return fmt.Errorf("search by claim %s: no results", claimNumber)
		}
		if got := claims.Array()[0].Get("claimNumber").String(); got != claimNumber {
			return fmt.Errorf("search by claim %s: first result is %s", claimNumber, got)
		}
		return nil
	})
}

// SearchByCustomer retrieves a page of a customer's claims and checks
// that pagination metadata is consistent with the result set.
func (c *Catalog) SearchByCustomer(ctx context.Context) error {
	customerID := sampleCustomerIDs[rand.Intn(len(sampleCustomerIDs))]

	payload := map[string]interface{}{
		"customerId": customerID,
		"pageSize":   20,
		"page":       1,
		"sortBy":     "submittedAt",
		"sortOrder":  "desc",
	}

	return c.search(ctx, MetricSearchByCustomerDuration, MetricSearchByCustomerOK, payload, func(body []byte) error {
		total := gjson.GetBytes(body, "total")
		if !total.Exists() {
			return fmt.Errorf("search by customer %s: missing total", customerID)
		}
		if n := int64(len(gjson.GetBytes(body, "claims").Array())); n > 20 {
			return fmt.Errorf("search by customer %s: page has %d results, pageSize is 20", customerID, n)
		}
		return nil
	})
}

// BrowseRecentClaims fetches the most recently submitted claims, the
// dashboard's default view.
func (c *Catalog) BrowseRecentClaims(ctx context.Context) error {
	start := time.Now()
	err := c.browseRecent(ctx)
	elapsed := time.Since(start)

	c.collector.IncrementCounter(MetricHTTPRequests, 1)
	c.collector.RecordTrend(MetricBrowseRecentDuration, elapsed)
	c.collector.RecordRate(MetricBrowseRecentOK, err == nil)

	return err
}

func (c *Catalog) browseRecent(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/claims/recent?limit=25", nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return err
	}

	if ok, verrs := c.schema.Validate(string(body)); !ok {
		return fmt.Errorf("browse recent: response shape invalid: %s", verrs.Error())
	}
	if n := len(gjson.GetBytes(body, "claims").Array()); n > 25 {
		return fmt.Errorf("browse recent: got %d claims, limit is 25", n)
	}
	return nil
}

// search POSTs a search payload, validates the response shape, runs
// the scenario-specific check, and records the per-operation metrics.
// A failure anywhere is recorded and returned; it never escalates
// beyond the scenario boundary.
func (c *Catalog) search(ctx context.Context, durationMetric, okMetric string, payload map[string]interface{}, check func(body []byte) error) error {
	start := time.Now()
	err := c.postSearch(ctx, payload, check)
	elapsed := time.Since(start)

	c.collector.IncrementCounter(MetricHTTPRequests, 1)
	c.collector.RecordTrend(durationMetric, elapsed)
	c.collector.RecordRate(okMetric, err == nil)

	return err
}

func (c *Catalog) postSearch(ctx context.Context, payload map[string]interface{}, check func(body []byte) error) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/claims/search", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return err
	}

	if ok, verrs := c.schema.Validate(string(body)); !ok {
		return fmt.Errorf("search response shape invalid: %s", verrs.Error())
	}

	return check(body)
}

// do executes the request and returns the body of a 2xx response.
func (c *Catalog) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	return body, nil
}
