package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlanYAML = `
name: "claims-search smoke"
settings:
  baseUrl: "https://claims.example.com"
  timeout: 5s
thinkTime:
  floor: 500ms
  jitter: 1s
stages:
  - duration: 30s
    target: 10
  - duration: 2m
    target: 10
  - duration: 30s
    target: 0
scenarios:
  - name: searchByClaimNumber
    weight: 0.5
  - name: searchByCustomer
    weight: 0.3
  - name: browseRecentClaims
    weight: 0.2
thresholds:
  iteration_duration: ["p95 < 1000ms"]
  iteration_success: ["rate >= 0.99"]
gracefulStop: 15s
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidPlan(t *testing.T) {
	plan, err := Load(writePlan(t, validPlanYAML))
	require.NoError(t, err)

	assert.Equal(t, "claims-search smoke", plan.Name)
	assert.Equal(t, "https://claims.example.com", plan.Settings.BaseURL)

	stages, err := plan.ParsedStages()
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, 30*time.Second, stages[0].Duration)
	assert.Equal(t, 10, stages[0].Target)
	assert.Equal(t, 0, stages[2].Target)

	require.Len(t, plan.Scenarios, 3)
	assert.Equal(t, "searchByClaimNumber", plan.Scenarios[0].Name)
	assert.Equal(t, 0.5, plan.Scenarios[0].Weight)

	thresholds, err := plan.ParsedThresholds()
	require.NoError(t, err)
	assert.Len(t, thresholds, 2)

	think, err := plan.ParsedThinkTime()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, think.Floor)
	assert.Equal(t, time.Second, think.Jitter)

	graceful, err := plan.ParsedGracefulStop()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, graceful)

	timeout, err := plan.Settings.ParsedTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/plan.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writePlan(t, "name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://staging.example.com")
	t.Setenv(EnvAPIKey, "test-key-123")

	plan, err := Load(writePlan(t, validPlanYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", plan.Settings.BaseURL)
	assert.Equal(t, "test-key-123", plan.Settings.APIKey)
}

func TestLoad_EnvSuppliesMissingBaseURL(t *testing.T) {
	yaml := `
name: "env-only"
stages:
  - duration: 10s
    target: 1
scenarios:
  - name: browseRecentClaims
    weight: 1.0
`
	// Without the env var the plan is invalid.
	_, err := Load(writePlan(t, yaml))
	require.Error(t, err)

	t.Setenv(EnvBaseURL, "https://claims.example.com")
	plan, err := Load(writePlan(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, "https://claims.example.com", plan.Settings.BaseURL)
}

func TestParsedThinkTime_Defaults(t *testing.T) {
	plan := &Plan{}
	think, err := plan.ParsedThinkTime()
	require.NoError(t, err)
	assert.Equal(t, time.Second, think.Floor)
	assert.Equal(t, 2*time.Second, think.Jitter)
}

func TestParsedTimeout_Default(t *testing.T) {
	timeout, err := Settings{}.ParsedTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)
}
