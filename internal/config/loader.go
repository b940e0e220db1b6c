package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the plan file. The base URL and
// API key are deployment inputs and normally arrive this way rather
// than through the checked-in plan.
const (
	EnvBaseURL = "SEARCH_BASE_URL"
	EnvAPIKey  = "SEARCH_API_KEY"
)

// Load reads a plan file, applies environment overrides, and
// validates the result.
func Load(path string) (*Plan, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("plan file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading plan file: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("error parsing plan file: %w", err)
	}

	ApplyEnv(&plan)

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return &plan, nil
}

// ApplyEnv overrides plan settings from the environment.
func ApplyEnv(plan *Plan) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		plan.Settings.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		plan.Settings.APIKey = v
	}
}
