// Package config provides load-test plan parsing and validation.
package config

import (
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/threshold"
)

// Plan is the root configuration for a load run, read once at start.
//
// Example YAML:
//
//	name: "claims-search smoke"
//	settings:
//	  baseUrl: "https://claims.example.com"
//	  timeout: 10s
//	thinkTime:
//	  floor: 1s
//	  jitter: 2s
//	stages:
//	  - duration: 30s
//	    target: 10
//	  - duration: 2m
//	    target: 10
//	  - duration: 30s
//	    target: 0
//	scenarios:
//	  - name: searchByClaimNumber
//	    weight: 0.5
//	  - name: searchByCustomer
//	    weight: 0.3
//	  - name: browseRecentClaims
//	    weight: 0.2
//	thresholds:
//	  iteration_duration: ["p95 < 1000ms"]
//	  iteration_success: ["rate >= 0.99"]
type Plan struct {
	// Name of the run (for reporting)
	Name string `json:"name" yaml:"name"`

	// Settings contains target service settings
	Settings Settings `json:"settings" yaml:"settings"`

	// ThinkTime is the randomized pause between iterations
	ThinkTime ThinkTimeConfig `json:"thinkTime,omitempty" yaml:"thinkTime,omitempty"`

	// Stages define the concurrency profile, in order
	Stages []StageConfig `json:"stages" yaml:"stages"`

	// Scenarios is the weighted traffic mix, in declaration order
	Scenarios []ScenarioConfig `json:"scenarios" yaml:"scenarios"`

	// Thresholds map metric names to pass/fail expressions
	// e.g. iteration_duration: ["p95 < 1000ms", "avg < 300ms"]
	Thresholds map[string][]string `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	// GracefulStop is how long draining VUs may take to finish their
	// in-flight iteration (e.g. "30s")
	GracefulStop string `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`
}

// Settings contains target service settings.
type Settings struct {
	// BaseURL of the claims-search API. Overridden by SEARCH_BASE_URL.
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// APIKey for the x-api-key header. Normally supplied via
	// SEARCH_API_KEY rather than checked into the plan file.
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`

	// Timeout is the per-request HTTP timeout (e.g. "10s")
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ThinkTimeConfig is the uniform think-time range [floor, floor+jitter].
type ThinkTimeConfig struct {
	Floor  string `json:"floor,omitempty" yaml:"floor,omitempty"`
	Jitter string `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

// StageConfig defines a single ramp or hold segment.
type StageConfig struct {
	// Duration of this stage (e.g. "30s", "2m")
	Duration string `json:"duration" yaml:"duration"`

	// Target concurrency at the end of this stage
	Target int `json:"target" yaml:"target"`
}

// ScenarioConfig assigns a selection weight to a named scenario.
type ScenarioConfig struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// ParsedStages converts the stage list to engine stages.
// Call Validate first; conversion errors there are user-facing.
func (p *Plan) ParsedStages() ([]loadgen.Stage, error) {
	stages := make([]loadgen.Stage, 0, len(p.Stages))
	for _, sc := range p.Stages {
		d, err := time.ParseDuration(sc.Duration)
		if err != nil {
			return nil, &ValidationError{Field: "stages.duration", Message: err.Error()}
		}
		stages = append(stages, loadgen.Stage{Duration: d, Target: sc.Target})
	}
	return stages, nil
}

// ParsedThresholds converts threshold expressions to engine thresholds.
func (p *Plan) ParsedThresholds() ([]threshold.Threshold, error) {
	var thresholds []threshold.Threshold
	for metric, exprs := range p.Thresholds {
		for _, expr := range exprs {
			t, err := threshold.Parse(metric, expr)
			if err != nil {
				return nil, &ValidationError{Field: "thresholds." + metric, Message: err.Error()}
			}
			thresholds = append(thresholds, t)
		}
	}
	return thresholds, nil
}

// ParsedThinkTime converts the think-time range, defaulting to a
// 1s floor with 2s jitter when unset.
func (p *Plan) ParsedThinkTime() (loadgen.ThinkTime, error) {
	think := loadgen.ThinkTime{Floor: time.Second, Jitter: 2 * time.Second}

	if p.ThinkTime.Floor != "" {
		d, err := time.ParseDuration(p.ThinkTime.Floor)
		if err != nil {
			return think, &ValidationError{Field: "thinkTime.floor", Message: err.Error()}
		}
		think.Floor = d
	}
	if p.ThinkTime.Jitter != "" {
		d, err := time.ParseDuration(p.ThinkTime.Jitter)
		if err != nil {
			return think, &ValidationError{Field: "thinkTime.jitter", Message: err.Error()}
		}
		think.Jitter = d
	}

	return think, nil
}

// ParsedGracefulStop converts the graceful-stop window, 0 meaning the
// engine default.
func (p *Plan) ParsedGracefulStop() (time.Duration, error) {
	if p.GracefulStop == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.GracefulStop)
	if err != nil {
		return 0, &ValidationError{Field: "gracefulStop", Message: err.Error()}
	}
	return d, nil
}

// ParsedTimeout converts the HTTP timeout, defaulting to 10s.
func (s Settings) ParsedTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, &ValidationError{Field: "settings.timeout", Message: err.Error()}
	}
	return d, nil
}

// ValidationError represents a plan validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field '" + e.Field + "': " + e.Message
}
