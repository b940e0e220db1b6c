package config

import (
	"fmt"
	"net/url"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen"
)

// Validate checks the plan for inconsistencies. Unparseable durations,
// negative targets, bad weights and malformed threshold expressions
// are all rejected here, before any virtual user spawns.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}

	if p.Settings.BaseURL == "" {
		return &ValidationError{Field: "settings.baseUrl", Message: "baseUrl is required (or set " + EnvBaseURL + ")"}
	}
	if u, err := url.Parse(p.Settings.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "settings.baseUrl", Message: fmt.Sprintf("invalid URL %q", p.Settings.BaseURL)}
	}

	if _, err := p.Settings.ParsedTimeout(); err != nil {
		return err
	}

	stages, err := p.ParsedStages()
	if err != nil {
		return err
	}
	if err := loadgen.ValidateStages(stages); err != nil {
		return &ValidationError{Field: "stages", Message: err.Error()}
	}

	if len(p.Scenarios) == 0 {
		return &ValidationError{Field: "scenarios", Message: "at least one scenario is required"}
	}
	sum := 0.0
	for i, sc := range p.Scenarios {
		if sc.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("scenarios[%d].name", i), Message: "name is required"}
		}
		if sc.Weight <= 0 || sc.Weight > 1 {
			return &ValidationError{Field: fmt.Sprintf("scenarios[%d].weight", i), Message: fmt.Sprintf("weight %v outside (0, 1]", sc.Weight)}
		}
		sum += sc.Weight
	}
	if sum > 1.000000001 {
		return &ValidationError{Field: "scenarios", Message: fmt.Sprintf("weights sum to %v, must not exceed 1.0", sum)}
	}

	if _, err := p.ParsedThresholds(); err != nil {
		return err
	}
	if _, err := p.ParsedThinkTime(); err != nil {
		return err
	}
	if _, err := p.ParsedGracefulStop(); err != nil {
		return err
	}

	return nil
}
