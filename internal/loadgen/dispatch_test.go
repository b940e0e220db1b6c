package loadgen

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

func noopScenario(ctx context.Context) error { return nil }

func TestNewDispatcher_Validation(t *testing.T) {
	tests := []struct {
		name      string
		scenarios []Scenario
		wantErr   bool
	}{
		{
			name:    "empty set",
			wantErr: true,
		},
		{
			name: "missing run function",
			scenarios: []Scenario{
				{Name: "a", Weight: 0.5},
			},
			wantErr: true,
		},
		{
			name: "zero weight",
			scenarios: []Scenario{
				{Name: "a", Weight: 0, Run: noopScenario},
			},
			wantErr: true,
		},
		{
			name: "negative weight",
			scenarios: []Scenario{
				{Name: "a", Weight: -0.1, Run: noopScenario},
			},
			wantErr: true,
		},
		{
			name: "weight above one",
			scenarios: []Scenario{
				{Name: "a", Weight: 1.5, Run: noopScenario},
			},
			wantErr: true,
		},
		{
			name: "sum above one",
			scenarios: []Scenario{
				{Name: "a", Weight: 0.7, Run: noopScenario},
				{Name: "b", Weight: 0.7, Run: noopScenario},
			},
			wantErr: true,
		},
		{
			name: "valid full distribution",
			scenarios: []Scenario{
				{Name: "a", Weight: 0.5, Run: noopScenario},
				{Name: "b", Weight: 0.3, Run: noopScenario},
				{Name: "c", Weight: 0.2, Run: noopScenario},
			},
		},
		{
			name: "valid with dead zone",
			scenarios: []Scenario{
				{Name: "a", Weight: 0.5, Run: noopScenario},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher(tt.scenarios)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDispatcher() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatcher_DeclarationOrder(t *testing.T) {
	d, err := NewDispatcher([]Scenario{
		{Name: "a", Weight: 0.5, Run: noopScenario},
		{Name: "b", Weight: 0.3, Run: noopScenario},
		{Name: "c", Weight: 0.2, Run: noopScenario},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	// Pin the draw to specific cumulative positions.
	tests := []struct {
		sample float64
		want   string
	}{
		{0.0, "a"},
		{0.49, "a"},
		{0.5, "b"},
		{0.79, "b"},
		{0.8, "c"},
		{0.999, "c"},
	}

	for _, tt := range tests {
		d.draw = func() float64 { return tt.sample }
		got := d.Pick()
		if got == nil || got.Name != tt.want {
			t.Errorf("Pick() with sample %v = %v, want %s", tt.sample, got, tt.want)
		}
	}
}

func TestDispatcher_DeadZone(t *testing.T) {
	d, err := NewDispatcher([]Scenario{
		{Name: "a", Weight: 0.3, Run: noopScenario},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	d.draw = func() float64 { return 0.9 }
	if got := d.Pick(); got != nil {
		t.Errorf("Pick() in dead zone = %v, want nil", got)
	}

	d.draw = func() float64 { return 0.1 }
	if got := d.Pick(); got == nil || got.Name != "a" {
		t.Errorf("Pick() below bound = %v, want a", got)
	}
}

func TestDispatcher_EmpiricalFrequencies(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}

	d, err := NewDispatcher([]Scenario{
		{Name: "a", Weight: weights["a"], Run: noopScenario},
		{Name: "b", Weight: weights["b"], Run: noopScenario},
		{Name: "c", Weight: weights["c"], Run: noopScenario},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	d.draw = rng.Float64

	const draws = 100000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		s := d.Pick()
		if s == nil {
			t.Fatal("Pick() returned nil for a full distribution")
		}
		counts[s.Name]++
	}

	// 5 sigma of binomial sampling error.
	for name, p := range weights {
		got := float64(counts[name]) / draws
		sigma := math.Sqrt(p * (1 - p) / draws)
		if math.Abs(got-p) > 5*sigma {
			t.Errorf("frequency of %s = %v, want %v ± %v", name, got, p, 5*sigma)
		}
	}
}
