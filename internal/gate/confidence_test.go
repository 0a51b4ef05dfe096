package gate_test

import (
	"math"
	"testing"

	"sideline/internal/gate"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name          string
		e, r, boost   float64
		want          float64
	}{
		{name: "product", e: 0.9, r: 0.8, want: 0.72},
		{name: "zero resolution", e: 0.9, r: 0, want: 0},
		{name: "full boost", e: 0.5, r: 0.5, boost: 1, want: 1},
		{name: "half boost", e: 0.5, r: 0.5, boost: 0.5, want: 0.625},
		{name: "clamps inputs", e: 1.4, r: -0.2, want: 0},
		{name: "nan is zero", e: math.NaN(), r: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Combine(tt.e, tt.r, tt.boost); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Combine(%v, %v, %v) = %v, want %v", tt.e, tt.r, tt.boost, got, tt.want)
			}
		})
	}
}

func TestCombineProperties(t *testing.T) {
	steps := []float64{0, 0.1, 0.25, 0.5, 0.6, 0.75, 0.9, 0.95, 1}
	for _, e := range steps {
		for _, r := range steps {
			got := gate.Combine(e, r, 0)
			if got != gate.Combine(e, r, 0) {
				t.Fatalf("Combine(%v, %v) is not deterministic", e, r)
			}
			if got > math.Min(e, r)+1e-12 {
				t.Fatalf("Combine(%v, %v) = %v exceeds min of inputs", e, r, got)
			}
			for _, higher := range steps {
				if higher < e {
					continue
				}
				if gate.Combine(higher, r, 0) < got {
					t.Fatalf("Combine not monotonic in extraction at e=%v r=%v", e, r)
				}
				if gate.Combine(e, r, higher) < got {
					t.Fatalf("Combine not monotonic in boost at e=%v r=%v", e, r)
				}
			}
		}
	}
}

func TestRequiresConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		overall  float64
		settings gate.Settings
		want     bool
	}{
		{name: "not opted in", overall: 0.99, settings: gate.Settings{Threshold: 0.9}, want: true},
		{name: "opted in above", overall: 0.95, settings: gate.Settings{AutoApprove: true, Threshold: 0.9}, want: false},
		{name: "opted in at threshold", overall: 0.9, settings: gate.Settings{AutoApprove: true, Threshold: 0.9}, want: true},
		{name: "opted in below", overall: 0.5, settings: gate.Settings{AutoApprove: true, Threshold: 0.9}, want: true},
	}
	for _, tt := range tests {
		if got := gate.RequiresConfirmation(tt.overall, tt.settings); got != tt.want {
			t.Fatalf("%s: RequiresConfirmation = %v, want %v", tt.name, got, tt.want)
		}
	}
}
