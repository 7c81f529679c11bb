package sim

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2, 3}
	b := a.Clone()
	b[0] = 9
	if a[0] != 1 {
		t.Error("Clone shares backing array")
	}
}

func TestSchedule(t *testing.T) {
	profile := []Segment{{At: 2, Speed: 0}, {At: 0.5, Speed: 300}, {At: 1, Speed: -200}}
	s := newSchedule(100, profile)

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 100},
		{0.49, 100},
		{0.5, 300},
		{1.5, -200},
		{3, 0},
	}
	for _, tt := range tests {
		got, _ := s.at(tt.t)
		if got != tt.want {
			t.Errorf("at(%.2f) = %f, want %f", tt.t, got, tt.want)
		}
	}
}
