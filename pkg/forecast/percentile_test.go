package forecast

import (
	"math"
	"testing"
)

func TestParsePercentile(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		// p-notation
		{"p10", 0.10, false},
		{"p50", 0.50, false},
		{"P90", 0.90, false}, // case insensitive
		{"p97.5", 0.975, false},

		// decimal notation
		{"0.25", 0.25, false},
		{" 0.9 ", 0.9, false},

		// errors
		{"", 0, true},
		{"p0", 0, true},
		{"p100", 0, true},
		{"1", 0, true},
		{"-0.5", 0, true},
		{"pabc", 0, true},
		{"median", 0, true},
		{"NaN", 0, true},
		{"pNaN", 0, true},
		{"+Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePercentile(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePercentile(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ParsePercentile(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePercentiles(t *testing.T) {
	got, err := ParsePercentiles("p10, p50,0.9")
	if err != nil {
		t.Fatalf("ParsePercentiles() error = %v", err)
	}
	want := []float64{0.10, 0.50, 0.9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if levels, err := ParsePercentiles(""); err != nil || levels != nil {
		t.Errorf("ParsePercentiles(\"\") = %v, %v; want nil, nil", levels, err)
	}
	if _, err := ParsePercentiles("p10,p200"); err == nil {
		t.Error("expected error for p200")
	}
}

func TestFormatPercentile(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.10, "p10"},
		{0.50, "p50"},
		{0.90, "p90"},
		{0.975, "p97.5"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatPercentile(tt.input); got != tt.want {
				t.Errorf("FormatPercentile(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	samples := []float64{5, 1, 4, 2, 3}

	tests := []struct {
		q    float64
		want float64
	}{
		{0.5, 3},
		{0.25, 2},
		{0.1, 1.4},
		{0.9, 4.6},
	}
	for _, tt := range tests {
		if got := Percentile(samples, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}

	if samples[0] != 5 {
		t.Error("Percentile modified its input")
	}
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
	if got := Percentile([]float64{6.5}, 0.9); got != 6.5 {
		t.Errorf("Percentile(single) = %v, want 6.5", got)
	}
}
