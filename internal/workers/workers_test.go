package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("GENERATION_WORKERS", "")

	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"cpu bound", 1.0, 0, available},
		{"io bound", 2.0, 0, available * 2},
		{"limit caps", 2.0, 1, 1},
		{"tiny multiplier floors to one", 0.001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	t.Setenv("GENERATION_WORKERS", "7")

	if got := Count(1.0, 0); got != 7 {
		t.Errorf("Count with override = %d, want 7", got)
	}
	// The limit still applies to the override.
	if got := Count(1.0, 4); got != 4 {
		t.Errorf("Count with override and limit = %d, want 4", got)
	}
}

func TestCountEnvOverrideInvalid(t *testing.T) {
	t.Setenv("GENERATION_WORKERS", "banana")

	available := runtime.GOMAXPROCS(0)
	if got := Count(1.0, 0); got != available {
		t.Errorf("Count with invalid override = %d, want %d", got, available)
	}
}

func TestForHelpers(t *testing.T) {
	t.Setenv("GENERATION_WORKERS", "")

	if ForCPU(0) < 1 {
		t.Error("ForCPU must return at least 1")
	}
	if ForIO(0) < ForCPU(0) {
		t.Error("ForIO should not be below ForCPU")
	}
}
