// internal/download/ratelimit_test.go
package download

import (
	"context"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestPacerSpacesCalls(t *testing.T) {
	p, err := newPacer(&RateLimit{Calls: 1, Period: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("newPacer() error: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// The second and third acquisitions each wait a full period.
	if elapsed < 200*time.Millisecond {
		t.Errorf("three acquisitions took %v, want at least 200ms", elapsed)
	}
}

func TestPacerNilIsUnlimited(t *testing.T) {
	p, err := newPacer(nil, nil)
	if err != nil {
		t.Fatalf("newPacer(nil) error: %v", err)
	}
	if p != nil {
		t.Fatalf("newPacer(nil) = %v, want nil pacer", p)
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("nil pacer waited %v, want no waiting", elapsed)
	}
}

func TestPacerRejectsInvalidSpec(t *testing.T) {
	tests := []RateLimit{
		{Calls: 0, Period: time.Second},
		{Calls: 1, Period: 0},
		{Calls: -1, Period: time.Second},
	}
	for _, spec := range tests {
		if _, err := newPacer(&spec, nil); err == nil {
			t.Errorf("newPacer(%+v) succeeded, want error", spec)
		}
	}
}

func TestRateLimitYAMLForms(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"calls: 1\nperiod: 500ms\n", 500 * time.Millisecond},
		{"calls: 1\nperiod: 1s\n", time.Second},
		{"calls: 1\nperiod: 0.1\n", 100 * time.Millisecond},
	}
	for _, tt := range tests {
		var spec RateLimit
		if err := yaml.Unmarshal([]byte(tt.in), &spec); err != nil {
			t.Errorf("Unmarshal(%q) error: %v", tt.in, err)
			continue
		}
		if spec.Period != tt.want {
			t.Errorf("period for %q = %v, want %v", tt.in, spec.Period, tt.want)
		}
	}

	var spec RateLimit
	if err := yaml.Unmarshal([]byte("calls: 1\nperiod: fast\n"), &spec); err == nil {
		t.Error("Unmarshal with bad period succeeded")
	}
}

func TestPacerHonoursContextCancellation(t *testing.T) {
	p, err := newPacer(&RateLimit{Calls: 1, Period: time.Hour}, nil)
	if err != nil {
		t.Fatalf("newPacer() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	if err := p.Acquire(ctx); err == nil {
		t.Error("second Acquire() succeeded, want context error")
	}
}
