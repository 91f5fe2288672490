// internal/download/ratelimit.go
package download

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/valpere/DataRetriever/internal/monitoring"
)

// RateLimit caps outbound request frequency: at most Calls requests per
// Period, enforced as minimum spacing between consecutive requests.
type RateLimit struct {
	Calls  int           `yaml:"calls" json:"calls"`
	Period time.Duration `yaml:"period" json:"period"`
}

// UnmarshalYAML accepts the period as a duration string ("500ms", "1s") or a
// bare number of seconds.
func (r *RateLimit) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Calls  int    `yaml:"calls"`
		Period string `yaml:"period"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.Calls = raw.Calls
	if raw.Period == "" {
		r.Period = 0
		return nil
	}
	if d, err := time.ParseDuration(raw.Period); err == nil {
		r.Period = d
		return nil
	}
	seconds, err := strconv.ParseFloat(raw.Period, 64)
	if err != nil {
		return fmt.Errorf("invalid rate limit period %q", raw.Period)
	}
	r.Period = time.Duration(seconds * float64(time.Second))
	return nil
}

// MarshalYAML emits the period in duration-string form so the value round
// trips through configuration files.
func (r RateLimit) MarshalYAML() (any, error) {
	return struct {
		Calls  int    `yaml:"calls"`
		Period string `yaml:"period"`
	}{Calls: r.Calls, Period: r.Period.String()}, nil
}

// pacer serialises outbound requests through a token bucket with burst one,
// which reduces to minimum spacing of Period/Calls. The rate package uses the
// monotonic clock, so wall-clock adjustments cannot shorten the wait. A nil
// pacer never waits.
type pacer struct {
	limiter *rate.Limiter
	metrics *monitoring.Metrics
}

func newPacer(spec *RateLimit, metrics *monitoring.Metrics) (*pacer, error) {
	if spec == nil {
		return nil, nil
	}
	if spec.Calls <= 0 || spec.Period <= 0 {
		return nil, fmt.Errorf("rate limit requires positive calls and period, got calls=%d period=%s",
			spec.Calls, spec.Period)
	}
	interval := spec.Period / time.Duration(spec.Calls)
	return &pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		metrics: metrics,
	}, nil
}

// Acquire blocks the calling sequence until the next request slot opens.
func (p *pacer) Acquire(ctx context.Context) error {
	if p == nil {
		return nil
	}
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	p.metrics.ObserveRateLimitWait(time.Since(start))
	return nil
}
