// Package handlers holds reusable HTTP pieces that do not depend on the
// application layer: health probes, admin authentication and small
// middlewares.
package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker reports the state of the process and its dependencies.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc is a single probe. It returns an error when the dependency
// is unusable.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated result.
//
// A failing required probe (Postgres) makes the service unhealthy and not
// ready. A failing optional probe (Redis, object storage) only marks it
// degraded: every caller has a fallback for those.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Degraded  bool                   `json:"degraded,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type probe struct {
	check    HealthCheckFunc
	optional bool
}

// CompositeHealthChecker runs every registered probe in parallel.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	probes    map[string]probe
	startTime time.Time
	version   string
	timeout   time.Duration
}

var _ HealthChecker = (*CompositeHealthChecker)(nil)

// NewCompositeHealthChecker creates a checker with a 3s per-probe timeout.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		probes:    make(map[string]probe),
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout sets the timeout for individual probes.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// AddCheck registers a required probe.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

// AddOptionalCheck registers a probe whose failure only degrades the service.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe{check: check, optional: optional}
}

// RemoveCheck removes a named probe.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.probes, name)
}

// Check runs all probes and aggregates them.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	probes := make(map[string]probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(probes)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	type outcome struct {
		name   string
		result CheckResult
	}
	results := make(chan outcome, len(probes))
	var wg sync.WaitGroup
	for name, p := range probes {
		wg.Add(1)
		go func(name string, p probe) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := p.check(checkCtx)
			r := CheckResult{
				Healthy:  err == nil,
				Optional: p.optional,
				Message:  "OK",
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				r.Message = err.Error()
			}
			results <- outcome{name: name, result: r}
		}(name, p)
	}
	wg.Wait()
	close(results)

	var failed, degraded []string
	for o := range results {
		status.Checks[o.name] = o.result
		switch {
		case o.result.Healthy:
		case o.result.Optional:
			degraded = append(degraded, o.name)
		default:
			failed = append(failed, o.name)
		}
	}
	sort.Strings(failed)
	sort.Strings(degraded)

	switch {
	case len(failed) > 0:
		status.Healthy = false
		status.Ready = false
		status.Message = "failing: " + strings.Join(failed, ", ")
	case len(degraded) > 0:
		status.Degraded = true
		status.Message = "degraded: " + strings.Join(degraded, ", ")
	default:
		status.Message = "all checks passed"
	}
	return status
}

// ─────────────────────────────────────────────────────────────────────────────
// Probes
// ─────────────────────────────────────────────────────────────────────────────

// Pinger is anything with a Ping, such as postgres.Connection or redis.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger into a probe.
func PingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}
