// health.go - Self checks behind the health subcommand
package main

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// SystemHealth represents the overall health of the tool and its key material
type SystemHealth struct {
	OverallStatus HealthStatus      `json:"overall_status"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    []ComponentHealth `json:"components"`
	Version       string            `json:"version"`
}

// check returns nil when healthy. A degradedError marks a soft failure.
type check func(ctx context.Context) error

type degradedError struct{ msg string }

func (e degradedError) Error() string { return e.msg }

// HealthChecker runs registered self checks.
type HealthChecker struct {
	mu         sync.Mutex
	version    string
	components map[string]*ComponentHealth
	checks     map[string]check
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version:    version,
		components: make(map[string]*ComponentHealth),
		checks:     make(map[string]check),
	}
}

// RegisterComponent registers a health check for a component
func (hc *HealthChecker) RegisterComponent(name string, c check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.components[name] = &ComponentHealth{Name: name, Status: Healthy, Message: "registered"}
	hc.checks[name] = c
}

// CheckHealth runs every check in name order.
func (hc *HealthChecker) CheckHealth(ctx context.Context) *SystemHealth {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	names := make([]string, 0, len(hc.components))
	for name := range hc.components {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := Healthy
	components := make([]ComponentHealth, 0, len(names))
	for _, name := range names {
		component := hc.components[name]
		start := time.Now()
		err := hc.checks[name](ctx)
		component.Latency = time.Since(start)
		component.LastCheck = time.Now()

		switch e := err.(type) {
		case nil:
			component.Status = Healthy
			component.Message = "OK"
		case degradedError:
			component.Status = Degraded
			component.Message = e.msg
		default:
			component.Status = Unhealthy
			component.Message = err.Error()
		}

		if component.Status == Unhealthy {
			overall = Unhealthy
		} else if component.Status == Degraded && overall == Healthy {
			overall = Degraded
		}
		components = append(components, *component)
	}

	return &SystemHealth{
		OverallStatus: overall,
		Timestamp:     time.Now(),
		Components:    components,
		Version:       hc.version,
	}
}

// HealthCheckResponse is what the health subcommand prints.
type HealthCheckResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Data    *SystemHealth `json:"data,omitempty"`
}

// CreateHealthResponse creates a standardized health check response
func CreateHealthResponse(health *SystemHealth) *HealthCheckResponse {
	status := "success"
	message := "all checks passed"

	switch health.OverallStatus {
	case Unhealthy:
		status = "error"
		message = "one or more checks failed"
	case Degraded:
		status = "warning"
		message = "degraded"
	}

	return &HealthCheckResponse{Status: status, Message: message, Data: health}
}
