// Package health provides health check functionality for the service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker interface defines a component that can be health checked.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker manages health checks for the service.
type HealthChecker struct {
	config   Config
	mu       sync.RWMutex
	checks   map[string]Checker
	statuses map[string]*CheckStatus
	started  time.Time
}

// Config holds health checker configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	CheckTimeout   time.Duration
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "healthy" or "unhealthy"
	Error     string    `json:"error,omitempty"`
	LastCheck time.Time `json:"last_check"`
}

// HealthResponse represents the full health response.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Service   string                  `json:"service"`
	Version   string                  `json:"version"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckStatus `json:"checks,omitempty"`
	Uptime    string                  `json:"uptime,omitempty"`
}

// NewChecker creates a new health checker.
func NewChecker(config Config) *HealthChecker {
	if config.CheckTimeout == 0 {
		config.CheckTimeout = 5 * time.Second
	}

	return &HealthChecker{
		config:   config,
		checks:   make(map[string]Checker),
		statuses: make(map[string]*CheckStatus),
		started:  time.Now(),
	}
}

// AddCheck registers a health check.
func (h *HealthChecker) AddCheck(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = checker
	h.statuses[name] = &CheckStatus{
		Name:   name,
		Status: "unknown",
	}
}

// Check performs all health checks and returns the overall status.
func (h *HealthChecker) Check(ctx context.Context) *HealthResponse {
	h.mu.RLock()
	checks := make(map[string]Checker, len(h.checks))
	for name, checker := range h.checks {
		checks[name] = checker
	}
	h.mu.RUnlock()

	response := &HealthResponse{
		Status:    "healthy",
		Service:   h.config.ServiceName,
		Version:   h.config.ServiceVersion,
		Timestamp: time.Now(),
		Checks:    make(map[string]*CheckStatus),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	for name, checker := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.config.CheckTimeout)

		status := &CheckStatus{
			Name:      name,
			LastCheck: time.Now(),
		}
		if err := checker.HealthCheck(checkCtx); err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			response.Status = "unhealthy"
		} else {
			status.Status = "healthy"
		}
		cancel()

		response.Checks[name] = status
	}

	h.mu.Lock()
	for name, status := range response.Checks {
		h.statuses[name] = status
	}
	h.mu.Unlock()

	return response
}

// IsHealthy returns true if all checks are healthy.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == "healthy"
}

// HealthHandler handles HTTP health check requests.
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler handles the liveness probe: 200 while the process runs.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	response := &HealthResponse{
		Status:    "healthy",
		Service:   h.config.ServiceName,
		Version:   h.config.ServiceVersion,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler handles the readiness probe: 200 once all dependencies
// are healthy.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	h.HealthHandler(w, r)
}
