package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes a single dependency
type CheckFunc func(ctx context.Context) error

// HealthChecker aggregates dependency probes for readiness reporting
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthChecker creates a new health checker. Both db and redis are
// optional; additional dependencies register through RegisterCheck.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:     db,
		redis:  redisClient,
		checks: make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency probe
func (h *HealthChecker) RegisterCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Liveness returns a simple liveness probe (200 whenever the server runs)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check performs a comprehensive health check of all dependencies
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		status.merge("database", h.runCheck(ctx, func(ctx context.Context) error {
			return h.db.PingContext(ctx)
		}))
	}

	if h.redis != nil {
		status.merge("redis", h.runCheck(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}))
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status.merge(name, h.runCheck(ctx, h.checks[name]))
	}
	h.mu.RUnlock()

	return status
}

func (h *HealthChecker) runCheck(ctx context.Context, fn CheckFunc) DependencyStatus {
	start := time.Now()
	err := fn(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Message: err.Error(), LatencyMS: latency}
	}
	return DependencyStatus{Status: StatusHealthy, LatencyMS: latency}
}

func (s *HealthStatus) merge(name string, dep DependencyStatus) {
	s.Dependencies[name] = dep
	if dep.Status == StatusUnhealthy {
		s.Status = StatusUnhealthy
	}
}
