package domain

import "time"

// HealthStatus classifies the outcome of a dependency probe.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// HealthCheckResult is the outcome of probing one backend dependency.
type HealthCheckResult struct {
	Status    HealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency probes into an overall readiness verdict.
type HealthReport struct {
	Status      HealthStatus
	Checks      map[string]HealthCheckResult
	GeneratedAt time.Time
}
