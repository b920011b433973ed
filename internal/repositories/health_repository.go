package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/chocolog/api/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// HealthRepository reports the readiness of the backing services.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}

// HealthProbe is a single dependency check run during readiness collection.
type HealthProbe struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// HealthOption customises the probe-backed health repository.
type HealthOption func(*probeHealthRepository)

// WithProbeTimeout overrides the default per-probe timeout.
func WithProbeTimeout(timeout time.Duration) HealthOption {
	return func(repo *probeHealthRepository) {
		if timeout > 0 {
			repo.defaultTimeout = timeout
		}
	}
}

// WithHealthClock injects a custom clock primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(repo *probeHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type probeHealthRepository struct {
	probes         []HealthProbe
	defaultTimeout time.Duration
	now            func() time.Time
}

var _ HealthRepository = (*probeHealthRepository)(nil)

// NewHealthRepository builds a HealthRepository that runs the given probes concurrently.
func NewHealthRepository(probes []HealthProbe, opts ...HealthOption) (HealthRepository, error) {
	if len(probes) == 0 {
		return nil, errors.New("health repository: at least one probe is required")
	}

	repo := &probeHealthRepository{
		probes:         make([]HealthProbe, len(probes)),
		defaultTimeout: defaultProbeTimeout,
		now:            time.Now,
	}
	copy(repo.probes, probes)

	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	return repo, nil
}

func (r *probeHealthRepository) Collect(ctx context.Context) (domain.HealthReport, error) {
	if ctx == nil {
		return domain.HealthReport{}, errors.New("health repository: context is required")
	}

	results := make(map[string]domain.HealthCheckResult, len(r.probes))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	wg.Add(len(r.probes))
	for _, probe := range r.probes {
		probe := probe
		if strings.TrimSpace(probe.Name) == "" {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = errors.New("health repository: probe missing name")
			}
			mu.Unlock()
			continue
		}
		if probe.Check == nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("health repository: probe %s missing check function", probe.Name)
			}
			mu.Unlock()
			continue
		}

		go func() {
			defer wg.Done()

			timeout := probe.Timeout
			if timeout <= 0 {
				timeout = r.defaultTimeout
			}

			var (
				start       = r.now()
				status      = domain.HealthStatusOK
				detail      = "ok"
				errorString string
			)

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			err := probe.Check(probeCtx)
			end := r.now()

			switch {
			case err == nil:
				// already ok
			case errors.Is(err, context.Canceled):
				status = domain.HealthStatusError
				detail = "cancelled"
				errorString = err.Error()
			case errors.Is(err, context.DeadlineExceeded):
				status = domain.HealthStatusError
				detail = "timeout"
				errorString = err.Error()
			default:
				status = domain.HealthStatusDegraded
				detail = err.Error()
				errorString = err.Error()
			}

			if probeCtx.Err() != nil && err == nil {
				// Timed out without returning an error.
				status = domain.HealthStatusError
				detail = probeCtx.Err().Error()
				errorString = probeCtx.Err().Error()
			}

			mu.Lock()
			results[probe.Name] = domain.HealthCheckResult{
				Status:    status,
				Detail:    detail,
				Error:     errorString,
				Latency:   end.Sub(start),
				CheckedAt: end,
			}
			mu.Unlock()
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return domain.HealthReport{}, firstErr
	}

	reportStatus := domain.HealthStatusOK
	for _, result := range results {
		if result.Status != domain.HealthStatusOK {
			if result.Status == domain.HealthStatusError {
				reportStatus = domain.HealthStatusError
				break
			}
			reportStatus = domain.HealthStatusDegraded
		}
	}

	return domain.HealthReport{
		Status:      reportStatus,
		Checks:      results,
		GeneratedAt: r.now(),
	}, nil
}
