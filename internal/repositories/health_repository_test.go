package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chocolog/api/internal/domain"
)

func slowProbe(delay time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestHealthRepositoryCollectAllProbesHealthy(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewHealthRepository([]HealthProbe{
		{Name: "firestore", Check: slowProbe(10 * time.Millisecond)},
		{Name: "pubsub", Check: func(context.Context) error { return nil }},
	}, WithHealthClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("report status = %s, want ok", report.Status)
	}
	if report.GeneratedAt != now {
		t.Fatalf("generatedAt = %s, want %s", report.GeneratedAt, now)
	}
	for _, name := range []string{"firestore", "pubsub"} {
		check, ok := report.Checks[name]
		if !ok {
			t.Fatalf("missing check %q", name)
		}
		if check.Status != domain.HealthStatusOK {
			t.Fatalf("check %s status = %s, want ok", name, check.Status)
		}
		if check.CheckedAt != now {
			t.Fatalf("check %s checkedAt = %s, want %s", name, check.CheckedAt, now)
		}
	}
}

func TestHealthRepositoryCollectDegradedAndTimedOutProbes(t *testing.T) {
	probeErr := errors.New("emulator unreachable")

	tests := []struct {
		name       string
		probe      HealthProbe
		wantReport domain.HealthStatus
		wantCheck  domain.HealthStatus
		wantErr    string
		wantDetail string
	}{
		{
			name:       "failing probe degrades the report",
			probe:      HealthProbe{Name: "firestore", Check: func(context.Context) error { return probeErr }},
			wantReport: domain.HealthStatusDegraded,
			wantCheck:  domain.HealthStatusDegraded,
			wantErr:    probeErr.Error(),
		},
		{
			name: "probe exceeding its timeout errors the report",
			probe: HealthProbe{
				Name:    "firestore",
				Timeout: 5 * time.Millisecond,
				Check:   slowProbe(20 * time.Millisecond),
			},
			wantReport: domain.HealthStatusError,
			wantCheck:  domain.HealthStatusError,
			wantDetail: "timeout",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := NewHealthRepository([]HealthProbe{
				tc.probe,
				{Name: "pubsub", Check: func(context.Context) error { return nil }},
			})
			if err != nil {
				t.Fatalf("NewHealthRepository: %v", err)
			}

			report, err := repo.Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}

			if report.Status != tc.wantReport {
				t.Fatalf("report status = %s, want %s", report.Status, tc.wantReport)
			}
			check := report.Checks["firestore"]
			if check.Status != tc.wantCheck {
				t.Fatalf("check status = %s, want %s", check.Status, tc.wantCheck)
			}
			if tc.wantErr != "" && check.Error != tc.wantErr {
				t.Fatalf("check error = %q, want %q", check.Error, tc.wantErr)
			}
			if tc.wantDetail != "" && check.Detail != tc.wantDetail {
				t.Fatalf("check detail = %q, want %q", check.Detail, tc.wantDetail)
			}
			if healthy := report.Checks["pubsub"]; healthy.Status != domain.HealthStatusOK {
				t.Fatalf("pubsub status = %s, want ok", healthy.Status)
			}
		})
	}
}
