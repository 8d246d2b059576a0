package repositories

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDependencyHealthRepositoryAllHealthy(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(ctx context.Context) error {
			select {
			case <-time.After(10 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		{Name: "storage", Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if report.Status != HealthStatusOK {
		t.Fatalf("report status: want ok, got %s", report.Status)
	}
	if report.GeneratedAt != now {
		t.Fatalf("generatedAt: want %s, got %s", now, report.GeneratedAt)
	}
	for _, name := range []string{"firestore", "storage"} {
		check, ok := report.Checks[name]
		if !ok {
			t.Fatalf("missing check %s", name)
		}
		if check.Status != HealthStatusOK {
			t.Fatalf("check %s: want ok, got %s", name, check.Status)
		}
		if check.CheckedAt != now {
			t.Fatalf("check %s checkedAt: want %s, got %s", name, now, check.CheckedAt)
		}
	}
}

func TestDependencyHealthRepositoryFailingCheckDegrades(t *testing.T) {
	boom := errors.New("boom")
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return boom }},
		{Name: "pubsub", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if report.Status != HealthStatusDegraded {
		t.Fatalf("report status: want degraded, got %s", report.Status)
	}
	check := report.Checks["firestore"]
	if check.Status != HealthStatusDegraded {
		t.Fatalf("firestore status: want degraded, got %s", check.Status)
	}
	if check.Error != boom.Error() {
		t.Fatalf("firestore error: want %q, got %q", boom.Error(), check.Error)
	}
	if healthy := report.Checks["pubsub"]; healthy.Status != HealthStatusOK {
		t.Fatalf("pubsub status: want ok, got %s", healthy.Status)
	}
}

func TestDependencyHealthRepositorySlowCheckTimesOut(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{
			Name:    "redis",
			Timeout: 5 * time.Millisecond,
			Check: func(ctx context.Context) error {
				select {
				case <-time.After(20 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if report.Status != HealthStatusError {
		t.Fatalf("report status: want error, got %s", report.Status)
	}
	check := report.Checks["redis"]
	if check.Status != HealthStatusError {
		t.Fatalf("redis status: want error, got %s", check.Status)
	}
	if check.Detail != "timeout" {
		t.Fatalf("redis detail: want timeout, got %s", check.Detail)
	}
}

func TestDependencyHealthRepositoryRejectsBadChecks(t *testing.T) {
	cases := []struct {
		name   string
		checks []DependencyCheck
	}{
		{name: "no checks", checks: nil},
		{name: "blank name", checks: []DependencyCheck{
			{Name: "  ", Check: func(context.Context) error { return nil }},
		}},
		{name: "nil func", checks: []DependencyCheck{
			{Name: "firestore"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDependencyHealthRepository(tc.checks); err == nil {
				t.Fatal("expected constructor error")
			}
		})
	}
}
