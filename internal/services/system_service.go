package services

import (
	"context"
	"errors"
	"time"

	"github.com/darzi-studio/api/internal/repositories"
)

// SystemServiceDeps bundles collaborators required to construct the system service.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Build  BuildInfo
	Clock  func() time.Time
}

type systemService struct {
	health repositories.HealthRepository
	build  BuildInfo
	clock  func() time.Time
}

// NewSystemService wires dependencies into a concrete SystemService implementation.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &systemService{
		health: deps.Health,
		build:  deps.Build,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	var uptime time.Duration
	if !s.build.StartedAt.IsZero() {
		uptime = now.Sub(s.build.StartedAt)
	}

	return SystemHealthReport{
		Status:      report.Status,
		Version:     s.build.Version,
		CommitSHA:   s.build.CommitSHA,
		Environment: s.build.Environment,
		Uptime:      uptime,
		GeneratedAt: report.GeneratedAt,
		Checks:      report.Checks,
	}, nil
}
