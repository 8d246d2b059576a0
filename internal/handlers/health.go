package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/darzi-studio/api/internal/platform/httpx"
	"github.com/darzi-studio/api/internal/repositories"
	"github.com/darzi-studio/api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	build  services.BuildInfo
	system services.SystemService
	clock  func() time.Time
}

// HealthOption customises the health handlers before construction.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs handlers for /healthz and /readyz.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// WithHealthBuildInfo attaches build metadata to the liveness response.
func WithHealthBuildInfo(build services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthSystemService attaches the service backing the readiness probe.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthClock overrides the clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.clock = clock
	}
}

type healthzResponse struct {
	Status      repositories.HealthStatus `json:"status"`
	Version     string                    `json:"version,omitempty"`
	CommitSHA   string                    `json:"commitSha,omitempty"`
	Environment string                    `json:"environment,omitempty"`
	Uptime      string                    `json:"uptime,omitempty"`
	Timestamp   time.Time                 `json:"timestamp"`
}

type readyzResponse struct {
	Status      repositories.HealthStatus                 `json:"status"`
	Version     string                                    `json:"version,omitempty"`
	CommitSHA   string                                    `json:"commitSha,omitempty"`
	Environment string                                    `json:"environment,omitempty"`
	GeneratedAt time.Time                                 `json:"generatedAt"`
	Checks      map[string]repositories.HealthCheckResult `json:"checks,omitempty"`
	Details     []string                                  `json:"details"`
}

// Healthz reports process liveness with build metadata.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()

	resp := healthzResponse{
		Status:      repositories.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Timestamp:   now,
	}
	if !h.build.StartedAt.IsZero() {
		resp.Uptime = now.Sub(h.build.StartedAt).Round(time.Second).String()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Readyz reports dependency readiness; degraded dependencies yield 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, readyzResponse{
			Status:      repositories.HealthStatusOK,
			Version:     h.build.Version,
			CommitSHA:   h.build.CommitSHA,
			Environment: h.build.Environment,
			GeneratedAt: h.clock().UTC(),
			Details:     []string{},
		})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_report_failed", "failed to collect health report", http.StatusServiceUnavailable))
		return
	}

	resp := readyzResponse{
		Status:      report.Status,
		Version:     report.Version,
		CommitSHA:   report.CommitSHA,
		Environment: report.Environment,
		GeneratedAt: report.GeneratedAt,
		Checks:      report.Checks,
		Details:     checkDetails(report.Checks),
	}

	status := http.StatusOK
	if report.Status != repositories.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}

	httpx.WriteJSON(w, status, resp)
}

func checkDetails(checks map[string]repositories.HealthCheckResult) []string {
	details := make([]string, 0, len(checks))
	for name, check := range checks {
		if check.Status == repositories.HealthStatusOK {
			continue
		}
		detail := check.Error
		if detail == "" {
			detail = check.Detail
		}
		if detail == "" {
			detail = string(check.Status)
		}
		details = append(details, fmt.Sprintf("%s: %s", name, detail))
	}
	sort.Strings(details)
	return details
}
