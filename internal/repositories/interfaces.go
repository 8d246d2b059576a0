package repositories

import (
	"context"
	"time"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/pagination"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order documents and provides query helpers for the studio staff.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (OrderPage, error)
}

// OrderListFilter narrows and pages the order listing. Orders are always
// returned newest first.
type OrderListFilter struct {
	Status       []domain.OrderStatus
	CreatedAfter *time.Time
	PageSize     int
	Cursor       pagination.Cursor
}

// OrderPage is one page of the order listing plus the token for the next page.
type OrderPage struct {
	Orders        []domain.Order
	NextPageToken string
}

// CounterRepository provides transaction-safe sequence numbers for order numbering.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// HealthRepository exposes status of downstream dependencies for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (HealthReport, error)
}

// HealthStatus grades an individual dependency or the whole report.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// HealthCheckResult records the outcome of a single dependency probe.
type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// HealthReport aggregates dependency probe results.
type HealthReport struct {
	Status      HealthStatus                 `json:"status"`
	Checks      map[string]HealthCheckResult `json:"checks"`
	GeneratedAt time.Time                    `json:"generatedAt"`
}
