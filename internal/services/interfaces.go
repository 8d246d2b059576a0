package services

import (
	"context"
	"time"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/pagination"
	"github.com/darzi-studio/api/internal/repositories"
)

// OrderService owns the intake and lifecycle of tailoring orders.
type OrderService interface {
	// Submit validates and persists a new order: attachments are uploaded,
	// image references rewritten to retrievable URLs, an order number is
	// allocated, and the normalized order document is returned.
	Submit(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, query OrderListQuery) (OrderListResult, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (domain.Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	// AttachmentLinks returns download links for every stored attachment
	// of the order. With a signed-URL issuer configured the links are
	// time-limited; otherwise they are the stored object URLs.
	AttachmentLinks(ctx context.Context, orderID string) ([]AttachmentLink, error)
}

// AttachmentSlot names where an uploaded file lands inside the order.
type AttachmentSlot string

const (
	SlotDrawing   AttachmentSlot = "drawing"
	SlotReference AttachmentSlot = "reference"
	SlotFabric    AttachmentSlot = "fabric"
)

// AttachmentUpload is one binary file from the submission, addressed by
// its position within the order structure.
type AttachmentUpload struct {
	Slot         AttachmentSlot
	GarmentIndex int
	DesignIndex  int
	FileIndex    int
	FileName     string
	ContentType  string
	Data         []byte
}

// AttachmentLink points a caller at one stored attachment. ExpiresAt is
// nil when the link does not expire.
type AttachmentLink struct {
	Slot         AttachmentSlot `json:"slot"`
	GarmentIndex int            `json:"garmentIndex"`
	DesignIndex  int            `json:"designIndex,omitempty"`
	FileIndex    int            `json:"fileIndex,omitempty"`
	FileName     string         `json:"fileName"`
	URL          string         `json:"url"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
}

// SubmitOrderCommand carries the parsed submission payload.
type SubmitOrderCommand struct {
	Customer    domain.Customer
	Garments    []domain.Garment
	Delivery    domain.Delivery
	Attachments []AttachmentUpload
}

// OrderListQuery narrows and pages the order listing.
type OrderListQuery struct {
	Status     []domain.OrderStatus
	Pagination pagination.Params
}

// OrderListResult is one page of orders plus the token for the next page.
type OrderListResult struct {
	Orders        []domain.Order
	NextPageToken string
}

// OrderStatusCommand moves an order to a new lifecycle state.
type OrderStatusCommand struct {
	OrderID string
	Target  domain.OrderStatus
}

// CancelOrderCommand cancels an order with an optional reason.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
}

// InvoiceService produces and caches the printable invoice documents.
type InvoiceService interface {
	// Get returns the cached invoice, or ErrInvoiceNotFound when it has
	// not been generated yet.
	Get(ctx context.Context, orderID string, kind domain.InvoiceKind) (domain.InvoiceDocument, error)
	// Generate renders the invoice from the stored order and caches it.
	Generate(ctx context.Context, orderID string, kind domain.InvoiceKind) (domain.InvoiceDocument, error)
}

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemHealthReport aggregates dependency health plus build metadata.
type SystemHealthReport struct {
	Status      repositories.HealthStatus                 `json:"status"`
	Version     string                                    `json:"version,omitempty"`
	CommitSHA   string                                    `json:"commitSha,omitempty"`
	Environment string                                    `json:"environment,omitempty"`
	Uptime      time.Duration                             `json:"uptime"`
	GeneratedAt time.Time                                 `json:"generatedAt"`
	Checks      map[string]repositories.HealthCheckResult `json:"checks"`
}

// SystemService surfaces operational reports for health endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
