package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/storage"
	"github.com/darzi-studio/api/internal/repositories"
)

const invoiceContentType = "text/html; charset=utf-8"

var (
	// ErrInvoiceNotFound indicates the invoice has not been generated yet.
	ErrInvoiceNotFound = errors.New("invoice: not found")
	// ErrInvoiceInvalidKind indicates an unknown invoice layout was requested.
	ErrInvoiceInvalidKind = errors.New("invoice: unknown kind")
)

// InvoiceServiceDeps bundles collaborators required to construct the invoice service.
type InvoiceServiceDeps struct {
	Orders repositories.OrderRepository
	Blobs  storage.BlobStore
	Bucket string
	Clock  func() time.Time
}

type invoiceService struct {
	orders repositories.OrderRepository
	blobs  storage.BlobStore
	bucket string
	clock  func() time.Time
}

// NewInvoiceService wires dependencies into a concrete InvoiceService implementation.
func NewInvoiceService(deps InvoiceServiceDeps) (InvoiceService, error) {
	if deps.Orders == nil {
		return nil, errors.New("invoice service: order repository is required")
	}
	if deps.Blobs == nil {
		return nil, errors.New("invoice service: blob store is required")
	}
	if strings.TrimSpace(deps.Bucket) == "" {
		return nil, errors.New("invoice service: bucket is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &invoiceService{
		orders: deps.Orders,
		blobs:  deps.Blobs,
		bucket: strings.TrimSpace(deps.Bucket),
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *invoiceService) Get(ctx context.Context, orderID string, kind domain.InvoiceKind) (domain.InvoiceDocument, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.InvoiceDocument{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !kind.Valid() {
		return domain.InvoiceDocument{}, fmt.Errorf("%w: %q", ErrInvoiceInvalidKind, kind)
	}

	object, err := invoiceObjectPath(orderID, kind)
	if err != nil {
		return domain.InvoiceDocument{}, err
	}

	stored, err := s.blobs.Read(ctx, s.bucket, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return domain.InvoiceDocument{}, fmt.Errorf("%w: %s/%s", ErrInvoiceNotFound, orderID, kind)
		}
		return domain.InvoiceDocument{}, err
	}

	return domain.InvoiceDocument{
		OrderID:     orderID,
		Kind:        kind,
		ContentType: stored.ContentType,
		Body:        stored.Data,
	}, nil
}

func (s *invoiceService) Generate(ctx context.Context, orderID string, kind domain.InvoiceKind) (domain.InvoiceDocument, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.InvoiceDocument{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !kind.Valid() {
		return domain.InvoiceDocument{}, fmt.Errorf("%w: %q", ErrInvoiceInvalidKind, kind)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.InvoiceDocument{}, fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		}
		return domain.InvoiceDocument{}, err
	}

	now := s.clock()
	body, err := renderInvoice(order, kind, now)
	if err != nil {
		return domain.InvoiceDocument{}, fmt.Errorf("invoice: render %s for %s: %w", kind, orderID, err)
	}

	object, err := invoiceObjectPath(orderID, kind)
	if err != nil {
		return domain.InvoiceDocument{}, err
	}
	if err := s.blobs.Write(ctx, s.bucket, object, storage.Object{
		Data:        body,
		ContentType: invoiceContentType,
	}); err != nil {
		return domain.InvoiceDocument{}, err
	}

	return domain.InvoiceDocument{
		OrderID:     orderID,
		Kind:        kind,
		ContentType: invoiceContentType,
		Body:        body,
		GeneratedAt: now,
	}, nil
}

func invoiceObjectPath(orderID string, kind domain.InvoiceKind) (string, error) {
	object, err := storage.BuildObjectPath(storage.PurposeInvoice, storage.PathParams{
		OrderID:     orderID,
		InvoiceKind: string(kind),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	return object, nil
}

type invoiceView struct {
	Order       domain.Order
	GeneratedAt time.Time
	Advance     int64
	Balance     int64
}

func renderInvoice(order domain.Order, kind domain.InvoiceKind, now time.Time) ([]byte, error) {
	tmpl := customerInvoiceTemplate
	if kind == domain.InvoiceTailor {
		tmpl = tailorInvoiceTemplate
	}

	view := invoiceView{
		Order:       order,
		GeneratedAt: now,
		Advance:     order.Delivery.AdvanceAmount,
		Balance:     order.Total - order.Delivery.AdvanceAmount,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var invoiceFuncs = template.FuncMap{
	"inr": func(amount int64) string {
		return fmt.Sprintf("₹%d", amount)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "—"
		}
		return t.Format("02 Jan 2006")
	},
	"measurement": func(value float64) string {
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	},
}

var customerInvoiceTemplate = template.Must(template.New("customer").Funcs(invoiceFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Invoice {{.Order.OrderNumber}}</title>
</head>
<body>
<header>
  <h1>Darzi Studio</h1>
  <p>Invoice <strong>{{.Order.OrderNumber}}</strong> &middot; {{date .Order.CreatedAt}}</p>
</header>
<section>
  <h2>Billed to</h2>
  <p>{{.Order.Customer.FullName}}<br>{{.Order.Customer.ContactNumber}}<br>{{.Order.Customer.FullAddress}}</p>
</section>
<section>
  <h2>Items</h2>
  <table>
    <thead><tr><th>Garment</th><th>Design</th><th>Amount</th></tr></thead>
    <tbody>
    {{- range .Order.Garments}}
    {{- $garment := .}}
    {{- range .Designs}}
      <tr><td>{{$garment.Category}} / {{$garment.Variant}}</td><td>{{.Name}}</td><td>{{inr .Amount}}</td></tr>
    {{- end}}
    {{- end}}
    </tbody>
  </table>
  <p>Total: <strong>{{inr .Order.Total}}</strong></p>
  {{- if gt .Advance 0}}
  <p>Advance paid: {{inr .Advance}}</p>
  <p>Balance due: <strong>{{inr .Balance}}</strong></p>
  {{- end}}
</section>
<section>
  <h2>Delivery</h2>
  <p>Expected by {{date .Order.Delivery.DeliveryDate}}{{if .Order.Delivery.Urgency}} ({{.Order.Delivery.Urgency}}){{end}}</p>
</section>
<footer>
  <p>Generated {{date .GeneratedAt}}</p>
</footer>
</body>
</html>
`))

var tailorInvoiceTemplate = template.Must(template.New("tailor").Funcs(invoiceFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Work order {{.Order.OrderNumber}}</title>
</head>
<body>
<header>
  <h1>Work order {{.Order.OrderNumber}}</h1>
  <p>{{.Order.Customer.FullName}} &middot; {{.Order.Customer.ContactNumber}}</p>
  <p>Deliver by <strong>{{date .Order.Delivery.DeliveryDate}}</strong>{{if .Order.Delivery.Urgency}} &middot; {{.Order.Delivery.Urgency}}{{end}}</p>
</header>
{{- range $gi, $garment := .Order.Garments}}
<section>
  <h2>Garment {{$gi}}: {{$garment.Category}} / {{$garment.Variant}} &times;{{$garment.Quantity}}</h2>
  {{- if $garment.Measurements}}
  <table>
    <thead><tr><th>Measurement</th><th>Value ({{$garment.Unit}})</th></tr></thead>
    <tbody>
    {{- range $key, $value := $garment.Measurements}}
      <tr><td>{{$key}}</td><td>{{measurement $value}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- end}}
  {{- if $garment.Drawing}}
  <p>Sketch: <a href="{{$garment.Drawing.Raster.URL}}">{{$garment.Drawing.Raster.FileName}}</a></p>
  {{- end}}
  {{- range $di, $design := $garment.Designs}}
  <article>
    <h3>Design {{$di}}: {{$design.Name}}</h3>
    {{- if $design.Description}}
    <p>{{$design.Description}}</p>
    {{- end}}
    {{- range $design.ReferenceImages}}
    <p>Reference: <a href="{{.URL}}">{{.FileName}}</a></p>
    {{- end}}
    {{- range $design.FabricImages}}
    <p>Fabric: <a href="{{.URL}}">{{.FileName}}</a></p>
    {{- end}}
  </article>
  {{- end}}
</section>
{{- end}}
{{- if .Order.Delivery.SpecialInstructions}}
<section>
  <h2>Special instructions</h2>
  <p>{{.Order.Delivery.SpecialInstructions}}</p>
</section>
{{- end}}
<footer>
  <p>Generated {{date .GeneratedAt}}</p>
</footer>
</body>
</html>
`))
