package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/httpx"
	"github.com/darzi-studio/api/internal/services"
)

// InvoiceHandlers serves the generated invoice documents.
type InvoiceHandlers struct {
	invoices services.InvoiceService
}

// NewInvoiceHandlers constructs a new InvoiceHandlers instance.
func NewInvoiceHandlers(invoices services.InvoiceService) *InvoiceHandlers {
	return &InvoiceHandlers{invoices: invoices}
}

// Routes registers the invoice endpoints under the orders group.
func (h *InvoiceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{orderID}/invoice/{kind}", h.getInvoice)
	r.Post("/{orderID}/invoice/{kind}", h.generateInvoice)
}

// getInvoice serves the cached invoice, rendering it first when the
// order exists but the document has not been generated yet.
func (h *InvoiceHandlers) getInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		writeInvoiceServiceUnavailable(ctx, w)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	kind := domain.InvoiceKind(chi.URLParam(r, "kind"))

	doc, err := h.invoices.Get(ctx, orderID, kind)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		doc, err = h.invoices.Generate(ctx, orderID, kind)
	}
	if err != nil {
		writeInvoiceError(ctx, w, err)
		return
	}

	writeInvoiceDocument(w, doc)
}

func (h *InvoiceHandlers) generateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		writeInvoiceServiceUnavailable(ctx, w)
		return
	}

	doc, err := h.invoices.Generate(ctx, chi.URLParam(r, "orderID"), domain.InvoiceKind(chi.URLParam(r, "kind")))
	if err != nil {
		writeInvoiceError(ctx, w, err)
		return
	}

	writeInvoiceDocument(w, doc)
}

func writeInvoiceDocument(w http.ResponseWriter, doc domain.InvoiceDocument) {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Body)
}

func writeInvoiceServiceUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("invoice_service_unavailable", "invoice service unavailable", http.StatusServiceUnavailable))
}

func writeInvoiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceInvalidKind):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_invalid_kind", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_invalid_input", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrInvoiceNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_not_found", "invoice not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invoice_internal_error", "failed to produce invoice", http.StatusInternalServerError))
	}
}
