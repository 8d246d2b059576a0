package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/packager"
	"github.com/darzi-studio/api/internal/platform/httpx"
	"github.com/darzi-studio/api/internal/platform/pagination"
	"github.com/darzi-studio/api/internal/services"
)

const (
	maxSubmissionBytes     = 32 << 20
	maxOrderCancelBodySize = 4 * 1024
	maxOrderStatusBodySize = 4 * 1024

	orderPartName = "order"
)

// submissionPayload is the JSON part of a multipart submission.
type submissionPayload struct {
	Customer domain.Customer  `json:"customer"`
	Garments []domain.Garment `json:"garments"`
	Delivery domain.Delivery  `json:"delivery"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderHandlers exposes the order intake and lifecycle endpoints.
type OrderHandlers struct {
	orders  services.OrderService
	limiter rateLimiter
}

// OrderHandlerOption customises the order handlers before construction.
type OrderHandlerOption func(*OrderHandlers)

// WithSubmissionRateLimit caps order submissions per client within a window.
func WithSubmissionRateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, clock)
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, opts ...OrderHandlerOption) *OrderHandlers {
	h := &OrderHandlers{orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/attachments", h.listAttachments)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:status", h.updateOrderStatus)
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many submissions, retry later", http.StatusTooManyRequests))
		return
	}

	cmd, err := parseSubmission(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_submission", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.Submit(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"orderId":   order.ID,
		"orderDate": order.CreatedAt.Format(time.RFC3339),
		"order":     order,
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.OrderListQuery{Pagination: params}
	for _, raw := range r.URL.Query()["status"] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			query.Status = append(query.Status, domain.OrderStatus(value))
		}
	}

	result, err := h.orders.List(ctx, query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	orders := result.Orders
	if orders == nil {
		orders = []domain.Order{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"orders":        orders,
		"nextPageToken": result.NextPageToken,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	order, err := h.orders.Get(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) listAttachments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	links, err := h.orders.AttachmentLinks(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if links == nil {
		links = []services.AttachmentLink{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"attachments": links,
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	var req cancelOrderRequest
	if err := decodeOptionalJSONBody(r, maxOrderCancelBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrderServiceUnavailable(ctx, w)
		return
	}

	var req updateOrderStatusRequest
	if err := decodeOptionalJSONBody(r, maxOrderStatusBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", "status is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.OrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Target:  domain.OrderStatus(req.Status),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, order)
}

// parseSubmission accepts either a bare JSON body or a multipart form.
// The form may carry the whole payload in a single "order" part, or
// split across the "customer"/"garments"/"delivery" parts the packager
// writes, with garments in wire form. File parts are addressed by
// positional field names: drawing_g{gi}, ref_g{gi}_d{di}_{fi} and
// fabric_g{gi}_d{di}_{fi}.
func parseSubmission(r *http.Request) (services.SubmitOrderCommand, error) {
	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return services.SubmitOrderCommand{}, fmt.Errorf("unreadable content type: %v", err)
	}

	if contentType == "application/json" {
		var payload submissionPayload
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxSubmissionBytes))
		if err := decoder.Decode(&payload); err != nil {
			return services.SubmitOrderCommand{}, fmt.Errorf("invalid order payload: %v", err)
		}
		return services.SubmitOrderCommand{
			Customer: payload.Customer,
			Garments: payload.Garments,
			Delivery: payload.Delivery,
		}, nil
	}

	if contentType != "multipart/form-data" {
		return services.SubmitOrderCommand{}, fmt.Errorf("unsupported content type %q", contentType)
	}

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		return services.SubmitOrderCommand{}, fmt.Errorf("invalid multipart form: %v", err)
	}

	var payload submissionPayload
	if raw := r.FormValue(orderPartName); strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return services.SubmitOrderCommand{}, fmt.Errorf("invalid order payload: %v", err)
		}
	} else {
		payload, err = parseSplitParts(r)
		if err != nil {
			return services.SubmitOrderCommand{}, err
		}
	}

	cmd := services.SubmitOrderCommand{
		Customer: payload.Customer,
		Garments: payload.Garments,
		Delivery: payload.Delivery,
	}

	if r.MultipartForm == nil {
		return cmd, nil
	}

	for field, headers := range r.MultipartForm.File {
		upload, ok := parseAttachmentField(field)
		if !ok {
			return services.SubmitOrderCommand{}, fmt.Errorf("unrecognised file field %q", field)
		}
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				return services.SubmitOrderCommand{}, fmt.Errorf("open file %q: %v", field, err)
			}
			data, err := io.ReadAll(io.LimitReader(file, maxSubmissionBytes))
			file.Close()
			if err != nil {
				return services.SubmitOrderCommand{}, fmt.Errorf("read file %q: %v", field, err)
			}

			upload.FileName = header.Filename
			upload.ContentType = header.Header.Get("Content-Type")
			upload.Data = data
			cmd.Attachments = append(cmd.Attachments, upload)
		}
	}

	return cmd, nil
}

// parseSplitParts reads the three JSON parts the packager writes. The
// garments part arrives in wire form and is converted back to domain
// garments; part-backed attachments become unsent placeholders that the
// order service overwrites once the binary parts are stored.
func parseSplitParts(r *http.Request) (submissionPayload, error) {
	rawCustomer := r.FormValue(packager.FieldCustomer)
	rawGarments := r.FormValue(packager.FieldGarments)
	rawDelivery := r.FormValue(packager.FieldDelivery)
	if strings.TrimSpace(rawCustomer) == "" || strings.TrimSpace(rawGarments) == "" || strings.TrimSpace(rawDelivery) == "" {
		return submissionPayload{}, fmt.Errorf("missing %q part or %q/%q/%q parts",
			orderPartName, packager.FieldCustomer, packager.FieldGarments, packager.FieldDelivery)
	}

	var payload submissionPayload
	if err := json.Unmarshal([]byte(rawCustomer), &payload.Customer); err != nil {
		return submissionPayload{}, fmt.Errorf("invalid %q part: %v", packager.FieldCustomer, err)
	}
	var wireGarments []packager.WireGarment
	if err := json.Unmarshal([]byte(rawGarments), &wireGarments); err != nil {
		return submissionPayload{}, fmt.Errorf("invalid %q part: %v", packager.FieldGarments, err)
	}
	if err := json.Unmarshal([]byte(rawDelivery), &payload.Delivery); err != nil {
		return submissionPayload{}, fmt.Errorf("invalid %q part: %v", packager.FieldDelivery, err)
	}

	payload.Garments = make([]domain.Garment, len(wireGarments))
	for i, wire := range wireGarments {
		payload.Garments[i] = garmentFromWire(wire)
	}
	return payload, nil
}

func garmentFromWire(wire packager.WireGarment) domain.Garment {
	garment := domain.Garment{
		Key:          wire.Key,
		Category:     wire.Category,
		Variant:      wire.Variant,
		Quantity:     wire.Quantity,
		Unit:         wire.Unit,
		Measurements: wire.Measurements,
	}
	if len(wire.Designs) > 0 {
		garment.Designs = make([]domain.DesignRecord, len(wire.Designs))
	}
	for i, design := range wire.Designs {
		garment.Designs[i] = domain.DesignRecord{
			Key:             design.Key,
			Name:            design.Name,
			Amount:          design.Amount,
			Description:     design.Description,
			ReferenceImages: imagesFromWire(design.ReferenceImages),
			FabricImages:    imagesFromWire(design.FabricImages),
		}
	}
	if wire.DrawingURL != "" || wire.DrawingPart != "" || wire.Vector != "" {
		drawing := &domain.Drawing{Vector: wire.Vector}
		if wire.DrawingURL != "" {
			drawing.Raster = domain.RemoteImage(wire.DrawingURL)
		}
		garment.Drawing = drawing
	}
	return garment
}

func imagesFromWire(images []packager.WireImage) []domain.ImageRef {
	if len(images) == 0 {
		return nil
	}
	refs := make([]domain.ImageRef, len(images))
	for i, image := range images {
		if image.URL != "" {
			refs[i] = domain.RemoteImage(image.URL)
			continue
		}
		refs[i] = domain.ImageRef{
			State:       domain.ImageUnsent,
			FileName:    image.FileName,
			ContentType: image.ContentType,
		}
	}
	return refs
}

func parseAttachmentField(field string) (services.AttachmentUpload, bool) {
	var upload services.AttachmentUpload

	switch {
	case strings.HasPrefix(field, "drawing_"):
		var gi int
		if _, err := fmt.Sscanf(field, "drawing_g%d", &gi); err != nil || gi < 0 {
			return upload, false
		}
		upload.Slot = services.SlotDrawing
		upload.GarmentIndex = gi
		return upload, true
	case strings.HasPrefix(field, "ref_"):
		var gi, di, fi int
		if _, err := fmt.Sscanf(field, "ref_g%d_d%d_%d", &gi, &di, &fi); err != nil || gi < 0 || di < 0 || fi < 0 {
			return upload, false
		}
		upload.Slot = services.SlotReference
		upload.GarmentIndex, upload.DesignIndex, upload.FileIndex = gi, di, fi
		return upload, true
	case strings.HasPrefix(field, "fabric_"):
		var gi, di, fi int
		if _, err := fmt.Sscanf(field, "fabric_g%d_d%d_%d", &gi, &di, &fi); err != nil || gi < 0 || di < 0 || fi < 0 {
			return upload, false
		}
		upload.Slot = services.SlotFabric
		upload.GarmentIndex, upload.DesignIndex, upload.FileIndex = gi, di, fi
		return upload, true
	}

	return upload, false
}

func decodeOptionalJSONBody(r *http.Request, limit int64, target any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return fmt.Errorf("read body: %v", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func clientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	return r.RemoteAddr
}

func writeOrderServiceUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_input", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "conflicting order submission", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_internal_error", "failed to process order", http.StatusInternalServerError))
	}
}
