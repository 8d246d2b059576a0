package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/storage"
	"github.com/darzi-studio/api/internal/repositories"
)

const (
	orderEventReceived      = "order.received"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix = "ord_"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates duplicate submissions or concurrent updates.
	ErrOrderConflict = errors.New("order: conflict")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.StatusReceived:   {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusInProgress: {domain.StatusReady, domain.StatusCancelled},
	domain.StatusReady:      {domain.StatusDelivered, domain.StatusCancelled},
}

var cancellableStatuses = []domain.OrderStatus{
	domain.StatusReceived,
	domain.StatusInProgress,
	domain.StatusReady,
}

// OrderEvent captures metadata for emitted order domain events. The
// customer fields and summary are populated on order.received so the
// notification consumer can compose a message without re-reading the
// order document.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	Summary        string
	PreviousStatus domain.OrderStatus
	CurrentStatus  domain.OrderStatus
	Total          int64
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// SignedURLIssuer mints expiring download URLs for stored objects.
// Satisfied by *storage.Client.
type SignedURLIssuer interface {
	SignedURL(ctx context.Context, bucket, object string, opts storage.SignedURLOptions) (storage.SignedURLResult, error)
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders            repositories.OrderRepository
	Counters          repositories.CounterRepository
	Attachments       storage.BlobStore
	AttachmentsBucket string
	ObjectURL         func(bucket, object string) string
	Clock             func() time.Time
	IDGenerator       func() string
	Events            OrderEventPublisher
	// SignedURLs is optional; when absent, attachment links fall back to
	// the stored object URLs.
	SignedURLs SignedURLIssuer
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	counters    repositories.CounterRepository
	attachments storage.BlobStore
	bucket      string
	objectURL   func(bucket, object string) string
	clock       func() time.Time
	newID       func() string
	events      OrderEventPublisher
	signedURLs  SignedURLIssuer
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Attachments == nil {
		return nil, errors.New("order service: attachment store is required")
	}
	if strings.TrimSpace(deps.AttachmentsBucket) == "" {
		return nil, errors.New("order service: attachments bucket is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	objectURL := deps.ObjectURL
	if objectURL == nil {
		objectURL = func(bucket, object string) string {
			return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:      deps.Orders,
		counters:    deps.Counters,
		attachments: deps.Attachments,
		bucket:      strings.TrimSpace(deps.AttachmentsBucket),
		objectURL:   objectURL,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:      idGen,
		events:     deps.Events,
		signedURLs: deps.SignedURLs,
		logger:     logger,
	}, nil
}

func (s *orderService) Submit(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error) {
	if err := validateSubmission(cmd); err != nil {
		return domain.Order{}, err
	}

	now := s.clock()

	order := domain.Order{
		ID:        orderIDPrefix + s.newID(),
		Status:    domain.StatusReceived,
		Customer:  trimCustomer(cmd.Customer),
		Garments:  cloneGarments(cmd.Garments),
		Delivery:  cmd.Delivery,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.Total = domain.OrderTotal(order.Garments)

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, err
	}
	order.OrderNumber = number

	uploaded, err := s.storeAttachments(ctx, &order, cmd.Attachments)
	if err != nil {
		s.discardObjects(ctx, uploaded)
		return domain.Order{}, err
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.discardObjects(ctx, uploaded)
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventReceived,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.Customer.FullName,
		CustomerPhone: order.Customer.ContactNumber,
		CustomerEmail: order.Customer.Email,
		Summary:       orderSummary(order),
		CurrentStatus: order.Status,
		Total:         order.Total,
		OccurredAt:    now,
		Metadata: map[string]any{
			"garments": len(order.Garments),
		},
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

const attachmentLinkExpiry = 10 * time.Minute

// AttachmentLinks walks the stored order and resolves every uploaded
// image to a downloadable URL. Object paths are re-derived from the
// attachment's position, so the links stay valid even if the stored URL
// scheme changes.
func (s *orderService) AttachmentLinks(ctx context.Context, orderID string) ([]AttachmentLink, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var links []AttachmentLink
	collect := func(att AttachmentUpload, ref domain.ImageRef) {
		if link, ok := s.attachmentLink(ctx, order.ID, att, ref); ok {
			links = append(links, link)
		}
	}

	for gi, garment := range order.Garments {
		if d := garment.Drawing; d != nil {
			collect(AttachmentUpload{Slot: SlotDrawing, GarmentIndex: gi}, d.Raster)
		}
		for di, design := range garment.Designs {
			for fi, ref := range design.ReferenceImages {
				collect(AttachmentUpload{Slot: SlotReference, GarmentIndex: gi, DesignIndex: di, FileIndex: fi}, ref)
			}
			for fi, ref := range design.FabricImages {
				collect(AttachmentUpload{Slot: SlotFabric, GarmentIndex: gi, DesignIndex: di, FileIndex: fi}, ref)
			}
		}
	}
	return links, nil
}

func (s *orderService) attachmentLink(ctx context.Context, orderID string, att AttachmentUpload, ref domain.ImageRef) (AttachmentLink, bool) {
	if ref.State != domain.ImageRemote {
		return AttachmentLink{}, false
	}
	link := AttachmentLink{
		Slot:         att.Slot,
		GarmentIndex: att.GarmentIndex,
		DesignIndex:  att.DesignIndex,
		FileIndex:    att.FileIndex,
		FileName:     ref.FileName,
		URL:          ref.URL,
	}
	if s.signedURLs == nil || ref.FileName == "" {
		return link, link.URL != ""
	}

	att.FileName = ref.FileName
	purpose, params, err := attachmentPath(orderID, att)
	if err != nil {
		return link, link.URL != ""
	}
	object, err := storage.BuildObjectPath(purpose, params)
	if err != nil {
		return link, link.URL != ""
	}

	signed, err := s.signedURLs.SignedURL(ctx, s.bucket, object, storage.SignedURLOptions{
		Download: &storage.DownloadOptions{
			ExpiresIn:    attachmentLinkExpiry,
			Disposition:  fmt.Sprintf("attachment; filename=%q", ref.FileName),
			ResponseType: ref.ContentType,
		},
	})
	if err != nil {
		s.logger(ctx, "attachment url signing failed", map[string]any{
			"orderId": orderID,
			"object":  object,
			"error":   err.Error(),
		})
		return link, link.URL != ""
	}

	link.URL = signed.URL
	expires := signed.ExpiresAt
	link.ExpiresAt = &expires
	return link, true
}

func (s *orderService) List(ctx context.Context, query OrderListQuery) (OrderListResult, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return OrderListResult{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}

	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status:   query.Status,
		PageSize: query.Pagination.PageSize,
		Cursor:   query.Pagination.Cursor,
	})
	if err != nil {
		return OrderListResult{}, s.mapRepositoryError(err)
	}

	return OrderListResult{
		Orders:        page.Orders,
		NextPageToken: page.NextPageToken,
	}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Target.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	prev := order.Status
	if err := applyStatusTransition(&order, cmd.Target, now); err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: prev,
		CurrentStatus:  order.Status,
		Total:          order.Total,
		OccurredAt:     now,
	})

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if !slices.Contains(cancellableStatuses, order.Status) {
		return domain.Order{}, fmt.Errorf("%w: order status %q cannot be cancelled", ErrOrderInvalidState, order.Status)
	}

	now := s.clock()
	prev := order.Status
	if err := applyStatusTransition(&order, domain.StatusCancelled, now); err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	metadata := map[string]any{}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		metadata["reason"] = reason
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: prev,
		CurrentStatus:  order.Status,
		Total:          order.Total,
		OccurredAt:     now,
		Metadata:       metadata,
	})

	return order, nil
}

// storeAttachments uploads each binary to the attachments bucket and
// rewrites the matching image reference inside the order to its URL.
// Returned object paths let the caller discard uploads on failure.
func (s *orderService) storeAttachments(ctx context.Context, order *domain.Order, attachments []AttachmentUpload) ([]string, error) {
	var uploaded []string

	for _, att := range attachments {
		if att.GarmentIndex < 0 || att.GarmentIndex >= len(order.Garments) {
			return uploaded, fmt.Errorf("%w: attachment garment index %d out of range", ErrOrderInvalidInput, att.GarmentIndex)
		}
		if len(att.Data) == 0 {
			return uploaded, fmt.Errorf("%w: attachment %s has no payload", ErrOrderInvalidInput, att.FileName)
		}

		garment := &order.Garments[att.GarmentIndex]

		purpose, params, err := attachmentPath(order.ID, att)
		if err != nil {
			return uploaded, err
		}
		object, err := storage.BuildObjectPath(purpose, params)
		if err != nil {
			return uploaded, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}

		if err := s.attachments.Write(ctx, s.bucket, object, storage.Object{
			Data:        att.Data,
			ContentType: att.ContentType,
		}); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, object)

		ref := domain.ImageRef{
			State:       domain.ImageRemote,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			URL:         s.objectURL(s.bucket, object),
		}

		switch att.Slot {
		case SlotDrawing:
			if garment.Drawing == nil {
				garment.Drawing = &domain.Drawing{}
			}
			garment.Drawing.Raster = ref
		case SlotReference, SlotFabric:
			if att.DesignIndex < 0 || att.DesignIndex >= len(garment.Designs) {
				return uploaded, fmt.Errorf("%w: attachment design index %d out of range", ErrOrderInvalidInput, att.DesignIndex)
			}
			design := &garment.Designs[att.DesignIndex]
			list := &design.ReferenceImages
			limit := domain.MaxReferenceImages
			if att.Slot == SlotFabric {
				list = &design.FabricImages
				limit = domain.MaxFabricImages
			}
			switch {
			case att.FileIndex < len(*list):
				(*list)[att.FileIndex] = ref
			case len(*list) < limit:
				*list = append(*list, ref)
			default:
				return uploaded, fmt.Errorf("%w: %s image limit exceeded for design %d", ErrOrderInvalidInput, att.Slot, att.DesignIndex)
			}
		}
	}

	return uploaded, nil
}

func (s *orderService) discardObjects(ctx context.Context, objects []string) {
	for _, object := range objects {
		if err := s.attachments.Delete(ctx, s.bucket, object); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger(ctx, "order.attachment.discard.failed", map[string]any{
				"object": object,
				"error":  err.Error(),
			})
		}
	}
}

func attachmentPath(orderID string, att AttachmentUpload) (storage.AssetPurpose, storage.PathParams, error) {
	params := storage.PathParams{
		OrderID:      orderID,
		GarmentIndex: att.GarmentIndex,
		DesignIndex:  att.DesignIndex,
		FileIndex:    att.FileIndex,
		FileName:     att.FileName,
	}
	switch att.Slot {
	case SlotDrawing:
		return storage.PurposeGarmentDrawing, params, nil
	case SlotReference:
		return storage.PurposeDesignReference, params, nil
	case SlotFabric:
		return storage.PurposeDesignFabric, params, nil
	default:
		return "", storage.PathParams{}, fmt.Errorf("%w: unknown attachment slot %q", ErrOrderInvalidInput, att.Slot)
	}
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, fmt.Sprintf("orders:%d", now.Year()), 1)
	if err != nil {
		if repositories.CounterErrorCodeOf(err) == repositories.CounterErrorExhausted {
			return "", fmt.Errorf("order: sequence for %d exhausted: %w", now.Year(), err)
		}
		return "", err
	}
	return fmt.Sprintf("DRZ-%d-%04d", now.Year(), seq), nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func applyStatusTransition(order *domain.Order, target domain.OrderStatus, now time.Time) error {
	if order.Status == target {
		order.UpdatedAt = now
		return nil
	}
	if !slices.Contains(orderStateTransitions[order.Status], target) {
		return fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, target)
	}
	order.Status = target
	order.UpdatedAt = now
	return nil
}

func validateSubmission(cmd SubmitOrderCommand) error {
	if strings.TrimSpace(cmd.Customer.FullName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.ContactNumber) == "" {
		return fmt.Errorf("%w: customer contact number is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.FullAddress) == "" {
		return fmt.Errorf("%w: customer address is required", ErrOrderInvalidInput)
	}
	if len(cmd.Garments) == 0 {
		return fmt.Errorf("%w: at least one garment is required", ErrOrderInvalidInput)
	}
	for i, garment := range cmd.Garments {
		if strings.TrimSpace(garment.Category) == "" || strings.TrimSpace(garment.Variant) == "" {
			return fmt.Errorf("%w: garment %d needs a category and variant", ErrOrderInvalidInput, i)
		}
		if garment.Quantity < domain.MinGarmentQuantity || garment.Quantity > domain.MaxGarmentQuantity {
			return fmt.Errorf("%w: garment %d quantity %d out of range", ErrOrderInvalidInput, i, garment.Quantity)
		}
		if !garment.Unit.Valid() {
			return fmt.Errorf("%w: garment %d has unknown measurement unit %q", ErrOrderInvalidInput, i, garment.Unit)
		}
		if len(garment.Designs) != garment.Quantity {
			return fmt.Errorf("%w: garment %d has %d designs for quantity %d", ErrOrderInvalidInput, i, len(garment.Designs), garment.Quantity)
		}
		for j, design := range garment.Designs {
			if strings.TrimSpace(design.Name) == "" {
				return fmt.Errorf("%w: garment %d design %d needs a name", ErrOrderInvalidInput, i, j)
			}
			if design.Amount <= 0 {
				return fmt.Errorf("%w: garment %d design %d needs a positive amount", ErrOrderInvalidInput, i, j)
			}
			if len(design.ReferenceImages) > domain.MaxReferenceImages {
				return fmt.Errorf("%w: garment %d design %d exceeds reference image limit", ErrOrderInvalidInput, i, j)
			}
			if len(design.FabricImages) > domain.MaxFabricImages {
				return fmt.Errorf("%w: garment %d design %d exceeds fabric image limit", ErrOrderInvalidInput, i, j)
			}
		}
	}
	if cmd.Delivery.DeliveryDate.IsZero() {
		return fmt.Errorf("%w: delivery date is required", ErrOrderInvalidInput)
	}
	switch cmd.Delivery.Payment {
	case domain.PaymentCash, domain.PaymentDigital, domain.PaymentBank, domain.PaymentAdvance:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.Delivery.Payment)
	}
	if cmd.Delivery.Payment == domain.PaymentAdvance {
		if cmd.Delivery.AdvanceAmount < 0 {
			return fmt.Errorf("%w: advance amount cannot be negative", ErrOrderInvalidInput)
		}
		if total := domain.OrderTotal(cmd.Garments); cmd.Delivery.AdvanceAmount > total {
			return fmt.Errorf("%w: advance amount %d exceeds order total %d", ErrOrderInvalidInput, cmd.Delivery.AdvanceAmount, total)
		}
	}
	return nil
}

// orderSummary renders the one-line description carried on the
// order.received event.
func orderSummary(order domain.Order) string {
	categories := make([]string, 0, len(order.Garments))
	for _, garment := range order.Garments {
		categories = append(categories, garment.Category)
	}
	noun := "garments"
	if len(order.Garments) == 1 {
		noun = "garment"
	}
	return fmt.Sprintf("%d %s (%s), total %d", len(order.Garments), noun, strings.Join(categories, ", "), order.Total)
}

func trimCustomer(customer domain.Customer) domain.Customer {
	customer.FullName = strings.TrimSpace(customer.FullName)
	customer.ContactNumber = strings.TrimSpace(customer.ContactNumber)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.FullAddress = strings.TrimSpace(customer.FullAddress)
	return customer
}

func cloneGarments(garments []domain.Garment) []domain.Garment {
	cloned := make([]domain.Garment, len(garments))
	for i, garment := range garments {
		cloned[i] = garment
		if garment.Measurements != nil {
			cloned[i].Measurements = maps.Clone(garment.Measurements)
		}
		cloned[i].Designs = make([]domain.DesignRecord, len(garment.Designs))
		for j, design := range garment.Designs {
			cloned[i].Designs[j] = design
			cloned[i].Designs[j].ReferenceImages = slices.Clone(design.ReferenceImages)
			cloned[i].Designs[j].FabricImages = slices.Clone(design.FabricImages)
		}
		if garment.Drawing != nil {
			drawing := *garment.Drawing
			cloned[i].Drawing = &drawing
		}
	}
	return cloned
}
