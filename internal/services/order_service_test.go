package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/platform/storage"
	"github.com/darzi-studio/api/internal/repositories"
)

type stubOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	insertErr error
	updateErr error
	listPage  repositories.OrderPage
	listErr   error
	lastList  repositories.OrderListFilter
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *stubOrderRepo) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.orders[order.ID]; ok {
		return stubRepoError{conflict: true}
	}
	r.orders[order.ID] = order
	return nil
}

func (r *stubOrderRepo) Update(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.orders[order.ID]; !ok {
		return stubRepoError{notFound: true}
	}
	r.orders[order.ID] = order
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, stubRepoError{notFound: true}
	}
	return order, nil
}

func (r *stubOrderRepo) List(_ context.Context, filter repositories.OrderListFilter) (repositories.OrderPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = filter
	if r.listErr != nil {
		return repositories.OrderPage{}, r.listErr
	}
	return r.listPage, nil
}

type stubRepoError struct {
	notFound bool
	conflict bool
}

func (e stubRepoError) Error() string       { return "stub repository error" }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return false }

type stubCounterRepo struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newStubCounterRepo() *stubCounterRepo {
	return &stubCounterRepo{values: make(map[string]int64)}
}

func (r *stubCounterRepo) Next(_ context.Context, counterID string, step int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.values[counterID] += step
	return r.values[counterID], nil
}

func (r *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (r *eventRecorder) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) recorded() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderEvent(nil), r.events...)
}

type orderServiceFixture struct {
	service  OrderService
	orders   *stubOrderRepo
	counters *stubCounterRepo
	blobs    *storage.MemoryStore
	events   *eventRecorder
}

func newOrderServiceFixture(t *testing.T, mutate func(*OrderServiceDeps)) orderServiceFixture {
	t.Helper()

	fixture := orderServiceFixture{
		orders:   newStubOrderRepo(),
		counters: newStubCounterRepo(),
		blobs:    storage.NewMemoryStore(),
		events:   &eventRecorder{},
	}

	var sequence int
	deps := OrderServiceDeps{
		Orders:            fixture.orders,
		Counters:          fixture.counters,
		Attachments:       fixture.blobs,
		AttachmentsBucket: "darzi-order-uploads",
		Clock: func() time.Time {
			return time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
		},
		IDGenerator: func() string {
			sequence++
			return fmt.Sprintf("TEST%022d", sequence)
		},
		Events: fixture.events,
	}
	if mutate != nil {
		mutate(&deps)
	}

	service, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}
	fixture.service = service
	return fixture
}

func validSubmission() SubmitOrderCommand {
	return SubmitOrderCommand{
		Customer: domain.Customer{
			FullName:      "Meera Joshi",
			ContactNumber: "+91 98200 11223",
			FullAddress:   "14 Hill Road, Bandra West, Mumbai",
		},
		Garments: []domain.Garment{
			{
				Key:      "g1",
				Category: "blouse",
				Variant:  "princess_cut",
				Quantity: 2,
				Unit:     domain.UnitInches,
				Measurements: domain.MeasurementSet{
					"bust":  36,
					"waist": 30,
				},
				Designs: []domain.DesignRecord{
					{Key: "d1", Name: "Sleeveless", Amount: 1200},
					{Key: "d2", Name: "Elbow sleeve", Amount: 1400},
				},
			},
		},
		Delivery: domain.Delivery{
			DeliveryDate:  time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC),
			Urgency:       domain.UrgencyRegular,
			Payment:       domain.PaymentCash,
		},
	}
}

func TestOrderServiceSubmitPersistsAndNumbersOrder(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if !strings.HasPrefix(order.ID, "ord_") {
		t.Errorf("order ID %q missing ord_ prefix", order.ID)
	}
	if order.OrderNumber != "DRZ-2026-0001" {
		t.Errorf("order number = %q, want DRZ-2026-0001", order.OrderNumber)
	}
	if order.Status != domain.StatusReceived {
		t.Errorf("status = %q, want %q", order.Status, domain.StatusReceived)
	}
	if order.Total != 2600 {
		t.Errorf("total = %d, want 2600", order.Total)
	}

	stored, err := fixture.orders.FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("stored order lookup failed: %v", err)
	}
	if stored.OrderNumber != order.OrderNumber {
		t.Errorf("stored order number = %q, want %q", stored.OrderNumber, order.OrderNumber)
	}

	events := fixture.events.recorded()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	if events[0].Type != "order.received" {
		t.Errorf("event type = %q, want order.received", events[0].Type)
	}
	if events[0].Total != 2600 {
		t.Errorf("event total = %d, want 2600", events[0].Total)
	}
	if events[0].CustomerName != "Meera Joshi" {
		t.Errorf("event customer name = %q, want Meera Joshi", events[0].CustomerName)
	}
	if events[0].CustomerPhone != "+91 98200 11223" {
		t.Errorf("event customer phone = %q", events[0].CustomerPhone)
	}
	if events[0].Summary != "1 garment (blouse), total 2600" {
		t.Errorf("event summary = %q", events[0].Summary)
	}
	if events[0].OccurredAt.IsZero() {
		t.Error("event occurredAt is zero")
	}
}

func TestOrderServiceSubmitOrderNumberSequencesPerYear(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	for want := 1; want <= 3; want++ {
		order, err := fixture.service.Submit(context.Background(), validSubmission())
		if err != nil {
			t.Fatalf("Submit %d returned error: %v", want, err)
		}
		expected := fmt.Sprintf("DRZ-2026-%04d", want)
		if order.OrderNumber != expected {
			t.Errorf("order number = %q, want %q", order.OrderNumber, expected)
		}
	}
}

func TestOrderServiceSubmitUploadsAttachmentsAndRewritesRefs(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	cmd := validSubmission()
	cmd.Attachments = []AttachmentUpload{
		{
			Slot:         SlotDrawing,
			GarmentIndex: 0,
			FileName:     "sketch.png",
			ContentType:  "image/png",
			Data:         []byte{0x89, 0x50, 0x4e, 0x47},
		},
		{
			Slot:         SlotReference,
			GarmentIndex: 0,
			DesignIndex:  1,
			FileIndex:    0,
			FileName:     "inspiration.jpg",
			ContentType:  "image/jpeg",
			Data:         []byte{0xff, 0xd8, 0xff},
		},
		{
			Slot:         SlotFabric,
			GarmentIndex: 0,
			DesignIndex:  0,
			FileIndex:    0,
			FileName:     "silk.jpg",
			ContentType:  "image/jpeg",
			Data:         []byte{0xff, 0xd8, 0xfe},
		},
	}

	order, err := fixture.service.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	garment := order.Garments[0]
	if garment.Drawing == nil {
		t.Fatal("drawing reference was not attached")
	}
	if garment.Drawing.Raster.State != domain.ImageRemote {
		t.Errorf("drawing state = %q, want remote", garment.Drawing.Raster.State)
	}
	wantDrawing := fmt.Sprintf("orders/%s/garments/0/drawing/sketch.png", order.ID)
	if !strings.HasSuffix(garment.Drawing.Raster.URL, wantDrawing) {
		t.Errorf("drawing URL = %q, want suffix %q", garment.Drawing.Raster.URL, wantDrawing)
	}

	refs := garment.Designs[1].ReferenceImages
	if len(refs) != 1 {
		t.Fatalf("design 1 has %d reference images, want 1", len(refs))
	}
	wantRef := fmt.Sprintf("orders/%s/garments/0/designs/1/reference/00_inspiration.jpg", order.ID)
	if !strings.HasSuffix(refs[0].URL, wantRef) {
		t.Errorf("reference URL = %q, want suffix %q", refs[0].URL, wantRef)
	}

	fabrics := garment.Designs[0].FabricImages
	if len(fabrics) != 1 {
		t.Fatalf("design 0 has %d fabric images, want 1", len(fabrics))
	}

	stored, err := fixture.blobs.Read(context.Background(), "darzi-order-uploads", wantDrawing)
	if err != nil {
		t.Fatalf("uploaded drawing missing from store: %v", err)
	}
	if stored.ContentType != "image/png" {
		t.Errorf("stored content type = %q, want image/png", stored.ContentType)
	}
}

type stubSigner struct {
	objects []string
}

func (s *stubSigner) SignedURL(_ context.Context, bucket, object string, _ storage.SignedURLOptions) (storage.SignedURLResult, error) {
	s.objects = append(s.objects, object)
	return storage.SignedURLResult{
		URL:       fmt.Sprintf("https://signed.example/%s/%s", bucket, object),
		Method:    http.MethodGet,
		ExpiresAt: time.Date(2026, time.March, 10, 9, 40, 0, 0, time.UTC),
	}, nil
}

func submissionWithAttachments() SubmitOrderCommand {
	cmd := validSubmission()
	cmd.Attachments = []AttachmentUpload{
		{
			Slot:         SlotDrawing,
			GarmentIndex: 0,
			FileName:     "sketch.png",
			ContentType:  "image/png",
			Data:         []byte{0x89, 0x50, 0x4e, 0x47},
		},
		{
			Slot:         SlotReference,
			GarmentIndex: 0,
			DesignIndex:  1,
			FileIndex:    0,
			FileName:     "inspiration.jpg",
			ContentType:  "image/jpeg",
			Data:         []byte{0xff, 0xd8, 0xff},
		},
	}
	return cmd
}

func TestOrderServiceAttachmentLinksSignsStoredObjects(t *testing.T) {
	signer := &stubSigner{}
	fixture := newOrderServiceFixture(t, func(deps *OrderServiceDeps) {
		deps.SignedURLs = signer
	})

	order, err := fixture.service.Submit(context.Background(), submissionWithAttachments())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	links, err := fixture.service.AttachmentLinks(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("AttachmentLinks returned error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	drawing := links[0]
	if drawing.Slot != SlotDrawing || drawing.FileName != "sketch.png" {
		t.Errorf("unexpected first link: %+v", drawing)
	}
	wantObject := fmt.Sprintf("orders/%s/garments/0/drawing/sketch.png", order.ID)
	if drawing.URL != "https://signed.example/darzi-order-uploads/"+wantObject {
		t.Errorf("drawing URL = %q", drawing.URL)
	}
	if drawing.ExpiresAt == nil {
		t.Error("drawing link has no expiry")
	}

	ref := links[1]
	if ref.Slot != SlotReference || ref.DesignIndex != 1 {
		t.Errorf("unexpected second link: %+v", ref)
	}
	if len(signer.objects) != 2 {
		t.Errorf("signer called for %d objects, want 2", len(signer.objects))
	}
}

func TestOrderServiceAttachmentLinksWithoutSigner(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), submissionWithAttachments())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	links, err := fixture.service.AttachmentLinks(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("AttachmentLinks returned error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	for _, link := range links {
		if link.ExpiresAt != nil {
			t.Errorf("link %s/%s has expiry without a signer", link.Slot, link.FileName)
		}
		if link.URL == "" {
			t.Errorf("link %s/%s has no URL", link.Slot, link.FileName)
		}
	}
}

func TestOrderServiceAttachmentLinksNotFound(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	_, err := fixture.service.AttachmentLinks(context.Background(), "ord_missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceSubmitDiscardsUploadsWhenInsertFails(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)
	fixture.orders.insertErr = stubRepoError{conflict: true}

	cmd := validSubmission()
	cmd.Attachments = []AttachmentUpload{
		{
			Slot:         SlotDrawing,
			GarmentIndex: 0,
			FileName:     "sketch.png",
			ContentType:  "image/png",
			Data:         []byte{0x01},
		},
	}

	_, err := fixture.service.Submit(context.Background(), cmd)
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("Submit error = %v, want ErrOrderConflict", err)
	}
	if fixture.blobs.Len() != 0 {
		t.Errorf("store retained %d objects after failed insert, want 0", fixture.blobs.Len())
	}
}

func TestOrderServiceSubmitValidation(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	cases := []struct {
		name   string
		mutate func(*SubmitOrderCommand)
	}{
		{
			name:   "missing customer name",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Customer.FullName = "  " },
		},
		{
			name:   "missing contact number",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Customer.ContactNumber = "" },
		},
		{
			name:   "missing address",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Customer.FullAddress = "" },
		},
		{
			name:   "no garments",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Garments = nil },
		},
		{
			name:   "quantity design mismatch",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Garments[0].Quantity = 3 },
		},
		{
			name:   "unknown unit",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Garments[0].Unit = "furlongs" },
		},
		{
			name:   "zero design amount",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Garments[0].Designs[0].Amount = 0 },
		},
		{
			name:   "missing delivery date",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Delivery.DeliveryDate = time.Time{} },
		},
		{
			name:   "unknown payment method",
			mutate: func(cmd *SubmitOrderCommand) { cmd.Delivery.Payment = "barter" },
		},
		{
			name: "negative advance amount",
			mutate: func(cmd *SubmitOrderCommand) {
				cmd.Delivery.Payment = domain.PaymentAdvance
				cmd.Delivery.AdvanceAmount = -100
			},
		},
		{
			name: "advance amount above order total",
			mutate: func(cmd *SubmitOrderCommand) {
				cmd.Delivery.Payment = domain.PaymentAdvance
				cmd.Delivery.AdvanceAmount = 2601
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validSubmission()
			tc.mutate(&cmd)
			if _, err := fixture.service.Submit(context.Background(), cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Errorf("Submit error = %v, want ErrOrderInvalidInput", err)
			}
		})
	}
}

func TestOrderServiceSubmitAcceptsZeroAdvance(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	cmd := validSubmission()
	cmd.Delivery.Payment = domain.PaymentAdvance
	cmd.Delivery.AdvanceAmount = 0

	if _, err := fixture.service.Submit(context.Background(), cmd); err != nil {
		t.Fatalf("Submit with zero advance returned error: %v", err)
	}
}

func TestOrderServiceGetMapsNotFound(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	if _, err := fixture.service.Get(context.Background(), "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Get error = %v, want ErrOrderNotFound", err)
	}
	if _, err := fixture.service.Get(context.Background(), "  "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Errorf("Get with blank id error = %v, want ErrOrderInvalidInput", err)
	}
}

func TestOrderServiceListForwardsFilterAndToken(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)
	fixture.orders.listPage = repositories.OrderPage{
		Orders:        []domain.Order{{ID: "ord_a"}, {ID: "ord_b"}},
		NextPageToken: "tok123",
	}

	result, err := fixture.service.List(context.Background(), OrderListQuery{
		Status: []domain.OrderStatus{domain.StatusReceived},
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Errorf("listed %d orders, want 2", len(result.Orders))
	}
	if result.NextPageToken != "tok123" {
		t.Errorf("next page token = %q, want tok123", result.NextPageToken)
	}
	if len(fixture.orders.lastList.Status) != 1 || fixture.orders.lastList.Status[0] != domain.StatusReceived {
		t.Errorf("filter status = %v, want [received]", fixture.orders.lastList.Status)
	}

	if _, err := fixture.service.List(context.Background(), OrderListQuery{
		Status: []domain.OrderStatus{"bogus"},
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Errorf("List with bogus status error = %v, want ErrOrderInvalidInput", err)
	}
}

func TestOrderServiceUpdateStatusFollowsLifecycle(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	for _, target := range []domain.OrderStatus{
		domain.StatusInProgress,
		domain.StatusReady,
		domain.StatusDelivered,
	} {
		order, err = fixture.service.UpdateStatus(context.Background(), OrderStatusCommand{
			OrderID: order.ID,
			Target:  target,
		})
		if err != nil {
			t.Fatalf("UpdateStatus to %s returned error: %v", target, err)
		}
		if order.Status != target {
			t.Errorf("status = %q, want %q", order.Status, target)
		}
	}

	if _, err := fixture.service.UpdateStatus(context.Background(), OrderStatusCommand{
		OrderID: order.ID,
		Target:  domain.StatusReceived,
	}); !errors.Is(err, ErrOrderInvalidState) {
		t.Errorf("backwards transition error = %v, want ErrOrderInvalidState", err)
	}

	events := fixture.events.recorded()
	// one received event plus three status changes
	if len(events) != 4 {
		t.Fatalf("published %d events, want 4", len(events))
	}
	last := events[len(events)-1]
	if last.Type != "order.status.changed" {
		t.Errorf("last event type = %q, want order.status.changed", last.Type)
	}
	if last.PreviousStatus != domain.StatusReady || last.CurrentStatus != domain.StatusDelivered {
		t.Errorf("last transition = %s to %s, want ready to delivered", last.PreviousStatus, last.CurrentStatus)
	}
}

func TestOrderServiceUpdateStatusRejectsSkippedState(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if _, err := fixture.service.UpdateStatus(context.Background(), OrderStatusCommand{
		OrderID: order.ID,
		Target:  domain.StatusDelivered,
	}); !errors.Is(err, ErrOrderInvalidState) {
		t.Errorf("received to delivered error = %v, want ErrOrderInvalidState", err)
	}
}

func TestOrderServiceCancel(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	cancelled, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{
		OrderID: order.ID,
		Reason:  "customer changed plans",
	})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	events := fixture.events.recorded()
	last := events[len(events)-1]
	if reason, _ := last.Metadata["reason"].(string); reason != "customer changed plans" {
		t.Errorf("cancel event reason = %q, want customer changed plans", reason)
	}

	if _, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderID: order.ID}); !errors.Is(err, ErrOrderInvalidState) {
		t.Errorf("second cancel error = %v, want ErrOrderInvalidState", err)
	}
}

func TestOrderServiceCancelRejectsDelivered(t *testing.T) {
	fixture := newOrderServiceFixture(t, nil)

	order, err := fixture.service.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	order.Status = domain.StatusDelivered
	fixture.orders.orders[order.ID] = order

	if _, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderID: order.ID}); !errors.Is(err, ErrOrderInvalidState) {
		t.Errorf("cancel delivered error = %v, want ErrOrderInvalidState", err)
	}
}

func TestNewOrderServiceValidatesDeps(t *testing.T) {
	base := OrderServiceDeps{
		Orders:            newStubOrderRepo(),
		Counters:          newStubCounterRepo(),
		Attachments:       storage.NewMemoryStore(),
		AttachmentsBucket: "bucket",
	}

	cases := []struct {
		name   string
		mutate func(*OrderServiceDeps)
	}{
		{"missing orders", func(d *OrderServiceDeps) { d.Orders = nil }},
		{"missing counters", func(d *OrderServiceDeps) { d.Counters = nil }},
		{"missing attachments", func(d *OrderServiceDeps) { d.Attachments = nil }},
		{"missing bucket", func(d *OrderServiceDeps) { d.AttachmentsBucket = "  " }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := base
			tc.mutate(&deps)
			if _, err := NewOrderService(deps); err == nil {
				t.Error("NewOrderService accepted invalid deps")
			}
		})
	}
}
