package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/packager"
	"github.com/darzi-studio/api/internal/pipeline"
	"github.com/darzi-studio/api/internal/snapshot"
)

// Step identifies one of the four wizard phases.
type Step int

const (
	// StepCustomerInfo collects the customer's contact details.
	StepCustomerInfo Step = 1
	// StepOrderDetails accumulates garments.
	StepOrderDetails Step = 2
	// StepDeliveryPayment collects delivery and payment preferences.
	StepDeliveryPayment Step = 3
	// StepConfirmation shows the submitted order; terminal once submitted.
	StepConfirmation Step = 4
)

var (
	// ErrWrongStep indicates the operation is not valid at the current step.
	ErrWrongStep = errors.New("intake: operation not allowed at this step")
	// ErrNoGarments indicates the order has no garments yet.
	ErrNoGarments = errors.New("intake: add at least one garment to continue")
	// ErrGarmentIndex indicates a garment index outside the current list.
	ErrGarmentIndex = errors.New("intake: garment index out of range")
	// ErrAlreadySubmitted indicates the order has been submitted and the
	// wizard is terminal until explicitly reset.
	ErrAlreadySubmitted = errors.New("intake: order already submitted")
)

// Submitter performs the actual network submission. Satisfied by
// *pipeline.Pipeline; tests substitute a stub.
type Submitter interface {
	Submit(ctx context.Context, payload packager.Payload, observe pipeline.ProgressFunc) (pipeline.Result, error)
}

// WizardDeps wires the dependencies required by the wizard.
type WizardDeps struct {
	Snapshots snapshot.Repository
	Submitter Submitter
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Wizard is the order-intake state machine: it owns the order aggregate,
// gates step transitions on step-local validation, and re-serializes the
// whole state to the snapshot slot on every mutation.
type Wizard struct {
	snapshots snapshot.Repository
	submitter Submitter
	now       func() time.Time
	logger    *zap.Logger

	step         Step
	customer     domain.Customer
	garments     []domain.Garment
	editingIndex *int

	builder         *Builder
	showGarmentForm bool

	delivery      *domain.Delivery
	submissionKey string
	orderID       string
	orderDate     time.Time
	submitted     *domain.Order
}

// NewWizard constructs a wizard at step one with an empty aggregate.
func NewWizard(deps WizardDeps) (*Wizard, error) {
	if deps.Snapshots == nil {
		return nil, errors.New("intake: snapshot repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		snapshots: deps.Snapshots,
		submitter: deps.Submitter,
		now:       clock,
		logger:    logger,
		step:      StepCustomerInfo,
		builder:   NewBuilder(),
	}, nil
}

// Restore hydrates the wizard from a previously persisted snapshot so a
// reload resumes exactly where the user left off. A missing or corrupt
// snapshot leaves the wizard at its initial state.
func (w *Wizard) Restore(ctx context.Context) error {
	snap, ok, err := w.snapshots.Load(ctx)
	if err != nil {
		w.logger.Warn("snapshot load failed, starting fresh", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	if snap.Step >= int(StepCustomerInfo) && snap.Step <= int(StepConfirmation) {
		w.step = Step(snap.Step)
	}
	w.customer = snap.Customer
	w.garments = snap.Garments
	w.editingIndex = snap.EditingIndex
	w.showGarmentForm = snap.ShowGarmentForm
	w.delivery = snap.Delivery
	w.submissionKey = snap.SubmissionKey
	w.orderID = snap.OrderID
	w.orderDate = snap.OrderDate
	w.submitted = snap.SubmittedOrder

	w.builder = NewBuilder()
	if snap.SelectedCategory != "" {
		w.builder.SelectCategory(snap.SelectedCategory)
	}
	if snap.SelectedVariant != "" {
		w.builder.SelectVariant(snap.SelectedVariant)
	}
	if snap.Unit.Valid() {
		_ = w.builder.SetUnit(snap.Unit)
	}
	if snap.Quantity >= domain.MinGarmentQuantity && snap.Quantity <= domain.MaxGarmentQuantity {
		_ = w.builder.SetQuantity(snap.Quantity)
	}
	for field, value := range snap.Measurements {
		w.builder.SetMeasurement(field, value)
	}
	if len(snap.Designs) > 0 {
		w.builder.designs = cloneDesigns(snap.Designs)
		w.builder.resizeDesigns(w.builder.quantity)
	}
	w.builder.SetDrawing(snap.Drawing)
	if w.editingIndex != nil && *w.editingIndex >= 0 && *w.editingIndex < len(w.garments) {
		w.builder.editKey = w.garments[*w.editingIndex].Key
	}
	return nil
}

// Step returns the current wizard step.
func (w *Wizard) Step() Step { return w.step }

// Customer returns the stored customer details.
func (w *Wizard) Customer() domain.Customer { return w.customer }

// Garments returns a copy of the committed garment list.
func (w *Wizard) Garments() []domain.Garment {
	out := make([]domain.Garment, len(w.garments))
	copy(out, w.garments)
	return out
}

// Delivery returns the stored delivery preferences, if entered.
func (w *Wizard) Delivery() *domain.Delivery { return w.delivery }

// Total returns the current order total across all committed garments.
func (w *Wizard) Total() int64 { return domain.OrderTotal(w.garments) }

// Submitted returns the authoritative server echo once the order has
// been submitted.
func (w *Wizard) Submitted() *domain.Order { return w.submitted }

// OrderID returns the server-issued order identifier, if submitted.
func (w *Wizard) OrderID() string { return w.orderID }

// Builder exposes the garment builder for the in-progress garment form.
func (w *Wizard) Builder() *Builder { return w.builder }

// SubmitCustomerInfo validates step one and advances to order details.
func (w *Wizard) SubmitCustomerInfo(ctx context.Context, customer domain.Customer) error {
	if w.step != StepCustomerInfo {
		return ErrWrongStep
	}
	if err := ValidateCustomer(customer); err != nil {
		return err
	}
	w.customer = customer
	w.step = StepOrderDetails
	w.persist(ctx)
	return nil
}

// Back moves one step backward without validation, preserving all
// accumulated data. Not permitted from step one or after submission.
func (w *Wizard) Back(ctx context.Context) error {
	switch w.step {
	case StepOrderDetails:
		w.step = StepCustomerInfo
	case StepDeliveryPayment:
		w.step = StepOrderDetails
	case StepConfirmation:
		return ErrAlreadySubmitted
	default:
		return ErrWrongStep
	}
	w.persist(ctx)
	return nil
}

// OpenGarmentForm starts a fresh garment in the builder.
func (w *Wizard) OpenGarmentForm(ctx context.Context) error {
	if w.step != StepOrderDetails {
		return ErrWrongStep
	}
	w.builder = NewBuilder()
	w.editingIndex = nil
	w.showGarmentForm = true
	w.persist(ctx)
	return nil
}

// EditGarment rehydrates the builder from the garment at index so the
// next commit replaces it in place.
func (w *Wizard) EditGarment(ctx context.Context, index int) error {
	if w.step != StepOrderDetails {
		return ErrWrongStep
	}
	if index < 0 || index >= len(w.garments) {
		return ErrGarmentIndex
	}
	w.builder = NewBuilder()
	w.builder.LoadForEdit(w.garments[index])
	idx := index
	w.editingIndex = &idx
	w.showGarmentForm = true
	w.persist(ctx)
	return nil
}

// CancelGarmentForm discards the in-progress garment without touching
// the committed list.
func (w *Wizard) CancelGarmentForm(ctx context.Context) {
	w.builder = NewBuilder()
	w.editingIndex = nil
	w.showGarmentForm = false
	w.persist(ctx)
}

// CommitGarment validates the builder and appends the garment, or
// replaces the one being edited. The step does not change. On a
// validation failure nothing moves: the builder keeps its state so the
// user can fix the offending field and retry.
func (w *Wizard) CommitGarment(ctx context.Context) error {
	if w.step != StepOrderDetails {
		return ErrWrongStep
	}
	garment, err := w.builder.Commit()
	if err != nil {
		return err
	}
	if w.editingIndex != nil && *w.editingIndex >= 0 && *w.editingIndex < len(w.garments) {
		w.garments[*w.editingIndex] = garment
	} else {
		w.garments = append(w.garments, garment)
	}
	w.builder = NewBuilder()
	w.editingIndex = nil
	w.showGarmentForm = false
	w.persist(ctx)
	return nil
}

// RemoveGarment deletes the garment at index.
func (w *Wizard) RemoveGarment(ctx context.Context, index int) error {
	if w.step != StepOrderDetails {
		return ErrWrongStep
	}
	if index < 0 || index >= len(w.garments) {
		return ErrGarmentIndex
	}
	w.garments = append(w.garments[:index], w.garments[index+1:]...)
	if w.editingIndex != nil && *w.editingIndex == index {
		w.editingIndex = nil
		w.builder = NewBuilder()
		w.showGarmentForm = false
	}
	w.persist(ctx)
	return nil
}

// ContinueToDelivery advances from order details to delivery & payment.
// Requires at least one committed garment.
func (w *Wizard) ContinueToDelivery(ctx context.Context) error {
	if w.step != StepOrderDetails {
		return ErrWrongStep
	}
	if len(w.garments) == 0 {
		return ErrNoGarments
	}
	w.step = StepDeliveryPayment
	w.persist(ctx)
	return nil
}

// SubmitOrder validates the delivery preferences locally, packages the
// aggregate, and drives the submission pipeline. On success the server
// echo becomes authoritative and the wizard advances to confirmation;
// on any failure the step stays at delivery & payment and no data is
// lost.
func (w *Wizard) SubmitOrder(ctx context.Context, delivery domain.Delivery, observe pipeline.ProgressFunc) error {
	if w.step != StepDeliveryPayment {
		return ErrWrongStep
	}
	if w.submitter == nil {
		return errors.New("intake: submitter is not configured")
	}

	delivery = NormalizeDelivery(delivery)
	if err := ValidateDelivery(delivery, w.Total(), w.now()); err != nil {
		return err
	}
	w.delivery = &delivery
	// The key survives retries of the same submission so the server can
	// replay instead of double-creating the order.
	if w.submissionKey == "" {
		w.submissionKey = uuid.NewString()
	}
	w.persist(ctx)

	payload, report, err := packager.Build(packager.Input{
		Customer: w.customer,
		Garments: w.garments,
		Delivery: delivery,
	})
	if err != nil {
		return fmt.Errorf("intake: package order: %w", err)
	}
	if len(report.DroppedParts) > 0 {
		w.logger.Warn("attachments dropped from submission",
			zap.Strings("parts", report.DroppedParts))
	}
	payload.IdempotencyKey = w.submissionKey

	result, err := w.submitter.Submit(ctx, payload, observe)
	if err != nil {
		return err
	}

	order := result.Order
	w.orderID = result.OrderID
	w.orderDate = result.OrderDate
	w.submitted = &order
	w.garments = order.Garments
	w.customer = order.Customer
	w.delivery = &order.Delivery
	w.step = StepConfirmation
	w.persist(ctx)
	return nil
}

// StartNewOrder resets the wizard to an empty aggregate at step one and
// purges the snapshot slot. This is the only exit from the confirmation
// step.
func (w *Wizard) StartNewOrder(ctx context.Context) {
	w.step = StepCustomerInfo
	w.customer = domain.Customer{}
	w.garments = nil
	w.editingIndex = nil
	w.builder = NewBuilder()
	w.showGarmentForm = false
	w.delivery = nil
	w.submissionKey = ""
	w.orderID = ""
	w.orderDate = time.Time{}
	w.submitted = nil

	if err := w.snapshots.Clear(ctx); err != nil {
		w.logger.Warn("snapshot clear failed", zap.Error(err))
	}
}

// persist re-serializes the full aggregate into the snapshot slot.
// Best-effort: a failed write is logged and never blocks the wizard.
func (w *Wizard) persist(ctx context.Context) {
	snap := snapshot.Snapshot{
		Step:            int(w.step),
		Customer:        w.customer,
		Garments:        w.garments,
		EditingIndex:    w.editingIndex,
		ShowGarmentForm: w.showGarmentForm,
		Delivery:        w.delivery,
		SubmissionKey:   w.submissionKey,
		OrderID:         w.orderID,
		OrderDate:       w.orderDate,
		SubmittedOrder:  w.submitted,
		SavedAt:         w.now(),
	}
	if b := w.builder; b != nil {
		snap.SelectedCategory = b.category
		snap.SelectedVariant = b.variant
		snap.Unit = b.unit
		snap.Quantity = b.quantity
		snap.Measurements = b.measurements
		snap.Designs = b.designs
		snap.Drawing = b.drawing
	}
	if err := w.snapshots.Save(ctx, snap); err != nil {
		w.logger.Warn("snapshot save failed", zap.Error(err))
	}
}
