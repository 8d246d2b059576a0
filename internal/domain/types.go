package domain

import (
	"time"
)

// MeasurementUnit is the unit shared by every measurement value within one garment.
type MeasurementUnit string

const (
	// UnitInches records measurements in inches.
	UnitInches MeasurementUnit = "in"
	// UnitCentimeters records measurements in centimeters.
	UnitCentimeters MeasurementUnit = "cm"
)

// Valid reports whether the unit is one of the supported measurement units.
func (u MeasurementUnit) Valid() bool {
	return u == UnitInches || u == UnitCentimeters
}

// Customer captures the contact details entered on the first wizard step.
type Customer struct {
	FullName      string `json:"fullName"`
	ContactNumber string `json:"contactNumber"`
	WhatsAppSame  bool   `json:"whatsAppSame"`
	Email         string `json:"email,omitempty"`
	FullAddress   string `json:"fullAddress"`
}

// MeasurementSet maps a measurement field key to its numeric value.
// Which keys are meaningful is decided by the catalog for the chosen
// category and variant; all values share the garment's unit.
type MeasurementSet map[string]float64

// DesignRecord describes one garment unit: its name, price, description,
// reference/fabric imagery and an optional freehand sketch.
type DesignRecord struct {
	Key             string     `json:"key"`
	Name            string     `json:"name"`
	Amount          int64      `json:"amount"`
	Description     string     `json:"designDescription,omitempty"`
	ReferenceImages []ImageRef `json:"referenceImages,omitempty"`
	FabricImages    []ImageRef `json:"fabricImages,omitempty"`
}

const (
	// MaxReferenceImages caps reference images per design record.
	MaxReferenceImages = 5
	// MaxFabricImages caps fabric images per design record.
	MaxFabricImages = 3
)

// Drawing holds the freehand sketch attached to a garment: the rendered
// raster plus the editable vector form the sketch tool can reopen.
type Drawing struct {
	Raster ImageRef `json:"raster"`
	Vector string   `json:"vector,omitempty"`
}

// Garment is one committed entry in the order: a category/variant choice,
// its measurements and exactly Quantity design records.
type Garment struct {
	Key          string          `json:"key"`
	Category     string          `json:"orderType"`
	Variant      string          `json:"variant"`
	Quantity     int             `json:"quantity"`
	Unit         MeasurementUnit `json:"unit"`
	Measurements MeasurementSet  `json:"measurements,omitempty"`
	Designs      []DesignRecord  `json:"designs"`
	Drawing      *Drawing        `json:"drawing,omitempty"`
}

const (
	// MinGarmentQuantity is the smallest accepted per-garment quantity.
	MinGarmentQuantity = 1
	// MaxGarmentQuantity is the largest accepted per-garment quantity.
	MaxGarmentQuantity = 10
)

// Total sums the design amounts for this garment.
func (g Garment) Total() int64 {
	var total int64
	for _, d := range g.Designs {
		if d.Amount > 0 {
			total += d.Amount
		}
	}
	return total
}

// Urgency enumerates delivery urgency tiers.
type Urgency string

const (
	UrgencyRegular  Urgency = "regular"
	UrgencyPriority Urgency = "priority"
	UrgencyExpress  Urgency = "express"
)

// PaymentMethod enumerates how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentDigital PaymentMethod = "digital"
	PaymentBank    PaymentMethod = "bank"
	PaymentAdvance PaymentMethod = "advance"
)

// Delivery captures the delivery and payment preferences from step three.
type Delivery struct {
	DeliveryDate        time.Time     `json:"deliveryDate"`
	Urgency             Urgency       `json:"urgency,omitempty"`
	Payment             PaymentMethod `json:"payment"`
	AdvanceAmount       int64         `json:"advanceAmount,omitempty"`
	SpecialInstructions string        `json:"specialInstructions,omitempty"`
}

// MinDeliveryLead is the earliest allowed delivery date relative to now.
const MinDeliveryLead = 72 * time.Hour

// OrderStatus tracks the fulfilment lifecycle of a stored order.
type OrderStatus string

const (
	StatusReceived   OrderStatus = "received"
	StatusInProgress OrderStatus = "in_progress"
	StatusReady      OrderStatus = "ready"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusInProgress, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is the persisted, normalized order document the backend echoes
// after a successful submission. Attachment references inside it have
// been resolved to retrievable URLs.
type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status,omitempty"`
	Customer    Customer    `json:"customer"`
	Garments    []Garment   `json:"garments"`
	Delivery    Delivery    `json:"delivery"`
	Total       int64       `json:"total"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// OrderTotal sums the garment totals for a whole order.
func OrderTotal(garments []Garment) int64 {
	var total int64
	for _, g := range garments {
		total += g.Total()
	}
	return total
}

// InvoiceKind selects which of the two invoice layouts to produce.
type InvoiceKind string

const (
	// InvoiceCustomer is the customer-facing invoice document.
	InvoiceCustomer InvoiceKind = "customer"
	// InvoiceTailor is the workshop copy with measurement detail.
	InvoiceTailor InvoiceKind = "tailor"
)

// Valid reports whether the kind is one of the two supported layouts.
func (k InvoiceKind) Valid() bool {
	return k == InvoiceCustomer || k == InvoiceTailor
}

// InvoiceDocument is a generated invoice held inline with its media type.
type InvoiceDocument struct {
	OrderID     string      `json:"orderId"`
	Kind        InvoiceKind `json:"kind"`
	ContentType string      `json:"contentType"`
	Body        []byte      `json:"-"`
	GeneratedAt time.Time   `json:"generatedAt"`
}
