// Package snapshot persists the order-intake wizard state to a single
// durable slot so a reload resumes exactly where the user left off.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/darzi-studio/api/internal/domain"
)

// Snapshot is the full serialized wizard state: the accumulated order,
// the current step, and every in-progress builder selection.
type Snapshot struct {
	Step         int              `json:"step"`
	Customer     domain.Customer  `json:"customerData"`
	Garments     []domain.Garment `json:"garments"`
	EditingIndex *int             `json:"editingIndex,omitempty"`

	ShowGarmentForm  bool                   `json:"showGarmentForm"`
	SelectedCategory string                 `json:"garmentType,omitempty"`
	SelectedVariant  string                 `json:"selectedVariant,omitempty"`
	Unit             domain.MeasurementUnit `json:"unit,omitempty"`
	Quantity         int                    `json:"quantity,omitempty"`
	Measurements     domain.MeasurementSet  `json:"measurements,omitempty"`
	Designs          []domain.DesignRecord  `json:"designs,omitempty"`
	Drawing          *domain.Drawing        `json:"drawing,omitempty"`

	Delivery *domain.Delivery `json:"deliveryData,omitempty"`

	SubmissionKey  string        `json:"submissionKey,omitempty"`
	OrderID        string        `json:"orderOid,omitempty"`
	OrderDate      time.Time     `json:"-"`
	SubmittedOrder *domain.Order `json:"-"`

	SavedAt time.Time `json:"-"`
}

// Repository is the explicit snapshot store handed to the wizard: one
// named slot, best-effort durability. Load returns ok=false when no
// usable snapshot exists; corrupt records count as absent, not as errors.
type Repository interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// wireSnapshot is the stored JSON shape. Dates travel as RFC3339 strings
// and sections that fail to parse are dropped individually so one bad
// field never loses the whole draft.
type wireSnapshot struct {
	Snapshot
	WireDelivery       json.RawMessage `json:"deliveryData,omitempty"`
	WireOrderDate      string          `json:"orderDate,omitempty"`
	WireSubmittedOrder json.RawMessage `json:"submittedOrder,omitempty"`
	WireSavedAt        string          `json:"savedAt,omitempty"`
}

type wireDelivery struct {
	DeliveryDate        string               `json:"deliveryDate,omitempty"`
	Urgency             domain.Urgency       `json:"urgency,omitempty"`
	Payment             domain.PaymentMethod `json:"payment,omitempty"`
	AdvanceAmount       int64                `json:"advanceAmount,omitempty"`
	SpecialInstructions string               `json:"specialInstructions,omitempty"`
}

// Encode serializes the snapshot for storage.
func Encode(snap Snapshot) ([]byte, error) {
	wire := wireSnapshot{Snapshot: snap}
	wire.Delivery = nil

	if snap.Delivery != nil {
		wd := wireDelivery{
			Urgency:             snap.Delivery.Urgency,
			Payment:             snap.Delivery.Payment,
			AdvanceAmount:       snap.Delivery.AdvanceAmount,
			SpecialInstructions: snap.Delivery.SpecialInstructions,
		}
		if !snap.Delivery.DeliveryDate.IsZero() {
			wd.DeliveryDate = snap.Delivery.DeliveryDate.UTC().Format(time.RFC3339)
		}
		raw, err := json.Marshal(wd)
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode delivery: %w", err)
		}
		wire.WireDelivery = raw
	}
	if !snap.OrderDate.IsZero() {
		wire.WireOrderDate = snap.OrderDate.UTC().Format(time.RFC3339)
	}
	if snap.SubmittedOrder != nil {
		raw, err := json.Marshal(snap.SubmittedOrder)
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode submitted order: %w", err)
		}
		wire.WireSubmittedOrder = raw
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	wire.WireSavedAt = savedAt.UTC().Format(time.RFC3339)

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a stored snapshot. Unparseable dates are treated as
// unset and an undecodable submitted-order section is dropped; only a
// record that fails to parse at the top level is rejected.
func Decode(data []byte) (Snapshot, error) {
	var wire wireSnapshot
	if err := json.Unmarshal(data, &wire); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}

	snap := wire.Snapshot
	snap.Delivery = nil
	snap.OrderDate = parseTime(wire.WireOrderDate)
	snap.SavedAt = parseTime(wire.WireSavedAt)

	if len(wire.WireDelivery) > 0 {
		var wd wireDelivery
		if err := json.Unmarshal(wire.WireDelivery, &wd); err == nil {
			snap.Delivery = &domain.Delivery{
				DeliveryDate:        parseTime(wd.DeliveryDate),
				Urgency:             wd.Urgency,
				Payment:             wd.Payment,
				AdvanceAmount:       wd.AdvanceAmount,
				SpecialInstructions: wd.SpecialInstructions,
			}
		}
	}
	if len(wire.WireSubmittedOrder) > 0 {
		var order domain.Order
		if err := json.Unmarshal(wire.WireSubmittedOrder, &order); err == nil {
			snap.SubmittedOrder = &order
		}
	}
	return snap, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
