package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/darzi-studio/api/internal/domain"
)

var (
	// ErrCustomerName indicates the customer's full name is missing.
	ErrCustomerName = errors.New("intake: full name is required")
	// ErrCustomerContact indicates the contact number is missing or malformed.
	ErrCustomerContact = errors.New("intake: contact number is required")
	// ErrCustomerAddress indicates the delivery address is missing.
	ErrCustomerAddress = errors.New("intake: full address is required")
	// ErrCustomerEmail indicates a provided email address is malformed.
	ErrCustomerEmail = errors.New("intake: email address is invalid")

	// ErrDeliveryDate indicates the delivery date is unset or too soon.
	ErrDeliveryDate = errors.New("intake: delivery date must be at least 3 days out")
	// ErrDeliveryUrgency indicates an unknown urgency tier.
	ErrDeliveryUrgency = errors.New("intake: unknown urgency")
	// ErrPaymentMethod indicates an unknown payment method.
	ErrPaymentMethod = errors.New("intake: unknown payment method")
	// ErrAdvanceAmount indicates the advance is negative or exceeds the order total.
	ErrAdvanceAmount = errors.New("intake: advance must be between 0 and the order total")
)

// ValidateCustomer checks the step-one fields. Errors are field-specific
// and user-correctable; they never leave the wizard boundary.
func ValidateCustomer(c domain.Customer) error {
	if strings.TrimSpace(c.FullName) == "" {
		return ErrCustomerName
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.ContactNumber)
	if len(digits) < 7 {
		return ErrCustomerContact
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		at := strings.Index(email, "@")
		if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
			return ErrCustomerEmail
		}
	}
	if strings.TrimSpace(c.FullAddress) == "" {
		return ErrCustomerAddress
	}
	return nil
}

// ValidateDelivery checks the step-three fields against the computed
// order total. The advance amount is only constrained when the payment
// method is advance; otherwise it is ignored.
func ValidateDelivery(d domain.Delivery, orderTotal int64, now time.Time) error {
	if d.DeliveryDate.IsZero() || d.DeliveryDate.Before(now.Add(domain.MinDeliveryLead)) {
		return ErrDeliveryDate
	}
	switch d.Urgency {
	case "", domain.UrgencyRegular, domain.UrgencyPriority, domain.UrgencyExpress:
	default:
		return fmt.Errorf("%w %q", ErrDeliveryUrgency, d.Urgency)
	}
	switch d.Payment {
	case domain.PaymentCash, domain.PaymentDigital, domain.PaymentBank:
	case domain.PaymentAdvance:
		if d.AdvanceAmount < 0 || d.AdvanceAmount > orderTotal {
			return ErrAdvanceAmount
		}
	default:
		return fmt.Errorf("%w %q", ErrPaymentMethod, d.Payment)
	}
	return nil
}

// NormalizeDelivery clears fields that are irrelevant for the chosen
// payment method so downstream consumers see canonical data.
func NormalizeDelivery(d domain.Delivery) domain.Delivery {
	if d.Payment != domain.PaymentAdvance {
		d.AdvanceAmount = 0
	}
	d.SpecialInstructions = strings.TrimSpace(d.SpecialInstructions)
	return d
}
