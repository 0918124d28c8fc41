package payment

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why the processor rejected an operation
type FailureKind string

const (
	Declined           FailureKind = "declined"
	GatewayUnavailable FailureKind = "gateway_unavailable"
	InvalidRequest     FailureKind = "invalid_request"
)

// Error is returned by every Gateway implementation
type Error struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment %s", e.Kind)
	}
	return fmt.Sprintf("payment %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, defaulting to GatewayUnavailable
func KindOf(err error) FailureKind {
	var payErr *Error
	if errors.As(err, &payErr) {
		return payErr.Kind
	}
	return GatewayUnavailable
}

// ChargeRequest carries everything needed for a single charge
type ChargeRequest struct {
	CardToken string
	Amount    int64 // minor currency units
	Currency  string
	// IdempotencyKey lets the processor collapse duplicate submissions
	IdempotencyKey string
	Description    string
}

// Charge is a captured payment
type Charge struct {
	ID   string
	Paid bool
}

// Refund is the processor's answer to a refund request
type Refund struct {
	ID       string
	Refunded bool
}

// Gateway is the payment processor used by the order service.
// Implementations must not retry charges on their own.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, chargeID string) (*Refund, error)
}
