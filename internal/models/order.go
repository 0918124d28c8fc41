package models

import (
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/availability"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusDeclined  OrderStatus = "DECLINED"
)

// IsTerminal reports whether no further transition is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// RefundStatus records what happened to the money of a declined order
type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundSkipped   RefundStatus = "skipped"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

// DishSnapshot is the dish as it was when the order was placed.
// It is never resolved back to the live catalog entry.
type DishSnapshot struct {
	DishID      string          `json:"dishId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CatererID   string          `json:"catererId"`
	CatererName string          `json:"catererName"`
}

// CreateOrderRequest represents an incoming order request
type CreateOrderRequest struct {
	DishID      string `json:"dishId"`
	Quantity    int    `json:"quantity"`
	Pickup      string `json:"pickup"`
	CardToken   string `json:"cardToken"`
	VoucherCode string `json:"voucherCode,omitempty"`
}

// UpdateOrderRequest carries the fields a pending order may change
type UpdateOrderRequest struct {
	Pickup   *string `json:"pickup,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

// Order represents a placed order
type Order struct {
	ID           string                     `json:"id"`
	CreatedBy    string                     `json:"createdBy"`
	Dish         DishSnapshot               `json:"dish"`
	Quantity     int                        `json:"quantity"`
	Amount       int64                      `json:"amount"`
	Currency     string                     `json:"currency"`
	Pickup       availability.PickupRequest `json:"pickup"`
	CardToken    string                     `json:"-"`
	ChargeID     *string                    `json:"chargeId"`
	Paid         bool                       `json:"paid"`
	Status       OrderStatus                `json:"status"`
	RefundStatus RefundStatus               `json:"refundStatus"`
	VoucherCode  string                     `json:"voucherCode,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
}

// OrderChanges lists the columns a conditional update sets; nil fields are left alone
type OrderChanges struct {
	Status       *OrderStatus
	ChargeID     *string
	Paid         *bool
	Quantity     *int
	Amount       *int64
	Pickup       *availability.PickupRequest
	RefundStatus *RefundStatus
}

// IsEmpty reports whether the changes would not touch any column
func (c OrderChanges) IsEmpty() bool {
	return c.Status == nil && c.ChargeID == nil && c.Paid == nil && c.Quantity == nil &&
		c.Amount == nil && c.Pickup == nil && c.RefundStatus == nil
}

// Apply writes the non-nil changes onto o
func (c OrderChanges) Apply(o *Order, now time.Time) {
	if c.Status != nil {
		o.Status = *c.Status
	}
	if c.ChargeID != nil {
		id := *c.ChargeID
		o.ChargeID = &id
	}
	if c.Paid != nil {
		o.Paid = *c.Paid
	}
	if c.Quantity != nil {
		o.Quantity = *c.Quantity
	}
	if c.Amount != nil {
		o.Amount = *c.Amount
	}
	if c.Pickup != nil {
		o.Pickup = *c.Pickup
	}
	if c.RefundStatus != nil {
		o.RefundStatus = *c.RefundStatus
	}
	o.UpdatedAt = now
}

// ExecuteResult is returned when a caterer confirms or declines an order
type ExecuteResult struct {
	Order  *Order        `json:"order"`
	Refund RefundOutcome `json:"refund"`
}

// RefundOutcome reports the refund attempt made while declining an order
type RefundOutcome struct {
	Attempted bool         `json:"attempted"`
	Status    RefundStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
}
