package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Card tokens with a special meaning for the sandbox gateway
const (
	SandboxDeclinedToken    = "tok_chargeDeclined"
	SandboxUnavailableToken = "tok_gatewayUnavailable"
)

type sandboxCharge struct {
	amount   int64
	currency string
	refunded bool
}

// SandboxGateway is an in-process processor used for local runs and tests
type SandboxGateway struct {
	mu          sync.Mutex
	charges     map[string]*sandboxCharge
	idempotency map[string]string
	failRefunds bool
	chargeCalls int
	refundCalls int
}

// NewSandboxGateway creates an empty sandbox processor
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		charges:     make(map[string]*sandboxCharge),
		idempotency: make(map[string]string),
	}
}

// SetFailRefunds makes every subsequent refund fail as unavailable
func (g *SandboxGateway) SetFailRefunds(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failRefunds = fail
}

// Charge captures the amount unless the card token asks for a failure
func (g *SandboxGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: GatewayUnavailable, Message: "request cancelled", Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++

	if req.Amount <= 0 || strings.TrimSpace(req.Currency) == "" || strings.TrimSpace(req.CardToken) == "" {
		return nil, &Error{Kind: InvalidRequest, Message: "amount, currency and card token are required"}
	}
	switch req.CardToken {
	case SandboxDeclinedToken:
		return nil, &Error{Kind: Declined, Message: "your card was declined"}
	case SandboxUnavailableToken:
		return nil, &Error{Kind: GatewayUnavailable, Message: "processor did not respond"}
	}

	if req.IdempotencyKey != "" {
		if id, ok := g.idempotency[req.IdempotencyKey]; ok {
			return &Charge{ID: id, Paid: true}, nil
		}
	}

	id := "ch_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.charges[id] = &sandboxCharge{amount: req.Amount, currency: req.Currency}
	if req.IdempotencyKey != "" {
		g.idempotency[req.IdempotencyKey] = id
	}
	return &Charge{ID: id, Paid: true}, nil
}

// Refund returns the full amount of a charge
func (g *SandboxGateway) Refund(ctx context.Context, chargeID string) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: GatewayUnavailable, Message: "request cancelled", Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++

	if g.failRefunds {
		return nil, &Error{Kind: GatewayUnavailable, Message: "processor did not respond"}
	}
	charge, ok := g.charges[chargeID]
	if !ok {
		return nil, &Error{Kind: InvalidRequest, Message: "no such charge: " + chargeID}
	}
	if charge.refunded {
		return nil, &Error{Kind: InvalidRequest, Message: "charge already refunded"}
	}
	charge.refunded = true
	return &Refund{ID: "re_" + strings.TrimPrefix(chargeID, "ch_"), Refunded: true}, nil
}

// Calls returns how many charge and refund requests reached the sandbox
func (g *SandboxGateway) Calls() (charges, refunds int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chargeCalls, g.refundCalls
}

// IsRefunded reports whether chargeID has been refunded
func (g *SandboxGateway) IsRefunded(chargeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	charge, ok := g.charges[chargeID]
	return ok && charge.refunded
}
