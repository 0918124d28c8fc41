package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfig configures the Stripe adapter
type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the API endpoint, used against stub servers
	BaseURL string
}

// StripeGateway charges cards through Stripe. It holds its own client
// instance, so several gateways with different keys can coexist.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a Stripe client with network retries disabled
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &StripeGateway{api: api}, nil
}

// Charge creates a captured charge against a card token
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if err := params.SetSource(req.CardToken); err != nil {
		return nil, &Error{Kind: InvalidRequest, Message: "invalid card token", Err: err}
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	ch, err := g.api.Charges.New(params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return &Charge{ID: ch.ID, Paid: ch.Paid}, nil
}

// Refund refunds the full amount of a charge
func (g *StripeGateway) Refund(ctx context.Context, chargeID string) (*Refund, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
	}
	params.Context = ctx

	re, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	refunded := re.Status == stripe.RefundStatusSucceeded || re.Status == stripe.RefundStatusPending
	return &Refund{ID: re.ID, Refunded: refunded}, nil
}

func translateStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &Error{Kind: GatewayUnavailable, Message: err.Error(), Err: err}
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return &Error{Kind: Declined, Message: stripeErr.Msg, Err: err}
	case stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeIdempotency:
		return &Error{Kind: InvalidRequest, Message: stripeErr.Msg, Err: err}
	default:
		return &Error{Kind: GatewayUnavailable, Message: stripeErr.Msg, Err: err}
	}
}
