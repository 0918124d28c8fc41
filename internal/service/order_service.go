package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/availability"
	"github.com/Lixing-Zhang/catering-orders/internal/events"
	"github.com/Lixing-Zhang/catering-orders/internal/metrics"
	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/Lixing-Zhang/catering-orders/internal/payment"
	"github.com/Lixing-Zhang/catering-orders/internal/policy"
	"github.com/Lixing-Zhang/catering-orders/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStore is the order persistence the service needs
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateIfStatus(ctx context.Context, id string, expected models.OrderStatus, changes models.OrderChanges) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CatalogReader resolves the dish and caterer an order is placed against
type CatalogReader interface {
	GetDish(ctx context.Context, id string) (*models.Dish, error)
	GetCaterer(ctx context.Context, id string) (*models.Caterer, error)
}

// CodeCodec derives and checks the code carried by execute links
type CodeCodec interface {
	CreateCode(orderID, cardToken string) string
	Verify(orderID, code, cardToken string) bool
}

// VoucherValidator interface for voucher validation
type VoucherValidator interface {
	IsValid(ctx context.Context, code string) bool
}

// OrderServiceDeps wires the collaborators of an OrderService.
// Vouchers, Publisher, Metrics and Logger are optional.
type OrderServiceDeps struct {
	Orders    OrderStore
	Catalog   CatalogReader
	Gateway   payment.Gateway
	Codec     CodeCodec
	Vouchers  VoucherValidator
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Currency  string
	Now       func() time.Time
}

// OrderService handles the order lifecycle: creation with payment, caterer
// confirmation or decline, and the owner's updates and deletes
type OrderService struct {
	orders    OrderStore
	catalog   CatalogReader
	gateway   payment.Gateway
	codec     CodeCodec
	vouchers  VoucherValidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	currency  string
	now       func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Orders == nil || deps.Catalog == nil || deps.Gateway == nil || deps.Codec == nil {
		return nil, errors.New("order service requires orders, catalog, gateway and codec")
	}
	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		return nil, errors.New("order service requires a currency")
	}

	s := &OrderService{
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		gateway:   deps.Gateway,
		codec:     deps.Codec,
		vouchers:  deps.Vouchers,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		currency:  currency,
		now:       deps.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func authorize(actor policy.Actor, action policy.Action, ownerID string) error {
	decision := policy.Decide(actor, action, ownerID)
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return nil
}

// amountFor converts price * quantity to minor currency units
func amountFor(price decimal.Decimal, quantity int) int64 {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Shift(2).Round(0).IntPart()
}

// Create validates the request against the caterer's hours, persists a pending
// order and, when shouldCharge is set, charges the card exactly once.
func (s *OrderService) Create(ctx context.Context, actor policy.Actor, userID string, req models.CreateOrderRequest, shouldCharge bool) (*models.Order, error) {
	if err := authorize(actor, policy.ActionCreateOrder, userID); err != nil {
		return nil, err
	}

	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if strings.TrimSpace(req.CardToken) == "" {
		return nil, fmt.Errorf("%w: card token is required", ErrValidation)
	}

	dish, err := s.catalog.GetDish(ctx, req.DishID)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	caterer, err := s.catalog.GetCaterer(ctx, dish.CatererID)
	if err != nil {
		return nil, translateCatalogError(err)
	}

	pickup, err := s.checkPickup(req.Pickup, caterer)
	if err != nil {
		return nil, err
	}

	if req.VoucherCode != "" && s.vouchers != nil {
		if !s.vouchers.IsValid(ctx, req.VoucherCode) {
			return nil, fmt.Errorf("%w: voucher code is not valid", ErrValidation)
		}
	}

	amount := amountFor(dish.Price, req.Quantity)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: order amount must be positive", ErrValidation)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:           uuid.New().String(),
		CreatedBy:    userID,
		Dish:         dish.Snapshot(*caterer),
		Quantity:     req.Quantity,
		Amount:       amount,
		Currency:     s.currency,
		Pickup:       pickup,
		CardToken:    req.CardToken,
		Status:       models.StatusPending,
		RefundStatus: models.RefundNone,
		VoucherCode:  req.VoucherCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	if shouldCharge {
		if err := s.charge(ctx, order); err != nil {
			return nil, err
		}
	}

	s.metrics.ObserveOrderCreated(order.Paid)
	s.publish(ctx, events.New(events.TypeOrderCreated, order.ID, userID, map[string]any{
		"code":          s.codec.CreateCode(order.ID, order.CardToken),
		"caterer_id":    caterer.ID,
		"caterer_name":  caterer.Name,
		"caterer_email": caterer.Email,
		"dish_name":     dish.Name,
		"quantity":      order.Quantity,
		"amount":        order.Amount,
		"currency":      order.Currency,
		"pickup":        order.Pickup.String(),
		"paid":          order.Paid,
	}))

	s.log.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"dish_id", dish.ID,
		"amount", order.Amount,
		"paid", order.Paid,
	)
	return order, nil
}

// charge captures the payment for a freshly stored order. On any failure the
// order is removed again so no unpaid record survives a failed charge.
func (s *OrderService) charge(ctx context.Context, order *models.Order) error {
	// Compensation must run even if the caller has gone away
	cleanupCtx := context.WithoutCancel(ctx)

	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		CardToken:      order.CardToken,
		Amount:         order.Amount,
		Currency:       order.Currency,
		IdempotencyKey: order.ID,
		Description:    fmt.Sprintf("%d x %s", order.Quantity, order.Dish.Name),
	})
	if err != nil {
		s.metrics.ObservePaymentFailure("charge", string(payment.KindOf(err)))
		s.log.Warn("charge failed", "order_id", order.ID, "error", err)
		s.discard(cleanupCtx, order.ID)
		return fmt.Errorf("failed to charge order: %w", err)
	}
	if !charge.Paid {
		s.metrics.ObservePaymentFailure("charge", string(payment.Declined))
		s.discard(cleanupCtx, order.ID)
		return fmt.Errorf("failed to charge order: %w", &payment.Error{Kind: payment.Declined, Message: "charge was not captured"})
	}

	changes := models.OrderChanges{ChargeID: &charge.ID, Paid: &charge.Paid}
	matched, err := s.orders.UpdateIfStatus(ctx, order.ID, models.StatusPending, changes)
	if err == nil && !matched {
		err = fmt.Errorf("%w: order changed while the charge was in flight", ErrConflict)
	}
	if err != nil {
		s.log.Error("failed to record charge, refunding", "order_id", order.ID, "charge_id", charge.ID, "error", err)
		if refundErr := s.refundCharge(cleanupCtx, charge.ID); refundErr != nil {
			s.metrics.ObservePaymentFailure("refund", string(payment.KindOf(refundErr)))
			s.log.Error("compensating refund failed", "order_id", order.ID, "charge_id", charge.ID, "error", refundErr)
			s.publish(cleanupCtx, events.New(events.TypePaymentRefundFailed, order.ID, order.CreatedBy, map[string]any{
				"charge_id": charge.ID,
				"error":     refundErr.Error(),
			}))
		}
		s.discard(cleanupCtx, order.ID)
		return fmt.Errorf("failed to record charge: %w", err)
	}

	changes.Apply(order, s.now().UTC())
	return nil
}

// refundCharge treats a refund the processor answered but did not complete as a failure
func (s *OrderService) refundCharge(ctx context.Context, chargeID string) error {
	re, err := s.gateway.Refund(ctx, chargeID)
	if err != nil {
		return err
	}
	if re == nil || !re.Refunded {
		return &payment.Error{Kind: payment.Declined, Message: "refund was not completed"}
	}
	return nil
}

func (s *OrderService) discard(ctx context.Context, orderID string) {
	if _, err := s.orders.Delete(ctx, orderID); err != nil {
		s.log.Error("failed to remove order", "order_id", orderID, "error", err)
	}
}

// Get returns one of the user's orders
func (s *OrderService) Get(ctx context.Context, actor policy.Actor, userID, orderID string) (*models.Order, error) {
	if err := authorize(actor, policy.ActionReadOrder, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, userID, orderID)
}

// List returns the user's orders, newest first
func (s *OrderService) List(ctx context.Context, actor policy.Actor, userID string) ([]models.Order, error) {
	if err := authorize(actor, policy.ActionListOrders, userID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// load reads an order and hides it from anyone but the user who placed it
func (s *OrderService) load(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.CreatedBy != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return order, nil
}

// Execute lets the caterer confirm or decline a pending order. The code is the
// only authorization. Exactly one caller wins the transition; declining a paid
// order refunds it when shouldRefund is set, and the order stays DECLINED even
// if the refund fails.
func (s *OrderService) Execute(ctx context.Context, userID, orderID string, confirm, shouldRefund bool, code string) (*models.ExecuteResult, error) {
	order, err := s.load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if !s.codec.Verify(order.ID, code, order.CardToken) {
		s.metrics.ObserveExecution("invalid_code")
		s.log.Warn("execute rejected: invalid code", "order_id", orderID)
		return nil, ErrInvalidCode
	}

	target := models.StatusDeclined
	if confirm {
		target = models.StatusConfirmed
	}
	transition := models.OrderChanges{Status: &target}
	matched, err := s.orders.UpdateIfStatus(ctx, order.ID, models.StatusPending, transition)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if !matched {
		s.metrics.ObserveExecution("conflict")
		return nil, fmt.Errorf("%w: order %s is no longer pending", ErrConflict, orderID)
	}
	transition.Apply(order, s.now().UTC())

	result := &models.ExecuteResult{Order: order, Refund: models.RefundOutcome{Status: models.RefundNone}}

	if !confirm && order.Paid && order.ChargeID != nil {
		result.Refund = s.refund(ctx, order, shouldRefund)
	}

	// Re-read so the caller sees what the store holds
	if stored, err := s.orders.GetByID(ctx, order.ID); err == nil {
		result.Order = stored
	} else {
		s.log.Warn("failed to re-read executed order", "order_id", order.ID, "error", err)
	}

	eventType := events.TypeOrderDeclined
	if confirm {
		eventType = events.TypeOrderConfirmed
	}
	s.metrics.ObserveExecution(strings.ToLower(string(target)))
	s.publish(ctx, events.New(eventType, order.ID, order.CreatedBy, map[string]any{
		"refund_status": string(result.Refund.Status),
	}))

	s.log.Info("order executed",
		"order_id", order.ID,
		"status", target,
		"refund_status", result.Refund.Status,
	)
	return result, nil
}

// refund settles the money of an order that has just been declined
func (s *OrderService) refund(ctx context.Context, order *models.Order, shouldRefund bool) models.RefundOutcome {
	outcome := models.RefundOutcome{Status: models.RefundSkipped}

	if shouldRefund {
		outcome.Attempted = true
		if err := s.refundCharge(ctx, *order.ChargeID); err != nil {
			outcome.Status = models.RefundFailed
			outcome.Error = err.Error()
			s.metrics.ObservePaymentFailure("refund", string(payment.KindOf(err)))
			s.log.Error("refund failed", "order_id", order.ID, "charge_id", *order.ChargeID, "error", err)
			s.publish(ctx, events.New(events.TypePaymentRefundFailed, order.ID, order.CreatedBy, map[string]any{
				"charge_id": *order.ChargeID,
				"error":     err.Error(),
			}))
		} else {
			outcome.Status = models.RefundSucceeded
			s.publish(ctx, events.New(events.TypePaymentRefunded, order.ID, order.CreatedBy, map[string]any{
				"charge_id": *order.ChargeID,
				"amount":    order.Amount,
				"currency":  order.Currency,
			}))
		}
	}
	s.metrics.ObserveRefund(string(outcome.Status))

	status := outcome.Status
	matched, err := s.orders.UpdateIfStatus(context.WithoutCancel(ctx), order.ID, models.StatusDeclined, models.OrderChanges{RefundStatus: &status})
	if err != nil || !matched {
		s.log.Error("failed to record refund status",
			"order_id", order.ID,
			"refund_status", status,
			"matched", matched,
			"error", err,
		)
	}
	order.RefundStatus = status
	return outcome
}

// Update changes the pickup time or quantity of a pending order
func (s *OrderService) Update(ctx context.Context, actor policy.Actor, userID, orderID string, req models.UpdateOrderRequest) (*models.Order, error) {
	if err := authorize(actor, policy.ActionUpdateOrder, userID); err != nil {
		return nil, err
	}
	if req.Pickup == nil && req.Quantity == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	order, err := s.load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrConflict, orderID, order.Status)
	}

	var changes models.OrderChanges

	if req.Pickup != nil {
		caterer, err := s.catalog.GetCaterer(ctx, order.Dish.CatererID)
		if err != nil {
			return nil, translateCatalogError(err)
		}
		pickup, err := s.checkPickup(*req.Pickup, caterer)
		if err != nil {
			return nil, err
		}
		changes.Pickup = &pickup
	}

	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		if order.Paid {
			return nil, fmt.Errorf("%w: quantity of a paid order cannot change", ErrConflict)
		}
		amount := amountFor(order.Dish.Price, *req.Quantity)
		if amount <= 0 {
			return nil, fmt.Errorf("%w: order amount must be positive", ErrValidation)
		}
		changes.Quantity = req.Quantity
		changes.Amount = &amount
	}

	matched, err := s.orders.UpdateIfStatus(ctx, order.ID, models.StatusPending, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("%w: order %s is no longer pending", ErrConflict, orderID)
	}

	updated, err := s.orders.GetByID(ctx, order.ID)
	if err != nil {
		changes.Apply(order, s.now().UTC())
		return order, nil
	}
	return updated, nil
}

// Delete removes one of the user's orders whatever its status. No refund is
// issued. Deleting a missing order is not an error.
func (s *OrderService) Delete(ctx context.Context, actor policy.Actor, userID, orderID string) (bool, error) {
	if err := authorize(actor, policy.ActionDeleteOrder, userID); err != nil {
		return false, err
	}

	if _, err := s.load(ctx, userID, orderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	if deleted {
		s.publish(ctx, events.New(events.TypeOrderDeleted, orderID, userID, nil))
		s.log.Info("order deleted", "order_id", orderID, "user_id", userID)
	}
	return deleted, nil
}

func (s *OrderService) checkPickup(text string, caterer *models.Caterer) (availability.PickupRequest, error) {
	pickup, err := availability.ParsePickupRequest(text)
	if err != nil {
		return availability.PickupRequest{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !availability.IsAvailable(caterer.WorkingTimes, pickup) {
		return availability.PickupRequest{}, fmt.Errorf("%w: %s cannot prepare an order for %s", ErrValidation, caterer.Name, pickup)
	}
	return pickup, nil
}

// publish hands evt to the broker; delivery failures never fail the operation
func (s *OrderService) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", "type", evt.Type, "order_id", evt.OrderID, "error", err)
	}
}

func translateCatalogError(err error) error {
	if errors.Is(err, repository.ErrDishNotFound) || errors.Is(err, repository.ErrCatererNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("failed to read catalog: %w", err)
}
