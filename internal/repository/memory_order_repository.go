package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
)

// InMemoryOrderRepository implements OrderRepository with a mutex-guarded map.
// Orders are copied on the way in and out so callers never share state.
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	now    func() time.Time
}

// NewInMemoryOrderRepository creates an empty in-memory order store
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]models.Order),
		now:    time.Now,
	}
}

func cloneOrder(o models.Order) models.Order {
	if o.ChargeID != nil {
		id := *o.ChargeID
		o.ChargeID = &id
	}
	return o
}

func (r *InMemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ErrOrderExists
	}
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

func (r *InMemoryOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, order := range r.orders {
		if order.CreatedBy == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateIfStatus compares and sets under the write lock
func (r *InMemoryOrderRepository) UpdateIfStatus(ctx context.Context, id string, expected models.OrderStatus, changes models.OrderChanges) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists || order.Status != expected {
		return false, nil
	}
	changes.Apply(&order, r.now().UTC())
	r.orders[id] = order
	return true, nil
}

func (r *InMemoryOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[id]; !exists {
		return false, nil
	}
	delete(r.orders, id)
	return true, nil
}

func (r *InMemoryOrderRepository) Ping(ctx context.Context) error { return nil }

func (r *InMemoryOrderRepository) Close() error { return nil }
