package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
)

// OrderRepository defines the interface for order persistence.
// UpdateIfStatus is the only way to change a stored order: it applies the
// changes in one write and only while the order still has the expected status.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateIfStatus(ctx context.Context, id string, expected models.OrderStatus, changes models.OrderChanges) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// timeLayout is fixed width so stored timestamps sort lexicographically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// assignment is one "column = value" pair of an UPDATE statement
type assignment struct {
	column string
	value  any
}

func changeAssignments(c models.OrderChanges, now time.Time) []assignment {
	var out []assignment
	if c.Status != nil {
		out = append(out, assignment{"status", string(*c.Status)})
	}
	if c.ChargeID != nil {
		out = append(out, assignment{"charge_id", *c.ChargeID})
	}
	if c.Paid != nil {
		out = append(out, assignment{"paid", *c.Paid})
	}
	if c.Quantity != nil {
		out = append(out, assignment{"quantity", *c.Quantity})
	}
	if c.Amount != nil {
		out = append(out, assignment{"amount", *c.Amount})
	}
	if c.Pickup != nil {
		out = append(out, assignment{"pickup", c.Pickup.String()})
	}
	if c.RefundStatus != nil {
		out = append(out, assignment{"refund_status", string(*c.RefundStatus)})
	}
	return append(out, assignment{"updated_at", formatTime(now)})
}

// buildConditionalUpdate renders the UPDATE for UpdateIfStatus using the
// dialect's placeholder function (1-based argument index).
func buildConditionalUpdate(placeholder func(int) string, id string, expected models.OrderStatus, changes models.OrderChanges, now time.Time) (string, []any) {
	sets := changeAssignments(changes, now)
	clauses := make([]string, 0, len(sets))
	args := make([]any, 0, len(sets)+2)
	for i, a := range sets {
		clauses = append(clauses, fmt.Sprintf("%s = %s", a.column, placeholder(i+1)))
		args = append(args, a.value)
	}
	args = append(args, id, string(expected))
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = %s AND status = %s",
		strings.Join(clauses, ", "), placeholder(len(sets)+1), placeholder(len(sets)+2))
	return query, args
}

// OpenOrderRepository opens the store named by driver: memory, sqlite or postgres
func OpenOrderRepository(ctx context.Context, driver, dsn string) (OrderRepository, error) {
	switch driver {
	case "memory":
		return NewInMemoryOrderRepository(), nil
	case "sqlite":
		repo, err := NewSQLiteOrderRepository(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		repo, err := NewPostgresOrderRepository(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
