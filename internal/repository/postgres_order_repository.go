package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{`
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    created_by TEXT NOT NULL,
    dish_id TEXT NOT NULL,
    dish_name TEXT NOT NULL,
    dish_price TEXT NOT NULL,
    caterer_id TEXT NOT NULL,
    caterer_name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),
    amount BIGINT NOT NULL CHECK (amount > 0),
    currency TEXT NOT NULL,
    pickup TEXT NOT NULL,
    card_token TEXT NOT NULL,
    charge_id TEXT,
    paid BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL,
    refund_status TEXT NOT NULL DEFAULT 'none',
    voucher_code TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    CHECK (paid = (charge_id IS NOT NULL))
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_by ON orders(created_by, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
}

// PostgresOrderRepository implements OrderRepository on PostgreSQL via pgxpool
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresOrderRepository connects, pings and ensures the schema exists
func NewPostgresOrderRepository(ctx context.Context, dsn string) (*PostgresOrderRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &PostgresOrderRepository{pool: pool, now: time.Now}, nil
}

func pgPlaceholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := insertArgs(order)
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = pgPlaceholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO orders (%s) VALUES (%s)", orderColumns, strings.Join(placeholders, ", "))

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrOrderExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE created_by = $1 ORDER BY created_at DESC", orderColumns)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// UpdateIfStatus issues a single UPDATE guarded by the expected status
func (r *PostgresOrderRepository) UpdateIfStatus(ctx context.Context, id string, expected models.OrderStatus, changes models.OrderChanges) (bool, error) {
	query, args := buildConditionalUpdate(pgPlaceholder, id, expected, changes, r.now())

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresOrderRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresOrderRepository) Close() error {
	r.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
