package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
)

// SQLiteOrderRepository implements OrderRepository on SQLite
type SQLiteOrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

// openSQLite opens a SQLite database with WAL and a single writer connection
func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// One connection serialises writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteOrderRepository opens dsn and applies migrations
func NewSQLiteOrderRepository(ctx context.Context, dsn string) (*SQLiteOrderRepository, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteOrderRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := insertArgs(order)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := fmt.Sprintf("INSERT INTO orders (%s) VALUES (%s)", orderColumns, placeholders)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isSQLiteConstraint(err) {
			if _, getErr := r.GetByID(ctx, order.ID); getErr == nil {
				return ErrOrderExists
			}
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *SQLiteOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = ?", orderColumns)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *SQLiteOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE created_by = ? ORDER BY created_at DESC", orderColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
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
func (r *SQLiteOrderRepository) UpdateIfStatus(ctx context.Context, id string, expected models.OrderStatus, changes models.OrderChanges) (bool, error) {
	query, args := buildConditionalUpdate(func(int) string { return "?" }, id, expected, changes, r.now())

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *SQLiteOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SQLiteOrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *SQLiteOrderRepository) Close() error {
	return r.db.Close()
}

// isSQLiteConstraint matches constraint failures from either driver
func isSQLiteConstraint(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}
