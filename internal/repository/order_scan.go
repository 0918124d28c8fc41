package repository

import (
	"database/sql"
	"fmt"

	"github.com/Lixing-Zhang/catering-orders/internal/availability"
	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, created_by, dish_id, dish_name, dish_price, caterer_id, caterer_name,
	quantity, amount, currency, pickup, card_token, charge_id, paid, status, refund_status,
	voucher_code, created_at, updated_at`

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order     models.Order
		price     string
		pickup    string
		chargeID  sql.NullString
		status    string
		refund    string
		createdAt string
		updatedAt string
	)

	err := row.Scan(&order.ID, &order.CreatedBy, &order.Dish.DishID, &order.Dish.Name, &price,
		&order.Dish.CatererID, &order.Dish.CatererName, &order.Quantity, &order.Amount,
		&order.Currency, &pickup, &order.CardToken, &chargeID, &order.Paid, &status, &refund,
		&order.VoucherCode, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if order.Dish.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid stored dish price %q: %w", price, err)
	}
	if order.Pickup, err = availability.ParsePickupRequest(pickup); err != nil {
		return nil, fmt.Errorf("invalid stored pickup: %w", err)
	}
	if chargeID.Valid {
		order.ChargeID = &chargeID.String
	}
	order.Status = models.OrderStatus(status)
	order.RefundStatus = models.RefundStatus(refund)
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid stored created_at: %w", err)
	}
	if order.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid stored updated_at: %w", err)
	}
	return &order, nil
}

// insertArgs returns the values for orderColumns in order
func insertArgs(o *models.Order) []any {
	var chargeID any
	if o.ChargeID != nil {
		chargeID = *o.ChargeID
	}
	return []any{
		o.ID, o.CreatedBy, o.Dish.DishID, o.Dish.Name, o.Dish.Price.String(), o.Dish.CatererID,
		o.Dish.CatererName, o.Quantity, o.Amount, o.Currency, o.Pickup.String(), o.CardToken,
		chargeID, o.Paid, string(o.Status), string(o.RefundStatus), o.VoucherCode,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	}
}
