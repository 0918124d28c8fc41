package models

import (
	"github.com/Lixing-Zhang/catering-orders/internal/availability"
	"github.com/shopspring/decimal"
)

// Dish represents a dish a caterer offers for pickup
type Dish struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CatererID string          `json:"catererId"`
}

// Caterer is the read-only view of a caterer the order engine needs
type Caterer struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Email        string                    `json:"email"`
	WorkingTimes availability.WorkingTimes `json:"workingTimes"`
}

// Snapshot copies the fields an order keeps about the dish it was placed for
func (d Dish) Snapshot(caterer Caterer) DishSnapshot {
	return DishSnapshot{
		DishID:      d.ID,
		Name:        d.Name,
		Price:       d.Price,
		CatererID:   caterer.ID,
		CatererName: caterer.Name,
	}
}
