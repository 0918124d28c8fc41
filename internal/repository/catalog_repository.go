package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/availability"
	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrDishNotFound    = errors.New("dish not found")
	ErrCatererNotFound = errors.New("caterer not found")
)

// CatalogRepository defines read access to dishes and caterers
type CatalogRepository interface {
	ListDishes(ctx context.Context) ([]models.Dish, error)
	GetDish(ctx context.Context, id string) (*models.Dish, error)
	GetCaterer(ctx context.Context, id string) (*models.Caterer, error)
}

// InMemoryCatalogRepository implements CatalogRepository with in-memory storage
type InMemoryCatalogRepository struct {
	dishes   map[string]models.Dish
	caterers map[string]models.Caterer
}

// NewInMemoryCatalogRepository creates a catalog from the given entries.
// Every dish must reference a known caterer and every caterer must have valid hours.
func NewInMemoryCatalogRepository(caterers []models.Caterer, dishes []models.Dish) (*InMemoryCatalogRepository, error) {
	r := &InMemoryCatalogRepository{
		dishes:   make(map[string]models.Dish, len(dishes)),
		caterers: make(map[string]models.Caterer, len(caterers)),
	}
	for _, c := range caterers {
		if err := c.WorkingTimes.Validate(); err != nil {
			return nil, fmt.Errorf("caterer %s: %w", c.ID, err)
		}
		r.caterers[c.ID] = c
	}
	for _, d := range dishes {
		if _, ok := r.caterers[d.CatererID]; !ok {
			return nil, fmt.Errorf("dish %s references unknown caterer %s", d.ID, d.CatererID)
		}
		r.dishes[d.ID] = d
	}
	return r, nil
}

// NewSeededCatalogRepository creates a catalog with demo caterers and dishes
func NewSeededCatalogRepository() *InMemoryCatalogRepository {
	weekdays := func(windows ...availability.Window) map[time.Weekday][]availability.Window {
		days := make(map[time.Weekday][]availability.Window)
		for day := time.Monday; day <= time.Friday; day++ {
			days[day] = windows
		}
		return days
	}

	caterers := []models.Caterer{
		{
			ID:    "1",
			Name:  "Waffle House Kitchen",
			Email: "orders@wafflehouse.example",
			WorkingTimes: availability.WorkingTimes{
				// 08:12-14:28 lunch, 17:54-23:15 dinner
				Days:                   weekdays(availability.Window{Open: 492, Close: 868}, availability.Window{Open: 1074, Close: 1395}),
				MinimumPreparationTime: 30,
			},
		},
		{
			ID:    "2",
			Name:  "Green Bowl Catering",
			Email: "hello@greenbowl.example",
			WorkingTimes: availability.WorkingTimes{
				Days: map[time.Weekday][]availability.Window{
					time.Saturday: {{Open: 600, Close: 1200}},
					time.Sunday:   {{Open: 600, Close: 960}},
				},
				MinimumPreparationTime: 60,
			},
		},
	}

	dishes := []models.Dish{
		{ID: "1", Name: "Chicken Waffle", Price: decimal.RequireFromString("12.99"), CatererID: "1"},
		{ID: "2", Name: "Belgian Waffle", Price: decimal.RequireFromString("10.99"), CatererID: "1"},
		{ID: "3", Name: "Chocolate Waffle", Price: decimal.RequireFromString("11.99"), CatererID: "1"},
		{ID: "4", Name: "Caesar Salad", Price: decimal.RequireFromString("8.99"), CatererID: "2"},
		{ID: "5", Name: "Greek Salad", Price: decimal.RequireFromString("9.49"), CatererID: "2"},
		{ID: "6", Name: "Garden Salad", Price: decimal.RequireFromString("7.99"), CatererID: "2"},
	}

	r, err := NewInMemoryCatalogRepository(caterers, dishes)
	if err != nil {
		panic(err)
	}
	return r
}

// ListDishes returns all dishes ordered by ID
func (r *InMemoryCatalogRepository) ListDishes(ctx context.Context) ([]models.Dish, error) {
	dishes := make([]models.Dish, 0, len(r.dishes))
	for _, dish := range r.dishes {
		dishes = append(dishes, dish)
	}
	sort.Slice(dishes, func(i, j int) bool { return dishes[i].ID < dishes[j].ID })
	return dishes, nil
}

// GetDish returns a dish by its ID
func (r *InMemoryCatalogRepository) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	dish, exists := r.dishes[id]
	if !exists {
		return nil, ErrDishNotFound
	}
	return &dish, nil
}

// GetCaterer returns a caterer by its ID
func (r *InMemoryCatalogRepository) GetCaterer(ctx context.Context, id string) (*models.Caterer, error) {
	caterer, exists := r.caterers[id]
	if !exists {
		return nil, ErrCatererNotFound
	}
	return &caterer, nil
}
