package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product represents a drink offered by a seller. The JSON tags shape the
// snapshot stored inside order line items.
type Product struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Size      string          `json:"size"`
	Packaging string          `json:"packaging"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	// Stock is the available inventory count. Never negative.
	Stock int `json:"stock"`
	// DiscountPercent is the active sale discount in [0,100]. Zero means no sale.
	DiscountPercent int    `json:"discount_percent"`
	SellerID        string `json:"seller_id"`
}

// EffectivePrice returns the price with the active sale discount applied,
// rounded to 2 decimal places.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPercent == 0 {
		return p.Price
	}
	factor := decimal.NewFromInt(int64(100 - p.DiscountPercent)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}

// NotFoundError indicates a referenced product does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a decrement would drive stock negative.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// StockChange names a product and the quantity to remove from its stock.
type StockChange struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p Product) error

	// DecrementStock atomically verifies and reduces stock, returning the
	// updated product. Fails with *InsufficientStockError when the result
	// would be negative and *NotFoundError when the product does not exist.
	DecrementStock(ctx context.Context, id string, quantity int) (*Product, error)

	// ApplySale records a discount percentage on every named product in one
	// batch and returns the updated set. All ids must resolve; partial
	// application is not permitted.
	ApplySale(ctx context.Context, ids []string, percent int) ([]Product, error)
}
