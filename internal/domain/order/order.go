package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
)

// Sentinel errors for order placement.
var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
	// ErrConflict is surfaced when concurrent-update contention persists
	// beyond the repository's retry budget.
	ErrConflict = errors.New("conflicting concurrent update")
)

// InvalidQuantityError indicates a cart entry with a quantity below 1.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// LineItem pairs a product snapshot with the purchased quantity. The snapshot
// is taken at purchase time; later catalog mutation never alters it.
type LineItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Address is the delivery destination of an order.
type Address struct {
	Street  string
	City    string
	Country string
}

// Coordinates are the resolved geocoordinates of the delivery destination.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Order is a committed, immutable snapshot of a purchase.
type Order struct {
	ID  string
	UID string

	Items    []LineItem
	BuyerID  string
	SellerID string

	TotalPrice  decimal.Decimal
	Status      Status
	PurchasedAt time.Time
	DeliverBy   time.Time
	Address     Address
	Coordinates *Coordinates
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create commits the order record, the append to both the buyer's and
	// the seller's order history, the stock decrement for every line item,
	// and the clearing of the buyer's cart as one atomic unit. On any
	// failure no partial state is left behind: stock is re-verified inside
	// the same transaction and fails with *catalog.InsufficientStockError;
	// contention beyond the retry budget surfaces ErrConflict.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUID(ctx context.Context, uid string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Order, error)

	// SetStatus writes the status directly, without state machine
	// validation. Administrative correction path; regular transitions go
	// through Service.UpdateStatus.
	SetStatus(ctx context.Context, id string, status Status) error
}
