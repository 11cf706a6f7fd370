package party

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for party resolution.
var (
	ErrBuyerNotFound  = errors.New("buyer not found")
	ErrSellerNotFound = errors.New("seller not found")
)

// CartEntry is a pending product selection inside a buyer's cart.
// Quantity is always >= 1; an entry dropping to 0 is removed, not retained.
type CartEntry struct {
	ProductID string
	Quantity  int
}

// Buyer is a customer account with a cart and an order history.
type Buyer struct {
	ID      string
	Name    string
	Surname string
	Email   string
	Address string
	City    string
	Country string
	Phone   string
}

// Seller is a vendor account with business rules applied at checkout.
type Seller struct {
	ID              string
	Name            string
	Surname         string
	Email           string
	Title           string
	Address         string
	City            string
	Country         string
	Phone           string
	Website         string
	CompanyType     string
	RegisterNumber  int64
	TargetedMarkets []string
	DeliveryCost    decimal.Decimal
	// MinPrice is the minimum order value this seller accepts.
	MinPrice decimal.Decimal
}

// BuyerRepository defines persistence operations for buyers and their carts.
type BuyerRepository interface {
	Create(ctx context.Context, b Buyer) error
	GetByEmail(ctx context.Context, email string) (*Buyer, error)

	// Cart returns the buyer's current cart entries.
	Cart(ctx context.Context, buyerID string) ([]CartEntry, error)
	// AddToCart merges quantity into an existing entry for the same product
	// or inserts a new one. A resulting quantity below 1 removes the entry.
	AddToCart(ctx context.Context, buyerID string, entry CartEntry) error
	RemoveFromCart(ctx context.Context, buyerID, productID string) error
	ClearCart(ctx context.Context, buyerID string) error

	// OrderIDs lists the buyer's order history in append order.
	OrderIDs(ctx context.Context, buyerID string) ([]string, error)
}

// SellerRepository defines persistence operations for sellers.
type SellerRepository interface {
	Create(ctx context.Context, s Seller) error
	GetByEmail(ctx context.Context, email string) (*Seller, error)

	// OrderIDs lists the seller's order history in append order.
	OrderIDs(ctx context.Context, sellerID string) ([]string, error)
}
