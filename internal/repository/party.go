package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/party"
)

const (
	buyerColumns = `id, name, surname, email, address, city, country, phone`

	getBuyerByEmailSQL = `SELECT ` + buyerColumns + ` FROM buyers WHERE email = $1`

	createBuyerSQL = `INSERT INTO buyers (id, name, surname, email, address, city, country, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	cartSQL = `SELECT product_id, quantity FROM cart_entries WHERE buyer_id = $1 ORDER BY product_id`

	getCartEntryForUpdateSQL = `SELECT quantity FROM cart_entries
		WHERE buyer_id = $1 AND product_id = $2 FOR UPDATE`

	// Merge on re-add: the same product never appears twice in one cart.
	upsertCartEntrySQL = `INSERT INTO cart_entries (buyer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (buyer_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity`

	removeFromCartSQL = `DELETE FROM cart_entries WHERE buyer_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_entries WHERE buyer_id = $1`

	buyerOrderIDsSQL = `SELECT order_id FROM buyer_orders WHERE buyer_id = $1 ORDER BY seq`

	sellerColumns = `id, name, surname, email, title, address, city, country, phone, website,
		company_type, register_number, targeted_markets, delivery_cost, min_price`

	getSellerByEmailSQL = `SELECT ` + sellerColumns + ` FROM sellers WHERE email = $1`

	createSellerSQL = `INSERT INTO sellers (id, name, surname, email, title, address, city, country,
			phone, website, company_type, register_number, targeted_markets, delivery_cost, min_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	sellerOrderIDsSQL = `SELECT order_id FROM seller_orders WHERE seller_id = $1 ORDER BY seq`
)

var (
	_ party.BuyerRepository  = (*BuyerRepository)(nil)
	_ party.SellerRepository = (*SellerRepository)(nil)
)

// BuyerRepository implements party.BuyerRepository backed by PostgreSQL.
type BuyerRepository struct {
	pool *pgxpool.Pool
}

// NewBuyerRepository returns a BuyerRepository that uses the given pool.
func NewBuyerRepository(pool *pgxpool.Pool) *BuyerRepository {
	return &BuyerRepository{pool: pool}
}

// Create inserts a new buyer.
func (r *BuyerRepository) Create(ctx context.Context, b party.Buyer) error {
	_, err := r.pool.Exec(ctx, createBuyerSQL,
		b.ID, b.Name, b.Surname, b.Email, b.Address, b.City, b.Country, b.Phone,
	)
	if err != nil {
		return fmt.Errorf("creating buyer %q: %w", b.Email, err)
	}
	return nil
}

// GetByEmail resolves a buyer by email.
func (r *BuyerRepository) GetByEmail(ctx context.Context, email string) (*party.Buyer, error) {
	rows, err := r.pool.Query(ctx, getBuyerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting buyer %q: %w", email, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBuyer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, party.ErrBuyerNotFound
		}
		return nil, fmt.Errorf("getting buyer %q: %w", email, err)
	}
	return &b, nil
}

// Cart returns the buyer's current cart entries.
func (r *BuyerRepository) Cart(ctx context.Context, buyerID string) ([]party.CartEntry, error) {
	rows, err := r.pool.Query(ctx, cartSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("getting cart for %q: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (party.CartEntry, error) {
		var e party.CartEntry
		err := row.Scan(&e.ProductID, &e.Quantity)
		return e, err
	})
}

// AddToCart merges the entry into the cart. A resulting quantity below 1
// removes the entry instead of retaining it; the table never stores entries
// with quantity below 1.
func (r *BuyerRepository) AddToCart(ctx context.Context, buyerID string, entry party.CartEntry) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current int
		err := tx.QueryRow(ctx, getCartEntryForUpdateSQL, buyerID, entry.ProductID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reading cart entry: %w", err)
		}

		merged := current + entry.Quantity
		if merged < 1 {
			if _, err := tx.Exec(ctx, removeFromCartSQL, buyerID, entry.ProductID); err != nil {
				return fmt.Errorf("pruning cart entry: %w", err)
			}
			return nil
		}
		if _, err := tx.Exec(ctx, upsertCartEntrySQL, buyerID, entry.ProductID, merged); err != nil {
			return fmt.Errorf("writing cart entry: %w", err)
		}
		return nil
	})
}

// RemoveFromCart removes the product's entry from the cart.
func (r *BuyerRepository) RemoveFromCart(ctx context.Context, buyerID, productID string) error {
	if _, err := r.pool.Exec(ctx, removeFromCartSQL, buyerID, productID); err != nil {
		return fmt.Errorf("removing from cart: %w", err)
	}
	return nil
}

// ClearCart removes every entry from the buyer's cart.
func (r *BuyerRepository) ClearCart(ctx context.Context, buyerID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, buyerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

// OrderIDs lists the buyer's order history in append order.
func (r *BuyerRepository) OrderIDs(ctx context.Context, buyerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, buyerOrderIDsSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing buyer orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func scanBuyer(row pgx.CollectableRow) (party.Buyer, error) {
	var b party.Buyer
	err := row.Scan(&b.ID, &b.Name, &b.Surname, &b.Email, &b.Address, &b.City, &b.Country, &b.Phone)
	return b, err
}

// SellerRepository implements party.SellerRepository backed by PostgreSQL.
type SellerRepository struct {
	pool *pgxpool.Pool
}

// NewSellerRepository returns a SellerRepository that uses the given pool.
func NewSellerRepository(pool *pgxpool.Pool) *SellerRepository {
	return &SellerRepository{pool: pool}
}

// Create inserts a new seller.
func (r *SellerRepository) Create(ctx context.Context, s party.Seller) error {
	_, err := r.pool.Exec(ctx, createSellerSQL,
		s.ID, s.Name, s.Surname, s.Email, s.Title, s.Address, s.City, s.Country,
		s.Phone, s.Website, s.CompanyType, s.RegisterNumber, s.TargetedMarkets,
		s.DeliveryCost, s.MinPrice,
	)
	if err != nil {
		return fmt.Errorf("creating seller %q: %w", s.Email, err)
	}
	return nil
}

// GetByEmail resolves a seller by email.
func (r *SellerRepository) GetByEmail(ctx context.Context, email string) (*party.Seller, error) {
	rows, err := r.pool.Query(ctx, getSellerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting seller %q: %w", email, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSeller)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, party.ErrSellerNotFound
		}
		return nil, fmt.Errorf("getting seller %q: %w", email, err)
	}
	return &s, nil
}

// OrderIDs lists the seller's order history in append order.
func (r *SellerRepository) OrderIDs(ctx context.Context, sellerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, sellerOrderIDsSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing seller orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func scanSeller(row pgx.CollectableRow) (party.Seller, error) {
	var (
		s            party.Seller
		deliveryCost decimal.Decimal
		minPrice     decimal.Decimal
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Surname, &s.Email, &s.Title, &s.Address, &s.City, &s.Country,
		&s.Phone, &s.Website, &s.CompanyType, &s.RegisterNumber, &s.TargetedMarkets,
		&deliveryCost, &minPrice,
	)
	s.DeliveryCost = deliveryCost
	s.MinPrice = minPrice
	return s, err
}
