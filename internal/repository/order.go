package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/order"
)

// maxCreateAttempts bounds the retry budget for transactions aborted by
// serialization contention or deadlocks.
const maxCreateAttempts = 3

const (
	orderColumns = `id, uid, items, buyer_id, seller_id, total_price, status,
		purchased_at, deliver_by, address, city, country, latitude, longitude`

	createOrderSQL = `INSERT INTO orders (id, uid, items, buyer_id, seller_id, total_price, status,
			purchased_at, deliver_by, address, city, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	appendBuyerOrderSQL = `INSERT INTO buyer_orders (buyer_id, order_id) VALUES ($1, $2)`

	appendSellerOrderSQL = `INSERT INTO seller_orders (seller_id, order_id) VALUES ($1, $2)`

	// Same conditional form as ProductRepository.DecrementStock, executed
	// inside the order transaction so the authoritative stock check commits
	// or aborts together with the order itself.
	txDecrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByUIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE uid = $1`

	listOrdersByBuyerSQL = `SELECT ` + orderColumns + ` FROM orders o
		JOIN buyer_orders bo ON bo.order_id = o.id
		WHERE bo.buyer_id = $1 ORDER BY bo.seq`

	listOrdersBySellerSQL = `SELECT ` + orderColumns + ` FROM orders o
		JOIN seller_orders so ON so.order_id = o.id
		WHERE so.seller_id = $1 ORDER BY so.seq`

	setOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and reconciles all dependent state in one
// transaction: stock check-and-decrement per line item, the order row, both
// history references, and the buyer cart clear. A conflicting concurrent
// transaction aborts the whole unit, which is retried up to
// maxCreateAttempts before surfacing order.ErrConflict.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
			return r.createInTx(ctx, tx, o, itemsJSON)
		})
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		if attempt >= maxCreateAttempts {
			return order.ErrConflict
		}
	}
}

func (r *OrderRepository) createInTx(ctx context.Context, tx pgx.Tx, o *order.Order, itemsJSON []byte) error {
	// Authoritative stock verification happens here, not at pre-check time:
	// the conditional update either reserves the quantity or matches no row.
	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, txDecrementStockSQL, item.Product.ID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for %q: %w", item.Product.ID, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, productExistsSQL, item.Product.ID).Scan(&exists); err != nil {
				return fmt.Errorf("checking product %q: %w", item.Product.ID, err)
			}
			if !exists {
				return &catalog.NotFoundError{ProductID: item.Product.ID}
			}
			return &catalog.InsufficientStockError{ProductID: item.Product.ID, Requested: item.Quantity}
		}
	}

	var lat, lon *float64
	if o.Coordinates != nil {
		lat, lon = &o.Coordinates.Latitude, &o.Coordinates.Longitude
	}

	if _, err := tx.Exec(ctx, createOrderSQL,
		o.ID, o.UID, itemsJSON, o.BuyerID, o.SellerID, o.TotalPrice, string(o.Status),
		o.PurchasedAt, o.DeliverBy, o.Address.Street, o.Address.City, o.Address.Country,
		lat, lon,
	); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, appendBuyerOrderSQL, o.BuyerID, o.ID); err != nil {
		return fmt.Errorf("appending buyer order ref: %w", err)
	}
	if _, err := tx.Exec(ctx, appendSellerOrderSQL, o.SellerID, o.ID); err != nil {
		return fmt.Errorf("appending seller order ref: %w", err)
	}

	// Checkout is total: the whole cart converts into the order.
	if _, err := tx.Exec(ctx, clearCartSQL, o.BuyerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}

	return nil
}

// GetByID returns an order by its internal id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByUID returns an order by its customer-facing uid.
func (r *OrderRepository) GetByUID(ctx context.Context, uid string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByUIDSQL, uid)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &o, nil
}

// ListByBuyer returns the buyer's order history in append order.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByBuyerSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders by buyer: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListBySeller returns the seller's order history in append order.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersBySellerSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders by seller: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetStatus writes the status directly. State machine validation is the
// service's concern; this is also the administrative correction path.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, setOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("setting status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		items    []byte
		total    decimal.Decimal
		status   string
		lat, lon *float64
	)
	err := row.Scan(
		&o.ID, &o.UID, &items, &o.BuyerID, &o.SellerID, &total, &status,
		&o.PurchasedAt, &o.DeliverBy, &o.Address.Street, &o.Address.City, &o.Address.Country,
		&lat, &lon,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.TotalPrice = total
	o.Status = order.Status(status)
	if lat != nil && lon != nil {
		o.Coordinates = &order.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	return o, nil
}
