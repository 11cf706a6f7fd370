package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
)

const (
	productColumns = `id, title, category, size, packaging, image, price, stock, discount_percent, seller_id`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, title, category, size, packaging, image, price, stock, discount_percent, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, category = EXCLUDED.category, size = EXCLUDED.size,
			packaging = EXCLUDED.packaging, image = EXCLUDED.image, price = EXCLUDED.price,
			stock = EXCLUDED.stock, discount_percent = EXCLUDED.discount_percent,
			seller_id = EXCLUDED.seller_id`

	// Conditional decrement: matches only when stock can satisfy the request,
	// so the check and the write are one atomic statement.
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
		RETURNING ` + productColumns

	applySaleSQL = `UPDATE products SET discount_percent = $2
		WHERE id = ANY($1)
		RETURNING ` + productColumns
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.NotFoundError{ProductID: id}
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or fully replaces a product row.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Title, p.Category, p.Size, p.Packaging, p.Image,
		p.Price, p.Stock, p.DiscountPercent, p.SellerID,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// DecrementStock reduces stock by quantity, failing when the product is
// missing or the remaining stock cannot satisfy the request.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, decrementStockSQL, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("decrementing stock for %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decrementing stock for %q: %w", id, err)
	}

	// No row matched: distinguish a missing product from short stock.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking product %q: %w", id, err)
	}
	if !exists {
		return nil, &catalog.NotFoundError{ProductID: id}
	}
	return nil, &catalog.InsufficientStockError{ProductID: id, Requested: quantity}
}

// ApplySale records the discount on every given product in one transaction.
// The whole batch is rolled back when any id does not resolve.
func (r *ProductRepository) ApplySale(ctx context.Context, ids []string, percent int) ([]catalog.Product, error) {
	var updated []catalog.Product
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, applySaleSQL, ids, percent)
		if err != nil {
			return fmt.Errorf("applying sale: %w", err)
		}
		updated, err = pgx.CollectRows(rows, scanProduct)
		if err != nil {
			return fmt.Errorf("applying sale: %w", err)
		}

		if len(updated) != len(ids) {
			touched := make(map[string]struct{}, len(updated))
			for _, p := range updated {
				touched[p.ID] = struct{}{}
			}
			for _, id := range ids {
				if _, ok := touched[id]; !ok {
					return &catalog.NotFoundError{ProductID: id}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Category, &p.Size, &p.Packaging, &p.Image,
		&price, &p.Stock, &p.DiscountPercent, &p.SellerID,
	)
	p.Price = price
	return p, err
}
