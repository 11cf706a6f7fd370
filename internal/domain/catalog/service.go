package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidDiscount is returned when a sale discount is outside [0,100].
var ErrInvalidDiscount = errors.New("discount must be between 0 and 100")

// Service wraps the catalog repository with input validation for mutating
// operations.
type Service struct {
	products Repository
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// ApplySale validates the discount range, verifies every product id resolves,
// and only then records the sale on the whole batch.
func (s *Service) ApplySale(ctx context.Context, ids []string, percent int) ([]Product, error) {
	if percent < 0 || percent > 100 {
		return nil, ErrInvalidDiscount
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Validate all ids before mutating any.
	existing, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, &NotFoundError{ProductID: id}
		}
	}

	updated, err := s.products.ApplySale(ctx, ids, percent)
	if err != nil {
		return nil, errors.Wrap(err, "apply sale")
	}
	return updated, nil
}

// RemoveFromStock decrements stock for every change, failing on the first
// product that does not exist or cannot satisfy the requested quantity. The
// repository verifies each decrement atomically.
func (s *Service) RemoveFromStock(ctx context.Context, changes []StockChange) ([]Product, error) {
	updated := make([]Product, 0, len(changes))
	for _, c := range changes {
		if c.Quantity < 1 {
			continue
		}
		p, err := s.products.DecrementStock(ctx, c.ProductID, c.Quantity)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *p)
	}
	return updated, nil
}
