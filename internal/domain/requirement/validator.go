// Package requirement checks a candidate cart against a seller's acceptance
// rules before an order exists. It is an optimistic pre-check: the
// authoritative stock verification happens again inside the order commit.
package requirement

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/party"
)

// Result reports which acceptance rules a candidate cart satisfies. Rule
// failures are expected outcomes the caller branches on, not errors.
type Result struct {
	// MeetsMinimum is true when the cart's live value reaches the seller's
	// minimum order value.
	MeetsMinimum bool
	// Fulfillable is true when every entry can be served from current stock.
	Fulfillable bool
}

// Satisfied reports whether every rule passed.
func (r Result) Satisfied() bool {
	return r.MeetsMinimum && r.Fulfillable
}

// Validator evaluates seller acceptance rules against live catalog state.
type Validator struct {
	products catalog.Repository
	sellers  party.SellerRepository
}

// NewValidator creates a Validator over the given stores.
func NewValidator(products catalog.Repository, sellers party.SellerRepository) *Validator {
	return &Validator{products: products, sellers: sellers}
}

// Check resolves the seller and every referenced product, then evaluates the
// stock and minimum-order rules. Unresolvable references are errors; rule
// failures are reported in the Result. Re-running with unchanged state yields
// the same result.
func (v *Validator) Check(ctx context.Context, sellerEmail string, entries []party.CartEntry) (Result, error) {
	seller, err := v.sellers.GetByEmail(ctx, sellerEmail)
	if err != nil {
		return Result{}, errors.Wrap(err, "get seller")
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := v.products.GetByIDs(ctx, ids)
	if err != nil {
		return Result{}, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	res := Result{MeetsMinimum: true, Fulfillable: true}
	cartValue := decimal.Zero
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			return Result{}, &catalog.NotFoundError{ProductID: e.ProductID}
		}

		// All-or-nothing: any short entry fails the whole stock check.
		if p.Stock < e.Quantity {
			res.Fulfillable = false
		}

		// Live current price, not a snapshot: no order exists yet.
		cartValue = cartValue.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(e.Quantity))))
	}

	if cartValue.LessThan(seller.MinPrice) {
		res.MeetsMinimum = false
	}
	return res, nil
}
