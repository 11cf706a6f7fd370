package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byID map[string]Product
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byID: make(map[string]Product)}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *mockRepo) List(_ context.Context) ([]Product, error) { return nil, nil }

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{ProductID: id}
	}
	return &p, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) Upsert(_ context.Context, p Product) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockRepo) DecrementStock(_ context.Context, id string, quantity int) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{ProductID: id}
	}
	if p.Stock < quantity {
		return nil, &InsufficientStockError{ProductID: id, Requested: quantity}
	}
	p.Stock -= quantity
	m.byID[id] = p
	return &p, nil
}

func (m *mockRepo) ApplySale(_ context.Context, ids []string, percent int) ([]Product, error) {
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p := m.byID[id]
		p.DiscountPercent = percent
		m.byID[id] = p
		out = append(out, p)
	}
	return out, nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: money("10.00")}
	assert.True(t, money("10.00").Equal(p.EffectivePrice()))

	p.DiscountPercent = 25
	assert.True(t, money("7.50").Equal(p.EffectivePrice()))

	p.Price = money("19.99")
	p.DiscountPercent = 33
	// 19.99 * 0.67 = 13.3933, rounded to cents.
	assert.True(t, money("13.39").Equal(p.EffectivePrice()))

	p.DiscountPercent = 100
	assert.True(t, decimal.Zero.Equal(p.EffectivePrice()))
}

func TestApplySale(t *testing.T) {
	repo := newMockRepo(
		Product{ID: "p1", Price: money("10.00"), Stock: 5},
		Product{ID: "p2", Price: money("20.00"), Stock: 5},
	)
	svc := NewService(repo)

	updated, err := svc.ApplySale(context.Background(), []string{"p1", "p2"}, 25)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.True(t, money("7.50").Equal(updated[0].EffectivePrice()))
	assert.True(t, money("15.00").Equal(updated[1].EffectivePrice()))
}

func TestApplySale_InvalidDiscount(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.ApplySale(context.Background(), []string{"p1"}, -1)
	require.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = svc.ApplySale(context.Background(), []string{"p1"}, 101)
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestApplySale_UnknownProductAbortsBatch(t *testing.T) {
	repo := newMockRepo(Product{ID: "p1", Price: money("10.00")})
	svc := NewService(repo)

	_, err := svc.ApplySale(context.Background(), []string{"p1", "ghost"}, 10)

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "ghost", nfErr.ProductID)
	// Nothing was mutated.
	assert.Equal(t, 0, repo.byID["p1"].DiscountPercent)
}

func TestRemoveFromStock(t *testing.T) {
	repo := newMockRepo(
		Product{ID: "p1", Stock: 10},
		Product{ID: "p2", Stock: 3},
	)
	svc := NewService(repo)

	updated, err := svc.RemoveFromStock(context.Background(), []StockChange{
		{ProductID: "p1", Quantity: 4},
		{ProductID: "p2", Quantity: 0}, // skipped
		{ProductID: "p2", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, 6, updated[0].Stock)
	assert.Equal(t, 0, updated[1].Stock)
}

func TestRemoveFromStock_Insufficient(t *testing.T) {
	repo := newMockRepo(Product{ID: "p1", Stock: 2})
	svc := NewService(repo)

	_, err := svc.RemoveFromStock(context.Background(), []StockChange{
		{ProductID: "p1", Quantity: 3},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 3, isErr.Requested)
	assert.Equal(t, 2, repo.byID["p1"].Stock)
}
