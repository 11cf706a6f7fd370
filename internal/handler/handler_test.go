package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipmarket/sipmarket/internal/domain/auth"
	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/geo"
	"github.com/sipmarket/sipmarket/internal/domain/order"
	"github.com/sipmarket/sipmarket/internal/domain/party"
	"github.com/sipmarket/sipmarket/internal/domain/requirement"
	"github.com/sipmarket/sipmarket/internal/events"
)

type memProducts struct {
	mu    sync.Mutex
	items map[string]catalog.Product
}

func newMemProducts(products ...catalog.Product) *memProducts {
	m := &memProducts{items: make(map[string]catalog.Product)}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return m
}

func (m *memProducts) List(context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, &catalog.NotFoundError{ProductID: id}
	}
	return &p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Product
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := m.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Upsert(_ context.Context, p catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = p
	return nil
}

func (m *memProducts) DecrementStock(_ context.Context, id string, quantity int) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, &catalog.NotFoundError{ProductID: id}
	}
	if p.Stock < quantity {
		return nil, &catalog.InsufficientStockError{ProductID: id, Requested: quantity}
	}
	p.Stock -= quantity
	m.items[id] = p
	return &p, nil
}

func (m *memProducts) ApplySale(_ context.Context, ids []string, percent int) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := m.items[id]
		if !ok {
			return nil, &catalog.NotFoundError{ProductID: id}
		}
		p.DiscountPercent = percent
		m.items[id] = p
		out = append(out, p)
	}
	return out, nil
}

type memBuyers struct {
	mu     sync.Mutex
	byMail map[string]party.Buyer
	carts  map[string][]party.CartEntry
	orders map[string][]string
}

func newMemBuyers(buyers ...party.Buyer) *memBuyers {
	m := &memBuyers{
		byMail: make(map[string]party.Buyer),
		carts:  make(map[string][]party.CartEntry),
		orders: make(map[string][]string),
	}
	for _, b := range buyers {
		m.byMail[b.Email] = b
	}
	return m
}

func (m *memBuyers) Create(_ context.Context, b party.Buyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byMail[b.Email] = b
	return nil
}

func (m *memBuyers) GetByEmail(_ context.Context, email string) (*party.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byMail[email]
	if !ok {
		return nil, party.ErrBuyerNotFound
	}
	return &b, nil
}

func (m *memBuyers) Cart(_ context.Context, buyerID string) ([]party.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]party.CartEntry(nil), m.carts[buyerID]...), nil
}

func (m *memBuyers) AddToCart(_ context.Context, buyerID string, entry party.CartEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.carts[buyerID]
	for i, e := range cart {
		if e.ProductID == entry.ProductID {
			e.Quantity += entry.Quantity
			if e.Quantity < 1 {
				m.carts[buyerID] = append(cart[:i], cart[i+1:]...)
				return nil
			}
			cart[i] = e
			return nil
		}
	}
	if entry.Quantity >= 1 {
		m.carts[buyerID] = append(cart, entry)
	}
	return nil
}

func (m *memBuyers) RemoveFromCart(_ context.Context, buyerID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.carts[buyerID]
	for i, e := range cart {
		if e.ProductID == productID {
			m.carts[buyerID] = append(cart[:i], cart[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memBuyers) ClearCart(_ context.Context, buyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, buyerID)
	return nil
}

func (m *memBuyers) OrderIDs(_ context.Context, buyerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.orders[buyerID]...), nil
}

type memSellers struct {
	mu     sync.Mutex
	byMail map[string]party.Seller
	orders map[string][]string
}

func newMemSellers(sellers ...party.Seller) *memSellers {
	m := &memSellers{
		byMail: make(map[string]party.Seller),
		orders: make(map[string][]string),
	}
	for _, s := range sellers {
		m.byMail[s.Email] = s
	}
	return m
}

func (m *memSellers) Create(_ context.Context, s party.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byMail[s.Email] = s
	return nil
}

func (m *memSellers) GetByEmail(_ context.Context, email string) (*party.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byMail[email]
	if !ok {
		return nil, party.ErrSellerNotFound
	}
	return &s, nil
}

func (m *memSellers) OrderIDs(_ context.Context, sellerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.orders[sellerID]...), nil
}

// memOrders mimics the transactional repository contract: stock decrements,
// the order insert, history appends, and the cart clear happen together, and
// a failed decrement leaves nothing behind.
type memOrders struct {
	mu       sync.Mutex
	products *memProducts
	buyers   *memBuyers
	sellers  *memSellers
	byID     map[string]order.Order
	byUID    map[string]order.Order
}

func newMemOrders(products *memProducts, buyers *memBuyers, sellers *memSellers) *memOrders {
	return &memOrders{
		products: products,
		buyers:   buyers,
		sellers:  sellers,
		byID:     make(map[string]order.Order),
		byUID:    make(map[string]order.Order),
	}
}

func (m *memOrders) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products.mu.Lock()
	for _, item := range o.Items {
		p, ok := m.products.items[item.Product.ID]
		if !ok {
			m.products.mu.Unlock()
			return &catalog.NotFoundError{ProductID: item.Product.ID}
		}
		if p.Stock < item.Quantity {
			m.products.mu.Unlock()
			return &catalog.InsufficientStockError{ProductID: item.Product.ID, Requested: item.Quantity}
		}
	}
	for _, item := range o.Items {
		p := m.products.items[item.Product.ID]
		p.Stock -= item.Quantity
		m.products.items[item.Product.ID] = p
	}
	m.products.mu.Unlock()

	m.byID[o.ID] = *o
	m.byUID[o.UID] = *o
	m.buyers.mu.Lock()
	m.buyers.orders[o.BuyerID] = append(m.buyers.orders[o.BuyerID], o.ID)
	delete(m.buyers.carts, o.BuyerID)
	m.buyers.mu.Unlock()
	m.sellers.mu.Lock()
	m.sellers.orders[o.SellerID] = append(m.sellers.orders[o.SellerID], o.ID)
	m.sellers.mu.Unlock()
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (m *memOrders) GetByUID(_ context.Context, uid string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byUID[uid]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (m *memOrders) ListByBuyer(_ context.Context, buyerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.byID {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListBySeller(_ context.Context, sellerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.byID {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) SetStatus(_ context.Context, id string, status order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	m.byID[id] = o
	m.byUID[o.UID] = o
	return nil
}

type staticVerifier struct{ principal auth.Principal }

func (v staticVerifier) Verify(token string) (auth.Principal, error) {
	if token != "valid-token" {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return v.principal, nil
}

type fixture struct {
	handler  http.Handler
	products *memProducts
	buyers   *memBuyers
	orders   *memOrders
}

func newFixture(t *testing.T, products []catalog.Product, sellers []party.Seller, buyers []party.Buyer) *fixture {
	t.Helper()

	prodRepo := newMemProducts(products...)
	buyerRepo := newMemBuyers(buyers...)
	sellerRepo := newMemSellers(sellers...)
	orderRepo := newMemOrders(prodRepo, buyerRepo, sellerRepo)

	orderSvc := order.NewService(prodRepo, buyerRepo, sellerRepo, orderRepo, geo.Nop{}, events.Nop{})
	h := NewHandler(
		prodRepo,
		catalog.NewService(prodRepo),
		buyerRepo,
		sellerRepo,
		orderSvc,
		requirement.NewValidator(prodRepo, sellerRepo),
		staticVerifier{principal: auth.Principal{Subject: "ops", Email: "vineyard@example.com", Role: "admin"}},
	)
	return &fixture{handler: h.Routes(), products: prodRepo, buyers: buyerRepo, orders: orderRepo}
}

func (f *fixture) do(t *testing.T, method, target string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer valid-token")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Title: "Riesling 2019", Price: money("10.00"), Stock: 10, SellerID: "s1"},
		{ID: "p2", Title: "Cold Brew 6-pack", Price: money("20.00"), Stock: 5, DiscountPercent: 25, SellerID: "s1"},
	}
}

func testSeller() party.Seller {
	return party.Seller{ID: "s1", Email: "vineyard@example.com", MinPrice: money("20.00")}
}

func testBuyer() party.Buyer {
	return party.Buyer{ID: "b1", Email: "alice@example.com"}
}

func placeOrderBody(entries ...cartEntryRequest) placeOrderRequest {
	return placeOrderRequest{
		Entries:     entries,
		SellerEmail: "vineyard@example.com",
		BuyerEmail:  "alice@example.com",
		Address:     addressRequest{Street: "Hauptstr. 1", City: "Berlin", Country: "DE"},
		DeliverBy:   time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p1", Quantity: 2},
		cartEntryRequest{ProductID: "p2", Quantity: 1},
	), true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.UID)
	assert.Equal(t, "Pending", resp.Status)
	// 2 x 10.00 plus 20.00 discounted by 25%.
	assert.True(t, money("35.00").Equal(resp.TotalPrice), "got total %s", resp.TotalPrice)
	require.Len(t, resp.Items, 2)

	p1, err := f.products.GetByID(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, p1.Stock)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "ghost", Quantity: 1},
	), true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p2", Quantity: 6},
	), true)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Nothing was decremented.
	p2, err := f.products.GetByID(t.Context(), "p2")
	require.NoError(t, err)
	assert.Equal(t, 5, p2.Stock)
}

func TestPlaceOrder_Unauthorized(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p1", Quantity: 1},
	), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackOrder(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p1", Quantity: 1},
	), true)
	require.Equal(t, http.StatusCreated, w.Code)

	var placed orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))

	w = f.do(t, http.MethodGet, "/api/orders/"+placed.UID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var tracked orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tracked))
	assert.Equal(t, placed.ID, tracked.ID)

	w = f.do(t, http.MethodGet, "/api/orders/no-such-uid", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p1", Quantity: 1},
	), true)
	require.Equal(t, http.StatusCreated, w.Code)
	var placed orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))

	w = f.do(t, http.MethodPatch, "/api/orders/"+placed.ID+"/status",
		updateStatusRequest{Status: "Processing"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPatch, "/api/orders/"+placed.ID+"/status",
		updateStatusRequest{Status: "Refunded"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Pending again is not a valid forward step.
	w = f.do(t, http.MethodPatch, "/api/orders/"+placed.ID+"/status",
		updateStatusRequest{Status: "Pending"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPatch, "/api/orders/"+placed.ID+"/status",
		updateStatusRequest{Status: "Delivered"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOrderHistory(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	for _, qty := range []int{1, 2} {
		w := f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
			cartEntryRequest{ProductID: "p1", Quantity: qty},
		), true)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/api/buyers/alice@example.com/orders", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var bought []orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bought))
	assert.Len(t, bought, 2)

	w = f.do(t, http.MethodGet, "/api/sellers/vineyard@example.com/orders", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var sold []orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sold))
	assert.Len(t, sold, 2)

	w = f.do(t, http.MethodGet, "/api/buyers/nobody@example.com/orders", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t, nil, []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/products", createProductRequest{
		Title: "Pinot Noir 2021", Category: "wine", Size: "750ml",
		Price: money("18.50"), Stock: 24,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created catalog.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "s1", created.SellerID)

	w = f.do(t, http.MethodGet, "/api/products/"+created.ID, nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/products", createProductRequest{Price: money("1.00")}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/products", createProductRequest{
		Title: "Mystery Crate", Price: money("-1.00"),
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct_UnknownSeller(t *testing.T) {
	f := newFixture(t, nil, nil, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/products", createProductRequest{
		Title: "Orphan Ale", Price: money("5.00"), Stock: 1,
	}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeetsRequirements(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	// 10.00 < 20.00 minimum.
	w := f.do(t, http.MethodPost, "/api/products/meets-requirements/vineyard@example.com",
		meetsRequirementsRequest{Entries: []cartEntryRequest{{ProductID: "p1", Quantity: 1}}}, false)
	require.Equal(t, http.StatusOK, w.Code)

	var res meetsRequirementsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.False(t, res.MeetsMinimum)
	assert.True(t, res.Fulfillable)
	assert.False(t, res.Satisfied)

	// 30.00 passes the minimum, stock covers it.
	w = f.do(t, http.MethodPost, "/api/products/meets-requirements/vineyard@example.com",
		meetsRequirementsRequest{Entries: []cartEntryRequest{{ProductID: "p1", Quantity: 3}}}, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Satisfied)

	// Quantity beyond stock fails fulfillability.
	w = f.do(t, http.MethodPost, "/api/products/meets-requirements/vineyard@example.com",
		meetsRequirementsRequest{Entries: []cartEntryRequest{{ProductID: "p1", Quantity: 11}}}, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.False(t, res.Fulfillable)
}

func TestApplySale(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/products/sale",
		applySaleRequest{ProductIDs: []string{"p1"}, Percent: 50}, true)
	require.Equal(t, http.StatusOK, w.Code)

	var updated []catalog.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	require.Len(t, updated, 1)
	assert.Equal(t, 50, updated[0].DiscountPercent)

	w = f.do(t, http.MethodPost, "/api/products/sale",
		applySaleRequest{ProductIDs: []string{"p1"}, Percent: 120}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/products/sale",
		applySaleRequest{ProductIDs: []string{"ghost"}, Percent: 10}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveFromStock(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/products/remove-from-stock",
		removeFromStockRequest{Changes: []cartEntryRequest{{ProductID: "p1", Quantity: 4}}}, true)
	require.Equal(t, http.StatusOK, w.Code)

	p1, err := f.products.GetByID(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, p1.Stock)

	w = f.do(t, http.MethodPost, "/api/products/remove-from-stock",
		removeFromStockRequest{Changes: []cartEntryRequest{{ProductID: "p1", Quantity: 100}}}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartLifecycle(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/buyers/alice@example.com/cart",
		cartEntryRequest{ProductID: "p1", Quantity: 2}, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Same product merges quantities.
	w = f.do(t, http.MethodPost, "/api/buyers/alice@example.com/cart",
		cartEntryRequest{ProductID: "p1", Quantity: 1}, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/buyers/alice@example.com/cart", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var cart cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cart))
	require.Len(t, cart.Entries, 1)
	assert.Equal(t, 3, cart.Entries[0].Quantity)

	w = f.do(t, http.MethodDelete, "/api/buyers/alice@example.com/cart/p1", nil, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/buyers/alice@example.com/cart", nil, true)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cart))
	assert.Empty(t, cart.Entries)
}

func TestAddToCart_UnknownProductOrBuyer(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/buyers/alice@example.com/cart",
		cartEntryRequest{ProductID: "ghost", Quantity: 1}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/buyers/nobody@example.com/cart",
		cartEntryRequest{ProductID: "p1", Quantity: 1}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceOrder_ClearsCart(t *testing.T) {
	f := newFixture(t, testCatalog(), []party.Seller{testSeller()}, []party.Buyer{testBuyer()})

	w := f.do(t, http.MethodPost, "/api/buyers/alice@example.com/cart",
		cartEntryRequest{ProductID: "p1", Quantity: 2}, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", placeOrderBody(
		cartEntryRequest{ProductID: "p1", Quantity: 2},
	), true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/buyers/alice@example.com/cart", nil, true)
	var cart cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cart))
	assert.Empty(t, cart.Entries)
}
