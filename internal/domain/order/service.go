package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/geo"
	"github.com/sipmarket/sipmarket/internal/domain/party"
	"github.com/sipmarket/sipmarket/internal/events"
)

// PlaceOrderRequest holds the input for placing an order. The entries are the
// buyer's full cart: placing an order checks out everything in it.
type PlaceOrderRequest struct {
	Entries     []party.CartEntry
	SellerEmail string
	BuyerEmail  string
	Address     Address
	DeliverBy   time.Time
}

// Service orchestrates order placement: validation, snapshotting, the atomic
// commit, and best-effort post-commit side effects.
type Service struct {
	products  catalog.Repository
	buyers    party.BuyerRepository
	sellers   party.SellerRepository
	orders    Repository
	geocoder  geo.Resolver
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates an order Service with the required store handles and
// collaborators.
func NewService(
	products catalog.Repository,
	buyers party.BuyerRepository,
	sellers party.SellerRepository,
	orders Repository,
	geocoder geo.Resolver,
	publisher events.Publisher,
) *Service {
	return &Service{
		products:  products,
		buyers:    buyers,
		sellers:   sellers,
		orders:    orders,
		geocoder:  geocoder,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlaceOrder validates the cart, snapshots product state into line items,
// and commits the order together with history references, stock decrements,
// and the cart clear. On any failure no order exists, stock is unchanged,
// and the buyer's cart is untouched.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Entries) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(req.Entries))
	for i, e := range req.Entries {
		if e.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: e.ProductID}
		}
		ids[i] = e.ProductID
	}

	// Batch resolve; a count mismatch means some product id is invalid.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &catalog.NotFoundError{ProductID: id}
		}
	}

	seller, err := s.sellers.GetByEmail(ctx, req.SellerEmail)
	if err != nil {
		return nil, errors.Wrap(err, "get seller")
	}
	buyer, err := s.buyers.GetByEmail(ctx, req.BuyerEmail)
	if err != nil {
		return nil, errors.Wrap(err, "get buyer")
	}

	// Snapshot current product state into line items and compute the total
	// from the snapshot. The snapshot decouples the order's historical
	// record from future catalog mutation.
	items := make([]LineItem, len(req.Entries))
	total := decimal.Zero
	for i, e := range req.Entries {
		p := byID[e.ProductID]
		items[i] = LineItem{Product: p, Quantity: e.Quantity}
		total = total.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(e.Quantity))))
	}

	o := &Order{
		ID:          uuid.New().String(),
		UID:         uuid.New().String(),
		Items:       items,
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		TotalPrice:  total.Round(2),
		Status:      StatusPending,
		PurchasedAt: s.now(),
		DeliverBy:   req.DeliverBy,
		Address:     req.Address,
	}

	if lat, lon, err := s.geocoder.Resolve(ctx, req.Address.Street, req.Address.City, req.Address.Country); err == nil {
		o.Coordinates = &Coordinates{Latitude: lat, Longitude: lon}
	}

	// Atomic unit: order + both history refs + stock decrements + cart clear.
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Post-commit side effects are best effort: the order is already durable.
	if err := s.publisher.PublishOrderPlaced(ctx, events.OrderPlaced{
		OrderID:     o.ID,
		OrderUID:    o.UID,
		BuyerEmail:  buyer.Email,
		SellerEmail: seller.Email,
		TotalPrice:  o.TotalPrice,
		ItemCount:   len(o.Items),
		PurchasedAt: o.PurchasedAt,
	}); err != nil {
		zctx.From(ctx).Warn("publish order-placed event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o, nil
}

// Track resolves an order by its customer-facing uid.
func (s *Service) Track(ctx context.Context, uid string) (*Order, error) {
	return s.orders.GetByUID(ctx, uid)
}

// BuyerHistory lists a buyer's orders in placement order.
func (s *Service) BuyerHistory(ctx context.Context, buyerEmail string) ([]Order, error) {
	b, err := s.buyers.GetByEmail(ctx, buyerEmail)
	if err != nil {
		return nil, errors.Wrap(err, "get buyer")
	}
	return s.orders.ListByBuyer(ctx, b.ID)
}

// SellerHistory lists a seller's orders in placement order.
func (s *Service) SellerHistory(ctx context.Context, sellerEmail string) ([]Order, error) {
	sl, err := s.sellers.GetByEmail(ctx, sellerEmail)
	if err != nil {
		return nil, errors.Wrap(err, "get seller")
	}
	return s.orders.ListBySeller(ctx, sl.ID)
}

// UpdateStatus moves an order along the fulfillment state machine, rejecting
// transitions the machine does not permit.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if err := s.orders.SetStatus(ctx, id, next); err != nil {
		return nil, errors.Wrap(err, "set status")
	}
	o.Status = next
	return o, nil
}
