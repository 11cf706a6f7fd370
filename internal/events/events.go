// Package events publishes marketplace domain events for downstream
// consumers (the mailer pipeline listens for order confirmations).
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Topic for order placement events.
const TopicOrderPlaced = "marketplace.order-placed"

// OrderPlaced is emitted after an order has been durably committed.
type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	OrderUID    string          `json:"order_uid"`
	BuyerEmail  string          `json:"buyer_email"`
	SellerEmail string          `json:"seller_email"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	ItemCount   int             `json:"item_count"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// Publisher delivers domain events to interested consumers.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
	Close()
}

// Nop is a Publisher that drops every event. Used when no broker is
// configured.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
func (Nop) Close()                                                {}
