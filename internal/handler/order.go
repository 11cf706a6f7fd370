package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/order"
	"github.com/sipmarket/sipmarket/internal/domain/party"
)

type cartEntryRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type placeOrderRequest struct {
	Entries     []cartEntryRequest `json:"entries"`
	SellerEmail string             `json:"sellerEmail"`
	BuyerEmail  string             `json:"buyerEmail"`
	Address     addressRequest     `json:"address"`
	DeliverBy   time.Time          `json:"deliverBy"`
}

type coordinatesResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type orderResponse struct {
	ID          string               `json:"id"`
	UID         string               `json:"uid"`
	Items       []order.LineItem     `json:"items"`
	BuyerID     string               `json:"buyerId"`
	SellerID    string               `json:"sellerId"`
	TotalPrice  decimal.Decimal      `json:"totalPrice"`
	Status      string               `json:"status"`
	PurchasedAt time.Time            `json:"purchasedAt"`
	DeliverBy   time.Time            `json:"deliverBy"`
	Address     addressRequest       `json:"address"`
	Coordinates *coordinatesResponse `json:"coordinates,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UID:         o.UID,
		Items:       o.Items,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		TotalPrice:  o.TotalPrice,
		Status:      string(o.Status),
		PurchasedAt: o.PurchasedAt,
		DeliverBy:   o.DeliverBy,
		Address: addressRequest{
			Street:  o.Address.Street,
			City:    o.Address.City,
			Country: o.Address.Country,
		},
	}
	if o.Coordinates != nil {
		resp.Coordinates = &coordinatesResponse{
			Latitude:  o.Coordinates.Latitude,
			Longitude: o.Coordinates.Longitude,
		}
	}
	return resp
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SellerEmail == "" || req.BuyerEmail == "" {
		writeError(w, http.StatusBadRequest, "sellerEmail and buyerEmail are required")
		return
	}

	entries := make([]party.CartEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = party.CartEntry{ProductID: e.ProductID, Quantity: e.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Entries:     entries,
		SellerEmail: req.SellerEmail,
		BuyerEmail:  req.BuyerEmail,
		Address: order.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			Country: req.Address.Country,
		},
		DeliverBy: req.DeliverBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listBuyerOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.BuyerHistory(r.Context(), r.PathValue("email"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func (h *Handler) listSellerOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.SellerHistory(r.Context(), r.PathValue("email"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(list))
}

func toOrderResponses(list []order.Order) []orderResponse {
	resp := make([]orderResponse, len(list))
	for i := range list {
		resp[i] = toOrderResponse(&list[i])
	}
	return resp
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), next)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
