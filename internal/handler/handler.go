// Package handler exposes the marketplace API over HTTP, translating between
// JSON payloads and the domain services.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/sipmarket/sipmarket/internal/domain/auth"
	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/order"
	"github.com/sipmarket/sipmarket/internal/domain/party"
	"github.com/sipmarket/sipmarket/internal/domain/requirement"
)

// Handler carries the domain dependencies for all API endpoints.
type Handler struct {
	products  catalog.Repository
	catalog   *catalog.Service
	buyers    party.BuyerRepository
	sellers   party.SellerRepository
	orders    *order.Service
	validator *requirement.Validator
	verifier  auth.Verifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	catalogSvc *catalog.Service,
	buyers party.BuyerRepository,
	sellers party.SellerRepository,
	orders *order.Service,
	validator *requirement.Validator,
	verifier auth.Verifier,
) *Handler {
	return &Handler{
		products:  products,
		catalog:   catalogSvc,
		buyers:    buyers,
		sellers:   sellers,
		orders:    orders,
		validator: validator,
		verifier:  verifier,
	}
}

// Routes builds the API route table. Mutating endpoints require a verified
// bearer token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products/meets-requirements/{email}", h.meetsRequirements)
	mux.Handle("POST /api/products", h.requireAuth(h.createProduct))
	mux.Handle("POST /api/products/sale", h.requireAuth(h.applySale))
	mux.Handle("POST /api/products/remove-from-stock", h.requireAuth(h.removeFromStock))

	mux.Handle("POST /api/orders", h.requireAuth(h.placeOrder))
	mux.HandleFunc("GET /api/orders/{uid}", h.trackOrder)
	mux.Handle("PATCH /api/orders/{id}/status", h.requireAuth(h.updateOrderStatus))

	mux.Handle("GET /api/buyers/{email}/orders", h.requireAuth(h.listBuyerOrders))
	mux.Handle("GET /api/sellers/{email}/orders", h.requireAuth(h.listSellerOrders))

	mux.Handle("GET /api/buyers/{email}/cart", h.requireAuth(h.getCart))
	mux.Handle("POST /api/buyers/{email}/cart", h.requireAuth(h.addToCart))
	mux.Handle("DELETE /api/buyers/{email}/cart/{productID}", h.requireAuth(h.removeFromCart))
	mux.Handle("DELETE /api/buyers/{email}/cart", h.requireAuth(h.clearCart))

	return mux
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

// writeDomainError maps domain errors onto HTTP status codes. Unrecognized
// errors become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound     *catalog.NotFoundError
		badQuantity  *order.InvalidQuantityError
		shortStock   *catalog.InsufficientStockError
		badTransiton *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, catalog.ErrInvalidDiscount),
		errors.As(err, &badQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound),
		errors.Is(err, party.ErrBuyerNotFound),
		errors.Is(err, party.ErrSellerNotFound),
		errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &shortStock),
		errors.Is(err, order.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &badTransiton):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
