package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/party"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createProductRequest struct {
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Size      string          `json:"size"`
	Packaging string          `json:"packaging"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}

// createProduct registers a product under the authenticated seller.
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Price.IsNegative() || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "price and stock must be non-negative")
		return
	}

	seller, err := h.sellers.GetByEmail(r.Context(), principal.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p := catalog.Product{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Category:  req.Category,
		Size:      req.Size,
		Packaging: req.Packaging,
		Image:     req.Image,
		Price:     req.Price,
		Stock:     req.Stock,
		SellerID:  seller.ID,
	}
	if err := h.products.Upsert(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type meetsRequirementsRequest struct {
	Entries []cartEntryRequest `json:"entries"`
}

type meetsRequirementsResponse struct {
	MeetsMinimum bool `json:"meetsMinimum"`
	Fulfillable  bool `json:"fulfillable"`
	Satisfied    bool `json:"satisfied"`
}

func (h *Handler) meetsRequirements(w http.ResponseWriter, r *http.Request) {
	var req meetsRequirementsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entries := make([]party.CartEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = party.CartEntry{ProductID: e.ProductID, Quantity: e.Quantity}
	}

	res, err := h.validator.Check(r.Context(), r.PathValue("email"), entries)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetsRequirementsResponse{
		MeetsMinimum: res.MeetsMinimum,
		Fulfillable:  res.Fulfillable,
		Satisfied:    res.Satisfied(),
	})
}

type applySaleRequest struct {
	ProductIDs []string `json:"productIds"`
	Percent    int      `json:"percent"`
}

func (h *Handler) applySale(w http.ResponseWriter, r *http.Request) {
	var req applySaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.catalog.ApplySale(r.Context(), req.ProductIDs, req.Percent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if updated == nil {
		updated = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, updated)
}

type removeFromStockRequest struct {
	Changes []cartEntryRequest `json:"changes"`
}

func (h *Handler) removeFromStock(w http.ResponseWriter, r *http.Request) {
	var req removeFromStockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	changes := make([]catalog.StockChange, len(req.Changes))
	for i, c := range req.Changes {
		changes[i] = catalog.StockChange{ProductID: c.ProductID, Quantity: c.Quantity}
	}

	updated, err := h.catalog.RemoveFromStock(r.Context(), changes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if updated == nil {
		updated = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, updated)
}
