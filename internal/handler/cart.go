package handler

import (
	"net/http"

	"github.com/sipmarket/sipmarket/internal/domain/party"
)

type cartResponse struct {
	Entries []cartEntryRequest `json:"entries"`
}

// resolveBuyer maps the path email onto a buyer id, writing a 404 itself when
// the buyer does not exist.
func (h *Handler) resolveBuyer(w http.ResponseWriter, r *http.Request) (*party.Buyer, bool) {
	b, err := h.buyers.GetByEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return b, true
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBuyer(w, r)
	if !ok {
		return
	}

	entries, err := h.buyers.Cart(r.Context(), b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := cartResponse{Entries: make([]cartEntryRequest, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = cartEntryRequest{ProductID: e.ProductID, Quantity: e.Quantity}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBuyer(w, r)
	if !ok {
		return
	}

	var req cartEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}

	// Verify the product exists before touching the cart.
	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		writeDomainError(w, err)
		return
	}

	entry := party.CartEntry{ProductID: req.ProductID, Quantity: req.Quantity}
	if err := h.buyers.AddToCart(r.Context(), b.ID, entry); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBuyer(w, r)
	if !ok {
		return
	}

	if err := h.buyers.RemoveFromCart(r.Context(), b.ID, r.PathValue("productID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolveBuyer(w, r)
	if !ok {
		return
	}

	if err := h.buyers.ClearCart(r.Context(), b.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
