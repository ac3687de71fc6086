package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/rocketcart/internal/domain"
	"github.com/fjod/rocketcart/internal/notify"
	"github.com/go-chi/chi/v5"
)

// CartStore is the contract the UI layer sees: read access plus the three mutations.
type CartStore interface {
	Cart() domain.Cart
	AddProduct(ctx context.Context, productID int64)
	RemoveProduct(ctx context.Context, productID int64)
	UpdateProductAmount(ctx context.Context, productID int64, amount int)
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(store CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		store:   store,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountRequestDTO struct {
	Amount *int `json:"amount"`
}

// CartResponseDTO carries the cart after the request and the toasts raised while serving it.
type CartResponseDTO struct {
	Cart          domain.Cart           `json:"cart"`
	CartSize      int                   `json:"cart_size"`
	Notifications []notify.Notification `json:"notifications"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCartResponse(h.store.Cart(), nil))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	ctx, cancel, collector := h.requestContext(r)
	defer cancel()

	h.store.AddProduct(ctx, req.ProductID)
	respondJSON(w, http.StatusOK, newCartResponse(h.store.Cart(), collector.Notifications()))
}

func (h *CartHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	ctx, cancel, collector := h.requestContext(r)
	defer cancel()

	// non-positive amounts reach the store, which ignores them
	h.store.UpdateProductAmount(ctx, productID, *req.Amount)
	respondJSON(w, http.StatusOK, newCartResponse(h.store.Cart(), collector.Notifications()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel, collector := h.requestContext(r)
	defer cancel()

	h.store.RemoveProduct(ctx, productID)
	respondJSON(w, http.StatusOK, newCartResponse(h.store.Cart(), collector.Notifications()))
}

func (h *CartHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc, *notify.Collector) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	ctx, collector := notify.WithCollector(ctx)
	return ctx, cancel, collector
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func newCartResponse(c domain.Cart, notifications []notify.Notification) CartResponseDTO {
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	return CartResponseDTO{
		Cart:          c,
		CartSize:      c.Size(),
		Notifications: notifications,
	}
}
