package http

import (
	"io"
	"net/http"

	"github.com/fjod/go_merch/internal/cart"
	"github.com/fjod/go_merch/internal/domain"
	"github.com/shopspring/decimal"
)

const maxCartBody = 64 << 10

type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

type CartSummaryResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

// Summary validates a client cart, as persisted under the "cart" key,
// and returns its totals.
// POST /api/v1/cart/summary
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	store, err := readCart(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, CartSummaryResponse{
		Items:      store.Items(),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
	})
}

// readCart loads the request body into a Store the same way the browser
// loads it from local storage.
func readCart(r *http.Request) (*cart.Store, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCartBody))
	if err != nil {
		return nil, err
	}
	storage := cart.NewMemoryStorage()
	if len(raw) > 0 {
		if err := storage.Set(cart.StorageKey, raw); err != nil {
			return nil, err
		}
	}
	return cart.Open(storage)
}
