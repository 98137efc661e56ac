package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductRepository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	repo    ProductRepository
	timeout time.Duration
}

func NewProductHandler(repo ProductRepository, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		repo:    repo,
		timeout: timeout,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.repo.GetAllProducts(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	respondJSON(w, r, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.repo.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, product)
}
