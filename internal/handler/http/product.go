package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reviewvibe/reviewvibe/internal/service"
	"github.com/reviewvibe/reviewvibe/pkg/httputil"
	"github.com/reviewvibe/reviewvibe/pkg/pagination"
)

// ProductHandler handles HTTP requests for catalog read endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	var search, category *string
	if v := r.URL.Query().Get("search"); v != "" {
		search = &v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category = &v
	}

	products, total, err := h.service.ListProducts(r.Context(), search, category, params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, params.Page, params.PerPage))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, product)
}

// TopRatedProducts handles GET /api/v1/products/top-rated
func (h *ProductHandler) TopRatedProducts(w http.ResponseWriter, r *http.Request) {
	// Invalid limits fall back to the service default.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := h.service.TopRatedProducts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, products)
}
