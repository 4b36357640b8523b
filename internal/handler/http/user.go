package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reviewvibe/reviewvibe/internal/service"
	"github.com/reviewvibe/reviewvibe/pkg/httputil"
	"github.com/reviewvibe/reviewvibe/pkg/middleware"
	"github.com/reviewvibe/reviewvibe/pkg/pagination"
)

// UserHandler handles HTTP requests for the authenticated user's points,
// statistics, reviews, and the leaderboard.
type UserHandler struct {
	stats   *service.StatsService
	reviews *service.ReviewService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(stats *service.StatsService, reviews *service.ReviewService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		stats:   stats,
		reviews: reviews,
		logger:  logger,
	}
}

// Points handles GET /api/v1/users/points
func (h *UserHandler) Points(w http.ResponseWriter, r *http.Request) {
	points, err := h.stats.GetUserPoints(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, points)
}

// Stats handles GET /api/v1/users/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetUserStats(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, stats)
}

// Leaderboard handles GET /api/v1/users/leaderboard
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	// Invalid limits fall back to the service default.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.stats.Leaderboard(r.Context(), limit, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, entries)
}

// MyReviews handles GET /api/v1/users/reviews
func (h *UserHandler) MyReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	reviews, total, err := h.reviews.ListUserReviews(r.Context(), middleware.UserIDFromContext(r.Context()), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, params.Page, params.PerPage))
}
