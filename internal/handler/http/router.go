package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewvibe/reviewvibe/internal/auth"
	"github.com/reviewvibe/reviewvibe/internal/service"
	"github.com/reviewvibe/reviewvibe/pkg/health"
	"github.com/reviewvibe/reviewvibe/pkg/middleware"
)

// Services bundles the service layer dependencies of the router.
type Services struct {
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Reviews  *service.ReviewService
	Products *service.ProductService
	Stats    *service.StatsService
}

// NewRouter creates a chi router with all API routes registered. Catalog and
// review reads are public; everything that writes or is scoped to a user
// requires a valid access token.
func NewRouter(
	svcs Services,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsCfg middleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("reviewvibe"))
	r.Use(middleware.Tracing("reviewvibe"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Bridge the JWT manager into the middleware package's validator shape.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	orderHandler := NewOrderHandler(svcs.Checkout, svcs.Orders, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	productHandler := NewProductHandler(svcs.Products, logger)
	userHandler := NewUserHandler(svcs.Stats, svcs.Reviews, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.CacheControl(60))

			r.Get("/", productHandler.ListProducts)
			r.Get("/top-rated", productHandler.TopRatedProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Route("/reviews", func(r chi.Router) {
			// Review reads are public.
			r.Get("/product/{productId}", reviewHandler.ListProductReviews)
			r.Get("/user/{userId}", reviewHandler.ListUserReviews)
			r.Get("/{id}", reviewHandler.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Use(middleware.Auth(tokenValidator))

				r.Post("/", reviewHandler.CreateReview)
				r.Put("/{id}", reviewHandler.UpdateReview)
				r.Delete("/{id}", reviewHandler.DeleteReview)
				r.Post("/{id}/helpful", reviewHandler.MarkHelpful)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/checkout", orderHandler.Checkout)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/stats/summary", orderHandler.Summary)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
			r.Put("/{id}/payment", orderHandler.UpdatePayment)
			r.Put("/{id}/cancel", orderHandler.CancelOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/points", userHandler.Points)
			r.Get("/stats", userHandler.Stats)
			r.Get("/leaderboard", userHandler.Leaderboard)
			r.Get("/reviews", userHandler.MyReviews)
		})
	})

	return r
}
