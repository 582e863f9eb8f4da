package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osanhueza/minimarket-backend/api/controllers"
	"github.com/osanhueza/minimarket-backend/api/middleware"
	alertsvc "github.com/osanhueza/minimarket-backend/internal/alerts"
	authsvc "github.com/osanhueza/minimarket-backend/internal/auth"
	cartsvc "github.com/osanhueza/minimarket-backend/internal/cart"
	checkoutsvc "github.com/osanhueza/minimarket-backend/internal/checkout"
	inventorysvc "github.com/osanhueza/minimarket-backend/internal/inventory"
	productsvc "github.com/osanhueza/minimarket-backend/internal/products"
	salesvc "github.com/osanhueza/minimarket-backend/internal/sales"
	"github.com/osanhueza/minimarket-backend/pkg/config"
	"github.com/osanhueza/minimarket-backend/pkg/db"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
	"github.com/osanhueza/minimarket-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	authService authsvc.Service,
	productService productsvc.Service,
	inventoryService inventorysvc.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	saleService salesvc.Service,
	alertService alertsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// a typed nil *redis.Client must not reach the middleware interfaces
	passthrough := func(next http.Handler) http.Handler { return next }
	authLimiter := passthrough
	idempotency := passthrough
	if redisClient != nil {
		authLimiter = middleware.AuthRateLimit(middleware.RateLimitPolicy{
			Name:       "auth",
			Window:     cfg.RateLimit.AuthWindow,
			IPLimit:    cfg.RateLimit.AuthIPLimit,
			EmailLimit: cfg.RateLimit.AuthEmailLimit,
		}, redisClient, logg)
		idempotency = middleware.Idempotency(redisClient, logg)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(authLimiter)
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/register", controllers.AuthRegister(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.With(idempotency).
			Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/critical", controllers.ProductCritical(productService, logg))
			r.Get("/stats", controllers.ProductStats(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Post("/", controllers.ProductCreate(productService, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(productService, logg))
				r.Delete("/{productId}", controllers.ProductDelete(productService, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Put("/{productId}/stock", controllers.InventorySetStock(inventoryService, logg))
			r.Post("/{productId}/purchase", controllers.InventoryPurchase(inventoryService, logg))
			r.Post("/transfer", controllers.InventoryTransfer(inventoryService, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, "admin", "employee"))
			r.Get("/", controllers.AlertList(alertService, logg))
			r.Get("/{alertId}", controllers.AlertDetail(alertService, logg))
			r.Post("/{alertId}/attend", controllers.AlertAttend(alertService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, "admin", "employee"))
			r.Get("/", controllers.SaleList(saleService, logg))
			r.Get("/{saleId}", controllers.SaleDetail(saleService, logg))
			r.With(middleware.RequireRole("admin", logg)).
				Post("/{saleId}/status", controllers.SaleUpdateStatus(saleService, logg))
		})
	})

	return r
}
