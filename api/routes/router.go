package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mystore-sync/api/controllers"
	"github.com/angelmondragon/mystore-sync/api/middleware"
	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/cartsync"
	"github.com/angelmondragon/mystore-sync/internal/checkout"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	"github.com/angelmondragon/mystore-sync/internal/payment"
	"github.com/angelmondragon/mystore-sync/pkg/config"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db *localdb.Client,
	cache redis.Pinger,
	store *cart.Store,
	syncService *cartsync.Service,
	checkoutService *checkout.Service,
	ordersRepo *orders.Repository,
	orchestrator *payment.Orchestrator,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, db, cache, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(store, logg))
			r.Post("/items", controllers.CartAddItem(store, logg))
			r.Put("/items/{productID}", controllers.CartSetQuantity(store, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(store, logg))
			r.Delete("/", controllers.CartClear(store, logg))
			r.With(middleware.RequireUser(logg)).Post("/merge", controllers.CartMerge(store, syncService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/totals", controllers.CheckoutTotals(checkoutService, logg))
			r.Post("/coupon", controllers.CouponApply(checkoutService, logg))
			r.Delete("/coupon", controllers.CouponRemove(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Get("/", controllers.OrdersList(ordersRepo, logg))
			r.Post("/refresh", controllers.OrdersRefresh(ordersRepo, logg))
			r.Get("/{orderID}", controllers.OrderGet(ordersRepo, logg))
			r.With(middleware.RequireAdmin(logg)).Patch("/{orderID}/status", controllers.OrderUpdateStatus(ordersRepo, logg))
		})

		r.Route("/payment", func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Get("/state", controllers.PaymentState(orchestrator, logg))
			r.Post("/method", controllers.PaymentSelectMethod(orchestrator, checkoutService, logg))
			r.Post("/card", controllers.PaymentAttachCard(orchestrator, logg))
			r.Post("/confirm", controllers.PaymentConfirm(orchestrator, logg))
			r.Post("/cod", controllers.PaymentSubmitCOD(orchestrator, logg))
			r.Post("/reset", controllers.PaymentReset(orchestrator, logg))
		})
	})

	return r
}
