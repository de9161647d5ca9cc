// Package http exposes the storefront and admin API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 15 * time.Second

// InventoryAPI is everything the inventory and admin routes need.
type InventoryAPI interface {
	StockReader
	KeyAdder
	KeyClaimer
}

// OrderAPI is everything the order routes need.
type OrderAPI interface {
	OrderSubmitter
	OrderConfirmer
}

type RouterConfig struct {
	Inventory      InventoryAPI
	Orders         OrderAPI
	Refresher      InventoryRefresher
	Source         SourceLoader
	Store          Pinger
	Logger         *zap.Logger
	CORSOrigins    []string
	ConfirmPageURL string
	AdminToken     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	r.Get("/ready", HandleReady(cfg.Store))

	r.Get("/inventory", HandleGetAllStock(cfg.Inventory))
	r.Get("/inventory/{productID}", HandleGetStock(cfg.Inventory))

	r.Post("/orders", HandleSubmitOrder(cfg.Orders))
	r.Post("/orders/{id}/confirm", HandleConfirmOrder(cfg.Orders))
	r.Get("/confirm-order", HandleConfirmOrderRedirect(cfg.Orders, cfg.ConfirmPageURL))

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminOnly(cfg.AdminToken))
		r.Post("/keys", HandleAddKeys(cfg.Inventory))
		r.Get("/keys/export", HandleExportKeys(cfg.Source))
		r.Post("/inventory/{productID}/claim", HandleClaimKey(cfg.Inventory))
		r.Post("/inventory/sync", HandleSyncInventory(cfg.Refresher, cfg.Inventory))
	})

	return r
}
