package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pharmacore-erp/pharmacore/internal/auth"
	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/compliance"
	"github.com/pharmacore-erp/pharmacore/internal/customers"
	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/licensing"
	"github.com/pharmacore-erp/pharmacore/internal/observability"
	"github.com/pharmacore-erp/pharmacore/internal/org"
	"github.com/pharmacore-erp/pharmacore/internal/pos"
	"github.com/pharmacore-erp/pharmacore/internal/procurement"
	"github.com/pharmacore-erp/pharmacore/internal/reports"
	"github.com/pharmacore-erp/pharmacore/internal/transfers"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Tokens         *auth.TokenManager
	LicenseService *licensing.Service

	AuthHandler        *auth.Handler
	OrgHandler         *org.Handler
	LicenseHandler     *licensing.Handler
	CatalogHandler     *catalog.Handler
	CustomerHandler    *customers.Handler
	InventoryHandler   *inventory.Handler
	POSHandler         *pos.Handler
	ProcurementHandler *procurement.Handler
	TransferHandler    *transfers.Handler
	ComplianceHandler  *compliance.Handler
	ReportsHandler     *reports.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router. Login and tenant registration are
// public; everything else sits behind the token middleware and the license
// gate.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountAuthRoutes)
	r.Post("/organizations", params.OrgHandler.Register)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Tokens))
		r.Use(licensing.Gate(params.LicenseService))

		r.Route("/license", params.LicenseHandler.MountRoutes)
		r.Get("/organizations/me", params.OrgHandler.Me)
		r.Route("/branches", params.OrgHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRoles(auth.RoleAdmin, auth.RoleManager))
			r.Route("/users", params.AuthHandler.MountUserRoutes)
		})

		r.Route("/manufacturers", params.CatalogHandler.MountManufacturerRoutes)
		r.Route("/distributions", params.CatalogHandler.MountDistributionRoutes)
		r.Route("/product-forms", params.CatalogHandler.MountProductFormRoutes)
		r.Route("/products", params.CatalogHandler.MountProductRoutes)

		r.Route("/customers", params.CustomerHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/sales", params.POSHandler.MountRoutes)
		r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)
		r.Route("/transfers", params.TransferHandler.MountRoutes)
		r.Route("/compliance", params.ComplianceHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	})

	return r
}
