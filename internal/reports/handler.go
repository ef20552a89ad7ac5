package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Handler wires HTTP endpoints for reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/sales-summary", h.handleSalesSummary)
	r.Get("/top-products", h.handleTopProducts)
	r.Get("/stock-valuation", h.handleStockValuation)
	r.Get("/profit-loss", h.handleProfitLoss)
	r.Get("/sales.csv", h.handleExportSales)
}

// periodFromQuery parses from/to, defaulting to the last 30 days.
func periodFromQuery(r *http.Request) (Period, error) {
	now := time.Now()
	period := Period{From: now.AddDate(0, 0, -30), To: now}
	if raw := r.URL.Query().Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Period{}, err
		}
		period.From = ts
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Period{}, err
		}
		period.To = ts
	}
	return period, nil
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from/to must be RFC 3339")
		return
	}
	dash, err := h.service.Dashboard(r.Context(), shared.ActorFromContext(r.Context()), period)
	if err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from/to must be RFC 3339")
		return
	}
	summary, err := h.service.SalesSummary(r.Context(), shared.ActorFromContext(r.Context()), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from/to must be RFC 3339")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.TopProducts(r.Context(), shared.ActorFromContext(r.Context()), period, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleStockValuation(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.StockValuation(r.Context(), shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from/to must be RFC 3339")
		return
	}
	pl, err := h.service.ProfitLoss(r.Context(), shared.ActorFromContext(r.Context()), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) handleExportSales(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from/to must be RFC 3339")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := h.service.ExportSalesCSV(r.Context(), shared.ActorFromContext(r.Context()), period, w); err != nil {
		h.logger.Error("export sales csv", slog.Any("error", err))
	}
}
