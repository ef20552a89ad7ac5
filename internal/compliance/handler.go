package compliance

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Handler wires HTTP endpoints for compliance reads.
type Handler struct {
	service *Service
}

// NewHandler constructs compliance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers /compliance.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/controlled-substances", h.handleControlledSubstances)
	r.Get("/controlled-substances.csv", h.handleControlledSubstancesCSV)
	r.Get("/audit-log", h.handleAuditTrail)
}

func logFilterFromQuery(r *http.Request) (LogFilter, string) {
	filter := LogFilter{CNIC: r.URL.Query().Get("cnic")}
	if raw := r.URL.Query().Get("branchId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return LogFilter{}, "invalid branchId"
		}
		filter.BranchID = &id
	}
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return LogFilter{}, "invalid productId"
		}
		filter.ProductID = &id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return LogFilter{}, "from must be RFC 3339"
		}
		filter.From = &ts
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return LogFilter{}, "to must be RFC 3339"
		}
		filter.To = &ts
	}
	return filter, ""
}

func (h *Handler) handleControlledSubstances(w http.ResponseWriter, r *http.Request) {
	filter, problem := logFilterFromQuery(r)
	if problem != "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", problem)
		return
	}
	list, err := h.service.ControlledSubstances(r.Context(), shared.ActorFromContext(r.Context()), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleControlledSubstancesCSV(w http.ResponseWriter, r *http.Request) {
	filter, problem := logFilterFromQuery(r)
	if problem != "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", problem)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="controlled-substances.csv"`)
	if err := h.service.ExportControlledCSV(r.Context(), shared.ActorFromContext(r.Context()), filter, w); err != nil {
		httpx.RespondError(w, err)
	}
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.AuditTrail(r.Context(), shared.ActorFromContext(r.Context()),
		r.URL.Query().Get("entity"), r.URL.Query().Get("entityId"), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
