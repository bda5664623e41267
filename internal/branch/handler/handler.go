package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"himpana/internal/branch"
	"himpana/internal/platform/metrics"
	"himpana/internal/platform/middleware"
	"himpana/pkg/requestcontext"
)

// Handler serves read-only province and branch lookups used by enrollment
// front ends to populate branch pickers.
type Handler struct {
	logger  *slog.Logger
	store   branch.Store
	metrics *metrics.Metrics
}

func New(store branch.Store, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, store: store, metrics: m}
}

// Register mounts the province routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(10 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Get("/api/v1/province", h.handleListProvinces)
	router.Get("/api/v1/province/{provinceID}", h.handleListBranches)

	r.Mount("/", router)
}

// envelope matches the reference-data response shape the front end already
// consumes.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) handleListProvinces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provinces, err := h.store.ListProvinces(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list provinces",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeEnvelope(w, http.StatusInternalServerError, envelope{
			Success: false,
			Message: "database error while fetching provinces",
		})
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "provinces retrieved successfully",
		Data:    provinces,
	})
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provinceID, err := strconv.ParseInt(chi.URLParam(r, "provinceID"), 10, 64)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "invalid province id",
		})
		return
	}

	branches, err := h.store.ListByProvince(ctx, provinceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list branches",
			"request_id", requestcontext.RequestID(ctx),
			"province_id", provinceID,
			"error", err.Error(),
		)
		writeEnvelope(w, http.StatusInternalServerError, envelope{
			Success: false,
			Message: "database error while fetching branches",
		})
		return
	}

	if len(branches) == 0 {
		writeEnvelope(w, http.StatusNotFound, envelope{
			Success: false,
			Message: "no branches found for this province",
		})
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "branches retrieved successfully",
		Data:    branches,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
