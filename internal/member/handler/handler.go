// Package handler exposes the enrollment pipeline over HTTP. Route names and
// response shapes match what the membership front end already consumes.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"himpana/internal/member"
	"himpana/internal/platform/metrics"
	"himpana/internal/platform/middleware"
	derrors "himpana/pkg/domain-errors"
	"himpana/pkg/requestcontext"
)

// Service is the orchestrator surface the handler depends on.
type Service interface {
	Enroll(ctx context.Context, req member.EnrollmentRequest) (*member.Result, error)
	Update(ctx context.Context, req member.UpdateRequest) (*member.Result, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: m}
}

// Register mounts the enrollment routes with the shared middleware chain. The
// timeout covers the whole pipeline including delivery retries.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))
	router.Post("/api/kirim-member", h.handleEnroll)
	router.Put("/api/update-member", h.handleUpdate)

	r.Mount("/", router)
}

// memberData is the success payload's member projection.
type memberData struct {
	Name             string `json:"name"`
	RetirementNumber string `json:"retirement_number"`
	CardNumber       string `json:"card_number"`
	BranchID         int64  `json:"branch_id"`
}

type successResponse struct {
	Status     string     `json:"status"`
	FotoIDCard string     `json:"foto_idcard"`
	Data       memberData `json:"data"`
}

type warningResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	FotoIDCard string `json:"foto_idcard"`
}

// errorResponse carries the client-safe message; Detail adds the full error
// chain on 5xx bodies only, where the caller is the one debugging.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req member.EnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid JSON body"})
		return
	}

	result, err := h.service.Enroll(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, result)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req member.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid JSON body"})
		return
	}

	result, err := h.service.Update(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, result)
}

func (h *Handler) writeResult(w http.ResponseWriter, result *member.Result) {
	image := ""
	if result.Member.CardImagePath != nil {
		image = *result.Member.CardImagePath
	}

	if result.Status == member.StatusWarning {
		writeJSON(w, http.StatusOK, warningResponse{
			Status:     string(member.StatusWarning),
			Message:    result.Message,
			FotoIDCard: image,
		})
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Status:     string(member.StatusSuccess),
		FotoIDCard: image,
		Data: memberData{
			Name:             result.Member.Name,
			RetirementNumber: result.Member.RetirementNumber,
			CardNumber:       result.Member.CardNumber,
			BranchID:         result.Member.BranchID,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	code := derrors.CodeOf(err)
	status := derrors.ToHTTPStatus(code)
	body := errorResponse{Status: "error", Message: derrors.MessageOf(err)}
	if status >= http.StatusInternalServerError {
		body.Detail = err.Error()
		h.logger.ErrorContext(ctx, "enrollment request failed",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err.Error(),
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
