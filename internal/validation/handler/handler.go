package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fdctax/internal/platform/middleware"
	"fdctax/internal/validation"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/httputil"
	"fdctax/pkg/requestcontext"
)

// Checker evaluates a TFN or ABN.
type Checker interface {
	Check(ctx context.Context, kind validation.Kind, raw string) (validation.Result, error)
}

// Handler serves the public identifier validation endpoints.
type Handler struct {
	logger  *slog.Logger
	checker Checker
	limiter *middleware.IPRateLimiter
}

// New creates a validation Handler. A nil limiter disables throttling.
func New(checker Checker, logger *slog.Logger, limiter *middleware.IPRateLimiter) *Handler {
	return &Handler{
		logger:  logger,
		checker: checker,
		limiter: limiter,
	}
}

// Register mounts POST /api/validate-tfn and POST /api/validate-abn.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(middleware.RateLimit(h.limiter, h.logger))
		}
		r.Post("/api/validate-tfn", h.handleValidateTFN)
		r.Post("/api/validate-abn", h.handleValidateABN)
	})
}

type tfnRequest struct {
	TFN *string `json:"tfn"`
}

type abnRequest struct {
	ABN *string `json:"abn"`
}

// Response mirrors validation.Result without the loading flag.
type Response struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func (h *Handler) handleValidateTFN(w http.ResponseWriter, r *http.Request) {
	var req tfnRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.TFN == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "tfn is required"))
		return
	}
	h.respond(w, r, validation.KindTFN, *req.TFN)
}

func (h *Handler) handleValidateABN(w http.ResponseWriter, r *http.Request) {
	var req abnRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ABN == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "abn is required"))
		return
	}
	h.respond(w, r, validation.KindABN, *req.ABN)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, kind validation.Kind, raw string) {
	ctx := r.Context()
	res, err := h.checker.Check(ctx, kind, raw)
	if err != nil {
		h.logger.ErrorContext(ctx, "identifier check failed",
			"request_id", requestcontext.RequestID(ctx),
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, validation.MsgValidatorError))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{Valid: res.IsValid(), Message: res.Message})
}
