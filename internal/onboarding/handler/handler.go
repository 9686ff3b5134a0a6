package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fdctax/internal/onboarding/service"
	"fdctax/internal/payment"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/httputil"
	"fdctax/pkg/requestcontext"
)

// Service drives onboarding sessions.
type Service interface {
	Start(ctx context.Context, flowName, resumeToken string) (*service.Snapshot, error)
	Get(ctx context.Context, id string) (*service.Snapshot, error)
	UpdateField(ctx context.Context, id, field string, value any) (*service.Snapshot, error)
	SetToggle(ctx context.Context, id, toggle string, enabled bool) (*service.Snapshot, error)
	Next(ctx context.Context, id string) (*service.Snapshot, error)
	Back(ctx context.Context, id string) (*service.Snapshot, error)
	Submit(ctx context.Context, id string) (*service.Snapshot, error)
	CreatePayment(ctx context.Context, id string) (*service.Snapshot, *payment.Intent, error)
	ConfirmPayment(ctx context.Context, id, intentID string) (*service.Snapshot, error)
}

// Handler serves the wizard endpoints used by the Luna and ABN assistance UIs.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/onboarding/{flow}/sessions", h.HandleStart)
	r.Route("/api/onboarding/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/fields", h.HandleUpdateField)
		r.Post("/toggles", h.HandleSetToggle)
		r.Post("/next", h.HandleNext)
		r.Post("/back", h.HandleBack)
		r.Post("/submit", h.HandleSubmit)
		r.Post("/payment", h.HandleCreatePayment)
		r.Post("/payment/confirm", h.HandleConfirmPayment)
	})
}

type startRequest struct {
	ResumeToken string `json:"resume_token"`
}

type fieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type toggleRequest struct {
	Toggle  string `json:"toggle"`
	Enabled *bool  `json:"enabled"`
}

type confirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type paymentResponse struct {
	Session *service.Snapshot `json:"session"`
	Payment *payment.Intent   `json:"payment"`
}

// errorResponse extends the standard error body with the session state, so a
// refused Continue can render its message next to the current stage.
type errorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Session          *service.Snapshot `json:"session,omitempty"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req startRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	snap, err := h.service.Start(ctx, chi.URLParam(r, "flow"), req.ResumeToken)
	if err != nil {
		h.fail(w, r, "start", nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, snap)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "get", snap, err)
}

func (h *Handler) HandleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Field == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field is required"))
		return
	}
	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "value is not valid JSON"))
			return
		}
	}
	snap, err := h.service.UpdateField(r.Context(), chi.URLParam(r, "id"), req.Field, value)
	h.respond(w, r, "update_field", snap, err)
}

func (h *Handler) HandleSetToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Toggle == "" || req.Enabled == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "toggle and enabled are required"))
		return
	}
	snap, err := h.service.SetToggle(r.Context(), chi.URLParam(r, "id"), req.Toggle, *req.Enabled)
	h.respond(w, r, "set_toggle", snap, err)
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Next(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "next", snap, err)
}

func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Back(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "back", snap, err)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "submit", snap, err)
}

func (h *Handler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	snap, intent, err := h.service.CreatePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "create_payment", snap, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, paymentResponse{Session: snap, Payment: intent})
}

func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	snap, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), req.PaymentIntentID)
	h.respond(w, r, "confirm_payment", snap, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, snap *service.Snapshot, err error) {
	if err != nil {
		h.fail(w, r, op, snap, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, snap *service.Snapshot, err error) {
	ctx := r.Context()
	de, ok := dErrors.As(err)
	if !ok {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	status := httputil.StatusFor(de.Code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "onboarding request failed",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
			"error", err,
		)
	}
	body := errorResponse{Error: string(de.Code), Session: snap}
	if de.Code != dErrors.CodeInternal {
		body.ErrorDescription = de.Message
	}
	httputil.WriteJSON(w, status, body)
}
