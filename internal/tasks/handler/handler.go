package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fdctax/internal/tasks/models"
	"fdctax/pkg/platform/httputil"
	"fdctax/pkg/platform/middleware/admin"
	"fdctax/pkg/requestcontext"
)

// Service lists staff tasks.
type Service interface {
	List(ctx context.Context, clientID string) ([]*models.Task, error)
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// Register mounts GET /api/tasks behind the admin token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/api/tasks", h.HandleList)
	})
}

type listResponse struct {
	Tasks []*models.Task `json:"tasks"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := h.service.List(ctx, r.URL.Query().Get("client_id"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list tasks",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Tasks: tasks})
}
