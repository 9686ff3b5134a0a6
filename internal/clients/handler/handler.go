package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fdctax/internal/clients/models"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/httputil"
	"fdctax/pkg/platform/middleware/admin"
	pkgstrings "fdctax/pkg/platform/strings"
	"fdctax/pkg/requestcontext"
)

// Service is the read side of the client list used by staff.
type Service interface {
	Get(ctx context.Context, id string) (*models.ClientView, error)
	List(ctx context.Context, q models.ListQuery) ([]*models.ClientView, error)
	ExportCSV(ctx context.Context, w io.Writer, ids []string) error
}

// Handler serves the admin client endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{
		service:    service,
		logger:     logger,
		adminToken: adminToken,
	}
}

// Register mounts the client routes behind the admin token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/api/clients", h.HandleList)
		r.Get("/api/clients/export", h.HandleExport)
		r.Get("/api/clients/{id}", h.HandleGet)
	})
}

type listResponse struct {
	Clients []*models.ClientView `json:"clients"`
	Count   int                  `json:"count"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list clients",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Clients: views, Count: len(views)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleExport streams a CSV of the selected clients, or all when ids is absent.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids := pkgstrings.SplitCSV(r.URL.Query().Get("ids"))

	var buf strings.Builder
	if err := h.service.ExportCSV(ctx, &buf, ids); err != nil {
		h.logger.ErrorContext(ctx, "failed to export clients",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="clients.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}

func parseListQuery(r *http.Request) (models.ListQuery, error) {
	values := r.URL.Query()
	q := models.ListQuery{Search: strings.TrimSpace(values.Get("search"))}
	var err error
	if q.Limit, err = intParam(values.Get("limit")); err != nil {
		return q, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
	}
	if q.Offset, err = intParam(values.Get("offset")); err != nil {
		return q, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer")
	}
	return q, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
