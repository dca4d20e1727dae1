package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	account "roster/internal/account/models"
	"roster/internal/sync/models"
	"roster/internal/sync/report"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	pstrings "roster/pkg/platform/strings"
	"roster/pkg/requestcontext"
)

// Roles allowed to trigger runs and list synced accounts.
const (
	RoleAdmin        = "admin"
	RoleSyncOperator = "sync_operator"
)

// PrivilegedRoles is what the router's RequireRole middleware is built with.
var PrivilegedRoles = []string{RoleAdmin, RoleSyncOperator}

type Runner interface {
	Run(ctx context.Context, sources []models.SourceConfig, resume bool) models.RunResult
}

// SourceCatalog resolves requested source IDs into configured sources.
type SourceCatalog interface {
	Catalog(requested []string) ([]models.SourceConfig, error)
}

type AccountLister interface {
	ListBySources(ctx context.Context, sourceIDs []string) ([]*account.Account, error)
}

// Handler wires sync endpoints to the coordinator.
type Handler struct {
	runner   Runner
	catalog  SourceCatalog
	accounts AccountLister
	// preflight runs before any source is resolved, e.g. feed credential checks.
	preflight func() error
	logger    *slog.Logger
}

func New(runner Runner, catalog SourceCatalog, accounts AccountLister, preflight func() error, logger *slog.Logger) *Handler {
	return &Handler{
		runner:    runner,
		catalog:   catalog,
		accounts:  accounts,
		preflight: preflight,
		logger:    logger,
	}
}

// Register mounts sync endpoints on the router. Callers must mount it behind
// RequireAuth and RequireRole(PrivilegedRoles...).
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/sync/runs", h.HandleRun)
	r.Get("/admin/sync/accounts", h.HandleListAccounts)
}

// HandleRun handles POST /admin/sync/runs. The run is synchronous: the
// response carries the summary once every requested source is done.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.privileged(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "sync requires a privileged role"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if h.preflight != nil {
		if err := h.preflight(); err != nil {
			h.logger.ErrorContext(ctx, "sync preflight failed", "request_id", requestID, "error", err)
			httputil.WriteError(w, err)
			return
		}
	}

	sources, err := h.catalog.Catalog(req.Sources)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync sources not resolvable",
			"request_id", requestID,
			"requested", req.Sources,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result := h.runner.Run(ctx, sources, req.Resume)
	summary := report.Build(result)

	h.logger.InfoContext(ctx, "sync run served",
		"request_id", requestID,
		"operator_id", requestcontext.OperatorID(ctx).String(),
		"run_id", summary.RunID,
		"status", summary.Status,
		"total", summary.Total,
		"errors", summary.Errors,
	)
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleListAccounts handles GET /admin/sync/accounts?source=a,b.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.privileged(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "listing accounts requires a privileged role"))
		return
	}

	var sources []string
	for _, raw := range r.URL.Query()["source"] {
		sources = append(sources, strings.Split(raw, ",")...)
	}
	sources = pstrings.DedupeAndTrim(sources)

	accounts, err := h.accounts.ListBySources(ctx, sources)
	if err != nil {
		h.logger.ErrorContext(ctx, "list accounts failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAccounts(accounts))
}

func (h *Handler) privileged(ctx context.Context) bool {
	return !requestcontext.OperatorID(ctx).IsNil() && slices.Contains(PrivilegedRoles, requestcontext.Role(ctx))
}
