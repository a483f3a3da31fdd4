// Package handler exposes issuance components over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/badge/service"
	registrymodels "badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/httputil"
	"badgeissuer/pkg/requestcontext"
)

// Service is the issuance component surface used by the handler.
type Service interface {
	Instantiate(ctx context.Context, owner domain.ResourceAddress, dappDef domain.ComponentAddress) (*models.Component, error)
	GetHackathonBadge(ctx context.Context, componentAddr domain.ComponentAddress, teamName string) (*registrymodels.NonFungible, error)
	SetComponentMetadata(ctx context.Context, componentAddr domain.ComponentAddress, key, value string) error
	GetComponent(ctx context.Context, componentAddr domain.ComponentAddress) (*service.ComponentView, error)
	ListComponents(ctx context.Context) ([]*models.Component, error)
}

type Handler struct {
	badges     Service
	logger     *slog.Logger
	claimGuard []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithClaimMiddleware wraps only the badge claim route, typically with a
// per-caller rate limit.
func WithClaimMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.claimGuard = append(h.claimGuard, mw...)
	}
}

func New(badges Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{badges: badges, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public component routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/components", h.HandleList)
	r.Route("/components/{address}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.With(h.claimGuard...).Post("/badges", h.HandleIssueBadge)
		r.Put("/metadata/{key}", h.HandleSetMetadata)
	})
}

// RegisterAdmin mounts operator routes. The caller wraps r with the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/components", h.HandleInstantiate)
}

func (h *Handler) HandleInstantiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[InstantiateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.badges.Instantiate(ctx, req.ownerBadge, req.dappDefinition)
	if err != nil {
		h.fail(ctx, w, "instantiate", err)
		return
	}
	h.logger.InfoContext(ctx, "component instantiated",
		"request_id", requestID,
		"component_address", c.Address.String(),
		"resource_address", c.Resource.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toComponentResponse(c))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.badges.ListComponents(ctx)
	if err != nil {
		h.fail(ctx, w, "list components", err)
		return
	}
	resp := ComponentListResponse{Components: make([]ComponentResponse, 0, len(list)), Count: len(list)}
	for _, c := range list {
		resp.Components = append(resp.Components, toComponentResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := h.componentParam(w, r)
	if !ok {
		return
	}
	view, err := h.badges.GetComponent(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "get component", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toComponentViewResponse(view))
}

func (h *Handler) HandleIssueBadge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := h.componentParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueBadgeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	badge, err := h.badges.GetHackathonBadge(ctx, addr, req.TeamName)
	if err != nil {
		h.fail(ctx, w, "issue badge", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBadgeResponse(addr.String(), badge))
}

func (h *Handler) HandleSetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := h.componentParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetMetadataRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.badges.SetComponentMetadata(ctx, addr, chi.URLParam(r, "key"), req.Value); err != nil {
		h.fail(ctx, w, "set component metadata", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) componentParam(w http.ResponseWriter, r *http.Request) (domain.ComponentAddress, bool) {
	addr, err := domain.ParseComponentAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return addr, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "component request failed",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "component request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
