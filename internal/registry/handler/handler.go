// Package handler exposes the registry over HTTP. Every write is checked
// against the caller's zone, built from the verified caller proof.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/httputil"
	"badgeissuer/pkg/requestcontext"
)

// Service is the subset of the registry manager the handler needs.
type Service interface {
	Mint(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, data map[string]string, holder domain.AccountAddress) (*models.NonFungible, error)
	UpdateData(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, id domain.NonFungibleLocalID, field, value string) (*models.NonFungible, error)
	Recall(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error)
	SetRole(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, role authz.RoleKey, rule authz.AccessRule) (*models.ResourceDefinition, error)
	SetMetadata(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, key, value string) (*models.ResourceDefinition, error)
	LockMetadata(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, key string) (*models.ResourceDefinition, error)
	Get(ctx context.Context, resource domain.ResourceAddress) (*models.ResourceDefinition, error)
	GetNonFungible(ctx context.Context, resource domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error)
	ListNonFungibles(ctx context.Context, resource domain.ResourceAddress) ([]*models.NonFungible, error)
}

type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the registry routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/resources/{address}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/mint", h.HandleMint)
		r.Get("/non-fungibles", h.HandleList)
		r.Get("/non-fungibles/{id}", h.HandleGetNonFungible)
		r.Patch("/non-fungibles/{id}", h.HandleUpdateData)
		r.Post("/non-fungibles/{id}/recall", h.HandleRecall)
		r.Put("/roles/{role}", h.HandleSetRole)
		r.Put("/metadata/{key}", h.HandleSetMetadata)
		r.Post("/metadata/{key}/lock", h.HandleLockMetadata)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	def, err := h.registry.Get(ctx, resource)
	if err != nil {
		h.fail(ctx, w, "get resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResourceResponse(def))
}

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	holder := req.holder
	if holder.IsNil() {
		holder = requestcontext.Caller(ctx)
	}
	nf, err := h.registry.Mint(ctx, authz.ZoneFromContext(ctx), resource, req.Data, holder)
	if err != nil {
		h.fail(ctx, w, "mint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ToNonFungibleResponse(nf))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	list, err := h.registry.ListNonFungibles(ctx, resource)
	if err != nil {
		h.fail(ctx, w, "list non-fungibles", err)
		return
	}
	resp := NonFungibleListResponse{NonFungibles: make([]NonFungibleResponse, 0, len(list)), Count: len(list)}
	for _, nf := range list {
		resp.NonFungibles = append(resp.NonFungibles, ToNonFungibleResponse(nf))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetNonFungible(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, id, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	nf, err := h.registry.GetNonFungible(ctx, resource, id)
	if err != nil {
		h.fail(ctx, w, "get non-fungible", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToNonFungibleResponse(nf))
}

func (h *Handler) HandleUpdateData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, id, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDataRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	nf, err := h.registry.UpdateData(ctx, authz.ZoneFromContext(ctx), resource, id, req.Field, req.Value)
	if err != nil {
		h.fail(ctx, w, "update non-fungible data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToNonFungibleResponse(nf))
}

func (h *Handler) HandleRecall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, id, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	nf, err := h.registry.Recall(ctx, authz.ZoneFromContext(ctx), resource, id)
	if err != nil {
		h.fail(ctx, w, "recall", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToNonFungibleResponse(nf))
}

func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	role, err := authz.ParseRoleKey(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetRoleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	def, err := h.registry.SetRole(ctx, authz.ZoneFromContext(ctx), resource, role, req.Rule)
	if err != nil {
		h.fail(ctx, w, "set role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResourceResponse(def))
}

func (h *Handler) HandleSetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetMetadataRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	def, err := h.registry.SetMetadata(ctx, authz.ZoneFromContext(ctx), resource, chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.fail(ctx, w, "set metadata", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResourceResponse(def))
}

func (h *Handler) HandleLockMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return
	}
	def, err := h.registry.LockMetadata(ctx, authz.ZoneFromContext(ctx), resource, chi.URLParam(r, "key"))
	if err != nil {
		h.fail(ctx, w, "lock metadata", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResourceResponse(def))
}

func (h *Handler) resourceParam(w http.ResponseWriter, r *http.Request) (domain.ResourceAddress, bool) {
	resource, err := domain.ParseResourceAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return resource, true
}

// recordParams parses the resource address and local id. Local ids contain
// braces and arrive percent-encoded.
func (h *Handler) recordParams(w http.ResponseWriter, r *http.Request) (domain.ResourceAddress, domain.NonFungibleLocalID, bool) {
	resource, ok := h.resourceParam(w, r)
	if !ok {
		return "", "", false
	}
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed local id"))
		return "", "", false
	}
	id, err := domain.ParseNonFungibleLocalID(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return "", "", false
	}
	return resource, id, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "registry request failed",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "registry request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
