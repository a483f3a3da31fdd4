package proof

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/httputil"
	"badgeissuer/pkg/requestcontext"
)

const maxTTL = 24 * time.Hour

type IssueRequest struct {
	Caller     string   `json:"caller"`
	Proofs     []string `json:"proofs"`
	TTLSeconds int64    `json:"ttl_seconds,omitempty"`

	caller domain.AccountAddress
	proofs []domain.ResourceAddress
}

func (r *IssueRequest) Validate() error {
	caller, err := domain.ParseAccountAddress(r.Caller)
	if err != nil {
		return err
	}
	if r.TTLSeconds < 0 || time.Duration(r.TTLSeconds)*time.Second > maxTTL {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be between 0 and 86400")
	}
	proofs := make([]domain.ResourceAddress, 0, len(r.Proofs))
	for _, raw := range r.Proofs {
		p, err := domain.ParseResourceAddress(raw)
		if err != nil {
			return err
		}
		proofs = append(proofs, p)
	}
	r.caller, r.proofs = caller, proofs
	return nil
}

type IssueResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer is the signing side used by the admin route.
type Issuer interface {
	Issue(caller domain.AccountAddress, proofs []domain.ResourceAddress, ttl time.Duration) (string, time.Time, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Handler struct {
	issuer         Issuer
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

func NewHandler(issuer Issuer, logger *slog.Logger, publisher AuditPublisher) *Handler {
	return &Handler{issuer: issuer, logger: logger, auditPublisher: publisher}
}

// RegisterAdmin mounts POST /admin/proofs. The caller wraps r with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/proofs", h.HandleIssue)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	token, expiresAt, err := h.issuer.Issue(req.caller, req.proofs, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue proof",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, string(audit.EventProofIssued),
		"log_type", "audit",
		"request_id", requestID,
		"subject", req.caller.String(),
		"proofs", len(req.proofs),
	)
	if h.auditPublisher != nil {
		if err := h.auditPublisher.Emit(ctx, audit.Event{
			Action:    string(audit.EventProofIssued),
			Subject:   req.caller.String(),
			RequestID: requestID,
			ClientIP:  requestcontext.ClientIP(ctx),
			Device:    requestcontext.Device(ctx),
		}); err != nil {
			h.logger.WarnContext(ctx, "failed to emit audit event",
				"event", string(audit.EventProofIssued),
				"error", err,
			)
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}
