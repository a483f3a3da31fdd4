// Package auth turns bearer proof tokens into a caller identity in the
// request context.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"badgeissuer/pkg/domain"
	request "badgeissuer/pkg/platform/middleware/request"
	"badgeissuer/pkg/requestcontext"
)

// ProofVerifier validates a caller proof token.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, token string) (*ProofClaims, error)
}

// ProofClaims is what a verified token asserts about the caller.
type ProofClaims struct {
	Caller domain.AccountAddress
	Proofs []domain.ResourceAddress
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// CallerProofs populates the caller identity when a bearer token is present.
// Requests without an Authorization header proceed anonymously; a present
// but invalid token is rejected.
func CallerProofs(verifier ProofVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := verifier.VerifyProof(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid proof token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.Caller, claims.Proofs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCaller rejects anonymous requests.
func RequireCaller(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Caller(ctx).IsNil() {
				logger.WarnContext(ctx, "unauthorized access - missing caller",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Caller proof required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
