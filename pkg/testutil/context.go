package testutil

import (
	"context"
	"net/http"
	"time"

	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/requestcontext"
)

// WithCaller marks the request as coming from caller holding proofs, as the
// caller-proof middleware would after verifying a token.
func WithCaller(req *http.Request, caller domain.AccountAddress, proofs ...domain.ResourceAddress) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller, proofs))
}

// WithTime pins the request time seen by handlers and services.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// CallerContext is the context form of WithCaller for service tests.
func CallerContext(ctx context.Context, caller domain.AccountAddress, at time.Time, proofs ...domain.ResourceAddress) context.Context {
	return requestcontext.WithTime(requestcontext.WithCaller(ctx, caller, proofs), at)
}
