// Package proof signs and verifies caller-proof tokens. A token names the
// calling account and the resources it holds; the HTTP boundary turns a
// verified token into the caller's authorization zone.
package proof

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/middleware/auth"
	pkgstrings "badgeissuer/pkg/platform/strings"
)

const DefaultTTL = time.Hour

// Claims are the JWT claims of a caller proof.
type Claims struct {
	Proofs []string `json:"proofs,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 caller proofs.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the time used for issued-at and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(signingKey, issuer string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a proof for caller holding proofs. Duplicate proofs are
// collapsed.
func (s *Service) Issue(caller domain.AccountAddress, proofs []domain.ResourceAddress, ttl time.Duration) (string, time.Time, error) {
	if caller.IsNil() {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "caller is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Proofs: pkgstrings.Strings(pkgstrings.DedupeAndTrim(proofs)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign proof")
	}
	return signed, expiresAt, nil
}

// VerifyProof checks the signature, issuer and expiry, then parses the
// addresses the token asserts.
func (s *Service) VerifyProof(_ context.Context, tokenString string) (*auth.ProofClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "proof has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid proof")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid proof claims")
	}

	caller, err := domain.ParseAccountAddress(claims.Subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid proof subject")
	}
	out := &auth.ProofClaims{Caller: caller}
	for _, raw := range claims.Proofs {
		resource, err := domain.ParseResourceAddress(raw)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid proof resource")
		}
		out.Proofs = append(out.Proofs, resource)
	}
	return out, nil
}
