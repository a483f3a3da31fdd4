package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRequireAdminToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	called := false
	h := RequireAdminToken(hash, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		token  string
		status int
		called bool
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized},
		{name: "wrong token", token: "guess", status: http.StatusUnauthorized},
		{name: "valid token", token: "s3cret", status: http.StatusNoContent, called: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			r := httptest.NewRequest(http.MethodPost, "/admin/proofs", nil)
			if tc.token != "" {
				r.Header.Set(HeaderAdminToken, tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.called, called)
		})
	}
}

func TestRequireAdminTokenWithoutHashRejectsAll(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireAdminToken(nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest(http.MethodPost, "/components", nil)
	r.Header.Set(HeaderAdminToken, "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken("op-token")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("op-token")))
}
