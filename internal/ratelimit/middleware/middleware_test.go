package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgeissuer/internal/ratelimit/metrics"
	"badgeissuer/internal/ratelimit/models"
	"badgeissuer/internal/ratelimit/store"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/requestcontext"
	helpers "badgeissuer/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Policy) (*models.Result, error) {
	return nil, errors.New("connection refused")
}

var policy = models.Policy{Limit: 2, Window: time.Minute}

func newLimited(st Store, met *metrics.Metrics, opts ...Option) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, WithMetrics(met))
	m := New(st, logger, opts...)
	return m.PerCaller("claim", policy)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
}

func claimRequest(caller domain.AccountAddress, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/components/x/badges", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, "", "")
	if caller != "" {
		ctx = requestcontext.WithCaller(ctx, caller, nil)
	}
	return req.WithContext(ctx)
}

func TestPerCaller(t *testing.T) {
	helpers.Given(t, "a caller within budget", func(t *testing.T) {
		met := metrics.New(prometheus.NewRegistry())
		h := newLimited(store.NewInMemory(), met)
		caller := domain.NewAccountAddress()

		helpers.Then(t, "requests pass with headers", func(t *testing.T) {
			rr := helpers.DoRequest(h, claimRequest(caller, "10.0.0.1"))
			assert.Equal(t, http.StatusCreated, rr.Code)
			assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))
		})

		helpers.When(t, "the budget is spent", func(t *testing.T) {
			helpers.DoRequest(h, claimRequest(caller, "10.0.0.1"))
			rr := helpers.DoRequest(h, claimRequest(caller, "10.0.0.2"))

			assert.Equal(t, http.StatusTooManyRequests, rr.Code)
			assert.Equal(t, "60", rr.Header().Get("Retry-After"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, "rate_limited", body["error"])
			assert.Equal(t, float64(1), testutil.ToFloat64(met.Limited.WithLabelValues("claim")))
		})

		helpers.Then(t, "other callers keep their own budget", func(t *testing.T) {
			rr := helpers.DoRequest(h, claimRequest(domain.NewAccountAddress(), "10.0.0.1"))
			assert.Equal(t, http.StatusCreated, rr.Code)
		})
	})

	helpers.Given(t, "anonymous requests", func(t *testing.T) {
		h := newLimited(store.NewInMemory(), metrics.New(prometheus.NewRegistry()))

		helpers.Then(t, "they are bucketed by client IP", func(t *testing.T) {
			helpers.DoRequest(h, claimRequest("", "192.0.2.7"))
			helpers.DoRequest(h, claimRequest("", "192.0.2.7"))
			assert.Equal(t, http.StatusTooManyRequests, helpers.DoRequest(h, claimRequest("", "192.0.2.7")).Code)
			assert.Equal(t, http.StatusCreated, helpers.DoRequest(h, claimRequest("", "192.0.2.8")).Code)
		})
	})

	helpers.Given(t, "a failing store", func(t *testing.T) {
		met := metrics.New(prometheus.NewRegistry())
		h := newLimited(failingStore{}, met)

		helpers.Then(t, "requests fail open", func(t *testing.T) {
			rr := helpers.DoRequest(h, claimRequest(domain.NewAccountAddress(), "10.0.0.1"))
			assert.Equal(t, http.StatusCreated, rr.Code)
			assert.Equal(t, float64(1), testutil.ToFloat64(met.StoreErrors))
		})
	})

	helpers.Given(t, "limiting is disabled", func(t *testing.T) {
		h := newLimited(failingStore{}, nil, WithDisabled(true))

		helpers.Then(t, "the store is never consulted", func(t *testing.T) {
			rr := helpers.DoRequest(h, claimRequest(domain.NewAccountAddress(), "10.0.0.1"))
			assert.Equal(t, http.StatusCreated, rr.Code)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		})
	})
}
