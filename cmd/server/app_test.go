package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgehandler "badgeissuer/internal/badge/handler"
	"badgeissuer/internal/platform/config"
	"badgeissuer/internal/proof"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/middleware/admin"
	"badgeissuer/pkg/testutil"
)

const operatorToken = "operator-token"

func newTestApp(t *testing.T, componentBackend string, mutate ...func(*config.Config)) *app {
	t.Helper()
	hash, err := admin.HashToken(operatorToken)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AdminTokenHash = string(hash)
	cfg.ComponentBackend = componentBackend
	cfg.SQLitePath = filepath.Join(t.TempDir(), "components.db")
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set(admin.HeaderAdminToken, operatorToken)
	return req
}

func TestBadgeClaimFlow(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			a := newTestApp(t, backend)
			owner := domain.NewResourceAddress()
			hacker := domain.NewAccountAddress()

			rr := testutil.DoRequest(a.router, asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/components", map[string]string{
				"owner_badge":     owner.String(),
				"dapp_definition": domain.NewComponentAddress().String(),
			})))
			testutil.AssertStatus(t, rr, http.StatusCreated)
			component := testutil.UnmarshalResponse[badgehandler.ComponentResponse](t, rr)

			rr = testutil.DoRequest(a.router, asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/proofs", map[string]any{
				"caller": hacker.String(),
			})))
			testutil.AssertStatus(t, rr, http.StatusCreated)
			token := testutil.UnmarshalResponse[proof.IssueResponse](t, rr).Token

			claim := testutil.NewJSONRequest(t, http.MethodPost, "/components/"+component.Address+"/badges",
				map[string]string{"team_name": "Alpha"})
			claim.Header.Set("Authorization", "Bearer "+token)
			rr = testutil.DoRequest(a.router, claim)
			testutil.AssertStatus(t, rr, http.StatusCreated)
			badge := testutil.UnmarshalResponse[badgehandler.BadgeResponse](t, rr)
			assert.Equal(t, hacker.String(), badge.Badge.Holder)
			assert.Equal(t, "Alpha", badge.TeamName)

			rr = testutil.DoRequest(a.router, testutil.NewRequest(t, http.MethodGet, "/components/"+component.Address))
			testutil.AssertStatusOK(t, rr)
			view := testutil.UnmarshalResponse[badgehandler.ComponentResponse](t, rr)
			require.NotNil(t, view.Issued)
			assert.Equal(t, uint64(1), *view.Issued)

			a.publisher.Close()
			issued, err := a.auditStore.ListByAction(context.Background(), audit.EventBadgeIssued)
			require.NoError(t, err)
			assert.Len(t, issued, 1)
		})
	}
}

func TestDirectMintThroughHTTPIsForbidden(t *testing.T) {
	a := newTestApp(t, config.BackendMemory)
	owner := domain.NewResourceAddress()

	rr := testutil.DoRequest(a.router, asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/components", map[string]string{
		"owner_badge":     owner.String(),
		"dapp_definition": domain.NewComponentAddress().String(),
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	component := testutil.UnmarshalResponse[badgehandler.ComponentResponse](t, rr)

	token, _, err := a.proofs.Issue(domain.NewAccountAddress(), []domain.ResourceAddress{owner}, 0)
	require.NoError(t, err)
	mint := testutil.NewJSONRequest(t, http.MethodPost, "/resources/"+component.Resource+"/mint",
		map[string]any{"data": map[string]string{"team_name": "Forged"}})
	mint.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(a.router, mint)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestClaimsAreRateLimitedPerCaller(t *testing.T) {
	a := newTestApp(t, config.BackendMemory, func(c *config.Config) { c.RateLimit.ClaimLimit = 2 })
	rr := testutil.DoRequest(a.router, asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/components", map[string]string{
		"owner_badge":     domain.NewResourceAddress().String(),
		"dapp_definition": domain.NewComponentAddress().String(),
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	component := testutil.UnmarshalResponse[badgehandler.ComponentResponse](t, rr)

	claim := func(caller domain.AccountAddress) *http.Request {
		token, _, err := a.proofs.Issue(caller, nil, 0)
		require.NoError(t, err)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/components/"+component.Address+"/badges",
			map[string]string{"team_name": "Alpha"})
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	hacker := domain.NewAccountAddress()
	testutil.AssertStatus(t, testutil.DoRequest(a.router, claim(hacker)), http.StatusCreated)
	testutil.AssertStatus(t, testutil.DoRequest(a.router, claim(hacker)), http.StatusCreated)
	rr = testutil.DoRequest(a.router, claim(hacker))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	testutil.AssertStatus(t, testutil.DoRequest(a.router, claim(domain.NewAccountAddress())), http.StatusCreated)
}

func TestAnonymousClaimReceivesBadge(t *testing.T) {
	a := newTestApp(t, config.BackendMemory)
	rr := testutil.DoRequest(a.router, asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/components", map[string]string{
		"owner_badge":     domain.NewResourceAddress().String(),
		"dapp_definition": domain.NewComponentAddress().String(),
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	component := testutil.UnmarshalResponse[badgehandler.ComponentResponse](t, rr)

	rr = testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/components/"+component.Address+"/badges",
		map[string]string{"team_name": "Alpha"}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	badge := testutil.UnmarshalResponse[badgehandler.BadgeResponse](t, rr)
	assert.Empty(t, badge.Badge.Holder)
	assert.Equal(t, "Alpha", badge.TeamName)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	a := newTestApp(t, config.BackendMemory)
	rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/proofs",
		map[string]string{"caller": domain.NewAccountAddress().String()}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestInvalidBearerIsRejected(t *testing.T) {
	a := newTestApp(t, config.BackendMemory)
	req := testutil.NewRequest(t, http.MethodGet, "/components")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := testutil.DoRequest(a.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, config.BackendMemory)

	rr := testutil.DoRequest(a.router, testutil.NewRequest(t, http.MethodGet, "/health"))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(a.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	body := string(testutil.ReadBody(t, rr))
	assert.True(t, strings.Contains(body, "badgeissuer_http_requests_total"), "http metrics exposed")
}
