package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader() http.Header
	GetComponent() string
	GetBearer() string
}

// RegisterSteps registers rate-limiting step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I keep claiming badges for team "([^"]*)" up to (\d+) times$`, steps.claimRepeatedly)
	ctx.Step(`^a claim should have been rate limited$`, steps.claimWasRateLimited)
	ctx.Step(`^the response should carry rate limit headers$`, steps.responseCarriesHeaders)
}

type ratelimitSteps struct {
	tc      TestContext
	limited bool
	allowed int
}

// claimRepeatedly stops at the first 429.
func (s *ratelimitSteps) claimRepeatedly(ctx context.Context, team string, max int) error {
	s.limited = false
	s.allowed = 0
	headers := map[string]string{"Authorization": "Bearer " + s.tc.GetBearer()}
	for range max {
		err := s.tc.POST("/components/"+s.tc.GetComponent()+"/badges",
			map[string]string{"team_name": team}, headers)
		if err != nil {
			return err
		}
		switch s.tc.GetLastResponseStatus() {
		case http.StatusCreated:
			s.allowed++
		case http.StatusTooManyRequests:
			s.limited = true
			return nil
		default:
			return fmt.Errorf("unexpected status %d after %d claims", s.tc.GetLastResponseStatus(), s.allowed)
		}
	}
	return nil
}

func (s *ratelimitSteps) claimWasRateLimited(ctx context.Context) error {
	if !s.limited {
		return fmt.Errorf("no claim was rate limited after %d successes", s.allowed)
	}
	return nil
}

func (s *ratelimitSteps) responseCarriesHeaders(ctx context.Context) error {
	h := s.tc.GetLastResponseHeader()
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return fmt.Errorf("X-RateLimit-Limit: %w", err)
	}
	if limit != s.allowed {
		return fmt.Errorf("expected limit %d to match allowed claims, got %d", s.allowed, limit)
	}
	if h.Get("Retry-After") == "" {
		return fmt.Errorf("missing Retry-After header")
	}
	return nil
}
