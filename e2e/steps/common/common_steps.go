package common

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader() http.Header
	GetAdminToken() string
	NewAddress(kind string) string
	SetComponent(addr string)
	SetResource(addr string)
	SetOwner(addr string)
}

// RegisterSteps registers background setup and generic assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the badge issuer is running$`, steps.serverIsRunning)
	ctx.Step(`^an operator instantiates a badge component$`, steps.instantiateComponent)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.responseErrorShouldBe)
	ctx.Step(`^the response error description should be "([^"]*)"$`, steps.responseErrorDescriptionShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health", nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, http.StatusOK)
}

func (s *commonSteps) instantiateComponent(ctx context.Context) error {
	owner := s.tc.NewAddress("resource")
	err := s.tc.POST("/components", map[string]string{
		"owner_badge":     owner,
		"dapp_definition": s.tc.NewAddress("component"),
	}, map[string]string{"X-Admin-Token": s.tc.GetAdminToken()})
	if err != nil {
		return err
	}
	if err := s.responseStatusShouldBe(ctx, http.StatusCreated); err != nil {
		return err
	}
	component, err := s.stringField("address")
	if err != nil {
		return err
	}
	resource, err := s.stringField("resource")
	if err != nil {
		return err
	}
	s.tc.SetComponent(component)
	s.tc.SetResource(resource)
	s.tc.SetOwner(owner)
	return nil
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseErrorShouldBe(_ context.Context, code string) error {
	return s.responseFieldShouldBe(context.Background(), "error", code)
}

func (s *commonSteps) responseErrorDescriptionShouldBe(_ context.Context, desc string) error {
	return s.responseFieldShouldBe(context.Background(), "error_description", desc)
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, expected string) error {
	got, err := s.stringField(field)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) stringField(field string) (string, error) {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string: %v", field, v)
	}
	return str, nil
}
