package claim

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	PUT(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAdminToken() string
	GetComponent() string
	GetResource() string
	GetOwner() string
	GetBearer() string
	SetBearer(token string)
	NewAddress(kind string) string
}

// RegisterSteps registers badge claim step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimSteps{tc: tc}

	ctx.Step(`^I hold a caller proof for a new account$`, steps.holdProofForNewAccount)
	ctx.Step(`^I hold a caller proof that presents the owner badge$`, steps.holdOwnerProof)
	ctx.Step(`^I claim a badge for team "([^"]*)"$`, steps.claimBadge)
	ctx.Step(`^I claim a badge anonymously for team "([^"]*)"$`, steps.claimAnonymously)
	ctx.Step(`^I mint directly on the badge resource$`, steps.mintDirectly)
	ctx.Step(`^I set component metadata "([^"]*)" to "([^"]*)"$`, steps.setComponentMetadata)
	ctx.Step(`^the badge should record team "([^"]*)" for my account$`, steps.badgeShouldRecordTeam)
	ctx.Step(`^the badge should record team "([^"]*)" with no holder$`, steps.badgeShouldRecordTeamUnheld)
	ctx.Step(`^the component should report (\d+) issued badges?$`, steps.componentShouldReportIssued)
}

type claimSteps struct {
	tc     TestContext
	caller string
}

func (s *claimSteps) holdProofForNewAccount(ctx context.Context) error {
	return s.issueProof(s.tc.NewAddress("account"), nil)
}

func (s *claimSteps) holdOwnerProof(ctx context.Context) error {
	return s.issueProof(s.tc.NewAddress("account"), []string{s.tc.GetOwner()})
}

func (s *claimSteps) issueProof(caller string, proofs []string) error {
	err := s.tc.POST("/admin/proofs", map[string]any{
		"caller": caller,
		"proofs": proofs,
	}, map[string]string{"X-Admin-Token": s.tc.GetAdminToken()})
	if err != nil {
		return err
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.caller = caller
	s.tc.SetBearer(token.(string))
	return nil
}

func (s *claimSteps) authHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.tc.GetBearer()}
}

func (s *claimSteps) claimBadge(ctx context.Context, team string) error {
	return s.tc.POST("/components/"+s.tc.GetComponent()+"/badges",
		map[string]string{"team_name": team}, s.authHeader())
}

func (s *claimSteps) claimAnonymously(ctx context.Context, team string) error {
	return s.tc.POST("/components/"+s.tc.GetComponent()+"/badges",
		map[string]string{"team_name": team}, nil)
}

func (s *claimSteps) mintDirectly(ctx context.Context) error {
	return s.tc.POST("/resources/"+s.tc.GetResource()+"/mint",
		map[string]any{"data": map[string]string{"team_name": "Forged"}}, s.authHeader())
}

func (s *claimSteps) setComponentMetadata(ctx context.Context, key, value string) error {
	return s.tc.PUT("/components/"+s.tc.GetComponent()+"/metadata/"+key,
		map[string]string{"value": value}, s.authHeader())
}

func (s *claimSteps) badgeShouldRecordTeam(ctx context.Context, team string) error {
	return s.checkBadge(team, s.caller)
}

func (s *claimSteps) badgeShouldRecordTeamUnheld(ctx context.Context, team string) error {
	return s.checkBadge(team, "")
}

func (s *claimSteps) checkBadge(team, holder string) error {
	raw, err := s.tc.GetResponseField("badge")
	if err != nil {
		return err
	}
	badge, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("badge is not an object: %v", raw)
	}
	got, _ := badge["holder"].(string)
	if got != holder {
		return fmt.Errorf("expected holder %q, got %q", holder, got)
	}
	data, _ := badge["data"].(map[string]any)
	if data["team_name"] != team {
		return fmt.Errorf("expected team %q, got %v", team, data["team_name"])
	}
	return nil
}

func (s *claimSteps) componentShouldReportIssued(ctx context.Context, n int) error {
	if err := s.tc.GET("/components/"+s.tc.GetComponent(), nil); err != nil {
		return err
	}
	issued, err := s.tc.GetResponseField("issued")
	if err != nil {
		return err
	}
	if got, _ := issued.(float64); int(got) != n {
		return fmt.Errorf("expected %d issued, got %v", n, issued)
	}
	return nil
}
