package e2e

import (
	"github.com/cucumber/godog"

	"badgeissuer/e2e/steps/claim"
	"badgeissuer/e2e/steps/common"
	"badgeissuer/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	claim.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
