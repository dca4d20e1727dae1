package e2e

import (
	"github.com/cucumber/godog"

	"roster/e2e/steps/common"
	syncsteps "roster/e2e/steps/sync"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	syncsteps.RegisterSteps(ctx, tc, tc.Feed)
}
