package sync

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseBody() []byte
}

// Feed is the fake registrant provider the server under test reads from.
type Feed interface {
	AddAttendee(source, attendeeID, first, last, email, document, group string)
	FailWith(source string, status int)
}

// RegisterSteps registers sync trigger and account listing steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext, feed Feed) {
	steps := &syncSteps{tc: tc, feed: feed}

	ctx.Step(`^source "([^"]*)" has the registrants:$`, steps.sourceHasRegistrants)
	ctx.Step(`^source "([^"]*)" has (\d+) registrants with documents$`, steps.sourceHasGeneratedRegistrants)
	ctx.Step(`^source "([^"]*)" answers with status (\d+)$`, steps.sourceFails)

	ctx.Step(`^I trigger a sync of "([^"]*)"$`, steps.triggerSync)
	ctx.Step(`^I trigger a sync without a body$`, steps.triggerSyncWithoutBody)
	ctx.Step(`^I list accounts for source "([^"]*)"$`, steps.listAccounts)

	ctx.Step(`^the detail for "([^"]*)" should be "([^"]*)" with reason "([^"]*)"$`, steps.detailShouldBeWithReason)
	ctx.Step(`^the detail for "([^"]*)" should be "([^"]*)"$`, steps.detailShouldBe)
	ctx.Step(`^the account "([^"]*)" should be in group "([^"]*)"$`, steps.accountInGroup)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.responseShouldNotContain)
}

type syncSteps struct {
	tc   TestContext
	feed Feed
}

func (s *syncSteps) sourceHasRegistrants(ctx context.Context, source string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("registrant table needs a header and at least one row")
	}
	header := map[string]int{}
	for i, cell := range table.Rows[0].Cells {
		header[cell.Value] = i
	}
	col := func(row *godog.TableRow, name string) string {
		i, ok := header[name]
		if !ok {
			return ""
		}
		return row.Cells[i].Value
	}
	for _, row := range table.Rows[1:] {
		s.feed.AddAttendee(source,
			col(row, "id"),
			col(row, "first_name"),
			col(row, "last_name"),
			col(row, "email"),
			col(row, "document"),
			col(row, "group"),
		)
	}
	return nil
}

func (s *syncSteps) sourceHasGeneratedRegistrants(ctx context.Context, source string, n int) error {
	for i := range n {
		s.feed.AddAttendee(source,
			fmt.Sprintf("%s-%d", source, i),
			"Reg", fmt.Sprint(i),
			fmt.Sprintf("reg%d@%s.example", i, source),
			fmt.Sprintf("%s-doc-%d", source, i),
			"",
		)
	}
	return nil
}

func (s *syncSteps) sourceFails(ctx context.Context, source string, status int) error {
	s.feed.FailWith(source, status)
	return nil
}

func (s *syncSteps) triggerSync(ctx context.Context, sources string) error {
	return s.tc.POST("/admin/sync/runs", map[string]any{"sources": strings.Split(sources, ",")})
}

func (s *syncSteps) triggerSyncWithoutBody(ctx context.Context) error {
	return s.tc.POST("/admin/sync/runs", nil)
}

func (s *syncSteps) listAccounts(ctx context.Context, source string) error {
	return s.tc.GET("/admin/sync/accounts?source=" + url.QueryEscape(source))
}

func (s *syncSteps) detail(identifier string) (map[string]any, error) {
	raw, err := s.tc.GetResponseField("details")
	if err != nil {
		return nil, err
	}
	details, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("details is not a list")
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if ok && m["identifier"] == identifier {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no detail for %q in %s", identifier, s.tc.GetLastResponseBody())
}

func (s *syncSteps) detailShouldBe(ctx context.Context, identifier, status string) error {
	d, err := s.detail(identifier)
	if err != nil {
		return err
	}
	if d["status"] != status {
		return fmt.Errorf("expected %s to be %s, got %v", identifier, status, d["status"])
	}
	return nil
}

func (s *syncSteps) detailShouldBeWithReason(ctx context.Context, identifier, status, reason string) error {
	if err := s.detailShouldBe(ctx, identifier, status); err != nil {
		return err
	}
	d, _ := s.detail(identifier)
	if d["reason"] != reason {
		return fmt.Errorf("expected %s reason %s, got %v", identifier, reason, d["reason"])
	}
	return nil
}

func (s *syncSteps) accountInGroup(ctx context.Context, email, group string) error {
	raw, err := s.tc.GetResponseField("accounts")
	if err != nil {
		return err
	}
	accounts, _ := raw.([]any)
	for _, a := range accounts {
		m, ok := a.(map[string]any)
		if ok && m["email"] == email {
			if got := fmt.Sprint(m["group_label"]); got != group {
				return fmt.Errorf("expected %s in group %q, got %q", email, group, got)
			}
			return nil
		}
	}
	return fmt.Errorf("account %s not listed", email)
}

func (s *syncSteps) responseShouldNotContain(ctx context.Context, fragment string) error {
	if strings.Contains(string(s.tc.GetLastResponseBody()), fragment) {
		return fmt.Errorf("response unexpectedly contains %q", fragment)
	}
	return nil
}
