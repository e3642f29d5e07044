package ridehail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

func TestAuthenticateSkipsLoginWhenSessionValid(t *testing.T) {
	cfg := testConfig()
	driver := newStubDriver(cfg.MenuURL)
	driver.redirects[cfg.LoginURL] = cfg.MenuURL

	prompter := &stubPrompter{}
	session := NewSession(driver, cfg, DefaultSelectors(), prompter, utils.NewLogger())

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(prompter.asked) != 0 {
		t.Errorf("valid session must not prompt the operator, asked %v", prompter.asked)
	}
}

func TestAuthenticateFullProtocol(t *testing.T) {
	cfg := testConfig()
	sel := DefaultSelectors()

	driver := newStubDriver("about:blank")
	driver.texts[sel.ChallengeDialog] = "" // challenge dialog is present
	driver.enterNavigatesTo = cfg.MenuURL

	prompter := &stubPrompter{answers: []string{"X7K2", "12345"}}
	session := NewSession(driver, cfg, sel, prompter, utils.NewLogger())

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if len(prompter.asked) != 2 {
		t.Fatalf("expected challenge + code prompts, got %d", len(prompter.asked))
	}
	if driver.lastTyped != "12345" {
		t.Errorf("one-time code not submitted, last typed %q", driver.lastTyped)
	}
}

func TestAuthenticateChallengeAppearsAfterDelay(t *testing.T) {
	cfg := testConfig()
	cfg.ChallengeWait = time.Second
	sel := DefaultSelectors()

	driver := newStubDriver("about:blank")
	// The dialog renders only after the server round trip completes.
	driver.appearAt[sel.ChallengeDialog] = time.Now().Add(200 * time.Millisecond)
	driver.enterNavigatesTo = cfg.MenuURL

	prompter := &stubPrompter{answers: []string{"X7K2", "12345"}}
	session := NewSession(driver, cfg, sel, prompter, utils.NewLogger())

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(prompter.asked) != 2 {
		t.Fatalf("expected challenge + code prompts, got %v", prompter.asked)
	}
}

func TestAuthenticateContinuesWhenDialogCheckErrors(t *testing.T) {
	cfg := testConfig()
	driver := newStubDriver("about:blank")
	driver.failExists = true
	driver.enterNavigatesTo = cfg.MenuURL

	prompter := &stubPrompter{answers: []string{"12345"}}
	session := NewSession(driver, cfg, DefaultSelectors(), prompter, utils.NewLogger())

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(prompter.asked) != 1 {
		t.Errorf("only the code prompt should be issued, asked %v", prompter.asked)
	}
}

func TestVerifyLoginSharesOneTimeoutBudget(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeout = 300 * time.Millisecond

	driver := &blockingDriver{newStubDriver("about:blank")}
	session := NewSession(driver, cfg, DefaultSelectors(), &stubPrompter{}, utils.NewLogger())

	start := time.Now()
	err := session.verifyLogin(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if elapsed > 2*cfg.TaskTimeout {
		t.Errorf("verification waited %v, budget is %v", elapsed, cfg.TaskTimeout)
	}
}

func TestAuthenticateFailsWhenLandingNeverReached(t *testing.T) {
	cfg := testConfig()
	driver := newStubDriver("about:blank")
	// No enterNavigatesTo: the post-submit redirect never happens.

	prompter := &stubPrompter{answers: []string{"12345"}}
	session := NewSession(driver, cfg, DefaultSelectors(), prompter, utils.NewLogger())

	err := session.Authenticate(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestEnsureAuthenticatedReusesValidSession(t *testing.T) {
	cfg := testConfig()
	driver := newStubDriver(cfg.MenuURL)
	driver.redirects[cfg.LoginURL] = cfg.MenuURL

	session := NewSession(driver, cfg, DefaultSelectors(), &stubPrompter{}, utils.NewLogger())
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	navsAfterAuth := len(driver.navigations)
	if err := session.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if len(driver.navigations) != navsAfterAuth {
		t.Error("valid session must not re-navigate to the login surface")
	}
}
