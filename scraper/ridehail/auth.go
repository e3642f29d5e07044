package ridehail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// Session manages the one authenticated browser identity shared by all
// worker slots. Re-authentication is an exclusive operation: the mutex
// guarantees at most one attempt is in flight.
type Session struct {
	driver    Driver
	cfg       *config.Config
	selectors Selectors
	prompter  utils.Prompter
	logger    *utils.Logger

	mu    sync.Mutex
	valid bool
}

// NewSession creates a session bound to the browser's primary tab.
func NewSession(driver Driver, cfg *config.Config, selectors Selectors,
	prompter utils.Prompter, logger *utils.Logger) *Session {
	return &Session{
		driver:    driver,
		cfg:       cfg,
		selectors: selectors,
		prompter:  prompter,
		logger:    logger,
	}
}

// Authenticate runs the full login protocol. If the profile already
// carries a live session it returns immediately without re-entering
// credentials.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticateLocked(ctx)
}

// EnsureAuthenticated re-checks session validity against the current
// navigated URL and re-runs the login protocol only when invalid.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid && s.checkLocked(ctx) {
		return nil
	}
	return s.authenticateLocked(ctx)
}

// Invalidate marks the session as expired so the next
// EnsureAuthenticated call re-runs the login protocol.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *Session) authenticateLocked(ctx context.Context) error {
	s.logger.Info("[auth] Starting authentication")

	if err := s.driver.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("%w: navigate to login surface: %v", ErrAuthentication, err)
	}

	if s.checkLocked(ctx) {
		s.logger.Info("[auth] Existing session is still valid, skipping login")
		s.valid = true
		return nil
	}

	if err := s.enterPhoneNumber(ctx); err != nil {
		return err
	}
	if err := s.handleChallenge(ctx); err != nil {
		return err
	}
	if err := s.enterOneTimeCode(ctx); err != nil {
		return err
	}
	if err := s.verifyLogin(ctx); err != nil {
		return err
	}

	s.valid = true
	s.logger.Info("[auth] Authentication successful")
	return nil
}

// checkLocked reports whether the tab currently sits on the
// authenticated landing surface.
func (s *Session) checkLocked(ctx context.Context) bool {
	url, err := s.driver.CurrentURL(ctx)
	if err != nil {
		s.logger.Warn("[auth] Could not read current URL: %v", err)
		s.valid = false
		return false
	}
	if url != s.cfg.MenuURL {
		s.logger.Info("[auth] Session expired (at %s), re-authentication required", url)
		s.valid = false
		return false
	}
	return true
}

func (s *Session) enterPhoneNumber(ctx context.Context) error {
	s.logger.Info("[auth] Entering phone number")

	if err := s.driver.ClearAndType(ctx, s.selectors.PhoneInput, s.cfg.PhoneNumber); err != nil {
		return fmt.Errorf("%w: phone input: %v", ErrAuthentication, err)
	}
	if err := s.driver.Click(ctx, s.selectors.LoginSubmit); err != nil {
		return fmt.Errorf("%w: login submit: %v", ErrAuthentication, err)
	}
	return nil
}

// handleChallenge watches for a bot-verification dialog and, when one
// is presented, solicits the solution from the operator. The dialog is
// optional: its absence is not an error.
func (s *Session) handleChallenge(ctx context.Context) error {
	present, err := s.waitForChallengeDialog(ctx)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}

	s.logger.Info("[auth] Challenge dialog detected, waiting for operator")
	solution, err := s.prompter.Ask(ctx, "Solve the challenge shown in the browser and enter the answer:")
	if err != nil {
		return fmt.Errorf("%w: challenge solution: %v", ErrAuthentication, err)
	}
	if solution == "" {
		return nil
	}

	if err := s.driver.ClearAndType(ctx, s.selectors.ChallengeInput, solution); err != nil {
		s.logger.Warn("[auth] Challenge submit failed, continuing: %v", err)
		return nil
	}
	return s.driver.PressEnter(ctx)
}

// waitForChallengeDialog polls for the dialog until it appears or the
// challenge window elapses. The dialog renders only after a server
// round trip, so a single instantaneous check right after the login
// submit would miss it. Driver errors are treated as "no dialog" so a
// flaky read cannot abort the login.
func (s *Session) waitForChallengeDialog(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(s.cfg.ChallengeWait)
	for {
		present, err := s.driver.Exists(ctx, s.selectors.ChallengeDialog)
		if err != nil {
			s.logger.Warn("[auth] Challenge dialog check failed: %v", err)
			return false, nil
		}
		if present {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *Session) enterOneTimeCode(ctx context.Context) error {
	s.logger.Info("[auth] Waiting for one-time-code input field")

	if err := s.driver.WaitVisible(ctx, s.selectors.CodeInput); err != nil {
		return fmt.Errorf("%w: code input never appeared: %v", ErrAuthentication, err)
	}

	code, err := s.prompter.Ask(ctx, "Enter the one-time code sent to your phone:")
	if err != nil {
		return fmt.Errorf("%w: one-time code: %v", ErrAuthentication, err)
	}
	if code == "" {
		return fmt.Errorf("%w: empty one-time code", ErrAuthentication)
	}

	if err := s.driver.ClearAndType(ctx, s.selectors.CodeInput, code); err != nil {
		return fmt.Errorf("%w: submit one-time code: %v", ErrAuthentication, err)
	}
	return s.driver.PressEnter(ctx)
}

// verifyLogin polls the navigated URL until it matches the
// authenticated landing surface or the task timeout elapses. The poll
// loop and the URL reads inside it share one timeout budget, so the
// wall-clock wait never exceeds TaskTimeout.
func (s *Session) verifyLogin(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	for {
		url, err := s.driver.CurrentURL(waitCtx)
		if err == nil && url == s.cfg.MenuURL {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: did not reach landing surface %s", ErrAuthentication, s.cfg.MenuURL)
		case <-time.After(time.Second):
		}
	}
}
