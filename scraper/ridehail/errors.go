package ridehail

import "errors"

// Sentinel errors for the failure taxonomy. Call sites wrap them with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrAuthentication: the login/challenge/code flow did not reach
	// the authenticated surface. Fatal at startup, triggers re-auth
	// mid-run.
	ErrAuthentication = errors.New("authentication failed")

	// ErrLocationResolution: a search/select/submit sequence for one
	// location did not complete in time. Local to one route.
	ErrLocationResolution = errors.New("location resolution failed")

	// ErrPriceExtraction: a price element never appeared or its text
	// was unparseable. Local to one price slot.
	ErrPriceExtraction = errors.New("price extraction failed")

	// ErrValidation: malformed route or empty price structure. The
	// route is skipped without touching the UI (or, for an empty
	// quote, without persisting).
	ErrValidation = errors.New("validation failed")

	// ErrPersistence: the upsert failed. Fails the route, not the batch.
	ErrPersistence = errors.New("persistence failed")
)
