package ridehail

import "context"

// Driver abstracts the UI interactions one execution context (browser
// tab) supports. Every call blocks until the target element is ready or
// the per-action timeout expires. The chromedp implementation lives in
// browser.go; tests substitute a stub.
type Driver interface {
	// Navigate loads the given URL and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// CurrentURL reports the tab's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Click waits for the element to become visible and clicks it.
	Click(ctx context.Context, selector string) error

	// ClearAndType clears any residual text in the element and types
	// the given text into it.
	ClearAndType(ctx context.Context, selector, text string) error

	// WaitVisible blocks until the element is rendered.
	WaitVisible(ctx context.Context, selector string) error

	// Text reads the element's visible text.
	Text(ctx context.Context, selector string) (string, error)

	// Exists reports whether the element is currently in the DOM,
	// without waiting for it to appear.
	Exists(ctx context.Context, selector string) (bool, error)

	// PressEnter sends an Enter keystroke to the focused element.
	PressEnter(ctx context.Context) error
}

// TabFactory opens isolated UI execution contexts that share the one
// authenticated browser profile. Each worker slot gets its own tab.
type TabFactory interface {
	NewTab(ctx context.Context) (Driver, func(), error)
}
