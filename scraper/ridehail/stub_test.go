package ridehail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// stubDriver scripts UI behavior per selector so protocol logic can be
// exercised without a browser.
type stubDriver struct {
	mu sync.Mutex

	currentURL string
	texts      map[string]string    // selector → element text
	failWait   map[string]bool      // WaitVisible/Text fails for these selectors
	failClick  map[string]bool
	redirects  map[string]string    // navigation target → landing URL
	appearAt   map[string]time.Time // selector exists only from this instant on
	failExists bool                 // Exists reports a driver error

	// enterNavigatesTo simulates the post-submit redirect after an
	// Enter keystroke (the one-time-code flow).
	enterNavigatesTo string

	// noResultsFor simulates a results-list timeout after the named
	// location text was typed into a search input.
	noResultsFor string
	lastTyped    string
	resultsSel   string
	navigations  []string
	clicked      []string
}

func newStubDriver(menuURL string) *stubDriver {
	return &stubDriver{
		currentURL: menuURL,
		texts:      make(map[string]string),
		failWait:   make(map[string]bool),
		failClick:  make(map[string]bool),
		redirects:  make(map[string]string),
		appearAt:   make(map[string]time.Time),
	}
}

func (d *stubDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if landed, ok := d.redirects[url]; ok {
		url = landed
	}
	d.currentURL = url
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *stubDriver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentURL, nil
}

func (d *stubDriver) Click(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failClick[selector] {
		return fmt.Errorf("stub: click %q timed out", selector)
	}
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *stubDriver) ClearAndType(_ context.Context, selector, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastTyped = text
	return nil
}

func (d *stubDriver) WaitVisible(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWait[selector] {
		return fmt.Errorf("stub: wait for %q timed out", selector)
	}
	if selector == d.resultsSel && d.lastTyped == d.noResultsFor && d.noResultsFor != "" {
		return fmt.Errorf("stub: results list for %q timed out", d.lastTyped)
	}
	return nil
}

func (d *stubDriver) Text(_ context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWait[selector] {
		return "", fmt.Errorf("stub: wait for %q timed out", selector)
	}
	text, ok := d.texts[selector]
	if !ok {
		return "", fmt.Errorf("stub: no element %q", selector)
	}
	return text, nil
}

func (d *stubDriver) Exists(_ context.Context, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failExists {
		return false, fmt.Errorf("stub: exists %q: tab gone", selector)
	}
	if at, ok := d.appearAt[selector]; ok {
		return time.Now().After(at), nil
	}
	_, ok := d.texts[selector]
	return ok, nil
}

func (d *stubDriver) PressEnter(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enterNavigatesTo != "" {
		d.currentURL = d.enterNavigatesTo
	}
	return nil
}

// blockingDriver blocks URL reads until the caller's context expires,
// simulating a page that never settles.
type blockingDriver struct{ *stubDriver }

func (d *blockingDriver) CurrentURL(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// stubPrompter replays scripted operator answers.
type stubPrompter struct {
	mu      sync.Mutex
	answers []string
	asked   []string
}

func (p *stubPrompter) Ask(_ context.Context, question string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", fmt.Errorf("stub prompter: no answer scripted for %q", question)
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

// stubTabs hands out drivers and tracks how many tabs are open at once.
type stubTabs struct {
	driver *stubDriver

	mu      sync.Mutex
	open    int
	maxOpen int
}

func (t *stubTabs) NewTab(ctx context.Context) (Driver, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	t.mu.Lock()
	t.open++
	if t.open > t.maxOpen {
		t.maxOpen = t.open
	}
	t.mu.Unlock()

	closeTab := func() {
		t.mu.Lock()
		t.open--
		t.mu.Unlock()
	}
	return t.driver, closeTab, nil
}

// memStore is an in-memory QuoteStore with the same upsert key
// semantics as the Postgres adapter.
type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.PriceQuote
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.PriceQuote)}
}

func (m *memStore) SaveQuote(_ context.Context, route *models.Route, quote *models.PriceQuote) error {
	if !route.Valid() {
		return fmt.Errorf("memstore: route lacks identifiers")
	}
	if quote == nil || quote.Empty() {
		return fmt.Errorf("memstore: quote has no price slots")
	}

	key := route.ID + "|" +
		quote.CapturedAt.Format(time.RFC3339Nano) + "|" +
		quote.CapturedAt.Format("2006-01-02")

	m.mu.Lock()
	m.rows[key] = quote
	m.mu.Unlock()
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) single() *models.PriceQuote {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.rows {
		return q
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		PhoneNumber:    "09120000000",
		LoginURL:       "https://app.test/login",
		MenuURL:        "https://app.test/",
		MaxConcurrency: 2,
		RateLimitMs:    0,
		MaxRetries:     1,
		TaskTimeout:    time.Second,
	}
}

func testSession(cfg *config.Config, d Driver, logger *utils.Logger) *Session {
	return NewSession(d, cfg, DefaultSelectors(), nil, logger)
}
