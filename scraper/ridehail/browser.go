package ridehail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// Browser owns the shared Chrome process and profile. Tabs created from
// it share cookies and session storage, so one login serves every
// worker slot.
type Browser struct {
	cfg    *config.Config
	logger *utils.Logger

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	rootCtx     context.Context
	cancelRoot  context.CancelFunc
}

// NewBrowser launches Chrome with a persistent profile directory and
// returns the shared browser handle.
func NewBrowser(cfg *config.Config, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserDataDir("./chrome_profile"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// Materialize the browser process before any tab work.
	if err := chromedp.Run(rootCtx); err != nil {
		cancelRoot()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	return &Browser{
		cfg:         cfg,
		logger:      logger,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		rootCtx:     rootCtx,
		cancelRoot:  cancelRoot,
	}, nil
}

// NewTab opens a fresh tab sharing the authenticated profile. The
// returned cancel function closes the tab.
func (b *Browser) NewTab(ctx context.Context) (Driver, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tabCtx, cancel := chromedp.NewContext(b.rootCtx)
	d := &chromedpDriver{
		tabCtx:        tabCtx,
		actionTimeout: b.cfg.TaskTimeout,
	}
	return d, cancel, nil
}

// RootDriver returns a driver bound to the browser's first tab, used
// for the authentication flow.
func (b *Browser) RootDriver() Driver {
	return &chromedpDriver{
		tabCtx:        b.rootCtx,
		actionTimeout: b.cfg.TaskTimeout,
	}
}

// Close shuts the browser process down.
func (b *Browser) Close() {
	b.cancelRoot()
	b.cancelAlloc()
}

// chromedpDriver implements Driver over a single chromedp tab context.
type chromedpDriver struct {
	tabCtx        context.Context
	actionTimeout time.Duration
}

// run executes chromedp actions with a per-action timeout.
func (d *chromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(d.tabCtx, d.actionTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(timeoutCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("action timed out after %v: %w", d.actionTimeout, err)
		}
		return err
	}
}

func (d *chromedpDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *chromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

func (d *chromedpDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (d *chromedpDriver) ClearAndType(ctx context.Context, selector, text string) error {
	return d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (d *chromedpDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (d *chromedpDriver) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &out, chromedp.ByQuery),
	)
	return out, err
}

func (d *chromedpDriver) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := d.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelector(%q) !== null`, selector), &found))
	return found, err
}

func (d *chromedpDriver) PressEnter(ctx context.Context) error {
	return d.run(ctx, chromedp.KeyEvent(kb.Enter))
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
