// internal/browser/renderer.go

// Package browser provides a headless Chrome renderer for storefronts that
// build their product pages with JavaScript. Most sites do not need it; the
// plain HTTP fetcher is the default.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// RendererConfig configures the headless browser.
type RendererConfig struct {
	Headless      bool
	UserAgent     string
	Timeout       time.Duration
	WaitDelay     time.Duration
	DisableImages bool
}

// DefaultRendererConfig returns sensible defaults for batch scraping.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		Headless:      true,
		Timeout:       30 * time.Second,
		DisableImages: true,
	}
}

// Renderer loads pages in headless Chrome and returns the rendered HTML.
// It reuses one browser process across Render calls.
type Renderer struct {
	config      RendererConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewRenderer starts the Chrome allocator. Call Close when done.
func NewRenderer(config RendererConfig) (*Renderer, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		config:      config,
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}, nil
}

// Render navigates to the URL, waits for the body, and returns the page HTML.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	timeout := r.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// Honor caller cancellation alongside the tab timeout.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-runCtx.Done():
		}
	}()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if r.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(r.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return "", fmt.Errorf("render failed for %s: %w", url, err)
	}
	return html, nil
}

// Close shuts down the browser process.
func (r *Renderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
