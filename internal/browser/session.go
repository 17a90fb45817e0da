// Package browser obtains cross-seller price-grouping data that only
// materializes after browser-side rendering and a user-style interaction.
// Sessions are isolated per product and always torn down; every step is
// best-effort and any failure degrades to the zero GroupingResult.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/observability"
)

const (
	sellersBlockSelector = "#all_sellers-block"
	placeholderSelector  = "rz-slider-placeholder"
	offersBlockSelector  = "rz-product-offers"
)

// Extractor drives headless browser sessions for grouping lookups.
type Extractor struct {
	cfg       *config.BrowserConfig
	userAgent string
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewExtractor creates a rendered-page extractor. The user agent matches
// the HTTP session's so the two surfaces present one fingerprint.
func NewExtractor(cfg *config.BrowserConfig, userAgent string, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		cfg:       cfg,
		userAgent: userAgent,
		logger:    logger.With("component", "browser"),
		metrics:   metrics,
	}
}

// FetchGrouping navigates an isolated stealth session to the product page,
// performs the expand-grouping interaction, and extracts the seller-offer
// list from a DOM snapshot. Any failure yields the zero GroupingResult;
// the session is torn down regardless.
func (e *Extractor) FetchGrouping(ctx context.Context, pageURL string) catalog.GroupingResult {
	logger := e.logger.With("url", pageURL)
	if e.metrics != nil {
		e.metrics.RenderSessions.Inc()
	}

	res, err := e.fetch(ctx, pageURL, logger)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RenderFailures.Inc()
		}
		logger.Warn("grouping session degraded to zero result", "error", err)
		return catalog.GroupingResult{}
	}
	return res
}

func (e *Extractor) fetch(ctx context.Context, pageURL string, logger *slog.Logger) (catalog.GroupingResult, error) {
	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("window-size", e.cfg.WindowSize).
		Set("disable-blink-features", "AutomationControlled")
	if e.cfg.BinPath != "" {
		l = l.Bin(e.cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return catalog.GroupingResult{}, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return catalog.GroupingResult{}, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = b.Close()
		l.Cleanup()
	}()

	page, err := stealth.Page(b)
	if err != nil {
		return catalog.GroupingResult{}, fmt.Errorf("stealth page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.userAgent}); err != nil {
		logger.Warn("failed to set user agent", "error", err)
	}

	if err := page.Timeout(e.cfg.NavigationTimeout).Navigate(pageURL); err != nil {
		return catalog.GroupingResult{}, fmt.Errorf("navigate: %w", err)
	}
	sleep(ctx, e.cfg.SettleDelay)

	e.scrollToSellers(page, logger)
	e.clickToggle(ctx, page, logger)

	if !e.waitForContent(ctx, page, logger) {
		logger.Warn("grouping content did not finish loading")
	}
	sleep(ctx, 2*time.Second)

	html, err := page.HTML()
	if err != nil {
		return catalog.GroupingResult{}, fmt.Errorf("snapshot html: %w", err)
	}

	res := ExtractGrouping(html)
	logger.Debug("grouping extracted",
		"found", res.Found,
		"count", res.Count,
		"min_price", res.MinPrice,
		"sellers", len(res.Sellers),
	)
	return res, nil
}

// scrollToSellers brings the all-sellers region into view so lazy content
// starts loading. Missing block is not an error: grouping may be absent.
func (e *Extractor) scrollToSellers(page *rod.Page, logger *slog.Logger) {
	has, el, err := page.Has(sellersBlockSelector)
	if err != nil || !has {
		logger.Warn("sellers block not found for scrolling")
		return
	}
	if err := el.ScrollIntoView(); err != nil {
		logger.Warn("scroll to sellers block failed", "error", err)
		return
	}
	sleep(page.GetContext(), 2*time.Second)
}

// clickToggle tries the toggle-button cascade; the first visible match is
// clicked. No match means the grouping is already expanded or absent.
func (e *Extractor) clickToggle(ctx context.Context, page *rod.Page, logger *slog.Logger) {
	for _, sel := range toggleSelectors {
		has, el, err := page.Has(sel)
		if err != nil || !has {
			continue
		}
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.ScrollIntoView(); err != nil {
			logger.Warn("scroll to toggle failed", "selector", sel, "error", err)
			continue
		}
		sleep(ctx, e.cfg.ClickDelay)

		// JS click: the control sits under custom elements that swallow
		// synthetic mouse events.
		if _, err := el.Eval(`() => this.click()`); err != nil {
			logger.Warn("toggle click failed", "selector", sel, "error", err)
			continue
		}
		logger.Debug("grouping toggle clicked", "selector", sel)
		sleep(ctx, e.cfg.SettleDelay)
		return
	}
	logger.Debug("grouping toggle not found or already expanded")
}

// waitForContent polls for the loading placeholder to disappear; when it
// never does, the presence of offer list items or the offers container is
// accepted as an alternate readiness signal.
func (e *Extractor) waitForContent(ctx context.Context, page *rod.Page, logger *slog.Logger) bool {
	deadline := time.Now().Add(e.cfg.ContentTimeout)
	for time.Now().Before(deadline) {
		if !sleep(ctx, time.Second) {
			return false
		}
		has, _, err := page.Has(placeholderSelector)
		if err == nil && !has {
			return true
		}
	}

	if has, _, err := page.Has(sellersBlockSelector + " li"); err == nil && has {
		logger.Debug("placeholder persisted, offer items present")
		return true
	}
	if has, _, err := page.Has(offersBlockSelector); err == nil && has {
		logger.Debug("placeholder persisted, offers container present")
		return true
	}
	return false
}

// sleep waits for d or until ctx is done; reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx == nil {
		time.Sleep(d)
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
