package scrape

import (
	"context"
	"time"

	"github.com/imgharvest/imgharvest/internal/logger"
)

// Selector patterns for the consent-accept control, tried in order.
var consentSelectors = []string{
	"button#L2AGLb",
	"button[aria-label*='Accept']",
	"button[aria-label*='accept']",
}

// ConsentHandler dismisses cookie/consent overlays that would otherwise block
// interaction. Best effort: absence of a dialog is a normal outcome and no
// failure ever propagates to the caller.
type ConsentHandler struct {
	// Settle is the pause after a successful dismiss click.
	Settle time.Duration
}

// Dismiss clicks the first visible consent-accept control, if any.
func (h *ConsentHandler) Dismiss(ctx context.Context, page Page) {
	for _, selector := range consentSelectors {
		el, err := page.Find(ctx, selector)
		if err != nil {
			continue
		}
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		if err := el.Click(ctx); err != nil {
			logger.Debug("consent click failed", "selector", selector, "error", err)
			continue
		}
		logger.Debug("consent dialog dismissed", "selector", selector)
		_ = settle(ctx, h.Settle)
		return
	}
}
