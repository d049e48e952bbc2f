package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imgharvest/imgharvest/internal/logger"
)

// searchEndpoint is the provider's results page; udm=2 restricts results to
// image search.
const searchEndpoint = "https://www.google.com/search"

// SearchURL builds the image-search URL for a query.
func SearchURL(query string) string {
	return fmt.Sprintf("%s?q=%s&udm=2", searchEndpoint, strings.ReplaceAll(query, " ", "+"))
}

// LoaderConfig holds PageLoader timing knobs.
type LoaderConfig struct {
	NavigateSettle time.Duration // after navigation, before consent handling
	InitialSettle  time.Duration // before the first thumbnail count
	ScrollSettle   time.Duration // after each scroll pass
}

// PageLoader drives the results page into a state with enough rendered
// thumbnails, using scroll-based lazy-load triggering bounded by an attempt
// budget. Clicking "Show more results" is deliberately avoided: it mutates
// the query.
type PageLoader struct {
	Config  LoaderConfig
	Consent *ConsentHandler
}

// Load navigates to the search results for query and scrolls until roughly
// 2×target thumbnails are rendered or the scroll budget runs out. A
// navigation failure is fatal; scroll failures are not.
func (l *PageLoader) Load(ctx context.Context, page Page, query string, target int) error {
	searchURL := SearchURL(query)
	logger.Info("navigating", "url", searchURL)

	if err := page.Navigate(ctx, searchURL); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if err := settle(ctx, l.Config.NavigateSettle); err != nil {
		return err
	}

	if l.Consent != nil {
		l.Consent.Dismiss(ctx, page)
	}

	if err := settle(ctx, l.Config.InitialSettle); err != nil {
		return err
	}

	initial, err := l.renderedImageCount(ctx, page)
	if err != nil {
		logger.Debug("initial image count failed", "error", err)
	}
	logger.Debug("initial images rendered", "count", initial)

	// Bounded scroll budget; stop early once 2×target gives enough buffer
	// for later rejection.
	maxScrolls := min(5, target/10)
	for i := 0; i < maxScrolls; i++ {
		if err := l.scrollToBottom(ctx, page); err != nil {
			logger.Debug("scroll failed, continuing with rendered content", "pass", i+1, "error", err)
			break
		}
		if err := settle(ctx, l.Config.ScrollSettle); err != nil {
			return err
		}

		count, err := l.renderedImageCount(ctx, page)
		if err != nil {
			logger.Debug("image count failed", "pass", i+1, "error", err)
			continue
		}
		logger.Debug("scroll pass complete", "pass", i+1, "of", maxScrolls, "images", count)

		if count >= target*2 {
			break
		}
	}

	final, err := l.renderedImageCount(ctx, page)
	if err == nil {
		logger.Info("page loaded", "images_rendered", final)
	}
	return ctx.Err()
}

func (l *PageLoader) scrollToBottom(ctx context.Context, page Page) error {
	var ok bool
	return page.RunScript(ctx, "window.scrollTo(0, document.body.scrollHeight); true", &ok)
}

func (l *PageLoader) renderedImageCount(ctx context.Context, page Page) (int, error) {
	var count int
	if err := page.RunScript(ctx, "document.querySelectorAll('img').length", &count); err != nil {
		return 0, err
	}
	return count, nil
}
