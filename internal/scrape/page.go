// Package scrape implements the image-search extraction pipeline: page
// loading, candidate URL extraction, and the end-to-end orchestration of
// fetch, validation, and persistence.
package scrape

import (
	"context"
	"errors"
	"time"
)

// ErrNoMatch is returned by Page.Find when no element matches the selector.
var ErrNoMatch = errors.New("scrape: no element matches selector")

// Page is the capability contract consumed from the browser-automation layer.
// A Page must only be driven by one goroutine at a time.
type Page interface {
	// Navigate loads url into the page.
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching a CSS selector, or ErrNoMatch.
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns every element matching a CSS selector. An empty result
	// is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// RunScript evaluates a page-side expression and unmarshals its value
	// into out. The expression must produce a JSON-serializable value.
	RunScript(ctx context.Context, script string, out any) error

	// Markup returns the current rendered HTML of the page.
	Markup(ctx context.Context) (string, error)

	// Close tears down the rendering session. Idempotent.
	Close() error
}

// Element is a handle to a rendered DOM element. Operations may fail with
// stale-handle errors after the page mutates; callers treat those as
// per-element failures, not run failures.
type Element interface {
	// Attr returns the value of an attribute, or "" when absent.
	Attr(ctx context.Context, name string) (string, error)

	// Visible reports whether the element is rendered and displayed.
	Visible(ctx context.Context) (bool, error)

	// ScrollIntoView scrolls the element to the viewport center.
	ScrollIntoView(ctx context.Context) error

	// Click triggers the element's click handler via script-level dispatch,
	// bypassing overlay interception.
	Click(ctx context.Context) error

	// ParentAttr returns an attribute of the element's immediate parent,
	// or "" when the parent or attribute is absent.
	ParentAttr(ctx context.Context, name string) (string, error)
}

// settle waits for d or until ctx is cancelled. Every wait in the pipeline is
// a short fixed interval, never an unbounded poll.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
