// Package browser provides a chromedp-backed rendering session with stealth
// hardening. It exposes pages through the capability interfaces the
// extraction pipeline consumes, so the pipeline itself never touches CDP.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/imgharvest/imgharvest/internal/logger"
	"github.com/imgharvest/imgharvest/internal/scrape"
)

// Options configures the browser allocator.
type Options struct {
	UserAgent     string
	Headless      bool
	DisableImages bool
	// ExecPath overrides binary discovery. Empty means auto-detect.
	ExecPath string
}

// Allocator owns one Chrome process configuration shared by all sessions.
// Sessions created from the same allocator share the browser instance, so a
// batch run pays the startup cost once.
type Allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAllocator builds a stealth-configured browser allocator.
func NewAllocator(opts Options) *Allocator {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], stealthAllocatorOptions()...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))

	if opts.DisableImages {
		// The pipeline downloads images over HTTP itself, so the browser
		// rendering them is wasted bandwidth.
		allocOpts = append(allocOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	execPath := opts.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	ctx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	logger.Debug("browser allocator created",
		"headless", opts.Headless,
		"images_disabled", opts.DisableImages,
		"user_agent", opts.UserAgent)

	return &Allocator{ctx: ctx, cancel: cancel}
}

// Close shuts down the browser process and every session created from it.
func (a *Allocator) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// Session is one browser tab. It implements scrape.Page and must be driven by
// a single goroutine.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewPage opens a tab, starts the browser if needed, and installs the stealth
// script so it runs before any page script on every navigation.
func (a *Allocator) NewPage(ctx context.Context) (*Session, error) {
	tabCtx, cancelTab := chromedp.NewContext(a.ctx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{ctx: tabCtx, cancel: cancelTab}
	if err := s.run(ctx, injectStealthScript()); err != nil {
		cancelTab()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	return s, nil
}

// run executes actions on the session's tab while honoring cancellation of
// the caller's context. chromedp actions only observe the chromedp context,
// so the caller's cancellation is propagated into a per-operation child.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	logger.Debug("navigating", "url", url)
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// Find returns the first element matching selector, or scrape.ErrNoMatch.
func (s *Session) Find(ctx context.Context, selector string) (scrape.Element, error) {
	els, err := s.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, scrape.ErrNoMatch
	}
	return els[0], nil
}

// FindAll returns every element matching selector. An empty page is not an
// error.
func (s *Session) FindAll(ctx context.Context, selector string) ([]scrape.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}

	els := make([]scrape.Element, len(nodes))
	for i, node := range nodes {
		els[i] = &element{session: s, backendID: node.BackendNodeID}
	}
	return els, nil
}

// RunScript evaluates a page-side expression and unmarshals its value into
// out. The expression must produce a JSON-serializable value.
func (s *Session) RunScript(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

// Markup returns the rendered HTML of the current document.
func (s *Session) Markup(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close tears down the tab. Idempotent.
func (s *Session) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// element is a handle to a DOM node, addressed by its backend node ID so the
// handle survives DOM mutation as long as the node itself does.
type element struct {
	session   *Session
	backendID cdp.BackendNodeID
}

// call invokes a JS function declaration with the element as `this` and
// unmarshals the JSON return value into out (when non-nil).
func (e *element) call(ctx context.Context, decl string, out any) error {
	return e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.backendID).Do(ctx)
		if err != nil {
			return fmt.Errorf("stale element: %w", err)
		}

		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out != nil && res != nil && res.Value != nil {
			return json.Unmarshal(res.Value, out)
		}
		return nil
	}))
}

// Attr returns the value of an attribute, or "" when absent.
func (e *element) Attr(ctx context.Context, name string) (string, error) {
	var value string
	decl := fmt.Sprintf(`function() { return this.getAttribute(%q) || ""; }`, name)
	if err := e.call(ctx, decl, &value); err != nil {
		return "", err
	}
	return value, nil
}

// Visible reports whether the element occupies layout space and is displayed.
func (e *element) Visible(ctx context.Context) (bool, error) {
	var visible bool
	decl := `function() {
		const rect = this.getBoundingClientRect();
		const style = window.getComputedStyle(this);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
	}`
	if err := e.call(ctx, decl, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// ScrollIntoView centers the element in the viewport.
func (e *element) ScrollIntoView(ctx context.Context) error {
	decl := `function() { this.scrollIntoView({block: 'center', inline: 'center'}); return true; }`
	var ok bool
	return e.call(ctx, decl, &ok)
}

// Click dispatches the element's click handler at script level, which cannot
// be intercepted by overlays the way a synthesized pointer event can.
func (e *element) Click(ctx context.Context) error {
	decl := `function() { this.click(); return true; }`
	var ok bool
	return e.call(ctx, decl, &ok)
}

// ParentAttr returns an attribute of the immediate parent element, or ""
// when the parent or attribute is absent.
func (e *element) ParentAttr(ctx context.Context, name string) (string, error) {
	var value string
	decl := fmt.Sprintf(`function() {
		const parent = this.parentElement;
		return parent ? (parent.getAttribute(%q) || "") : "";
	}`, name)
	if err := e.call(ctx, decl, &value); err != nil {
		return "", err
	}
	return value, nil
}
