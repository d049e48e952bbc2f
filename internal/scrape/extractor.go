package scrape

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/imgharvest/imgharvest/internal/logger"
)

// Thumbnail selector patterns for the provider's result layouts, tried in
// priority order; the first pattern with any matches wins.
var thumbnailSelectors = []string{
	"img.YQ4gaf",
	"img.rg_i",
	"img[data-src]",
}

// Full-size preview selectors probed after a thumbnail click.
var fullImageSelectors = []string{
	"img.n3VNCb",
	"img.sFlh5c",
	"img[data-src]",
}

// Attributes read directly off a thumbnail when no preview element resolves.
var thumbnailAttrs = []string{"data-src", "data-original", "src"}

var (
	// bareImageURLPattern matches any http(s) URL ending in a known image
	// extension.
	bareImageURLPattern = regexp.MustCompile(`https?://[^"\s]+\.(?:jpg|jpeg|png|gif|webp)`)

	// originalFieldPattern matches the provider-internal JSON field holding
	// an original-image URL.
	originalFieldPattern = regexp.MustCompile(`"ou":"(https://[^"]+)"`)
)

// URLs at or under this length are noise, not image references.
const minPlausibleURLLen = 20

// ExtractorConfig holds extraction timing knobs.
type ExtractorConfig struct {
	PreClickSettle time.Duration // after scrolling a thumbnail into view
	ClickSettle    time.Duration // after the click, before probing the preview
}

// Extractor converts a rendered results page into a deduplicated set of
// download-candidate URLs. The primary strategy clicks thumbnails and
// captures full-size preview URLs; the fallback scans the raw markup.
type Extractor struct {
	Config ExtractorConfig
}

// Extract runs the primary interactive strategy. Per-thumbnail failures
// (stale handles, missing attributes, selector misses) are absorbed; one bad
// thumbnail never aborts extraction of the rest.
func (e *Extractor) Extract(ctx context.Context, page Page, target int) *CandidateSet {
	set := NewCandidateSet()

	thumbnails := e.findThumbnails(ctx, page)
	if len(thumbnails) == 0 {
		logger.Info("no thumbnails found")
		return set
	}
	logger.Info("processing thumbnails", "count", len(thumbnails), "target", target)

	for i, thumb := range thumbnails {
		if ctx.Err() != nil {
			break
		}
		imgURL, ok := e.resolveThumbnail(ctx, page, thumb)
		if !ok {
			logger.Debug("thumbnail yielded nothing", "index", i+1)
			continue
		}
		if set.Add(imgURL, StrategyInteractive) {
			logger.Debug("candidate found", "index", i+1, "url", truncateURL(imgURL))
		}
	}

	logger.Info("interactive extraction complete", "candidates", set.Len())
	return set
}

// findThumbnails tries the thumbnail selector chain, stopping at the first
// pattern that yields any matches.
func (e *Extractor) findThumbnails(ctx context.Context, page Page) []Element {
	for _, selector := range thumbnailSelectors {
		elements, err := page.FindAll(ctx, selector)
		if err != nil {
			logger.Debug("thumbnail selector failed", "selector", selector, "error", err)
			continue
		}
		if len(elements) > 0 {
			logger.Debug("thumbnails matched", "selector", selector, "count", len(elements))
			return elements
		}
	}
	return nil
}

// resolveThumbnail clicks one thumbnail and resolves its full-size URL.
// Returns ok=false when the thumbnail contributes nothing.
func (e *Extractor) resolveThumbnail(ctx context.Context, page Page, thumb Element) (string, bool) {
	// Center the element first so the search bar cannot intercept the click.
	if err := thumb.ScrollIntoView(ctx); err != nil {
		return "", false
	}
	if settle(ctx, e.Config.PreClickSettle) != nil {
		return "", false
	}

	// Script-level dispatch, not a simulated pointer click.
	if err := thumb.Click(ctx); err != nil {
		return "", false
	}
	if settle(ctx, e.Config.ClickSettle) != nil {
		return "", false
	}

	imgURL := e.probeFullImage(ctx, page)

	if imgURL == "" {
		imgURL = e.readThumbnailAttrs(ctx, thumb)
	}
	if imgURL == "" {
		return "", false
	}

	if isProxyHosted(imgURL) {
		imgURL = e.resolveOriginal(ctx, page, thumb, imgURL)
	}

	if !strings.HasPrefix(imgURL, "http") || isProxyHosted(imgURL) {
		return "", false
	}
	return imgURL, true
}

// probeFullImage checks the full-size preview selectors for a visible element
// with an http-prefixed source.
func (e *Extractor) probeFullImage(ctx context.Context, page Page) string {
	for _, selector := range fullImageSelectors {
		el, err := page.Find(ctx, selector)
		if err != nil {
			continue
		}
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		src, err := el.Attr(ctx, "src")
		if err != nil {
			continue
		}
		if strings.HasPrefix(src, "http") {
			return src
		}
	}
	return ""
}

// readThumbnailAttrs falls back to source attributes on the thumbnail itself.
func (e *Extractor) readThumbnailAttrs(ctx context.Context, thumb Element) string {
	for _, attr := range thumbnailAttrs {
		value, err := thumb.Attr(ctx, attr)
		if err != nil {
			continue
		}
		if strings.HasPrefix(value, "http") {
			return value
		}
	}
	return ""
}

// resolveOriginal attempts to replace a proxy-hosted thumbnail URL with the
// original asset: first via the parent link's imgurl query parameter, then by
// scanning the page markup for a non-proxied image URL.
func (e *Extractor) resolveOriginal(ctx context.Context, page Page, thumb Element, imgURL string) string {
	if href, err := thumb.ParentAttr(ctx, "href"); err == nil && strings.Contains(href, "imgurl=") {
		if original := originalFromHref(href); original != "" {
			logger.Debug("original resolved from parent href", "url", truncateURL(original))
			imgURL = original
		}
	}

	if isProxyHosted(imgURL) {
		markup, err := page.Markup(ctx)
		if err == nil {
			if original := firstOriginalInMarkup(markup); original != "" {
				logger.Debug("original resolved from page markup", "url", truncateURL(original))
				imgURL = original
			}
		}
	}
	return imgURL
}

// originalFromHref decodes the imgurl query parameter from a result link.
func originalFromHref(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("imgurl")
}

// firstOriginalInMarkup returns the first image-extension URL in markup that
// is not hosted on a denylisted domain.
func firstOriginalInMarkup(markup string) string {
	for _, match := range bareImageURLPattern.FindAllString(markup, -1) {
		if !isProxyHosted(match) {
			return match
		}
	}
	return ""
}

// ExtractFromMarkup is the fallback strategy: it scans the raw page markup
// against an ordered pattern list, most specific first, and unions the
// results into set. Scanning stops once set reaches target. Results are often
// thumbnail-grade; this trades quality for reliability.
func (e *Extractor) ExtractFromMarkup(ctx context.Context, page Page, target int, set *CandidateSet) error {
	markup, err := page.Markup(ctx)
	if err != nil {
		return err
	}

	before := set.Len()
	defer func() {
		logger.Info("page-source extraction complete", "added", set.Len()-before, "total", set.Len())
	}()

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if docErr != nil {
		logger.Debug("markup parse failed, attribute scans skipped", "error", docErr)
	}

	scans := []func() []string{
		func() []string { return scanOriginalFields(markup) },
		func() []string { return scanAttrValues(doc, "data-src") },
		func() []string { return scanAttrValues(doc, "src") },
		func() []string { return bareImageURLPattern.FindAllString(markup, -1) },
	}

	for _, scan := range scans {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, match := range scan() {
			if !acceptableSourceURL(match) {
				continue
			}
			set.Add(match, StrategyPageSource)
			if set.Len() >= target {
				return nil
			}
		}
	}
	return nil
}

// acceptableSourceURL filters fallback matches: http-prefixed, plausibly
// long, and not proxy-hosted.
func acceptableSourceURL(u string) bool {
	return strings.HasPrefix(u, "http") && len(u) > minPlausibleURLLen && !isProxyHosted(u)
}

// scanOriginalFields extracts provider-internal original-image URL fields.
func scanOriginalFields(markup string) []string {
	var out []string
	for _, m := range originalFieldPattern.FindAllStringSubmatch(markup, -1) {
		out = append(out, m[1])
	}
	return out
}

// scanAttrValues collects https-prefixed values of the given attribute across
// the parsed document.
func scanAttrValues(doc *goquery.Document, attr string) []string {
	if doc == nil {
		return nil
	}
	var out []string
	doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		value, exists := s.Attr(attr)
		if exists && strings.HasPrefix(value, "https://") {
			out = append(out, value)
		}
	})
	return out
}

// truncateURL shortens URLs for log lines.
func truncateURL(u string) string {
	if len(u) <= 50 {
		return u
	}
	return u[:50] + "..."
}
