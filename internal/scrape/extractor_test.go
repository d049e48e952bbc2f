package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExtractCapturesFullImageURL(t *testing.T) {
	page := &fakePage{
		elements: map[string][]Element{
			"img.YQ4gaf": {
				thumb(map[string]string{"src": "https://encrypted-tbn0.gstatic.com/a"}),
				thumb(map[string]string{"src": "https://encrypted-tbn0.gstatic.com/b"}),
			},
		},
		finds: map[string]Element{
			"img.n3VNCb": thumb(map[string]string{"src": "https://publisher.example/full.jpg"}),
		},
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	// Both thumbnails resolve to the same preview URL; exact duplicates
	// collapse.
	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
	if got := set.Candidates()[0].URL; got != "https://publisher.example/full.jpg" {
		t.Errorf("url = %q", got)
	}
}

func TestExtractSelectorChainFallsThrough(t *testing.T) {
	// Nothing under the primary selector; the second pattern matches.
	page := &fakePage{
		elements: map[string][]Element{
			"img.rg_i": {
				thumb(map[string]string{"data-src": "https://publisher.example/direct.png"}),
			},
		},
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
	if got := set.Candidates()[0].URL; got != "https://publisher.example/direct.png" {
		t.Errorf("url = %q", got)
	}
}

func TestExtractFallsBackToThumbnailAttributes(t *testing.T) {
	// No full-size preview anywhere; attributes are read off the thumbnail
	// in priority order: data-src, data-original, src.
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{
			name:  "data-src wins",
			attrs: map[string]string{"data-src": "https://a.example/ds.jpg", "src": "https://a.example/s.jpg"},
			want:  "https://a.example/ds.jpg",
		},
		{
			name:  "data-original next",
			attrs: map[string]string{"data-original": "https://a.example/do.jpg", "src": "https://a.example/s.jpg"},
			want:  "https://a.example/do.jpg",
		},
		{
			name:  "src last",
			attrs: map[string]string{"src": "https://a.example/s.jpg"},
			want:  "https://a.example/s.jpg",
		},
		{
			name:  "non-http skipped",
			attrs: map[string]string{"data-src": "data:image/png;base64,xyz", "src": "https://a.example/s.jpg"},
			want:  "https://a.example/s.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{
				elements: map[string][]Element{
					"img.YQ4gaf": {thumb(tt.attrs)},
				},
			}
			set := (&Extractor{}).Extract(context.Background(), page, 10)
			if set.Len() != 1 {
				t.Fatalf("len = %d, want 1", set.Len())
			}
			if got := set.Candidates()[0].URL; got != tt.want {
				t.Errorf("url = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractResolvesProxyViaParentHref(t *testing.T) {
	page := &fakePage{
		elements: map[string][]Element{
			"img.YQ4gaf": {
				&fakeElement{
					visible: true,
					attrs:   map[string]string{"src": "https://encrypted-tbn0.gstatic.com/images?q=tbn:x"},
					parentAttrs: map[string]string{
						"href": "https://www.google.com/imgres?imgurl=https%3A%2F%2Fpublisher.example%2Foriginal.jpg&imgrefurl=x",
					},
				},
			},
		},
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
	if got := set.Candidates()[0].URL; got != "https://publisher.example/original.jpg" {
		t.Errorf("url = %q", got)
	}
}

func TestExtractResolvesProxyViaMarkupScan(t *testing.T) {
	page := &fakePage{
		elements: map[string][]Element{
			"img.YQ4gaf": {
				thumb(map[string]string{"src": "https://encrypted-tbn0.gstatic.com/images?q=tbn:x"}),
			},
		},
		markup: `<html>
			<img src="https://encrypted-tbn0.gstatic.com/thumb.jpg">
			<a href="https://publisher.example/real-photo.jpg">x</a>
		</html>`,
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
	if got := set.Candidates()[0].URL; got != "https://publisher.example/real-photo.jpg" {
		t.Errorf("url = %q", got)
	}
}

func TestExtractDiscardsUnresolvableProxy(t *testing.T) {
	// Proxy-hosted, no parent href, no original in markup: the thumbnail
	// contributes nothing rather than persisting a proxy URL.
	page := &fakePage{
		elements: map[string][]Element{
			"img.YQ4gaf": {
				thumb(map[string]string{"src": "https://encrypted-tbn0.gstatic.com/images?q=tbn:x"}),
			},
		},
		markup: `<html><img src="https://encrypted-tbn0.gstatic.com/thumb.jpg"></html>`,
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	if set.Len() != 0 {
		t.Fatalf("len = %d, want 0 (proxy URL must never survive)", set.Len())
	}
}

func TestExtractSkipsBrokenThumbnails(t *testing.T) {
	page := &fakePage{
		elements: map[string][]Element{
			"img.YQ4gaf": {
				&fakeElement{visible: true, scrollErr: errors.New("stale element reference")},
				&fakeElement{visible: true, clickErr: errors.New("intercepted")},
				thumb(map[string]string{"src": "https://publisher.example/good.jpg"}),
			},
		},
	}

	set := (&Extractor{}).Extract(context.Background(), page, 10)

	// One bad thumbnail never aborts extraction of the rest.
	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
	if got := set.Candidates()[0].URL; got != "https://publisher.example/good.jpg" {
		t.Errorf("url = %q", got)
	}
}

func TestExtractFromMarkupPatternPriority(t *testing.T) {
	markup := `<html>
		<script>var data = {"ou":"https://publisher.example/photos/original-size.jpg"};</script>
		<img data-src="https://cdn.example/lazy/loaded-image.png">
		<img src="https://static.example/direct/source-image.gif">
		<p>https://bare.example/found/in-text-somewhere.webp</p>
	</html>`
	page := &fakePage{markup: markup}

	set := NewCandidateSet()
	if err := (&Extractor{}).ExtractFromMarkup(context.Background(), page, 10, set); err != nil {
		t.Fatalf("extract: %v", err)
	}

	cands := set.Candidates()
	if len(cands) != 4 {
		t.Fatalf("len = %d, want 4: %+v", len(cands), cands)
	}
	// Most-specific pattern first.
	if cands[0].URL != "https://publisher.example/photos/original-size.jpg" {
		t.Errorf("first candidate = %q, want the ou field", cands[0].URL)
	}
	for _, c := range cands {
		if c.Strategy != StrategyPageSource {
			t.Errorf("candidate %q strategy = %s", c.URL, c.Strategy)
		}
	}
}

func TestExtractFromMarkupFilters(t *testing.T) {
	markup := `<html>
		<img data-src="https://encrypted-tbn0.gstatic.com/proxied/thumbnail.jpg">
		<img data-src="https://s.io/x.jpg">
		<img data-src="https://cdn.example/acceptable/image.jpg">
	</html>`
	page := &fakePage{markup: markup}

	set := NewCandidateSet()
	if err := (&Extractor{}).ExtractFromMarkup(context.Background(), page, 10, set); err != nil {
		t.Fatalf("extract: %v", err)
	}

	for _, c := range set.Candidates() {
		if isProxyHosted(c.URL) {
			t.Errorf("proxy URL leaked: %q", c.URL)
		}
		if len(c.URL) <= minPlausibleURLLen {
			t.Errorf("implausibly short URL accepted: %q", c.URL)
		}
	}
	if set.Len() != 1 {
		t.Fatalf("len = %d, want 1", set.Len())
	}
}

func TestExtractFromMarkupStopsAtTarget(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, `<img data-src="https://cdn.example/gallery/image-%02d.jpg">`, i)
	}
	sb.WriteString("</html>")
	page := &fakePage{markup: sb.String()}

	set := NewCandidateSet()
	if err := (&Extractor{}).ExtractFromMarkup(context.Background(), page, 5, set); err != nil {
		t.Fatalf("extract: %v", err)
	}

	if set.Len() != 5 {
		t.Fatalf("len = %d, want 5 (scan stops at target)", set.Len())
	}
}

func TestExtractFromMarkupUnionsWithPrimary(t *testing.T) {
	page := &fakePage{
		markup: `<img data-src="https://cdn.example/already/known-image.jpg">
		         <img data-src="https://cdn.example/newly/found-image.jpg">`,
	}

	set := NewCandidateSet()
	set.Add("https://cdn.example/already/known-image.jpg", StrategyInteractive)

	if err := (&Extractor{}).ExtractFromMarkup(context.Background(), page, 10, set); err != nil {
		t.Fatalf("extract: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("len = %d, want 2 (union, no duplicates)", set.Len())
	}
	// The primary candidate keeps its provenance slot and strategy.
	first := set.Candidates()[0]
	if first.Strategy != StrategyInteractive || first.Index != 0 {
		t.Errorf("first candidate = %+v", first)
	}
}

func TestOriginalFromHref(t *testing.T) {
	href := "https://www.google.com/imgres?imgurl=https%3A%2F%2Fsite.example%2Fa%20b.jpg&h=1"
	if got := originalFromHref(href); got != "https://site.example/a b.jpg" {
		t.Errorf("originalFromHref = %q", got)
	}
	if got := originalFromHref("::bad::url"); got != "" {
		t.Errorf("bad href should yield empty, got %q", got)
	}
}
