package scrape

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeElement is an Element backed by static data.
type fakeElement struct {
	attrs       map[string]string
	parentAttrs map[string]string
	visible     bool

	scrollErr error
	clickErr  error
	attrErr   error

	clicks int
}

func (e *fakeElement) Attr(_ context.Context, name string) (string, error) {
	if e.attrErr != nil {
		return "", e.attrErr
	}
	return e.attrs[name], nil
}

func (e *fakeElement) Visible(context.Context) (bool, error) {
	return e.visible, nil
}

func (e *fakeElement) ScrollIntoView(context.Context) error {
	return e.scrollErr
}

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) ParentAttr(_ context.Context, name string) (string, error) {
	return e.parentAttrs[name], nil
}

// fakePage is a Page with scripted selector results and markup.
type fakePage struct {
	navigateErr error
	elements    map[string][]Element // FindAll results by selector
	finds       map[string]Element   // Find results by selector
	markup      string
	imageCount  int

	navigated   []string
	markupCalls int
	scrolls     int
	closeCalls  int
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navigateErr
}

func (p *fakePage) Find(_ context.Context, selector string) (Element, error) {
	if el, ok := p.finds[selector]; ok {
		return el, nil
	}
	if els := p.elements[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, ErrNoMatch
}

func (p *fakePage) FindAll(_ context.Context, selector string) ([]Element, error) {
	return p.elements[selector], nil
}

func (p *fakePage) RunScript(_ context.Context, script string, out any) error {
	switch {
	case strings.Contains(script, "querySelectorAll('img')"):
		if n, ok := out.(*int); ok {
			*n = p.imageCount
		}
	case strings.Contains(script, "scrollTo"):
		p.scrolls++
		if b, ok := out.(*bool); ok {
			*b = true
		}
	}
	return nil
}

func (p *fakePage) Markup(context.Context) (string, error) {
	p.markupCalls++
	return p.markup, nil
}

func (p *fakePage) Close() error {
	p.closeCalls++
	return nil
}

// fakeFetcher serves canned responses by URL.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     []string
}

var errFakeFetch = errors.New("fetch refused")

func (f *fakeFetcher) Fetch(url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.responses[url]; ok {
		return body, nil
	}
	return nil, errFakeFetch
}

// memStore keeps written files in memory.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Write(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return "/out/" + name, nil
}

func (s *memStore) Path() string {
	return "/out"
}

// jpegPayload returns a size-valid JPEG byte string.
func jpegPayload(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xff, 0xd8, 0xff})
	return data
}

// thumb builds a clickable, visible thumbnail element.
func thumb(attrs map[string]string) *fakeElement {
	return &fakeElement{attrs: attrs, visible: true}
}
