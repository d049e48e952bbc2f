package scrape

import (
	"strings"
)

// Strategy identifies which extraction path discovered a candidate.
type Strategy string

const (
	// StrategyInteractive marks candidates from thumbnail click resolution.
	StrategyInteractive Strategy = "interactive"

	// StrategyPageSource marks candidates from markup pattern scanning.
	StrategyPageSource Strategy = "page-source"
)

// Candidate is a URL believed to reference a downloadable original image.
type Candidate struct {
	URL      string
	Strategy Strategy

	// Index is the provenance order of discovery, 0-based. Filename sequence
	// numbers derive from it, so it must be stable for identical inputs.
	Index int
}

// CandidateSet collects candidates with URL-string uniqueness. Provenance
// order is preserved for deterministic filename assignment.
type CandidateSet struct {
	byURL map[string]struct{}
	list  []Candidate
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{byURL: make(map[string]struct{})}
}

// Add records url under the given strategy. Exact-duplicate URLs collapse;
// the first occurrence wins and keeps its provenance index.
func (s *CandidateSet) Add(url string, strategy Strategy) bool {
	if _, ok := s.byURL[url]; ok {
		return false
	}
	s.byURL[url] = struct{}{}
	s.list = append(s.list, Candidate{URL: url, Strategy: strategy, Index: len(s.list)})
	return true
}

// Len returns the number of unique candidates.
func (s *CandidateSet) Len() int {
	return len(s.list)
}

// Candidates returns the candidates in provenance order.
func (s *CandidateSet) Candidates() []Candidate {
	out := make([]Candidate, len(s.list))
	copy(out, s.list)
	return out
}

// Hosts serving low-resolution re-encodes for the search provider. URLs on
// these domains must be resolved to an original or discarded, never persisted.
var proxyHosts = []string{
	"gstatic.com",
	"googleusercontent.com",
	"encrypted-tbn0.gstatic.com",
}

// isProxyHosted reports whether url points at a thumbnail-proxy domain.
func isProxyHosted(url string) bool {
	for _, host := range proxyHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}
