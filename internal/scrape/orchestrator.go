package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/imgharvest/imgharvest/internal/imagecheck"
	"github.com/imgharvest/imgharvest/internal/logger"
	"github.com/imgharvest/imgharvest/internal/storage"
)

// State is a phase of the orchestration state machine.
type State string

const (
	StateInit               State = "init"
	StateNavigating         State = "navigating"
	StateExtracting         State = "extracting"
	StateFallbackExtracting State = "fallback-extracting"
	StateDownloading        State = "downloading"
	StateDone               State = "done"
	StateAborted            State = "aborted"
)

// Fetcher retrieves bytes for one URL. One attempt per URL, no retry.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// Store persists a payload under a filename inside the output directory.
type Store interface {
	Write(name string, data []byte) (string, error)
	Path() string
}

// Result is the terminal record of one orchestration run.
type Result struct {
	Query     string
	Attempted int
	Succeeded int
	OutputDir string
	Outcomes  []Outcome
}

// Orchestrator composes loading, extraction, fetching, validation, and
// persistence into the per-query workflow.
type Orchestrator struct {
	loader    *PageLoader
	extractor *Extractor
	fetcher   Fetcher
	store     Store

	minImageBytes int
	concurrency   int
	metrics       *Metrics
	seen          *lru.Cache[string, struct{}]

	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the download worker pool. Values below 1 mean
// sequential downloads.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithMinImageBytes overrides the validation size threshold.
func WithMinImageBytes(n int) Option {
	return func(o *Orchestrator) { o.minImageBytes = n }
}

// WithMetrics attaches run counters.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSeenCache shares a cache of already-downloaded URLs, so batch runs skip
// re-fetching an asset that appeared under an earlier query.
func WithSeenCache(c *lru.Cache[string, struct{}]) Option {
	return func(o *Orchestrator) { o.seen = c }
}

// NewOrchestrator builds the per-query workflow.
func NewOrchestrator(loader *PageLoader, extractor *Extractor, fetcher Fetcher, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		loader:        loader,
		extractor:     extractor,
		fetcher:       fetcher,
		store:         store,
		minImageBytes: imagecheck.DefaultMinBytes,
		concurrency:   1,
		state:         StateInit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current phase. Meaningful only while Run executes on the
// same goroutine or after it returns.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(next State) {
	logger.Debug("state transition", "from", string(o.state), "to", string(next))
	o.state = next
}

// Run executes the end-to-end workflow for one query against page. The page
// is torn down on every exit path, including aborts. Only a navigation
// failure aborts the run; everything else is reflected in the result counts.
func (o *Orchestrator) Run(ctx context.Context, page Page, query string, target int) (Result, error) {
	result := Result{Query: query, OutputDir: o.store.Path()}

	o.state = StateInit
	defer func() {
		_ = page.Close()
	}()

	o.transition(StateNavigating)
	if err := o.loader.Load(ctx, page, query, target); err != nil {
		o.transition(StateAborted)
		o.metrics.IncRun(string(StateAborted))
		logger.Error("run aborted", "query", query, "error", err)
		return result, err
	}

	o.transition(StateExtracting)
	set := o.extractor.Extract(ctx, page, target)
	o.metrics.AddCandidates(string(StrategyInteractive), set.Len())

	// Fallback only when the primary strategy under-delivers; its results
	// are unioned in, never a replacement.
	if set.Len() < target {
		o.transition(StateFallbackExtracting)
		before := set.Len()
		if err := o.extractor.ExtractFromMarkup(ctx, page, target, set); err != nil {
			logger.Debug("page-source extraction failed", "error", err)
		}
		o.metrics.AddCandidates(string(StrategyPageSource), set.Len()-before)
	}

	o.transition(StateDownloading)
	result.Outcomes = o.download(ctx, query, set.Candidates(), target)
	result.Attempted = len(result.Outcomes)
	for _, out := range result.Outcomes {
		if out.OK() {
			result.Succeeded++
		}
	}

	o.transition(StateDone)
	o.metrics.IncRun(string(StateDone))
	logger.Info("run complete",
		"query", query,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"output_dir", result.OutputDir)
	return result, nil
}

// download fetches, validates, and persists candidates in provenance order,
// truncated to target. Filename sequence numbers are assigned before
// dispatch, so completion order cannot affect output names. Failures are
// independent and non-cascading.
func (o *Orchestrator) download(ctx context.Context, query string, candidates []Candidate, target int) []Outcome {
	if len(candidates) > target {
		candidates = candidates[:target]
	}
	if len(candidates) == 0 {
		logger.Info("no candidates to download", "query", query)
		return nil
	}

	outcomes := make([]Outcome, len(candidates))

	workers := o.concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				name := storage.Filename(query, i+1)
				outcomes[i] = o.downloadOne(ctx, candidates[i], name)
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// downloadOne handles a single candidate: fetch, validate, persist.
func (o *Orchestrator) downloadOne(ctx context.Context, cand Candidate, name string) Outcome {
	out := Outcome{Candidate: cand, Filename: name}

	if err := ctx.Err(); err != nil {
		out.Reason = ReasonFetch
		out.Err = err
		return out
	}

	if o.seen != nil {
		if _, ok := o.seen.Get(cand.URL); ok {
			out.Reason = ReasonDuplicate
			o.metrics.IncDownload(string(ReasonDuplicate))
			logger.Debug("skipping already-downloaded URL", "url", truncateURL(cand.URL))
			return out
		}
	}

	start := time.Now()
	data, err := o.fetcher.Fetch(cand.URL)
	o.metrics.ObserveDownload(time.Since(start))
	if err != nil {
		out.Reason = ReasonFetch
		out.Err = err
		o.metrics.IncDownload(string(ReasonFetch))
		logger.Warn("download failed", "url", truncateURL(cand.URL), "error", err)
		return out
	}

	format, err := imagecheck.Validate(data, o.minImageBytes)
	if err != nil {
		if errors.Is(err, imagecheck.ErrUndersized) {
			out.Reason = ReasonUndersized
		} else {
			out.Reason = ReasonBadSignature
		}
		out.Err = err
		o.metrics.IncDownload(string(out.Reason))
		logger.Warn("validation rejected", "url", truncateURL(cand.URL), "reason", string(out.Reason))
		return out
	}

	path, err := o.store.Write(name, data)
	if err != nil {
		out.Reason = ReasonWrite
		out.Err = err
		o.metrics.IncDownload(string(ReasonWrite))
		logger.Error("write failed", "file", name, "error", err)
		return out
	}

	if o.seen != nil {
		o.seen.Add(cand.URL, struct{}{})
	}

	out.Path = path
	out.Format = format
	out.Size = len(data)
	o.metrics.IncDownload("success")
	logger.Info("downloaded", "file", name, "format", format, "bytes", len(data))
	return out
}
