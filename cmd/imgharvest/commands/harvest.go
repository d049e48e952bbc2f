package commands

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/imgharvest/imgharvest/internal/browser"
	"github.com/imgharvest/imgharvest/internal/config"
	"github.com/imgharvest/imgharvest/internal/fetch"
	"github.com/imgharvest/imgharvest/internal/logger"
	"github.com/imgharvest/imgharvest/internal/scrape"
	"github.com/imgharvest/imgharvest/internal/storage"
)

// harvestQuery runs the full pipeline for one query against a shared browser
// allocator: open tab, load results, extract candidates, download into the
// output directory.
func harvestQuery(ctx context.Context, alloc *browser.Allocator, cfg config.Config, seen *lru.Cache[string, struct{}], metrics *scrape.Metrics) (scrape.Result, error) {
	if err := cfg.Validate(); err != nil {
		return scrape.Result{}, err
	}

	store, err := storage.NewDir(cfg.OutputDir)
	if err != nil {
		return scrape.Result{}, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	loader := &scrape.PageLoader{
		Config: scrape.LoaderConfig{
			NavigateSettle: cfg.NavigateSettle,
			InitialSettle:  cfg.InitialSettle,
			ScrollSettle:   cfg.ScrollSettle,
		},
		Consent: &scrape.ConsentHandler{Settle: cfg.ConsentSettle},
	}
	extractor := &scrape.Extractor{
		Config: scrape.ExtractorConfig{
			PreClickSettle: cfg.PreClickSettle,
			ClickSettle:    cfg.ClickSettle,
		},
	}
	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	})

	opts := []scrape.Option{
		scrape.WithConcurrency(cfg.Concurrency),
		scrape.WithMinImageBytes(cfg.MinImageBytes),
	}
	if seen != nil {
		opts = append(opts, scrape.WithSeenCache(seen))
	}
	if metrics != nil {
		opts = append(opts, scrape.WithMetrics(metrics))
	}
	orch := scrape.NewOrchestrator(loader, extractor, fetcher, store, opts...)

	page, err := alloc.NewPage(ctx)
	if err != nil {
		return scrape.Result{}, err
	}
	// The orchestrator closes the page on every exit path.

	logger.Info("harvesting", "query", cfg.Query, "count", cfg.Count, "output_dir", store.Path())
	return orch.Run(ctx, page, cfg.Query, cfg.Count)
}
