package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/imgharvest/imgharvest/internal/browser"
	"github.com/imgharvest/imgharvest/internal/config"
	"github.com/imgharvest/imgharvest/internal/logger"
	"github.com/imgharvest/imgharvest/internal/scrape"
	"github.com/imgharvest/imgharvest/internal/storage"
)

// seenCacheSize bounds the cross-query duplicate cache for one batch run.
const seenCacheSize = 4096

// Manifest describes a batch run: a set of queries sharing one browser
// instance and one duplicate cache, each downloading into its own
// subdirectory of OutputDir.
type Manifest struct {
	OutputDir string         `yaml:"output_dir"`
	Count     int            `yaml:"count"` // default per-query count
	Queries   []ManifestItem `yaml:"queries"`
}

// ManifestItem is one query in a batch manifest.
type ManifestItem struct {
	Query string `yaml:"query"`
	Count int    `yaml:"count"` // overrides the manifest default when > 0
}

// LoadManifest reads and validates a batch manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads a user-specified manifest
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Queries) == 0 {
		return Manifest{}, fmt.Errorf("manifest has no queries")
	}
	for i, item := range m.Queries {
		if item.Query == "" {
			return Manifest{}, fmt.Errorf("manifest query %d is empty", i+1)
		}
	}
	if m.OutputDir == "" {
		m.OutputDir = config.Default().OutputDir
	}
	if m.Count <= 0 {
		m.Count = config.Default().Count
	}
	return m, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Download images for multiple queries from a manifest",
	Long: `Run a batch of image downloads described by a YAML manifest. All
queries share one browser instance and a duplicate cache, so an image that
already appeared under an earlier query is not downloaded twice.

Manifest format:
  output_dir: dataset
  count: 25
  queries:
    - query: deep sea fish
    - query: alien figurine
      count: 50

Each query downloads into output_dir/<query_with_underscores>/.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	flags := batchCmd.Flags()
	defaults := config.Default()

	flags.StringP("file", "f", "", "path to batch manifest (required)")
	flags.Bool("headless", defaults.Headless, "run the browser without a window")
	flags.Int("concurrency", defaults.Concurrency, "concurrent downloads per query")

	_ = batchCmd.MarkFlagRequired("file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	manifestPath, _ := cmd.Flags().GetString("file")
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		logger.Error("invalid manifest", "path", manifestPath, "error", err)
		return err
	}

	headless, _ := cmd.Flags().GetBool("headless")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return err
	}
	metrics := scrape.NewMetrics()

	alloc := browser.NewAllocator(browser.Options{
		UserAgent:     config.Default().UserAgent,
		Headless:      headless,
		DisableImages: true,
	})
	defer func() { _ = alloc.Close() }()

	logger.Info("batch starting", "queries", len(manifest.Queries), "output_dir", manifest.OutputDir)

	var totalSucceeded, totalAttempted int
	for _, item := range manifest.Queries {
		if ctx.Err() != nil {
			logger.Warn("batch interrupted", "remaining", len(manifest.Queries))
			break
		}

		count := item.Count
		if count <= 0 {
			count = manifest.Count
		}

		cfg := config.Default()
		cfg.Query = item.Query
		cfg.Count = count
		cfg.OutputDir = filepath.Join(manifest.OutputDir, storage.NormalizeQuery(item.Query))
		cfg.Headless = headless
		cfg.Concurrency = concurrency

		result, err := harvestQuery(ctx, alloc, cfg, seen, metrics)
		if err != nil {
			// One failed query never aborts the rest of the batch.
			logger.Error("query failed", "query", item.Query, "error", err)
			continue
		}
		totalAttempted += result.Attempted
		totalSucceeded += result.Succeeded
	}

	logger.Info("batch complete",
		"queries", len(manifest.Queries),
		"attempted", totalAttempted,
		"succeeded", totalSucceeded)

	if totalSucceeded == 0 {
		return fmt.Errorf("no images downloaded across %d queries", len(manifest.Queries))
	}
	return nil
}
