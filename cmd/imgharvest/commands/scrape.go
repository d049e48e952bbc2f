package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imgharvest/imgharvest/internal/browser"
	"github.com/imgharvest/imgharvest/internal/config"
	"github.com/imgharvest/imgharvest/internal/logger"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <query>",
	Short: "Download images for a single search query",
	Long: `Search Google Images for a query and download full-size images.

Downloaded files are named after the query with a sequence number, e.g.
"deep sea fish" produces deep_sea_fish_1.jpg, deep_sea_fish_2.jpg, ...

Examples:
  # Download 10 images (the default)
  imgharvest scrape "deep sea fish"

  # Download 50 images into a specific directory
  imgharvest scrape "alien figurine" -c 50 -o dataset/aliens

  # Watch the browser work
  imgharvest scrape "cat" --headless=false`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	defaults := config.Default()

	flags.IntP("count", "c", defaults.Count, "number of images to download")
	flags.StringP("output", "o", defaults.OutputDir, "output directory")
	flags.Bool("headless", defaults.Headless, "run the browser without a window")
	flags.Bool("load-images", false, "let the browser render images (slower)")
	flags.Int("concurrency", defaults.Concurrency, "concurrent downloads")
	flags.Duration("fetch-timeout", defaults.FetchTimeout, "per-image download timeout")
	flags.String("user-agent", defaults.UserAgent, "browser user agent")
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	cfg.Query = args[0]
	cfg.Count, _ = cmd.Flags().GetInt("count")
	cfg.OutputDir, _ = cmd.Flags().GetString("output")
	cfg.Headless, _ = cmd.Flags().GetBool("headless")
	cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	cfg.FetchTimeout, _ = cmd.Flags().GetDuration("fetch-timeout")
	cfg.UserAgent, _ = cmd.Flags().GetString("user-agent")

	loadImages, _ := cmd.Flags().GetBool("load-images")

	alloc := browser.NewAllocator(browser.Options{
		UserAgent:     cfg.UserAgent,
		Headless:      cfg.Headless,
		DisableImages: !loadImages,
	})
	defer func() { _ = alloc.Close() }()

	result, err := harvestQuery(ctx, alloc, cfg, nil, nil)
	if err != nil {
		logger.Error("scrape failed", "query", cfg.Query, "error", err)
		return err
	}

	if result.Succeeded == 0 {
		return fmt.Errorf("no images downloaded for %q", cfg.Query)
	}
	return nil
}
