package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/observability"
	"github.com/rozvidka/rozvidka/internal/pipeline"
)

var (
	cfgFile      string
	verbose      bool
	includeChars bool
	outputDir    string
	urlsFile     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rozvidka",
		Short: "Rozvidka — marketplace product enrichment exporter",
		Long: `Rozvidka collects product listings from the Rozetka marketplace,
enriches every product through the public JSON APIs and the product
pages, and writes one categorized spreadsheet per run.

Modes:
  search     — full search listing for a query
  seller     — a seller's full storefront listing
  favorites  — an explicit list of product URLs`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&includeChars, "chars", false, "include product characteristics columns")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for workbooks")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(sellerCmd())
	rootCmd.AddCommand(favoritesCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [url]",
		Short: "Export a full search listing",
		Long:  "Export every product of a search results URL. The URL must carry a text query parameter.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(func(ctx context.Context, r *pipeline.Runner) (string, error) {
				return r.RunSearch(ctx, args[0], includeChars)
			})
		},
	}
}

// sellerCmd creates the "seller" subcommand.
func sellerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seller [url-or-name]",
		Short: "Export a seller's full storefront listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(func(ctx context.Context, r *pipeline.Runner) (string, error) {
				return r.RunSeller(ctx, args[0], includeChars)
			})
		},
	}
}

// favoritesCmd creates the "favorites" subcommand.
func favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites [url...]",
		Short: "Export an explicit list of product URLs",
		Long:  "Export the products behind the given detail URLs, passed as arguments or one per line via --file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if urlsFile != "" {
				fromFile, err := readURLs(urlsFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no product urls given")
			}
			return runMode(func(ctx context.Context, r *pipeline.Runner) (string, error) {
				return r.RunFavorites(ctx, urls, includeChars)
			})
		},
	}
	cmd.Flags().StringVarP(&urlsFile, "file", "f", "", "file with one product url per line")
	return cmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Rozvidka %s\n", config.Version)
		},
	}
}

// runMode builds the runner from config and executes one pipeline run
// with signal-driven cancellation.
func runMode(run func(ctx context.Context, r *pipeline.Runner) (string, error)) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}

	metrics := observability.NewMetrics()
	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path, logger)
	}

	runner, err := pipeline.NewRunner(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	path, err := run(ctx, runner)
	if err != nil {
		return err
	}

	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Workbook: %s\n", path)
	return nil
}

// readURLs loads product URLs from a file, one per line, skipping blanks
// and # comments.
func readURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}
