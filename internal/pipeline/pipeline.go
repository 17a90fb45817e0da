// Package pipeline composes the session, catalog client, enrichment
// coordinator, sinks and exporter into one run per command. Each run
// collects identifiers for its mode, enriches them batch by batch and
// ends with a saved workbook.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rozvidka/rozvidka/internal/browser"
	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/enrich"
	"github.com/rozvidka/rozvidka/internal/export"
	"github.com/rozvidka/rozvidka/internal/observability"
	"github.com/rozvidka/rozvidka/internal/session"
	"github.com/rozvidka/rozvidka/internal/storage"
)

// favoritesLabel is the display label for favorites runs.
const favoritesLabel = "Обрані товари"

// Runner owns the long-lived pieces of the pipeline and executes one
// mode-specific run at a time.
type Runner struct {
	cfg      *config.Config
	client   *catalog.Client
	exporter *export.Exporter
	sink     storage.Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRunner wires a runner from configuration. Sinks listed in the
// storage section are opened here and closed by Close.
func NewRunner(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Runner, error) {
	sess, err := session.New(&cfg.Session, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sink, err := buildSink(&cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		client:   catalog.NewClient(sess, logger),
		exporter: export.NewExporter(&cfg.Export, logger, metrics),
		sink:     sink,
		logger:   logger.With("component", "pipeline"),
		metrics:  metrics,
	}, nil
}

func buildSink(cfg *config.StorageConfig, logger *slog.Logger) (storage.Sink, error) {
	var sinks []storage.Sink
	if cfg.JSONLEnabled {
		s, err := storage.NewJSONLSink(cfg.JSONLPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open jsonl sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.MongoEnabled {
		s, err := storage.NewMongoSink(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, fmt.Errorf("open mongo sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return storage.NewMultiSink(sinks, logger), nil
	}
}

// Close releases the runner's sinks.
func (r *Runner) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

// RunSearch collects the full search listing for the query embedded in
// searchURL and exports it. The URL must carry a text parameter.
func (r *Runner) RunSearch(ctx context.Context, searchURL string, includeChars bool) (string, error) {
	text, err := catalog.SearchTextFromURL(searchURL)
	if err != nil {
		return "", err
	}
	r.logger.Info("search run starting", "text", text, "include_chars", includeChars)

	ids, _ := r.collectListing(ctx, func(page int) catalog.ListingPage {
		return r.client.SearchPage(ctx, text, page)
	})
	if len(ids) == 0 {
		return "", fmt.Errorf("no products found for query %q", text)
	}
	return r.run(ctx, ids, catalog.ModeSearch, includeChars, text)
}

// RunSeller collects a seller's full storefront listing and exports it.
// Accepts either a storefront URL or a bare seller slug.
func (r *Runner) RunSeller(ctx context.Context, sellerURL string, includeChars bool) (string, error) {
	name := catalog.SellerNameFromURL(sellerURL)
	if name == "" {
		return "", fmt.Errorf("seller name missing in %q", sellerURL)
	}
	r.logger.Info("seller run starting", "seller", name, "include_chars", includeChars)

	ids, title := r.collectListing(ctx, func(page int) catalog.ListingPage {
		return r.client.SellerPage(ctx, name, page)
	})
	if len(ids) == 0 {
		return "", fmt.Errorf("no products found for seller %q", name)
	}
	label := title
	if label == "" {
		label = name
	}
	return r.run(ctx, ids, catalog.ModeSeller, includeChars, label)
}

// RunFavorites enriches an explicit list of product URLs and exports it.
func (r *Runner) RunFavorites(ctx context.Context, urls []string, includeChars bool) (string, error) {
	identifiers := catalog.ExtractProductIDs(urls)
	if len(identifiers) == 0 {
		return "", fmt.Errorf("no product identifiers found in %d urls", len(urls))
	}
	r.logger.Info("favorites run starting", "urls", len(urls), "identifiers", len(identifiers))

	ids := make([]int64, len(identifiers))
	for i, ident := range identifiers {
		ids[i] = ident.ID
	}
	return r.run(ctx, ids, catalog.ModeFavorites, includeChars, favoritesLabel)
}

// collectListing walks a paginated listing source from page 1 until the
// reported page count, the configured cap, or the first empty page.
// Returns the identifiers in listing order plus the seller title when the
// source reports one.
func (r *Runner) collectListing(ctx context.Context, fetch func(page int) catalog.ListingPage) ([]int64, string) {
	first := fetch(1)
	ids := append([]int64(nil), first.IDs...)

	pages := first.TotalPages
	if pages > r.cfg.Pipeline.MaxPages {
		pages = r.cfg.Pipeline.MaxPages
	}
	r.logger.Info("listing discovered", "total_found", first.TotalFound, "pages", pages)

	for page := 2; page <= pages; page++ {
		if ctx.Err() != nil {
			break
		}
		p := fetch(page)
		if len(p.IDs) == 0 {
			r.logger.Warn("empty listing page, stopping pagination", "page", page)
			break
		}
		ids = append(ids, p.IDs...)
	}
	return ids, first.SellerTitle
}

func (r *Runner) run(ctx context.Context, ids []int64, mode catalog.Mode, includeChars bool, label string) (string, error) {
	var grouping enrich.GroupingFetcher
	if mode == catalog.ModeSeller && !includeChars {
		extractor := browser.NewExtractor(&r.cfg.Browser, r.cfg.Session.UserAgent, r.logger, r.metrics)
		pool := browser.NewPool(extractor, r.workers(mode), r.logger)
		defer pool.Close()
		grouping = pool
	}

	orch := enrich.NewOrchestrator(r.client, grouping, r.logger, r.metrics)
	coord := enrich.NewCoordinator(r.client, orch, r.cfg.Pipeline.BatchSize, r.logger, r.metrics)

	products := coord.Run(ctx, ids, mode, includeChars)
	if len(products) == 0 {
		return "", fmt.Errorf("no products resolved from %d identifiers", len(ids))
	}

	if r.sink != nil {
		if err := r.sink.Store(products); err != nil {
			r.logger.Error("sink store failed", "error", err)
		}
	}

	path := filepath.Join(r.cfg.Export.OutputDir, outputFileName(mode, label))
	if err := r.exporter.Write(products, label, includeChars, mode, path); err != nil {
		return "", err
	}
	r.logger.Info("run finished", "mode", mode, "products", len(products), "path", path)
	return path, nil
}

func (r *Runner) workers(mode catalog.Mode) int {
	switch mode {
	case catalog.ModeSeller:
		return r.cfg.Pipeline.SellerWorkers
	case catalog.ModeFavorites:
		return r.cfg.Pipeline.FavoritesWorkers
	default:
		return r.cfg.Pipeline.SearchWorkers
	}
}

// unsafeFileChars collapses anything outside letters and digits when a
// run label becomes part of a file name.
var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// outputFileName builds a collision-resistant workbook name from the run
// mode and label.
func outputFileName(mode catalog.Mode, label string) string {
	clean := unsafeFileChars.ReplaceAllString(label, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" {
		clean = "run"
	}

	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("rozvidka_%s_%s_%s.xlsx", mode, clean, hex.EncodeToString(suffix))
}
