// Package enrich turns bulk product details into enriched records by
// fanning out the secondary lookups per product. Sub-fetch failures
// degrade individual fields to their defaults and are never escalated.
package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/extract"
	"github.com/rozvidka/rozvidka/internal/observability"
)

// CatalogSource is the subset of the marketplace client the orchestrator
// needs. Satisfied by *catalog.Client.
type CatalogSource interface {
	WishlistCount(ctx context.Context, id int64) int
	Deliveries(ctx context.Context, id int64, price float64) catalog.DeliveryInfo
	ProductHTML(ctx context.Context, pageURL string) string
	ProductPageURL(id int64) string
	ReviewsURL(id int64) string
}

// GroupingFetcher obtains cross-seller grouping data for a product page.
// Satisfied by *browser.Pool.
type GroupingFetcher interface {
	FetchGrouping(ctx context.Context, url string) catalog.GroupingResult
}

// Orchestrator enriches one product at a time, running the independent
// sub-fetches concurrently.
type Orchestrator struct {
	catalog  CatalogSource
	grouping GroupingFetcher
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewOrchestrator wires an orchestrator. grouping may be nil when the run
// mode can never request grouping data.
func NewOrchestrator(src CatalogSource, grouping GroupingFetcher, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		catalog:  src,
		grouping: grouping,
		logger:   logger.With("component", "enrich"),
		metrics:  metrics,
	}
}

// Enrich builds the EnrichedProduct for one detail record. Which optional
// steps run depends on the request mode and the include-chars flag:
// wishlist and delivery always; characteristics+warranty when chars are
// requested; review average and rendered grouping only in seller mode
// without characteristics. Never returns an error: every failed sub-fetch
// leaves its own field at the documented default.
func (o *Orchestrator) Enrich(ctx context.Context, detail catalog.ProductDetail, mode catalog.Mode, includeChars bool) catalog.EnrichedProduct {
	p := catalog.EnrichedProduct{
		ProductDetail:   detail,
		Characteristics: map[string]string{},
	}
	if detail.ID == 0 || detail.Href == "" {
		return p
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.WishlistCount = o.catalog.WishlistCount(ctx, detail.ID)
	}()

	if detail.Price != 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Delivery = o.catalog.Deliveries(ctx, detail.ID, detail.Price)
		}()
	}

	if includeChars {
		wg.Add(1)
		go func() {
			defer wg.Done()
			html := o.catalog.ProductHTML(ctx, detail.Href)
			p.Characteristics, p.Warranty = extract.Characteristics(html)
		}()
	}

	if mode == catalog.ModeSeller && !includeChars {
		wg.Add(1)
		go func() {
			defer wg.Done()
			html := o.catalog.ProductHTML(ctx, o.catalog.ReviewsURL(detail.ID))
			p.AvgRating, p.HasAvgRating = extract.ReviewAverage(html)
		}()

		if o.grouping != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := o.grouping.FetchGrouping(ctx, o.catalog.ProductPageURL(detail.ID))
				p.Grouping = &res
			}()
		}
	}

	wg.Wait()
	o.observe(&p, mode, includeChars)
	o.logger.Info("product enriched", "product_id", detail.ID, "title", truncate(detail.Title, 50))
	return p
}

func (o *Orchestrator) observe(p *catalog.EnrichedProduct, mode catalog.Mode, includeChars bool) {
	if o.metrics == nil {
		return
	}
	o.metrics.ProductsTotal.Inc()
	if includeChars && len(p.Characteristics) == 0 {
		o.metrics.DegradedFields.WithLabelValues("characteristics").Inc()
	}
	if len(p.Delivery.Deliveries) == 0 {
		o.metrics.DegradedFields.WithLabelValues("delivery").Inc()
	}
	if mode == catalog.ModeSeller && !includeChars {
		if !p.HasAvgRating {
			o.metrics.DegradedFields.WithLabelValues("avg_rating").Inc()
		}
		if p.Grouping == nil || !p.Grouping.Found {
			o.metrics.DegradedFields.WithLabelValues("grouping").Inc()
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
