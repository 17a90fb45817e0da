package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/observability"
)

// DetailResolver performs the bulk identifier-to-detail lookup.
// Satisfied by *catalog.Client.
type DetailResolver interface {
	Details(ctx context.Context, ids []int64) []catalog.ProductDetail
}

// Coordinator partitions identifiers into fixed-size batches and drives
// the orchestrator over every resolved detail. Batches run sequentially;
// enrichment within a batch runs concurrently, and each whole batch is
// appended to the accumulator before the next one starts.
type Coordinator struct {
	resolver  DetailResolver
	orch      *Orchestrator
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(resolver DetailResolver, orch *Orchestrator, batchSize int, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Coordinator{
		resolver:  resolver,
		orch:      orch,
		batchSize: batchSize,
		logger:    logger.With("component", "coordinator"),
		metrics:   metrics,
	}
}

// Run enriches every identifier and returns the accumulated records in
// batch submission order.
func (c *Coordinator) Run(ctx context.Context, ids []int64, mode catalog.Mode, includeChars bool) []catalog.EnrichedProduct {
	var all []catalog.EnrichedProduct

	for i, batch := range Chunk(ids, c.batchSize) {
		details := c.resolver.Details(ctx, batch)
		c.logger.Info("batch resolved", "batch", i+1, "requested", len(batch), "resolved", len(details))

		results := make([]catalog.EnrichedProduct, len(details))
		var wg sync.WaitGroup
		for j, d := range details {
			wg.Add(1)
			go func(j int, d catalog.ProductDetail) {
				defer wg.Done()
				results[j] = c.orch.Enrich(ctx, d, mode, includeChars)
			}(j, d)
		}
		wg.Wait()

		all = append(all, results...)
		if c.metrics != nil {
			c.metrics.BatchesTotal.Inc()
		}
	}
	return all
}

// Chunk splits ids into groups of at most size, preserving order. Every
// identifier appears exactly once across the chunks.
func Chunk(ids []int64, size int) [][]int64 {
	if size < 1 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
