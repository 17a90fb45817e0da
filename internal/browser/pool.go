package browser

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// renderTask is one grouping request handed to a pool worker. The result
// comes back on its own buffered channel so an abandoned waiter never
// blocks the worker.
type renderTask struct {
	ctx context.Context
	url string
	out chan catalog.GroupingResult
}

// Renderer produces a grouping result for one product page. Satisfied by
// *Extractor; tests substitute a stub.
type Renderer interface {
	FetchGrouping(ctx context.Context, url string) catalog.GroupingResult
}

// Pool runs blocking browser sessions on a bounded set of workers so they
// never stall the rest of the pipeline's goroutines. A pool is owned by
// exactly one pipeline run; Close drains all workers.
type Pool struct {
	extractor Renderer
	tasks     chan renderTask
	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewPool starts workers goroutines serving render tasks.
func NewPool(extractor Renderer, workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		extractor: extractor,
		tasks:     make(chan renderTask),
		logger:    logger.With("component", "render_pool"),
	}
	p.logger.Debug("render pool starting", "workers", workers)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.out <- p.extractor.FetchGrouping(t.ctx, t.url)
	}
}

// FetchGrouping submits a grouping lookup and waits for its result. A
// cancelled context yields the zero result.
func (p *Pool) FetchGrouping(ctx context.Context, url string) catalog.GroupingResult {
	t := renderTask{ctx: ctx, url: url, out: make(chan catalog.GroupingResult, 1)}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return catalog.GroupingResult{}
	}

	select {
	case res := <-t.out:
		return res
	case <-ctx.Done():
		return catalog.GroupingResult{}
	}
}

// Close stops accepting tasks and blocks until every worker is idle.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
	p.logger.Debug("render pool drained")
}
