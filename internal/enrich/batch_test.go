package enrich

import (
	"context"
	"sync"
	"testing"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// stubResolver resolves each id to a minimal detail and records the
// batches it was asked for.
type stubResolver struct {
	mu      sync.Mutex
	batches [][]int64
}

func (s *stubResolver) Details(ctx context.Context, ids []int64) []catalog.ProductDetail {
	s.mu.Lock()
	s.batches = append(s.batches, append([]int64(nil), ids...))
	s.mu.Unlock()

	details := make([]catalog.ProductDetail, len(ids))
	for i, id := range ids {
		details[i] = catalog.ProductDetail{ID: id, Href: "href", Title: "t"}
	}
	return details
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		size int
		want [][]int64
	}{
		{"even split", []int64{1, 2, 3, 4}, 2, [][]int64{{1, 2}, {3, 4}}},
		{"remainder", []int64{1, 2, 3, 4, 5}, 2, [][]int64{{1, 2}, {3, 4}, {5}}},
		{"single chunk", []int64{1, 2}, 10, [][]int64{{1, 2}}},
		{"empty", nil, 2, nil},
		{"zero size", []int64{1}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.ids, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("chunk %d: expected %v, got %v", i, tt.want[i], got[i])
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("chunk %d: expected %v, got %v", i, tt.want[i], got[i])
					}
				}
			}
		})
	}
}

func TestCoordinatorBatchesSequentially(t *testing.T) {
	resolver := &stubResolver{}
	orch := NewOrchestrator(newStubCatalog(), nil, testLogger, nil)
	coord := NewCoordinator(resolver, orch, 3, testLogger, nil)

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	products := coord.Run(context.Background(), ids, catalog.ModeSearch, false)

	if len(products) != len(ids) {
		t.Fatalf("expected %d products, got %d", len(ids), len(products))
	}
	// Order within and across batches follows submission order.
	for i, id := range ids {
		if products[i].ID != id {
			t.Errorf("product %d: expected id %d, got %d", i, id, products[i].ID)
		}
	}

	wantBatches := [][]int64{{1, 2, 3}, {4, 5, 6}, {7}}
	if len(resolver.batches) != len(wantBatches) {
		t.Fatalf("expected %d batches, got %d", len(wantBatches), len(resolver.batches))
	}
	for i, want := range wantBatches {
		if len(resolver.batches[i]) != len(want) {
			t.Errorf("batch %d: expected %v, got %v", i, want, resolver.batches[i])
		}
	}
}

func TestCoordinatorNoIdentifiers(t *testing.T) {
	resolver := &stubResolver{}
	orch := NewOrchestrator(newStubCatalog(), nil, testLogger, nil)
	coord := NewCoordinator(resolver, orch, 3, testLogger, nil)

	if got := coord.Run(context.Background(), nil, catalog.ModeSearch, false); got != nil {
		t.Errorf("expected nil for no identifiers, got %v", got)
	}
	if len(resolver.batches) != 0 {
		t.Error("no resolver calls expected for empty input")
	}
}
