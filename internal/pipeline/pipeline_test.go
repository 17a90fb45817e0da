package pipeline

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/observability"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Export.OutputDir = t.TempDir()

	r, err := NewRunner(cfg, testLogger, observability.NewMetrics())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunSearchRejectsURLWithoutText(t *testing.T) {
	r := newTestRunner(t)
	if _, err := r.RunSearch(context.Background(), "https://rozetka.com.ua/ua/search/", false); err == nil {
		t.Fatal("expected error for search url without text parameter")
	}
}

func TestRunSellerRejectsEmptyName(t *testing.T) {
	r := newTestRunner(t)
	if _, err := r.RunSeller(context.Background(), "   ", false); err == nil {
		t.Fatal("expected error for empty seller name")
	}
}

func TestRunFavoritesRejectsURLsWithoutIdentifiers(t *testing.T) {
	r := newTestRunner(t)
	urls := []string{"https://example.com/", "not a url", ""}
	if _, err := r.RunFavorites(context.Background(), urls, false); err == nil {
		t.Fatal("expected error when no identifiers can be extracted")
	}
}

func TestCollectListingStopsOnEmptyPage(t *testing.T) {
	r := newTestRunner(t)

	pages := map[int]catalog.ListingPage{
		1: {IDs: []int64{1, 2}, TotalPages: 5, TotalFound: 10},
		2: {IDs: []int64{3}},
		3: {}, // listing exhausted or degraded
		4: {IDs: []int64{9}},
	}
	var fetched []int
	ids, _ := r.collectListing(context.Background(), func(page int) catalog.ListingPage {
		fetched = append(fetched, page)
		return pages[page]
	})

	if len(ids) != 3 {
		t.Errorf("expected ids up to the empty page, got %v", ids)
	}
	// Page 4 must never be requested once page 3 comes back empty.
	want := []int{1, 2, 3}
	if len(fetched) != len(want) {
		t.Fatalf("expected pages %v, got %v", want, fetched)
	}
}

func TestCollectListingHonorsPageCap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.OutputDir = t.TempDir()
	cfg.Pipeline.MaxPages = 2

	r, err := NewRunner(cfg, testLogger, observability.NewMetrics())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	var fetched []int
	ids, title := r.collectListing(context.Background(), func(page int) catalog.ListingPage {
		fetched = append(fetched, page)
		return catalog.ListingPage{IDs: []int64{int64(page)}, TotalPages: 100, SellerTitle: "Brain"}
	})

	if len(fetched) != 2 {
		t.Errorf("expected 2 pages fetched, got %v", fetched)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
	if title != "Brain" {
		t.Errorf("expected seller title from the first page, got %q", title)
	}
}

func TestOutputFileName(t *testing.T) {
	pattern := regexp.MustCompile(`^rozvidka_search_iphone_15_[0-9a-f]{8}\.xlsx$`)
	name := outputFileName(catalog.ModeSearch, "iphone 15")
	if !pattern.MatchString(name) {
		t.Errorf("unexpected file name %q", name)
	}
}

func TestOutputFileNameSanitizesLabel(t *testing.T) {
	name := outputFileName(catalog.ModeFavorites, "Обрані товари")
	pattern := regexp.MustCompile(`^rozvidka_favorites_Обрані_товари_[0-9a-f]{8}\.xlsx$`)
	if !pattern.MatchString(name) {
		t.Errorf("unexpected file name %q", name)
	}
}

func TestOutputFileNameEmptyLabel(t *testing.T) {
	name := outputFileName(catalog.ModeSearch, "///")
	pattern := regexp.MustCompile(`^rozvidka_search_run_[0-9a-f]{8}\.xlsx$`)
	if !pattern.MatchString(name) {
		t.Errorf("unexpected file name %q", name)
	}
}

func TestOutputFileNamesAreDistinct(t *testing.T) {
	a := outputFileName(catalog.ModeSearch, "same")
	b := outputFileName(catalog.ModeSearch, "same")
	if a == b {
		t.Errorf("expected distinct names, got %q twice", a)
	}
}
