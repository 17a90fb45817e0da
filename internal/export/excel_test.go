package export

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testExporter(threshold int) *Exporter {
	cfg := config.DefaultConfig().Export
	cfg.PopularThreshold = threshold
	return NewExporter(&cfg, testLogger, nil)
}

func testProducts() []catalog.EnrichedProduct {
	return []catalog.EnrichedProduct{
		{
			ProductDetail: catalog.ProductDetail{
				ID:     1,
				Title:  "iPhone 15",
				Href:   "https://rozetka.com.ua/ua/1/p1/",
				Price:  42999,
				Brand:  "Apple",
				Seller: catalog.Seller{Title: "Rozetka"},
				Groups: []catalog.Group{{Title: "Смартфони"}},
			},
			WishlistCount: 120,
			Delivery: catalog.DeliveryInfo{
				Payments:   "Картою онлайн",
				Deliveries: []catalog.DeliveryOption{{Title: "Нова Пошта", Cost: "79"}},
			},
			Characteristics: map[string]string{"Колір": "Чорний"},
		},
		{
			ProductDetail: catalog.ProductDetail{
				ID:     2,
				Title:  "MacBook Air",
				Href:   "https://rozetka.com.ua/ua/2/p2/",
				Price:  58999,
				Groups: []catalog.Group{{Title: "Ноутбуки"}},
			},
			Characteristics: map[string]string{"Колір": "Сірий"},
		},
		{
			ProductDetail: catalog.ProductDetail{
				ID:    3,
				Title: "No category product",
				Href:  "https://rozetka.com.ua/ua/3/p3/",
			},
			Characteristics: map[string]string{},
		},
	}
}

func TestWritePartitionsByCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	e := testExporter(350)

	if err := e.Write(testProducts(), "iphone", false, catalog.ModeSearch, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Смартфони", "Ноутбуки", "Без категорії"}
	if len(sheets) != len(want) {
		t.Fatalf("expected sheets %v, got %v", want, sheets)
	}
	for _, name := range want {
		if idx, _ := f.GetSheetIndex(name); idx < 0 {
			t.Errorf("missing sheet %q in %v", name, sheets)
		}
	}
}

func TestWriteRowContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	e := testExporter(350)

	if err := e.Write(testProducts(), "iphone", false, catalog.ModeSearch, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Смартфони")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}

	header := rows[0]
	if header[0] != "Місце в видачі" || header[1] != "Назва продукта" {
		t.Errorf("unexpected header start %v", header[:2])
	}
	if header[len(header)-1] != "Нова Пошта" {
		t.Errorf("expected delivery column last, got %q", header[len(header)-1])
	}

	row := rows[1]
	if row[0] != "1" {
		t.Errorf("expected position 1, got %q", row[0])
	}
	if row[1] != "iPhone 15" {
		t.Errorf("expected title, got %q", row[1])
	}
	if row[3] != "iphone" {
		t.Errorf("expected run label, got %q", row[3])
	}
	if row[len(row)-1] != "79" {
		t.Errorf("expected delivery cost 79, got %q", row[len(row)-1])
	}
}

func TestWriteCharacteristicColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	// Threshold 2: "Колір" appears twice across the dataset, so it is a
	// popular column even though each sheet holds it once.
	e := testExporter(2)

	if err := e.Write(testProducts(), "iphone", true, catalog.ModeSearch, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Смартфони")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	header := rows[0]
	if header[len(header)-1] != "Колір" {
		t.Errorf("expected characteristic column, got %q", header[len(header)-1])
	}
	if rows[1][len(header)-1] != "Чорний" {
		t.Errorf("expected characteristic value, got %q", rows[1][len(header)-1])
	}
}

func TestWriteWarnsOnMissingPopularValues(t *testing.T) {
	products := []catalog.EnrichedProduct{
		{
			ProductDetail:   catalog.ProductDetail{ID: 1, Title: "A", Groups: []catalog.Group{{Title: "Категорія"}}},
			Characteristics: map[string]string{"Колір": "Чорний"},
		},
		{
			ProductDetail:   catalog.ProductDetail{ID: 2, Title: "B", Groups: []catalog.Group{{Title: "Категорія"}}},
			Characteristics: map[string]string{},
		},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	e := testExporter(1)

	if err := e.Write(products, "поливалка", true, catalog.ModeSearch, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	var warned bool
	for _, name := range f.GetSheetList() {
		if strings.HasPrefix(name, warningPrefix) {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a warning-prefixed sheet, got %v", f.GetSheetList())
	}
}

func TestWriteSellerExtrasColumns(t *testing.T) {
	grouping := &catalog.GroupingResult{Found: true, Count: 3, MinPrice: "999", Sellers: []string{"A", "B"}}
	products := []catalog.EnrichedProduct{
		{
			ProductDetail: catalog.ProductDetail{ID: 1, Title: "A", Groups: []catalog.Group{{Title: "Категорія"}}},
			AvgRating:     4.5,
			HasAvgRating:  true,
			Grouping:      grouping,
		},
		{
			ProductDetail: catalog.ProductDetail{ID: 2, Title: "B", Groups: []catalog.Group{{Title: "Категорія"}}},
		},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	e := testExporter(350)

	if err := e.Write(products, "Brain", false, catalog.ModeSeller, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Категорія")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}

	header := rows[0]
	groupingCol := -1
	for i, h := range header {
		if h == "Групування, так/ні" {
			groupingCol = i
		}
	}
	if groupingCol < 0 {
		t.Fatalf("grouping column missing in %v", header)
	}

	if rows[1][groupingCol] != "Так" {
		t.Errorf("expected Так, got %q", rows[1][groupingCol])
	}
	if rows[1][groupingCol+2] != "999" {
		t.Errorf("expected min price 999, got %q", rows[1][groupingCol+2])
	}
	if rows[1][groupingCol+3] != "A, B" {
		t.Errorf("expected joined sellers, got %q", rows[1][groupingCol+3])
	}
	// Second product has no grouping data; its cells stay empty.
	if len(rows[2]) > groupingCol && rows[2][groupingCol] != "" {
		t.Errorf("expected empty grouping cell, got %q", rows[2][groupingCol])
	}
}

func TestWriteDedupesSanitizedSheetNames(t *testing.T) {
	products := []catalog.EnrichedProduct{
		{ProductDetail: catalog.ProductDetail{ID: 1, Title: "A", Groups: []catalog.Group{{Title: "X/Y"}}}, Characteristics: map[string]string{}},
		{ProductDetail: catalog.ProductDetail{ID: 2, Title: "B", Groups: []catalog.Group{{Title: "X:Y"}}}, Characteristics: map[string]string{}},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	e := testExporter(350)

	if err := e.Write(products, "label", false, catalog.ModeSearch, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %v", sheets)
	}
	if sheets[0] == sheets[1] {
		t.Errorf("sheet names must be distinct, got %v", sheets)
	}
}
