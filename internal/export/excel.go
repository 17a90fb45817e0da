// Package export writes enriched products into a categorized spreadsheet.
// Column sets are inferred from the data: pass 1 computes the layout,
// pass 2 writes rows against it, so the writer itself stays
// schema-agnostic. Malformed per-product data degrades to empty cells.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/rozvidka/rozvidka/internal/catalog"
	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/observability"
)

const maxColumnWidth = 50

// warningPrefix marks sheets where a product lacks a popular
// characteristic value.
const warningPrefix = "!!!"

// Header fill colors per column group.
const (
	fillFixed       = "90EE90" // light green
	fillSellerExtra = "006400" // dark green
	fillDelivery    = "FFA500" // orange
	fillPopular     = "C0C0C0" // gray
	fillOther       = "FFFF00" // yellow
)

// Exporter writes one workbook per run, one sheet per category.
type Exporter struct {
	fallbackCategory string
	popularThreshold int
	logger           *slog.Logger
	metrics          *observability.Metrics
}

// NewExporter creates an exporter from configuration.
func NewExporter(cfg *config.ExportConfig, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{
		fallbackCategory: cfg.FallbackCategory,
		popularThreshold: cfg.PopularThreshold,
		logger:           logger.With("component", "export"),
		metrics:          metrics,
	}
}

// categoryBucket keeps first-seen category order for sheet ordering.
type categoryBucket struct {
	name     string
	products []catalog.EnrichedProduct
}

// Write partitions products by category and writes one sheet each to the
// workbook at path. label is the display text of the run (search query,
// seller title, or list name).
func (e *Exporter) Write(products []catalog.EnrichedProduct, label string, includeChars bool, mode catalog.Mode, path string) error {
	buckets := e.partition(products)
	popular := popularLabels(products, e.popularThreshold)
	e.logger.Info("export starting", "products", len(products), "categories", len(buckets), "path", path)

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyleSet(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	taken := map[string]bool{}
	for _, bucket := range buckets {
		if err := e.writeSheet(f, styles, bucket, label, includeChars, popular, mode, taken); err != nil {
			return fmt.Errorf("sheet %q: %w", bucket.name, err)
		}
	}

	// Drop the default sheet once real ones exist.
	if len(buckets) > 0 {
		_ = f.DeleteSheet("Sheet1")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info("workbook saved", "path", path)
	return nil
}

// partition groups products by joined category path, falling back to the
// detail's category title, then to the configured fallback label.
func (e *Exporter) partition(products []catalog.EnrichedProduct) []categoryBucket {
	var buckets []categoryBucket
	index := map[string]int{}

	for _, p := range products {
		name := p.CategoryPath()
		if name == "" {
			name = p.Category.Title
		}
		if name == "" {
			name = e.fallbackCategory
		}
		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, categoryBucket{name: name})
		}
		buckets[i].products = append(buckets[i].products, p)
	}
	return buckets
}

func (e *Exporter) writeSheet(f *excelize.File, styles *styleSet, bucket categoryBucket, label string, includeChars bool, popular map[string]bool, mode catalog.Mode, taken map[string]bool) error {
	schema := inferSchema(bucket.products, popular, includeChars, mode)

	name := sanitizeSheetName(bucket.name)
	if includeChars && len(schema.popular) > 0 && missingPopular(bucket.products, schema.popular) {
		name = warningPrefix + truncateRunes(name, 28)
	}
	name = dedupeSheetName(name, taken)
	taken[name] = true

	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := schema.headers()
	widths := make([]int, len(headers))

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, styles.header(schema, col)); err != nil {
			return err
		}
		widths[col] = utf8.RuneCountInString(header)
	}

	for i, p := range bucket.products {
		row := rowValues(&p, i+1, label, schema)
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, styles.centered); err != nil {
				return err
			}
			if w := utf8.RuneCountInString(fmt.Sprint(value)); w > widths[col] {
				widths[col] = w
			}
		}
	}

	for col, w := range widths {
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		width := float64(w + 2)
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(name, colName, colName, width); err != nil {
			return err
		}
	}

	if e.metrics != nil {
		e.metrics.SheetsWritten.Inc()
	}
	e.logger.Info("sheet written", "sheet", name, "rows", len(bucket.products))
	return nil
}

// rowValues flattens one product against the sheet's column layout.
// Missing data yields empty cells, never missing columns.
func rowValues(p *catalog.EnrichedProduct, position int, label string, schema sheetSchema) []any {
	values := []any{
		position,
		p.Title,
		p.Href,
		label,
		p.Category.Title,
		p.Brand,
		numberOrEmpty(p.OldPrice),
		numberOrEmpty(p.Price),
		numberOrEmpty(p.CommentsMark),
		p.CommentsAmount,
		p.WishlistCount,
		p.Seller.Title,
		p.Delivery.Payments,
		p.Warranty,
	}

	if schema.sellerExtras {
		if p.HasAvgRating {
			values = append(values, p.AvgRating)
		} else {
			values = append(values, "")
		}
		if p.Grouping != nil {
			g := p.Grouping
			values = append(values, groupingLabel(g.Found), g.Count, g.MinPrice, g.SellersJoined())
		} else {
			values = append(values, "", "", "", "")
		}
	}

	costs := map[string]string{}
	for _, d := range p.Delivery.Deliveries {
		costs[d.Title] = d.Cost
	}
	for _, title := range schema.deliveries {
		values = append(values, costs[title])
	}

	for _, charLabel := range schema.popular {
		values = append(values, p.Characteristics[charLabel])
	}
	for _, charLabel := range schema.other {
		values = append(values, p.Characteristics[charLabel])
	}
	return values
}

func groupingLabel(found bool) string {
	if found {
		return "Так"
	}
	return "Ні"
}

// numberOrEmpty hides zero-valued numeric fields, which the bulk endpoint
// uses for "absent".
func numberOrEmpty(v float64) any {
	if v == 0 {
		return ""
	}
	return v
}

// styleSet caches the workbook's shared style ids.
type styleSet struct {
	centered    int
	fixed       int
	sellerExtra int
	delivery    int
	popular     int
	other       int
}

func newStyleSet(f *excelize.File) (*styleSet, error) {
	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	s := &styleSet{centered: centered}
	for _, bind := range []struct {
		color string
		dst   *int
	}{
		{fillFixed, &s.fixed},
		{fillSellerExtra, &s.sellerExtra},
		{fillDelivery, &s.delivery},
		{fillPopular, &s.popular},
		{fillOther, &s.other},
	} {
		id, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{bind.color}},
		})
		if err != nil {
			return nil, err
		}
		*bind.dst = id
	}
	return s, nil
}

// header picks the banding style for a header column index.
func (s *styleSet) header(schema sheetSchema, col int) int {
	fixedCount := len(fixedHeaders)
	extraCount := 0
	if schema.sellerExtras {
		extraCount = len(sellerExtraHeaders)
	}
	switch {
	case col < fixedCount:
		return s.fixed
	case col < fixedCount+extraCount:
		return s.sellerExtra
	case col < fixedCount+extraCount+len(schema.deliveries):
		return s.delivery
	case col < fixedCount+extraCount+len(schema.deliveries)+len(schema.popular):
		return s.popular
	default:
		return s.other
	}
}
