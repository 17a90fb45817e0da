package export

import (
	"sort"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// Fixed identity/price/rating columns, always present.
var fixedHeaders = []string{
	"Місце в видачі",
	"Назва продукта",
	"Посилання",
	"Пошуковий запит",
	"Категорія",
	"Бренд",
	"Ціна стара",
	"Ціна зараз",
	"Відгуки зірки",
	"Відгуки кількість",
	"Кількість в списках бажань",
	"Продавець",
	"Оплата",
	"Гарантія",
}

// Extra columns for seller mode without characteristics.
var sellerExtraHeaders = []string{
	"Середня оцінка (перші 3 відгуки)",
	"Групування, так/ні",
	"Кількість карток у групуванні",
	"Мінімальна ціна в групуванні",
	"Продавці в групуванні",
}

// sheetSchema is the column layout for one category sheet, computed from
// the data before any row is written (pass 1 of the two-pass export).
type sheetSchema struct {
	sellerExtras bool
	deliveries   []string
	popular      []string
	other        []string
}

// headers returns the full ordered header row.
func (s *sheetSchema) headers() []string {
	out := make([]string, 0, len(fixedHeaders)+len(sellerExtraHeaders)+len(s.deliveries)+len(s.popular)+len(s.other))
	out = append(out, fixedHeaders...)
	if s.sellerExtras {
		out = append(out, sellerExtraHeaders...)
	}
	out = append(out, s.deliveries...)
	out = append(out, s.popular...)
	out = append(out, s.other...)
	return out
}

// popularLabels counts characteristic labels across the full dataset and
// returns those crossing the absolute frequency threshold. The threshold
// is an absolute count, not a share of the dataset.
func popularLabels(products []catalog.EnrichedProduct, threshold int) map[string]bool {
	counts := map[string]int{}
	for i := range products {
		for label := range products[i].Characteristics {
			counts[label]++
		}
	}
	popular := map[string]bool{}
	for label, n := range counts {
		if n >= threshold {
			popular[label] = true
		}
	}
	return popular
}

// inferSchema computes the column layout for one category bucket. The
// characteristic columns split popular-first then other, each group
// sorted; delivery titles become dynamic columns, sorted.
func inferSchema(products []catalog.EnrichedProduct, popular map[string]bool, includeChars bool, mode catalog.Mode) sheetSchema {
	s := sheetSchema{sellerExtras: mode == catalog.ModeSeller && !includeChars}

	deliveryTitles := map[string]bool{}
	for i := range products {
		for _, d := range products[i].Delivery.Deliveries {
			if d.Title != "" {
				deliveryTitles[d.Title] = true
			}
		}
	}
	s.deliveries = sortedKeys(deliveryTitles)

	if includeChars {
		labels := map[string]bool{}
		for i := range products {
			for label := range products[i].Characteristics {
				labels[label] = true
			}
		}
		for _, label := range sortedKeys(labels) {
			if popular[label] {
				s.popular = append(s.popular, label)
			} else {
				s.other = append(s.other, label)
			}
		}
	}
	return s
}

// missingPopular reports whether any product of the bucket lacks a value
// for any popular characteristic column.
func missingPopular(products []catalog.EnrichedProduct, popular []string) bool {
	for i := range products {
		for _, label := range popular {
			if products[i].Characteristics[label] == "" {
				return true
			}
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
