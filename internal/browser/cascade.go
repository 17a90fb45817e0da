package browser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// Selector cascades, ordered most specific to most generic. The first
// selector that yields anything wins; later ones are not tried. Site
// redesigns are absorbed by editing these tables, not the extraction code.
var (
	toggleSelectors = []string{
		"rz-toggle-button button",
		"rz-product-offers rz-toggle-button button",
		"#all_sellers-block rz-toggle-button button",
		`button[class*="toggle"]`,
	}

	offerItemSelectors = []string{
		"#all_sellers-block > rz-product-offers > div > ul > li",
		"#all_sellers-block rz-product-offers li",
		"#all_sellers-block li.other-sellers-offers__item",
		"#all_sellers-block li",
	}

	sellerNameSelectors = []string{
		"a.other-sellers-offers__seller-link",
		`a[href*="/seller/"]`,
		".seller-name",
		`a[class*="seller"]`,
	}

	offerPriceSelectors = []string{
		"p.other-sellers-offers__product-price-main--red",
		"p.other-sellers-offers__product-price-main",
		`[class*="price"]`,
	}
)

var nonDigits = regexp.MustCompile(`[^\d]`)

// ExtractGrouping runs the offer-list cascades over a rendered-page HTML
// snapshot. It is a pure function of the snapshot so layout churn can be
// exercised with fixtures, without a live browser.
func ExtractGrouping(html string) catalog.GroupingResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return catalog.GroupingResult{}
	}

	var items *goquery.Selection
	for _, sel := range offerItemSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			items = found
			break
		}
	}
	if items == nil {
		return catalog.GroupingResult{}
	}

	res := catalog.GroupingResult{Found: true, Count: items.Length()}

	var prices []float64
	items.Each(func(_ int, item *goquery.Selection) {
		if name := firstText(item, sellerNameSelectors); name != "" {
			res.Sellers = append(res.Sellers, name)
		}
		if price, ok := firstPrice(item, offerPriceSelectors); ok {
			prices = append(prices, price)
		}
	})

	if len(prices) > 0 {
		min := prices[0]
		for _, p := range prices[1:] {
			if p < min {
				min = p
			}
		}
		res.MinPrice = strconv.FormatFloat(min, 'f', -1, 64)
	}
	return res
}

// firstText applies a selector cascade and returns the first non-empty
// trimmed text.
func firstText(scope *goquery.Selection, cascade []string) string {
	for _, sel := range cascade {
		text := strings.TrimSpace(scope.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// firstPrice applies a selector cascade, strips non-digit characters, and
// returns the first parseable price.
func firstPrice(scope *goquery.Selection, cascade []string) (float64, bool) {
	for _, sel := range cascade {
		text := strings.TrimSpace(scope.Find(sel).First().Text())
		clean := nonDigits.ReplaceAllString(text, "")
		if clean == "" {
			continue
		}
		price, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		return price, true
	}
	return 0, false
}
