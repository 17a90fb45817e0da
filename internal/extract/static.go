// Package extract parses marketplace product pages: static characteristic
// lists, warranty text, and review star ratings. All entry points take raw
// HTML and degrade to empty results on malformed input — they never fail.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// warrantyXPath matches the single element carrying warranty text,
// identified by its overflow attribute plus a layout class.
const warrantyXPath = `//div[@rzhasoverflow and contains(@class, "flex-1")]`

// Characteristics parses a product detail page for its characteristic
// pairs and warranty text. Label/value pairs come from definition-list
// blocks; a value is recorded only when it holds a nested sub-list, whose
// item texts are joined with ", " (anchor text preferred over plain text).
func Characteristics(html string) (map[string]string, string) {
	chars := map[string]string{}
	if strings.TrimSpace(html) == "" {
		return chars, ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return chars, ""
	}

	doc.Find("dl.list").Each(func(_ int, list *goquery.Selection) {
		list.Find("div.item").Each(func(_ int, item *goquery.Selection) {
			label := strings.TrimSpace(item.Find("dt.label").First().Text())
			value := item.Find("dd.value").First()
			if label == "" || value.Length() == 0 {
				return
			}

			var values []string
			value.Find("ul.sub-list li").Each(func(_ int, li *goquery.Selection) {
				text := ""
				if link := li.Find("a").First(); link.Length() > 0 {
					text = strings.TrimSpace(link.Text())
				} else {
					text = strings.TrimSpace(li.Text())
				}
				if text != "" {
					values = append(values, text)
				}
			})
			if len(values) > 0 {
				chars[label] = strings.Join(values, ", ")
			}
		})
	})

	return chars, warranty(html)
}

// warranty pulls the warranty text via XPath; the attribute+class
// combination is awkward to express as a CSS selector.
func warranty(html string) string {
	root, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return ""
	}
	node := htmlquery.FindOne(root, warrantyXPath)
	if node == nil {
		return ""
	}
	text := strings.TrimSpace(htmlquery.InnerText(node))
	return strings.ReplaceAll(text, " ", " ")
}
