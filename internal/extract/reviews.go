package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxRatingsConsidered caps how many star indicators count toward the
// average; it doubles as the minimum required to report one.
const maxRatingsConsidered = 3

// starWidthPattern pulls the percentage out of a star-bar width style,
// e.g. "width: calc(80% + 2px)".
var starWidthPattern = regexp.MustCompile(`width:\s*calc\((\d+)%`)

// ReviewAverage parses a review page for star ratings. The first three
// star indicators are read as percentage-of-5-stars values; an average is
// reported only when all three were found, rounded to 2 decimals.
func ReviewAverage(html string) (float64, bool) {
	if strings.TrimSpace(html) == "" {
		return 0, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	// Only the first three indicator elements are considered, whether or
	// not their style parses.
	var ratings []float64
	doc.Find("div.stars__rating").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxRatingsConsidered {
			return false
		}
		style, _ := sel.Attr("style")
		m := starWidthPattern.FindStringSubmatch(style)
		if m != nil {
			percent, err := strconv.Atoi(m[1])
			if err == nil {
				ratings = append(ratings, float64(percent)/20)
			}
		}
		return true
	})

	if len(ratings) < maxRatingsConsidered {
		return 0, false
	}

	sum := 0.0
	for _, r := range ratings {
		sum += r
	}
	avg := sum / float64(len(ratings))
	return math.Round(avg*100) / 100, true
}
