package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// productIDPattern matches the /p<digits>/ segment of a detail URL.
var productIDPattern = regexp.MustCompile(`/p(\d+)/`)

// ExtractProductIDs pulls product identifiers out of detail URLs,
// preserving input order. URLs without a parseable id are skipped.
func ExtractProductIDs(urls []string) []ProductIdentifier {
	var ids []ProductIdentifier
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		m := productIDPattern.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, ProductIdentifier{ID: id, URL: u})
	}
	return ids
}

// SearchTextFromURL extracts the text query parameter from a search
// results URL. Errors when the URL carries no query text.
func SearchTextFromURL(searchURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(searchURL))
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	text := u.Query().Get("text")
	if text == "" {
		return "", fmt.Errorf("search url %q has no text parameter", searchURL)
	}
	return text, nil
}

// SellerNameFromURL extracts the seller slug from a storefront URL.
// Plain names pass through unchanged.
func SellerNameFromURL(nameOrURL string) string {
	s := strings.TrimSpace(nameOrURL)
	if !strings.Contains(s, "/seller/") {
		return s
	}
	_, after, _ := strings.Cut(s, "/seller/")
	if i := strings.IndexByte(after, '/'); i >= 0 {
		after = after[:i]
	}
	return after
}
