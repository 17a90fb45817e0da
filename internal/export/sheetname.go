package export

import (
	"fmt"
	"strings"
)

// Sheet names are capped by the XLSX format.
const maxSheetName = 31

// sanitizeSheetName replaces characters the XLSX format forbids and
// truncates to the allowed length.
func sanitizeSheetName(name string) string {
	r := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"*", "_",
		"?", "_",
		":", "_",
		"[", "_",
		"]", "_",
	)
	return truncateRunes(r.Replace(name), maxSheetName)
}

// dedupeSheetName suffixes a counter until the name is unused.
func dedupeSheetName(name string, taken map[string]bool) string {
	base := name
	for counter := 1; taken[name]; counter++ {
		name = fmt.Sprintf("%s_%d", truncateRunes(base, 28), counter)
	}
	return name
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
