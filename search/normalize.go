// Package search implements approximate text retrieval over small curated
// corpora: normalization, per-corpus indexes, Bitap-based scoring and
// score-threshold filtering.
package search

import "strings"

// Normalize lower-cases text and trims surrounding whitespace. It is applied
// to both indexed text and queries; any asymmetry breaks matching.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(text))
}
