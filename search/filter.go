package search

import "campus-assistant/knowledge"

// FilterByScore keeps results with score <= maxScore, preserving order.
func FilterByScore(results []MatchResult, maxScore float64) []MatchResult {
	filtered := make([]MatchResult, 0, len(results))
	for _, r := range results {
		if r.Score <= maxScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Top searches with an over-fetch of k*overfetch candidates, filters them at
// maxScore, and truncates to k. The over-fetch compensates for candidates
// dropped by the filter, which runs after ranking.
func (ix *Index) Top(query string, k, overfetch int, maxScore float64) []MatchResult {
	if k <= 0 {
		return nil
	}
	if overfetch < 1 {
		overfetch = 1
	}
	results := FilterByScore(ix.Search(query, k*overfetch), maxScore)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Records strips scores, returning the matched records in ranked order.
func Records(results []MatchResult) []knowledge.Record {
	if len(results) == 0 {
		return nil
	}
	records := make([]knowledge.Record, len(results))
	for i, r := range results {
		records[i] = r.Record
	}
	return records
}
