package search

import (
	"math"
	"sort"

	"campus-assistant/knowledge"
)

// MatchResult is one scored candidate. Score is in [0,1], 0 being a perfect
// match. Position is the record's index in its corpus.
type MatchResult struct {
	Record   knowledge.Record
	Score    float64
	Position int
}

// minMatchScore keeps a fuzzy substring match distinguishable from an
// identical text, which scores exactly 0.
const minMatchScore = 0.001

type preparedQuery struct {
	text   string
	chunks []*pattern
	tokens []*pattern
}

func prepare(query string) (preparedQuery, bool) {
	q := Normalize(query)
	if q == "" {
		return preparedQuery{}, false
	}
	pq := preparedQuery{text: q, chunks: chunkPatterns([]rune(q))}
	for _, tok := range contentTokens(Tokenize(q)) {
		pq.tokens = append(pq.tokens, newPattern([]rune(tok)))
	}
	return pq, true
}

// Search scores every record against query and returns at most limit
// candidates whose score does not exceed the index threshold, best first.
// Ties keep corpus order. An empty or all-whitespace query returns nil.
func (ix *Index) Search(query string, limit int) []MatchResult {
	if limit <= 0 {
		return nil
	}
	pq, ok := prepare(query)
	if !ok {
		return nil
	}

	var results []MatchResult
	for i := range ix.records {
		rec := &ix.records[i]
		score := scoreRecord(pq, rec, ix.opts)
		if score > ix.opts.Threshold {
			continue
		}
		results = append(results, MatchResult{Record: rec.Record, Score: score, Position: i})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Score computes the match score of query against already-normalized text
// without building an index. The second result is false when the query is
// empty.
func Score(query, text string, opts Options) (float64, bool) {
	pq, ok := prepare(query)
	if !ok {
		return 1, false
	}
	rec := newIndexedRecord(knowledge.Record{}, Normalize(text))
	return scoreRecord(pq, &rec, opts), true
}

// scoreRecord is the better of a whole-query Bitap score and a token
// overlap score.
func scoreRecord(pq preparedQuery, rec *IndexedRecord, opts Options) float64 {
	whole := wholeQueryScore(pq, rec, opts.Threshold)
	if whole == 0 {
		return 0
	}
	return math.Min(whole, tokenScore(pq, rec, opts.TokenErrorRatio))
}

// wholeQueryScore matches the full query, chunk by chunk, anywhere in the
// record text. A chunk matches when its error ratio is within threshold;
// unmatched chunks count as 1. The averaged ratio is raised to the record's
// field norm.
func wholeQueryScore(pq preparedQuery, rec *IndexedRecord, threshold float64) float64 {
	if pq.text == rec.SearchText {
		return 0
	}

	var total float64
	matched := false
	for _, chunk := range pq.chunks {
		n := chunk.len()
		e := chunk.minErrors(rec.searchRunes, allowedErrors(threshold, n))
		if e < 0 {
			total++
			continue
		}
		matched = true
		total += math.Max(minMatchScore, float64(e)/float64(n))
	}
	if !matched {
		return 1
	}
	return math.Pow(total/float64(len(pq.chunks)), rec.fieldNorm)
}

// tokenScore averages per-token scores: e/len for a token found in the
// record's token text within its error budget, 1 otherwise.
func tokenScore(pq preparedQuery, rec *IndexedRecord, ratio float64) float64 {
	if len(pq.tokens) == 0 {
		return 1
	}
	var total float64
	for _, tok := range pq.tokens {
		n := tok.len()
		e := tok.minErrors(rec.tokenRunes, allowedErrors(ratio, n))
		if e < 0 {
			total++
			continue
		}
		total += float64(e) / float64(n)
	}
	return total / float64(len(pq.tokens))
}

// allowedErrors is floor(ratio*n), tolerant of float rounding just below an
// integer.
func allowedErrors(ratio float64, n int) int {
	if ratio <= 0 {
		return 0
	}
	return int(math.Floor(ratio*float64(n) + 1e-9))
}
