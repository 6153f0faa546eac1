package search

// maxPatternBits is the widest pattern one state word can track.
const maxPatternBits = 64

// maxChunkLen mirrors the 32-character pattern limit of classic Bitap
// implementations; longer queries are scored as averaged chunks.
const maxChunkLen = 32

// pattern is a precomputed Bitap pattern: bit i of masks[r] is set when the
// i-th rune of the pattern is r.
type pattern struct {
	runes []rune
	masks map[rune]uint64
}

func newPattern(runes []rune) *pattern {
	if len(runes) > maxPatternBits {
		runes = runes[:maxPatternBits]
	}
	masks := make(map[rune]uint64, len(runes))
	for i, r := range runes {
		masks[r] |= 1 << uint(i)
	}
	return &pattern{runes: runes, masks: masks}
}

func (p *pattern) len() int { return len(p.runes) }

// minErrors returns the smallest number of edits (insertions, deletions,
// substitutions), at most maxErrors, with which the pattern matches some
// substring of text. It returns -1 if no such match exists. The position of
// the match is irrelevant.
func (p *pattern) minErrors(text []rune, maxErrors int) int {
	m := len(p.runes)
	if m == 0 {
		return 0
	}
	if maxErrors < 0 {
		return -1
	}

	hit := uint64(1) << uint(m-1)
	rows := make([]uint64, maxErrors+1)
	best := -1
	for d := range rows {
		// Before reading text, a prefix of length d matches by deleting it.
		rows[d] = (uint64(1) << uint(d)) - 1
		if best < 0 && rows[d]&hit != 0 {
			best = d
		}
	}
	if best == 0 {
		return 0
	}

	limit := maxErrors
	if best > 0 {
		limit = best - 1
	}
	for _, c := range text {
		mc := p.masks[c]
		prev := rows[0]
		rows[0] = ((rows[0] << 1) | 1) & mc
		for d := 1; d <= limit; d++ {
			cur := rows[d]
			rows[d] = (((cur << 1) | 1) & mc) | // match
				prev | // insertion
				((prev | rows[d-1]) << 1) | 1 // substitution, deletion
			prev = cur
		}
		for d := 0; d <= limit; d++ {
			if rows[d]&hit != 0 {
				if d == 0 {
					return 0
				}
				best = d
				limit = d - 1
				break
			}
		}
	}
	return best
}

// chunkPatterns splits a query into Bitap patterns of at most maxChunkLen
// runes. When the length is not a multiple of maxChunkLen the final chunk is
// right-aligned so that every chunk is full width.
func chunkPatterns(runes []rune) []*pattern {
	n := len(runes)
	if n <= maxChunkLen {
		return []*pattern{newPattern(runes)}
	}
	var chunks []*pattern
	rem := n % maxChunkLen
	end := n - rem
	for i := 0; i < end; i += maxChunkLen {
		chunks = append(chunks, newPattern(runes[i:i+maxChunkLen]))
	}
	if rem > 0 {
		chunks = append(chunks, newPattern(runes[n-maxChunkLen:]))
	}
	return chunks
}
