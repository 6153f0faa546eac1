package search

import (
	"math"
	"strings"

	"campus-assistant/knowledge"
)

// Projector maps a record to its composite searchable string.
type Projector func(knowledge.Record) string

// DefaultProjector joins every field of the record variant and normalizes
// the result.
func DefaultProjector(r knowledge.Record) string {
	return Normalize(knowledge.Project(r))
}

// Options tune candidate admission at the matcher layer. They are
// independent of the tighter ceiling applied later by FilterByScore.
type Options struct {
	// Threshold is the highest score a record may have to be returned as a
	// candidate, on the [0,1] scale where 0 is a perfect match.
	Threshold float64
	// TokenErrorRatio bounds the edits allowed per query token, as a
	// fraction of the token length (rounded down).
	TokenErrorRatio float64
}

func DefaultOptions() Options {
	return Options{Threshold: 0.6, TokenErrorRatio: 0.25}
}

// IndexedRecord is a record plus the text derived from it at build time.
type IndexedRecord struct {
	Record     knowledge.Record
	SearchText string
	StepsText  string
	TokenText  string

	searchRunes []rune
	tokenRunes  []rune
	fieldNorm   float64
}

// Index is an immutable, searchable view over one corpus. It is safe for
// concurrent use; a reloaded corpus gets a new Index.
type Index struct {
	name    string
	opts    Options
	records []IndexedRecord
}

// BuildIndex derives the searchable text of every record. The projector
// output is normalized again so custom projectors cannot skew matching.
func BuildIndex(name string, records []knowledge.Record, projector Projector, opts Options) *Index {
	if projector == nil {
		projector = DefaultProjector
	}
	indexed := make([]IndexedRecord, len(records))
	for i, r := range records {
		indexed[i] = newIndexedRecord(r, Normalize(projector(r)))
	}
	return &Index{name: name, opts: opts, records: indexed}
}

func newIndexedRecord(r knowledge.Record, searchText string) IndexedRecord {
	tokenText := strings.Join(Tokenize(searchText), " ")
	return IndexedRecord{
		Record:      r,
		SearchText:  searchText,
		StepsText:   r.StepsText(),
		TokenText:   tokenText,
		searchRunes: []rune(searchText),
		tokenRunes:  []rune(tokenText),
		fieldNorm:   fieldNorm(searchText),
	}
}

// fieldNorm is 1/sqrt(number of space-separated words), rounded to three
// decimals. Long records need a closer whole-query match to score well.
func fieldNorm(text string) float64 {
	n := len(strings.FieldsFunc(text, func(r rune) bool { return r == ' ' }))
	if n == 0 {
		return 1
	}
	return math.Round(1000/math.Sqrt(float64(n))) / 1000
}

func (ix *Index) Name() string     { return ix.name }
func (ix *Index) Len() int         { return len(ix.records) }
func (ix *Index) Options() Options { return ix.opts }

// Record returns the indexed record at position i in corpus order.
func (ix *Index) Record(i int) IndexedRecord { return ix.records[i] }
