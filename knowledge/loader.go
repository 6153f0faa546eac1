package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "campus-assistant/errors"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Kinds lists the corpora in the order they are loaded and assembled.
var Kinds = []Kind{KindFAQ, KindDepartment, KindProcedure}

// FileName is the data file a corpus kind is read from.
func FileName(kind Kind) string {
	switch kind {
	case KindFAQ:
		return "faqs.json"
	case KindDepartment:
		return "departments.json"
	case KindProcedure:
		return "procedures.json"
	default:
		return ""
	}
}

func corpusName(kind Kind) string {
	return strings.TrimSuffix(FileName(kind), ".json")
}

// Loader reads the three corpus files from a directory, validating each
// against its embedded JSON schema before decoding.
type Loader struct {
	dir     string
	logger  *zap.Logger
	schemas map[Kind]*gojsonschema.Schema
}

func NewLoader(dir string, logger *zap.Logger) (*Loader, error) {
	schemas := make(map[Kind]*gojsonschema.Schema, len(Kinds))
	for _, kind := range Kinds {
		raw, err := schemaFS.ReadFile("schemas/" + corpusName(kind) + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", kind, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		schemas[kind] = schema
	}
	return &Loader{dir: dir, logger: logger, schemas: schemas}, nil
}

// Dir is the directory the loader reads from.
func (l *Loader) Dir() string { return l.dir }

// Path returns the absolute-or-relative path of the corpus file for kind.
func (l *Loader) Path(kind Kind) string {
	return filepath.Join(l.dir, FileName(kind))
}

// Load reads all three corpora. Any failure is reported as
// ErrIndexUnavailable; there is no partial set.
func (l *Loader) Load() (*Set, error) {
	corpora := make(map[Kind]Corpus, len(Kinds))
	for _, kind := range Kinds {
		corpus, err := l.LoadCorpus(kind)
		if err != nil {
			return nil, apperrors.Mark(err, apperrors.ErrIndexUnavailable)
		}
		corpora[kind] = corpus
	}

	set := &Set{
		FAQs:        corpora[KindFAQ],
		Departments: corpora[KindDepartment],
		Procedures:  corpora[KindProcedure],
	}
	l.logger.Info("Loaded knowledge corpora",
		zap.String("dir", l.dir),
		zap.Int("faqs", len(set.FAQs.Records)),
		zap.Int("departments", len(set.Departments.Records)),
		zap.Int("procedures", len(set.Procedures.Records)))
	return set, nil
}

// LoadCorpus reads and decodes a single corpus file.
func (l *Loader) LoadCorpus(kind Kind) (Corpus, error) {
	path := l.Path(kind)
	data, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, apperrors.WrapErrorf(err, "read %s corpus", kind)
	}
	records, err := l.Decode(kind, data)
	if err != nil {
		return Corpus{}, apperrors.WrapErrorf(err, "decode %s", path)
	}
	return Corpus{Name: corpusName(kind), Kind: kind, Records: records}, nil
}

// Decode validates data against the schema for kind and converts it into
// records in document order.
func (l *Loader) Decode(kind Kind, data []byte) ([]Record, error) {
	schema, ok := l.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown corpus kind %s", kind)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, apperrors.Mark(apperrors.WrapError(err, "schema validation"), apperrors.ErrInvalidCorpus)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidCorpus, strings.Join(msgs, "; "))
	}

	switch kind {
	case KindFAQ:
		var items []FAQ
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		records := make([]Record, len(items))
		for i := range items {
			records[i] = Record{Kind: KindFAQ, FAQ: &items[i]}
		}
		return records, nil
	case KindDepartment:
		var items []Department
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		records := make([]Record, len(items))
		for i := range items {
			records[i] = Record{Kind: KindDepartment, Department: &items[i]}
		}
		return records, nil
	case KindProcedure:
		var items []Procedure
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		records := make([]Record, len(items))
		for i := range items {
			records[i] = Record{Kind: KindProcedure, Procedure: &items[i]}
		}
		return records, nil
	}
	return nil, fmt.Errorf("unknown corpus kind %s", kind)
}
