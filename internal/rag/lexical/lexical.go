// Package lexical is a bleve full-text index over benchmark documents,
// analyzed with CJK bigrams.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	textField  = "text"
	docIDField = "doc_id"
	batchSize  = 1000
)

// query syntax characters are replaced by spaces before matching
var syntaxChars = regexp.MustCompile(`[+\-!(){}\[\]^"~*?:\\<'/&|]`)

func Sanitize(q string) string {
	return strings.Join(strings.Fields(syntaxChars.ReplaceAllString(q, " ")), " ")
}

type Index struct {
	idx    bleve.Index
	logger *logger_i.Logger
}

// New opens the index at path, creating it when missing. An empty path
// builds an in-memory index.
func New(path string) (*Index, error) {
	logger := logger_i.NewLogger("lexical")
	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{idx: idx, logger: logger}, nil
	}

	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		logger.Debug("opened lexical index", "path", path)
		return &Index{idx: idx, logger: logger}, nil
	}
	idx, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", path, err)
	}
	return &Index{idx: idx, logger: logger}, nil
}

func indexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = cjk.AnalyzerName
	text.Store = true

	id := bleve.NewKeywordFieldMapping()
	id.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(textField, text)
	doc.AddFieldMappingsAt(docIDField, id)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = cjk.AnalyzerName
	return m
}

// Add indexes docs in batches. Re-adding a doc id replaces it.
func (i *Index) Add(ctx context.Context, docs []commonModels.Document) error {
	batch := i.idx.NewBatch()
	for n, d := range docs {
		if err := batch.Index(d.DocID, map[string]any{docIDField: d.DocID, textField: d.Text}); err != nil {
			return fmt.Errorf("index %s: %w", d.DocID, err)
		}
		if batch.Size() >= batchSize || n == len(docs)-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := i.idx.Batch(batch); err != nil {
				return fmt.Errorf("flush batch: %w", err)
			}
			batch.Reset()
		}
	}
	i.logger.WithTrace(ctx).Debug("documents indexed", "count", len(docs))
	return nil
}

func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}

// Search returns at most k hits for the sanitized query, best first. A query
// that sanitizes to nothing yields no hits.
func (i *Index) Search(ctx context.Context, query string, k int) ([]commonModels.Hit, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	clean := Sanitize(query)
	if clean == "" {
		return nil, nil
	}

	q := bleve.NewMatchQuery(clean)
	q.SetField(textField)
	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	req.Fields = []string{textField}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := make([]commonModels.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		text, _ := h.Fields[textField].(string)
		hits = append(hits, commonModels.Hit{DocID: h.ID, Score: h.Score, Text: text})
	}
	return hits, nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}
