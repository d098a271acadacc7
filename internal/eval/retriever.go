package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/akolanti/irbench/internal/rag/embedding"
	"github.com/akolanti/irbench/internal/rag/ingest"
	"github.com/akolanti/irbench/internal/rag/lexical"
	"github.com/akolanti/irbench/internal/rag/vectorDB"
)

// ErrIndexNotBuilt is returned by Retrieve before a successful Prepare.
var ErrIndexNotBuilt = errors.New("retriever index not built")

// Retriever returns ranked doc ids for a query. Prepare indexes the corpus
// once before any Retrieve call.
type Retriever interface {
	Name() string
	Prepare(ctx context.Context, ds *Dataset) error
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

type LexicalRetriever struct {
	indexPath string
	index     *lexical.Index
}

// NewLexicalRetriever keeps the index in memory when indexPath is empty.
func NewLexicalRetriever(indexPath string) *LexicalRetriever {
	return &LexicalRetriever{indexPath: indexPath}
}

func (r *LexicalRetriever) Name() string { return "bm25" }

func (r *LexicalRetriever) Prepare(ctx context.Context, ds *Dataset) error {
	idx, err := lexical.New(r.indexPath)
	if err != nil {
		return err
	}
	n, err := idx.Count()
	if err != nil {
		_ = idx.Close()
		return err
	}
	if n < uint64(len(ds.Docs)) {
		if err := idx.Add(ctx, ds.Docs); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %s: %w", ds.Name, err)
		}
	}
	r.index = idx
	return nil
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if r.index == nil {
		return nil, ErrIndexNotBuilt
	}
	hits, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return commonModels.HitIDs(hits), nil
}

func (r *LexicalRetriever) Close() error {
	if r.index == nil {
		return nil
	}
	return r.index.Close()
}

// DenseRetriever embeds the corpus into a vector collection named after the
// dataset and searches it by cosine similarity.
type DenseRetriever struct {
	db         vectorDB.DataProcessor
	embedder   embedding.Embedder
	suffix     string
	batchSize  int
	reindex    bool
	collection string
}

func NewDenseRetriever(db vectorDB.DataProcessor, embedder embedding.Embedder, cfg config.EmbeddingConfig, reindex bool) *DenseRetriever {
	suffix := config.EmbeddingCollectionSuffix
	if cfg.Model != "" && cfg.Model != config.OpenAIEmbeddingModel {
		suffix = cfg.Model
	}
	return &DenseRetriever{db: db, embedder: embedder, suffix: suffix, batchSize: cfg.BatchSize, reindex: reindex}
}

func (r *DenseRetriever) Name() string { return "dense" }

// CollectionName maps a dataset name like "ir_datasets_splitted/lesson_plan"
// to a collection name safe for the vector store.
func CollectionName(dataset, suffix string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, dataset)
	return name + "_" + strings.Map(func(r rune) rune {
		if r == '/' || r == '.' || r == ':' {
			return '_'
		}
		return r
	}, suffix)
}

func (r *DenseRetriever) Prepare(ctx context.Context, ds *Dataset) error {
	name := CollectionName(ds.Name, r.suffix)
	if _, err := ingest.IndexCorpus(ctx, ds.Docs, r.db, r.embedder, ingest.Options{
		Collection: name,
		BatchSize:  r.batchSize,
		Recreate:   r.reindex,
	}); err != nil {
		return err
	}
	r.collection = name
	return nil
}

func (r *DenseRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if r.collection == "" {
		return nil, ErrIndexNotBuilt
	}
	vec, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.db.Search(ctx, r.collection, vec, k)
	if err != nil {
		return nil, err
	}
	return commonModels.HitIDs(hits), nil
}
