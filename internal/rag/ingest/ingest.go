package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/rag/embedding"
	"github.com/akolanti/irbench/internal/rag/vectorDB"
	"github.com/akolanti/irbench/pkg/logger_i"
)

const defaultBatchSize = 100

type Options struct {
	Collection string
	BatchSize  int
	// Recreate drops and rebuilds the collection even when it is populated.
	Recreate bool
}

type Result struct {
	Indexed int
	Skipped bool
}

// IndexCorpus embeds docs and upserts them into opts.Collection. A collection
// that already holds at least len(docs) points is reused as is.
func IndexCorpus(ctx context.Context, docs []commonModels.Document, db vectorDB.DataProcessor, embedder embedding.Embedder, opts Options) (Result, error) {
	log := logger_i.NewLogger("Batch Ingestion").WithTrace(ctx).With("collection", opts.Collection)

	if !opts.Recreate {
		if n, err := db.Count(ctx, opts.Collection); err == nil && n >= uint64(len(docs)) && n > 0 {
			log.Info("collection already indexed, skipping", "points", n)
			return Result{Skipped: true}, nil
		}
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("dense_index", time.Since(start)) }()

	n, err := BatchIngest(ctx, docs, db, embedder, opts)
	if err != nil {
		return Result{Indexed: n}, err
	}
	log.Info("collection indexed", "documents", n, "took", time.Since(start))
	return Result{Indexed: n}, nil
}

// BatchIngest embeds and upserts docs batch by batch. The collection is
// created from the first batch's vector size.
func BatchIngest(ctx context.Context, docs []commonModels.Document, db vectorDB.DataProcessor, embedder embedding.Embedder, opts Options) (int, error) {
	log := logger_i.NewLogger("Batch Ingestion").WithTrace(ctx)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	ensured := false
	indexed := 0
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		current := docs[i:end]

		texts := make([]string, len(current))
		for j, d := range current {
			texts[j] = d.Text
		}

		log.Debug("Starting embedding call", "batch_start", i, "batch_len", len(current))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(current) || len(vectors[0]) == 0 {
			return indexed, fmt.Errorf("embedding batch returned %d vectors for %d docs", len(vectors), len(current))
		}

		if !ensured {
			if err := db.EnsureCollection(ctx, opts.Collection, uint64(len(vectors[0])), opts.Recreate); err != nil {
				return indexed, fmt.Errorf("creating collection failed: %w", err)
			}
			ensured = true
		}

		if err := db.UpsertBatch(ctx, opts.Collection, current, vectors); err != nil {
			return indexed, fmt.Errorf("upserting to qdrant failed: %w", err)
		}
		indexed += len(current)
	}
	return indexed, nil
}
