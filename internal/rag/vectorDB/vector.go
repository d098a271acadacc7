package vectorDB

import (
	"context"

	"github.com/akolanti/irbench/internal/domain/commonModels"
)

type DataProcessor interface {
	// EnsureCollection creates name with the given vector size. With recreate
	// an existing collection is dropped first.
	EnsureCollection(ctx context.Context, name string, dimension uint64, recreate bool) error
	Count(ctx context.Context, name string) (uint64, error)
	UpsertBatch(ctx context.Context, name string, docs []commonModels.Document, vectors [][]float32) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]commonModels.Hit, error)
}
