package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/irbench/internal/domain/commonModels"
)

type mockEmbedder struct {
	batchFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return m.batchFunc(ctx, texts)
}

func unitVectors(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type mockVectorDB struct {
	count      uint64
	countErr   error
	ensured    []uint64
	recreated  bool
	upserts    int
	upsertFunc func(docs []commonModels.Document) error
}

func (m *mockVectorDB) EnsureCollection(ctx context.Context, name string, dim uint64, recreate bool) error {
	m.ensured = append(m.ensured, dim)
	m.recreated = recreate
	return nil
}
func (m *mockVectorDB) Count(ctx context.Context, name string) (uint64, error) {
	return m.count, m.countErr
}
func (m *mockVectorDB) UpsertBatch(ctx context.Context, name string, docs []commonModels.Document, vectors [][]float32) error {
	m.upserts++
	if m.upsertFunc != nil {
		return m.upsertFunc(docs)
	}
	return nil
}
func (m *mockVectorDB) Search(ctx context.Context, name string, v []float32, limit int) ([]commonModels.Hit, error) {
	return nil, nil
}

func makeDocs(n int) []commonModels.Document {
	docs := make([]commonModels.Document, n)
	for i := range docs {
		docs[i] = commonModels.Document{DocID: fmt.Sprintf("d%d", i), Text: "test content"}
	}
	return docs
}

func TestBatchIngest(t *testing.T) {
	vDB := &mockVectorDB{}
	n, err := BatchIngest(context.Background(), makeDocs(150), vDB, &mockEmbedder{batchFunc: unitVectors}, Options{Collection: "c", BatchSize: 100})
	if err != nil {
		t.Fatalf("BatchIngest failed: %v", err)
	}
	if n != 150 {
		t.Errorf("indexed %d, want 150", n)
	}
	if vDB.upserts != 2 {
		t.Errorf("Expected 2 batches to be upserted, got %d", vDB.upserts)
	}
	if len(vDB.ensured) != 1 || vDB.ensured[0] != 3 {
		t.Errorf("collection ensured %v, want once with dimension 3", vDB.ensured)
	}
}

func TestBatchIngest_Error(t *testing.T) {
	vDB := &mockVectorDB{upsertFunc: func([]commonModels.Document) error { return errors.New("upsert failed") }}
	_, err := BatchIngest(context.Background(), makeDocs(1), vDB, &mockEmbedder{batchFunc: unitVectors}, Options{Collection: "c"})
	if err == nil {
		t.Error("Expected error from BatchIngest, got nil")
	}

	short := &mockEmbedder{batchFunc: func(context.Context, []string) ([][]float32, error) { return nil, nil }}
	if _, err := BatchIngest(context.Background(), makeDocs(2), &mockVectorDB{}, short, Options{Collection: "c"}); err == nil {
		t.Error("Expected error for missing vectors, got nil")
	}
}

func TestIndexCorpus(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedder{batchFunc: unitVectors}

	tests := []struct {
		name     string
		db       *mockVectorDB
		recreate bool
		skipped  bool
	}{
		{"populated collection reused", &mockVectorDB{count: 5}, false, true},
		{"partial collection reindexed", &mockVectorDB{count: 2}, false, false},
		{"missing collection", &mockVectorDB{countErr: errors.New("not found")}, false, false},
		{"reindex forced", &mockVectorDB{count: 5}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := IndexCorpus(ctx, makeDocs(5), tt.db, emb, Options{Collection: "c", Recreate: tt.recreate})
			if err != nil {
				t.Fatalf("IndexCorpus: %v", err)
			}
			if res.Skipped != tt.skipped {
				t.Errorf("skipped = %v, want %v", res.Skipped, tt.skipped)
			}
			if !tt.skipped && res.Indexed != 5 {
				t.Errorf("indexed = %d, want 5", res.Indexed)
			}
			if tt.recreate && !tt.db.recreated {
				t.Error("recreate not passed to EnsureCollection")
			}
		})
	}
}
