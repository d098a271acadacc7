package qdrantDB

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

type ClientHolder struct {
	QObj   *qdrant.Client
	logger *logger_i.Logger
}

func NewClient(ctx context.Context, cfg config.QdrantConfig) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(cfg.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant: %w", err)
	}
	holder := &ClientHolder{QObj: client, logger: logger_i.NewLogger("Qdrant")}
	go holder.closeOnDone(ctx)
	return holder, nil
}

func (db *ClientHolder) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	db.logger.Info("Shutting down Qdrant")
	if err := db.QObj.Close(); err != nil {
		db.logger.Error("could not close Qdrant: ", "error:", err)
	}
}

// PointID derives a stable point id from a document id: the MD5 digest
// interpreted as a UUID.
func PointID(docID string) string {
	return uuid.UUID(md5.Sum([]byte(docID))).String()
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, name string, dimension uint64, recreate bool) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists && recreate {
		db.logger.Info("dropping collection", "collection", name)
		if err := db.QObj.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		exists = false
	}
	if exists {
		return nil
	}
	return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (db *ClientHolder) Count(ctx context.Context, name string) (uint64, error) {
	return db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, name string, docs []commonModels.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("mismatch: got %d docs but %d vectors", len(docs), len(vectors))
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(doc.DocID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id": doc.DocID,
				"text":   doc.Text,
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, name string, vector []float32, limit int) ([]commonModels.Hit, error) {
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		db.logger.WithTrace(ctx).Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	hits := make([]commonModels.Hit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, commonModels.Hit{
			DocID: hit.Payload["doc_id"].GetStringValue(),
			Score: float64(hit.Score),
		})
	}
	return hits, nil
}
