package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/customHttpClient"
	"github.com/akolanti/irbench/internal/data/store"
	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/rag/embedding"
	"github.com/akolanti/irbench/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/irbench/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/irbench/internal/rag/llm"
	"github.com/akolanti/irbench/internal/rag/llm/gemini"
	"github.com/akolanti/irbench/internal/rag/llm/openaiLLM"
	"github.com/akolanti/irbench/internal/rag/vectorDB/qdrantDB"
)

// NewHTTPClient is shared by the OpenAI-compatible clients. Calls are bounded
// by the job context, not a client timeout.
func NewHTTPClient() *http.Client {
	return customHttpClient.NewClient(0)
}

func NewLLMProvider(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewGeminiClient(ctx, cfg)
	case "openai", "":
		return openaiLLM.NewOpenAIClient(cfg, httpClient)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// NewEmbedder builds the configured embedder, fronted by the redis vector
// cache when redis is enabled and reachable.
func NewEmbedder(ctx context.Context, cfg *config.Config, httpClient *http.Client) (embedding.Embedder, error) {
	var (
		e   embedding.Embedder
		err error
	)
	switch cfg.Embedding.Provider {
	case "google", "gemini":
		e, err = googleEmbedding.NewGoogleEmbedder(ctx, cfg.Embedding)
	case "openai", "":
		e, err = openaiEmbedding.NewOpenAIEmbedder(cfg.Embedding, httpClient)
	default:
		err = fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, err
	}
	if !cfg.Redis.Enabled {
		return e, nil
	}
	if c := store.GetRedisEmbeddingCache(ctx, cfg.Redis); c != nil {
		return embedding.WithCache(e, c, cfg.Embedding.Model), nil
	}
	return e, nil
}

// NewRetrieverFactory resolves retrievers lazily so that a bm25 run never
// dials qdrant or an embedding endpoint.
func NewRetrieverFactory(cfg *config.Config, httpClient *http.Client) RetrieverFactory {
	return func(ctx context.Context, name string, reindex bool) (eval.Retriever, error) {
		switch name {
		case "bm25", "lexical":
			return eval.NewLexicalRetriever(""), nil
		case "dense", "bge-m3":
			emb, err := NewEmbedder(ctx, cfg, httpClient)
			if err != nil {
				return nil, err
			}
			db, err := qdrantDB.NewClient(ctx, cfg.Qdrant)
			if err != nil {
				return nil, err
			}
			return eval.NewDenseRetriever(db, emb, cfg.Embedding, reindex), nil
		}
		return nil, fmt.Errorf("unknown retriever %q", name)
	}
}
