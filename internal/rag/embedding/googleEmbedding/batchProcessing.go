package googleEmbedding

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/irbench/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const rateLimitBackoff = 5 * time.Second

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			log.Error("Rate limit hit! ", "error", err)
			return true
		}
	}
	return false
}

// embedBatch sends one request, retrying once after a rate limit.
func (c *client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	log := c.logger.WithTrace(ctx)
	res, err := c.doCall(ctx, getContent(batch), "RETRIEVAL_DOCUMENT")
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying in 5 seconds")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rateLimitBackoff):
		}
		res, err = c.doCall(ctx, getContent(batch), "RETRIEVAL_DOCUMENT")
	}
	if err != nil {
		return nil, fmt.Errorf("google embedding: %w", err)
	}
	if len(res.Embeddings) != len(batch) {
		return nil, fmt.Errorf("google embedding: got %d vectors for %d texts", len(res.Embeddings), len(batch))
	}
	out := make([][]float32, len(batch))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// inBatches calls fn on consecutive slices of at most size texts.
func inBatches(texts []string, size int, fn func([]string) ([][]float32, error)) ([][]float32, error) {
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		end := min(i+size, len(texts))
		vecs, err := fn(texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}
