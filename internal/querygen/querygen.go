// Package querygen asks an LLM for benchmark queries over each merged page of
// a split dataset.
package querygen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/rag/llm"
	"github.com/akolanti/irbench/pkg/logger_i"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultQueriesPerDoc = 3

type Store interface {
	IsGenerated(ctx context.Context, corpusID, corpusType string) (bool, error)
	MarkGenerated(ctx context.Context, corpusID, corpusType string) error
}

type Options struct {
	Variant       irdataset.Variant
	Category      string
	QueriesPerDoc int
	// Limit caps the number of corpus ids sent to the model; 0 means all.
	Limit int
}

type Report struct {
	Corpora   int `json:"corpora"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type Generator struct {
	provider llm.Provider
	store    Store
	cfg      config.LLMConfig
	outRoot  string
	limiter  *rate.Limiter
	logger   *logger_i.Logger
}

func NewGenerator(provider llm.Provider, store Store, cfg config.LLMConfig, outRoot string) *Generator {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Generator{
		provider: provider,
		store:    store,
		cfg:      cfg,
		outRoot:  outRoot,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger_i.NewLogger("querygen"),
	}
}

// Run generates queries for every merged document of the dataset that has no
// query set yet. A document whose generation keeps failing is logged and left
// ungenerated so a later run picks it up.
func (g *Generator) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report
	log := g.logger.WithTrace(ctx).With("category", opts.Category, "variant", opts.Variant)

	dir := irdataset.DatasetDir(g.outRoot, opts.Variant, opts.Category)
	docs, err := irdataset.ReadJSONL[irModel.MergedDocument](filepath.Join(dir, irdataset.MergedDocumentsFile))
	if err != nil {
		return report, fmt.Errorf("read merged documents in %s: %w", dir, err)
	}
	report.Corpora = len(docs)

	var pending []irModel.MergedDocument
	for _, doc := range docs {
		done, err := g.store.IsGenerated(ctx, doc.DocID, opts.Category)
		if err != nil {
			return report, err
		}
		if done || len(doc.Paragraphs) == 0 {
			report.Skipped++
			continue
		}
		pending = append(pending, doc)
		if opts.Limit > 0 && len(pending) >= opts.Limit {
			break
		}
	}
	log.Info("generating queries", "pending", len(pending), "skipped", report.Skipped)

	perDoc := opts.QueriesPerDoc
	if perDoc <= 0 {
		perDoc = defaultQueriesPerDoc
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.cfg.Concurrency, 1))
	for _, doc := range pending {
		eg.Go(func() error {
			content, err := g.generate(egCtx, doc, perDoc)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				log.Warn("query generation failed", "corpus_id", doc.DocID, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			if err := g.save(egCtx, doc.DocID, opts.Category, content); err != nil {
				return err
			}
			mu.Lock()
			report.Generated++
			mu.Unlock()
			return nil
		})
	}
	err = eg.Wait()
	log.Info("query generation finished", "generated", report.Generated, "failed", report.Failed)
	return report, err
}

// generate calls the model at most Attempts times, waiting Backoff between
// calls, until the output parses.
func (g *Generator) generate(ctx context.Context, doc irModel.MergedDocument, perDoc int) (irModel.GeneratedContent, error) {
	prompt := BuildPrompt(doc, perDoc)
	attempts := max(g.cfg.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return irModel.GeneratedContent{}, ctx.Err()
			case <-time.After(g.cfg.Backoff):
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return irModel.GeneratedContent{}, err
		}

		start := time.Now()
		raw, err := g.provider.Generate(ctx, systemPrompt, prompt)
		metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))
		if err != nil {
			metrics.LLMAttempt("error")
			lastErr = err
			g.logger.Debug("llm call failed", "corpus_id", doc.DocID, "attempt", attempt, "error", err)
			continue
		}
		content, err := ParseResponse(raw)
		if err != nil {
			metrics.LLMAttempt("invalid")
			lastErr = err
			g.logger.Debug("llm output rejected", "corpus_id", doc.DocID, "attempt", attempt, "error", err)
			continue
		}
		metrics.LLMAttempt("ok")
		return content, nil
	}
	return irModel.GeneratedContent{}, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (g *Generator) save(ctx context.Context, corpusID, category string, content irModel.GeneratedContent) error {
	path := filepath.Join(g.outRoot, config.QueriesDir, corpusID+".json")
	if err := writeJSON(path, irModel.GeneratedQueries{Content: content}); err != nil {
		return err
	}
	return g.store.MarkGenerated(ctx, corpusID, category)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
