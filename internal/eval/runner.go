package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// ndcg and mrr are always reported at this cutoff.
const rankCutoff = 10

type Options struct {
	TopK      int
	BatchSize int
	PageLevel bool
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = config.EvalTopK
	}
	if o.BatchSize <= 0 {
		o.BatchSize = config.EvalBatchSize
	}
	return o
}

// Report is the result of one retriever over one dataset. Metric values are
// means over evaluated queries.
type Report struct {
	Dataset   string             `json:"dataset"`
	Retriever string             `json:"retriever"`
	PageLevel bool               `json:"page_level"`
	TopK      int                `json:"top_k"`
	Queries   int                `json:"queries"`
	Skipped   int                `json:"skipped"`
	Qrels     QrelStats          `json:"qrels"`
	Metrics   map[string]float64 `json:"metrics"`
	Took      string             `json:"took"`
}

type queryScore struct {
	recall, precision, ndcg, mrr, recall5 float64
}

// Run prepares r on ds and scores every query that has at least one relevant
// document. Queries run concurrently in batches; the first failure aborts.
func Run(ctx context.Context, ds *Dataset, r Retriever, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	log := logger_i.NewLogger("Evaluation").WithTrace(ctx).With("dataset", ds.Name, "retriever", r.Name())
	start := time.Now()

	if err := r.Prepare(ctx, ds); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", r.Name(), err)
	}

	var judgedQueries []Query
	for _, q := range ds.Queries {
		if len(ds.Relevant[q.ID]) > 0 {
			judgedQueries = append(judgedQueries, q)
		}
	}
	depth := max(opts.TopK, rankCutoff)
	scores := make([]queryScore, len(judgedQueries))

	for lo := 0; lo < len(judgedQueries); lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, len(judgedQueries))
		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				q := judgedQueries[i]
				retrieved, err := r.Retrieve(gctx, q.Text, depth)
				if err != nil {
					return fmt.Errorf("query %s: %w", q.ID, err)
				}
				j := newJudged(ds.Relevant[q.ID], opts.PageLevel)
				scores[i] = queryScore{
					recall:    j.Recall(retrieved, opts.TopK),
					precision: j.Precision(retrieved, opts.TopK),
					ndcg:      j.NDCG(retrieved, rankCutoff),
					mrr:       j.MRR(retrieved, rankCutoff),
					recall5:   j.Recall(retrieved, 5),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		metrics.EvalQueries(r.Name(), hi-lo)
		log.Debug("batch scored", "done", hi, "total", len(judgedQueries))
	}

	report := &Report{
		Dataset:   ds.Name,
		Retriever: r.Name(),
		PageLevel: opts.PageLevel,
		TopK:      opts.TopK,
		Queries:   len(judgedQueries),
		Skipped:   len(ds.Queries) - len(judgedQueries),
		Qrels:     ComputeQrelStats(ds.Relevant),
		Metrics:   average(scores, opts.TopK),
		Took:      time.Since(start).Round(time.Millisecond).String(),
	}
	metrics.CaptureExecutionMetrics("eval_"+r.Name(), time.Since(start))
	log.Info("evaluation finished", "queries", report.Queries, "metrics", report.Metrics)
	return report, nil
}

func average(scores []queryScore, k int) map[string]float64 {
	var sum queryScore
	for _, s := range scores {
		sum.recall += s.recall
		sum.precision += s.precision
		sum.ndcg += s.ndcg
		sum.mrr += s.mrr
		sum.recall5 += s.recall5
	}
	n := float64(len(scores))
	if n == 0 {
		n = 1
	}
	return map[string]float64{
		fmt.Sprintf("recall@%d", k):    sum.recall / n,
		fmt.Sprintf("precision@%d", k): sum.precision / n,
		"ndcg@10":                      sum.ndcg / n,
		"mrr@10":                       sum.mrr / n,
		"recall@5":                     sum.recall5 / n,
	}
}

// WriteReport writes report as indented JSON, creating parent dirs.
func WriteReport(path string, report *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
