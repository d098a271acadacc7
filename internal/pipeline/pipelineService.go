package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/querygen"
	"github.com/akolanti/irbench/pkg/logger_i"
)

/*
Service is the only thing the worker and the CLI call. The private service
struct holds the builders, the query generator and the retriever factory, so
callers never touch bookkeeping or model clients directly and tests can swap
every dependency for a mock.
*/
type Service interface {
	BuildCorpus(ctx context.Context, job jobModel.Job) jobModel.Job
	BuildQueries(ctx context.Context, job jobModel.Job) jobModel.Job
	GenerateQueries(ctx context.Context, job jobModel.Job) jobModel.Job
	Remap(ctx context.Context, job jobModel.Job) jobModel.Job
	Evaluate(ctx context.Context, job jobModel.Job) jobModel.Job
}

type DatasetBuilder interface {
	BuildCorpus(ctx context.Context, opts irdataset.BuildOptions) (irdataset.BuildResult, error)
	BuildQueries(ctx context.Context, opts irdataset.BuildOptions) (irdataset.QueryResult, error)
	Remap(ctx context.Context, dir string, cat irdataset.ResourceCategory) (irdataset.RemapResult, error)
}

type QueryGenerator interface {
	Run(ctx context.Context, opts querygen.Options) (querygen.Report, error)
}

// RetrieverFactory builds a retriever by name ("bm25" or "dense").
type RetrieverFactory func(ctx context.Context, name string, reindex bool) (eval.Retriever, error)

type Deps struct {
	Builder    DatasetBuilder
	Generator  QueryGenerator
	Retrievers RetrieverFactory
	OutRoot    string
	Eval       config.EvalConfig
}

type service struct {
	builder    DatasetBuilder
	generator  QueryGenerator
	retrievers RetrieverFactory
	outRoot    string
	evalCfg    config.EvalConfig
	logger     *logger_i.Logger
}

func NewService(d Deps) Service {
	return &service{
		builder:    d.Builder,
		generator:  d.Generator,
		retrievers: d.Retrievers,
		outRoot:    d.OutRoot,
		evalCfg:    d.Eval,
		logger:     logger_i.NewLogger("Pipeline Service"),
	}
}

// Dispatch routes a job to the Service method for its kind.
func Dispatch(ctx context.Context, s Service, job jobModel.Job) jobModel.Job {
	switch job.Kind {
	case jobModel.JobKindBuild:
		return s.BuildCorpus(ctx, job)
	case jobModel.JobKindQueries:
		return s.BuildQueries(ctx, job)
	case jobModel.JobKindQueryGen:
		return s.GenerateQueries(ctx, job)
	case jobModel.JobKindRemap:
		return s.Remap(ctx, job)
	case jobModel.JobKindEval:
		return s.Evaluate(ctx, job)
	}
	return invalid(job, fmt.Errorf("unknown job kind %q", job.Kind))
}

func (s *service) BuildCorpus(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	job = EnterStep(ctx, job, jobModel.StepCorpus)

	opts, err := buildOptions(job.Params)
	if err != nil {
		return invalid(job, err)
	}

	start := time.Now()
	res, err := s.builder.BuildCorpus(ctx, opts)
	metrics.CaptureExecutionMetrics("build_corpus", time.Since(start))
	if err != nil {
		return s.jobError(log, job, err, "CORPUS_BUILD_FAILURE")
	}

	log.Info("corpus built", "dir", res.Dir, "documents", res.Documents)
	return complete(job, jobModel.JobResult{
		OutputDir: res.Dir,
		Counts: map[string]int{
			"groups":        res.Groups,
			"documents":     res.Documents,
			"merged":        res.Merged,
			"skipped_files": res.SkippedFiles,
		},
	})
}

func (s *service) BuildQueries(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	job = EnterStep(ctx, job, jobModel.StepQueries)

	opts, err := buildOptions(job.Params)
	if err != nil {
		return invalid(job, err)
	}

	start := time.Now()
	res, err := s.builder.BuildQueries(ctx, opts)
	metrics.CaptureExecutionMetrics("build_queries", time.Since(start))
	if err != nil {
		return s.jobError(log, job, err, "QUERY_BUILD_FAILURE")
	}

	return complete(job, jobModel.JobResult{
		OutputDir: res.Dir,
		Counts: map[string]int{
			"corpus_ids":  res.CorpusIDs,
			"queries":     res.Queries,
			"qrels":       res.Qrels,
			"skipped_ids": res.SkippedIDs,
		},
	})
}

func (s *service) GenerateQueries(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	job = EnterStep(ctx, job, jobModel.StepGenerate)

	if s.generator == nil {
		return s.jobError(log, job, errors.New("no llm provider configured"), "LLM_UNAVAILABLE")
	}
	opts, err := buildOptions(job.Params)
	if err != nil {
		return invalid(job, err)
	}
	if opts.Variant == irdataset.VariantUnsplit {
		return invalid(job, errors.New("query generation needs a split variant"))
	}

	rep, err := s.generator.Run(ctx, querygen.Options{
		Variant:       opts.Variant,
		Category:      opts.Category.Name(),
		Limit:         job.Params.Limit,
		QueriesPerDoc: job.Params.QueriesPerDoc,
	})
	if err != nil {
		return s.jobError(log, job, err, "LLM_GENERATION_FAILURE")
	}

	return complete(job, jobModel.JobResult{
		OutputDir: filepath.Join(s.outRoot, config.QueriesDir),
		Counts: map[string]int{
			"corpora":   rep.Corpora,
			"generated": rep.Generated,
			"skipped":   rep.Skipped,
			"failed":    rep.Failed,
		},
	})
}

func (s *service) Remap(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	job = EnterStep(ctx, job, jobModel.StepRemap)

	opts, err := buildOptions(job.Params)
	if err != nil {
		return invalid(job, err)
	}
	dir := job.Params.Dataset
	if dir == "" {
		dir = irdataset.DatasetDir(s.outRoot, opts.Variant, opts.Category.Name())
	}

	res, err := s.builder.Remap(ctx, dir, opts.Category)
	if err != nil {
		return s.jobError(log, job, err, "REMAP_FAILURE")
	}
	return complete(job, jobModel.JobResult{
		OutputDir: dir,
		Counts:    map[string]int{"queries": res.Queries, "qrels": res.Qrels},
	})
}

func (s *service) Evaluate(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	p := job.Params

	dir := p.Dataset
	if dir == "" {
		opts, err := buildOptions(p)
		if err != nil {
			return invalid(job, err)
		}
		dir = irdataset.DatasetDir(s.outRoot, opts.Variant, opts.Category.Name())
	}
	retrieverName := p.Retriever
	if retrieverName == "" {
		retrieverName = "bm25"
	}

	job = EnterStep(ctx, job, jobModel.StepIndex)
	ds, err := eval.LoadDataset(dir)
	if err != nil {
		return s.jobError(log, job, err, "DATASET_LOAD_FAILURE")
	}
	retriever, err := s.retrievers(ctx, retrieverName, p.Reindex)
	if err != nil {
		return invalid(job, err)
	}
	if c, ok := retriever.(io.Closer); ok {
		defer c.Close()
	}

	job = EnterStep(ctx, job, jobModel.StepRetrieval)
	report, err := eval.Run(ctx, ds, retriever, eval.Options{
		TopK:      firstPositive(p.TopK, s.evalCfg.TopK),
		BatchSize: firstPositive(p.BatchSize, s.evalCfg.BatchSize),
		PageLevel: p.PageLevel || s.evalCfg.PageLevel,
	})
	if err != nil {
		return s.jobError(log, job, err, "EVALUATION_FAILURE")
	}

	out := p.Output
	if out == "" {
		out = filepath.Join(dir, fmt.Sprintf("eval_%s.json", retriever.Name()))
	}
	if err := eval.WriteReport(out, report); err != nil {
		return s.jobError(log, job, err, "REPORT_WRITE_FAILURE")
	}

	return complete(job, jobModel.JobResult{
		OutputDir: out,
		Counts:    map[string]int{"queries": report.Queries, "skipped": report.Skipped},
		Metrics:   report.Metrics,
	})
}
