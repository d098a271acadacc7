package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/customHttpClient"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/pdfprocess"
	"github.com/akolanti/irbench/internal/pipeline"
	"github.com/akolanti/irbench/internal/querygen"
	"github.com/akolanti/irbench/internal/smartcn"
	"github.com/akolanti/irbench/internal/stats"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/spf13/cobra"
)

func newSeedCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load textbook catalogues from the input directory into the bookkeeping db",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			st, err := o.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := smartcn.Seed(ctx, st, o.inputDir())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&inputDirFlag, "input-dir", "", "directory holding info_parts_*.json and textbook_tm_*.json")
	return cmd
}

// inputDirFlag overrides paths.input_dir for seed and supplement.
var inputDirFlag string

func (o *rootOptions) inputDir() string {
	if inputDirFlag != "" {
		return inputDirFlag
	}
	return o.cfg.Paths.InputDir
}

func newDownloadCmd(o *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download lesson plan PDFs from the content API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			st, err := o.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := o.cfg.Smartcn
			if limit > 0 {
				cfg.LessonPlanLimit = limit
			}
			if cfg.AuthToken == "" {
				return errors.New("smartcn.auth_token (or IRBENCH_SMARTCN_AUTH) is required")
			}
			client := smartcn.NewClient(cfg, customHttpClient.NewClient(cfg.RequestTimeout))
			rep, err := smartcn.NewDownloader(client, st, cfg, o.cfg.Paths.OutputDir).Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop once this many lesson plans are on disk")
	return cmd
}

func newSupplementCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supplement",
		Short: "Backfill tags, filename codes and on-disk counts in the bookkeeping db",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			st, err := o.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := smartcn.Supplement(ctx, st, o.inputDir(), o.cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&inputDirFlag, "input-dir", "", "directory holding textbook_tm_*.json")
	return cmd
}

func newProcessCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run MinerU over downloaded PDFs that have no parse output yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			st, err := o.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p := pdfprocess.NewProcessor(st, pdfprocess.NewMineruCLI(o.cfg.Mineru), o.cfg.Paths.OutputDir)
			rep, err := p.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
}

// newPipeline wires the dataset builder, and the query generator when
// withLLM is set, over the bookkeeping store.
func (o *rootOptions) newPipeline(ctx context.Context, st *sqliteStore.Store, withLLM bool) (pipeline.Service, error) {
	httpClient := pipeline.NewHTTPClient()
	deps := pipeline.Deps{
		Builder:    irdataset.NewBuilder(st, o.cfg.Paths.OutputDir),
		Retrievers: pipeline.NewRetrieverFactory(o.cfg, httpClient),
		OutRoot:    o.cfg.Paths.OutputDir,
		Eval:       o.cfg.Eval,
	}
	if withLLM {
		provider, err := pipeline.NewLLMProvider(ctx, o.cfg.LLM, httpClient)
		if err != nil {
			return nil, err
		}
		deps.Generator = querygen.NewGenerator(provider, st, o.cfg.LLM, o.cfg.Paths.OutputDir)
	}
	return pipeline.NewService(deps), nil
}

// runJob executes one pipeline job in the foreground and prints its result.
func (o *rootOptions) runJob(cmd *cobra.Command, kind jobModel.JobKind, params jobModel.JobParams) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()
	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, string(kind))

	st, err := o.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := o.newPipeline(ctx, st, kind == jobModel.JobKindQueryGen)
	if err != nil {
		return err
	}
	job := pipeline.Dispatch(ctx, svc, jobModel.Job{Id: string(kind), Kind: kind, Params: params})
	if job.Status == jobModel.JobStatusError {
		return fmt.Errorf("%s failed: %s", kind, job.Error.Message)
	}
	logger_i.NewLogger("cli").Info("done", "kind", kind, "output", job.Result.OutputDir)
	return printJSON(cmd.OutOrStdout(), job.Result)
}

func addDatasetFlags(cmd *cobra.Command, p *jobModel.JobParams) {
	cmd.Flags().StringVar(&p.Variant, "variant", string(irdataset.VariantParagraph), "paragraph, page or unsplit")
	cmd.Flags().StringVar(&p.Category, "category", config.LessonPlanCategory, "lesson_plan or tm_textbook")
}

func newBuildCmd(o *rootOptions) *cobra.Command {
	var p jobModel.JobParams
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build documents.jsonl for one dataset variant and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runJob(cmd, jobModel.JobKindBuild, p)
		},
	}
	addDatasetFlags(cmd, &p)
	cmd.Flags().BoolVar(&p.LegacyIDs, "legacy-ids", false, "key page records on group/category/filename instead of resource ids")
	return cmd
}

func newQueriesCmd(o *rootOptions) *cobra.Command {
	var p jobModel.JobParams
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Assemble queries.jsonl and qrels.jsonl from generated query files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runJob(cmd, jobModel.JobKindQueries, p)
		},
	}
	addDatasetFlags(cmd, &p)
	return cmd
}

func newQueryGenCmd(o *rootOptions) *cobra.Command {
	var p jobModel.JobParams
	cmd := &cobra.Command{
		Use:   "querygen",
		Short: "Generate queries per merged document with the configured LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runJob(cmd, jobModel.JobKindQueryGen, p)
		},
	}
	addDatasetFlags(cmd, &p)
	cmd.Flags().IntVar(&p.QueriesPerDoc, "per-doc", 0, "queries requested per document (default 3)")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "cap on documents sent to the model, 0 for all")
	return cmd
}

func newRemapCmd(o *rootOptions) *cobra.Command {
	var p jobModel.JobParams
	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Rewrite legacy composite query ids onto resource ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runJob(cmd, jobModel.JobKindRemap, p)
		},
	}
	addDatasetFlags(cmd, &p)
	cmd.Flags().StringVar(&p.Dataset, "dataset", "", "dataset directory, defaults to the variant/category directory")
	return cmd
}

func newEvalCmd(o *rootOptions) *cobra.Command {
	var p jobModel.JobParams
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a retriever against a dataset directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runJob(cmd, jobModel.JobKindEval, p)
		},
	}
	f := cmd.Flags()
	addDatasetFlags(cmd, &p)
	f.StringVar(&p.Dataset, "dataset", "", "dataset directory with metadata.yaml")
	f.StringVar(&p.Retriever, "retriever", "lexical", "lexical (bm25) or dense")
	f.BoolVar(&p.PageLevel, "page-level", false, "collapse paragraph ids to page ids before scoring")
	f.BoolVar(&p.Reindex, "reindex", false, "drop and rebuild the dense collection")
	f.IntVar(&p.TopK, "top-k", 0, "cutoff for recall and precision (default 10)")
	f.IntVar(&p.BatchSize, "batch-size", 0, "queries searched concurrently (default 20)")
	f.StringVar(&p.Output, "out-file", "", "report path, defaults to {dataset}/eval_{retriever}.json")
	return cmd
}

func newStatsCmd(o *rootOptions) *cobra.Command {
	var withPDF bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise character counts of processed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			rep, err := stats.Collect(ctx, o.cfg.Paths.OutputDir, withPDF)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().BoolVar(&withPDF, "pdf", false, "also extract text from the downloaded PDFs")
	return cmd
}
