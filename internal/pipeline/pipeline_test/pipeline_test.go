package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/pipeline"
	"github.com/akolanti/irbench/internal/querygen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestBuildCorpus_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		params         jobModel.JobParams
		setupMocks     func(b *MockBuilder)
		expectedStatus jobModel.JobStatus
		expectedStep   jobModel.InternalStatus
		expectedCode   int
	}{
		{
			name:   "Success_Defaults",
			params: jobModel.JobParams{},
			setupMocks: func(b *MockBuilder) {
				b.OnBuildCorpus = func(ctx context.Context, opts irdataset.BuildOptions) (irdataset.BuildResult, error) {
					if opts.Variant != irdataset.VariantParagraph || opts.Category.Name() != config.LessonPlanCategory {
						return irdataset.BuildResult{}, fmt.Errorf("unexpected options %+v", opts)
					}
					return irdataset.BuildResult{Dir: "out/p", Documents: 12, Merged: 3}, nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedStep:   jobModel.StepComplete,
		},
		{
			name:   "Failure_Builder",
			params: jobModel.JobParams{Variant: "page", Category: config.TmTextbookCategory},
			setupMocks: func(b *MockBuilder) {
				b.OnBuildCorpus = func(ctx context.Context, opts irdataset.BuildOptions) (irdataset.BuildResult, error) {
					return irdataset.BuildResult{}, errors.New("disk full")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedStep:   jobModel.StepError,
			expectedCode:   http.StatusInternalServerError,
		},
		{
			name:           "Failure_Unknown_Variant",
			params:         jobModel.JobParams{Variant: "sentence"},
			setupMocks:     func(b *MockBuilder) {},
			expectedStatus: jobModel.JobStatusError,
			expectedStep:   jobModel.StepError,
			expectedCode:   http.StatusBadRequest,
		},
		{
			name:           "Failure_Unknown_Category",
			params:         jobModel.JobParams{Category: "video"},
			setupMocks:     func(b *MockBuilder) {},
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusBadRequest,
			expectedStep:   jobModel.StepError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &MockBuilder{}
			tt.setupMocks(b)
			s := pipeline.NewService(pipeline.Deps{Builder: b})

			job := jobModel.Job{Id: "build-1", Kind: jobModel.JobKindBuild, Params: tt.params}
			result := pipeline.Dispatch(testContext(), s, job)

			assert.Equal(t, tt.expectedStatus, result.Status)
			assert.Equal(t, tt.expectedStep, result.CurrentStep)
			assert.Equal(t, tt.expectedCode, result.Error.Code)
			if tt.expectedStatus == jobModel.JobStatusComplete {
				assert.Equal(t, 12, result.Result.Counts["documents"])
				assert.Equal(t, "out/p", result.Result.OutputDir)
			}
		})
	}
}

func TestGenerateQueries(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		s := pipeline.NewService(pipeline.Deps{})
		result := s.GenerateQueries(testContext(), jobModel.Job{Id: "g"})
		assert.Equal(t, jobModel.JobStatusError, result.Status)
		assert.True(t, result.Error.Retry)
	})

	t.Run("unsplit rejected", func(t *testing.T) {
		s := pipeline.NewService(pipeline.Deps{Generator: &MockGenerator{}})
		result := s.GenerateQueries(testContext(), jobModel.Job{Params: jobModel.JobParams{Variant: "unsplit"}})
		assert.Equal(t, http.StatusBadRequest, result.Error.Code)
	})

	t.Run("report counts", func(t *testing.T) {
		var got querygen.Options
		gen := &MockGenerator{OnRun: func(ctx context.Context, opts querygen.Options) (querygen.Report, error) {
			got = opts
			return querygen.Report{Corpora: 4, Generated: 2, Skipped: 1, Failed: 1}, nil
		}}
		s := pipeline.NewService(pipeline.Deps{Generator: gen, OutRoot: "root"})
		result := s.GenerateQueries(testContext(), jobModel.Job{
			Kind:   jobModel.JobKindQueryGen,
			Params: jobModel.JobParams{Variant: "page", Limit: 4, QueriesPerDoc: 5},
		})

		require.Equal(t, jobModel.JobStatusComplete, result.Status)
		assert.Equal(t, irdataset.VariantPage, got.Variant)
		assert.Equal(t, config.LessonPlanCategory, got.Category)
		assert.Equal(t, 4, got.Limit)
		assert.Equal(t, 5, got.QueriesPerDoc)
		assert.Equal(t, 2, result.Result.Counts["generated"])
		assert.Equal(t, filepath.Join("root", config.QueriesDir), result.Result.OutputDir)
	})
}

func TestRemap_DefaultDir(t *testing.T) {
	var gotDir string
	b := &MockBuilder{OnRemap: func(ctx context.Context, dir string, cat irdataset.ResourceCategory) (irdataset.RemapResult, error) {
		gotDir = dir
		return irdataset.RemapResult{Queries: 3, Qrels: 3}, nil
	}}
	s := pipeline.NewService(pipeline.Deps{Builder: b, OutRoot: "root"})
	result := s.Remap(testContext(), jobModel.Job{Params: jobModel.JobParams{Variant: "page"}})

	require.Equal(t, jobModel.JobStatusComplete, result.Status)
	assert.Equal(t, irdataset.DatasetDir("root", irdataset.VariantPage, config.LessonPlanCategory), gotDir)
	assert.Equal(t, 3, result.Result.Counts["qrels"])
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	md := irdataset.DefaultMetadata("ir_datasets_splitted/lesson_plan")
	md.Files.Documents.Path = irdataset.DocumentsFile
	require.NoError(t, irdataset.WriteMetadata(dir, md))
	files := map[string]string{
		irdataset.DocumentsFile: `{"doc_id":"r1_0_1","text":"a"}` + "\n" + `{"doc_id":"r1_0_2","text":"b"}` + "\n",
		irdataset.QueriesFile:   `{"query_id":"q1","text":"a"}` + "\n",
		irdataset.QrelsFile:     `{"query_id":"q1","docs":[{"doc_id":"r1_0_1","relevance":1}]}` + "\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestEvaluate(t *testing.T) {
	dir := writeDataset(t)
	retriever := &MockRetriever{Ranking: []string{"r1_0_2", "r1_0_1"}}
	factory := func(ctx context.Context, name string, reindex bool) (eval.Retriever, error) {
		if name != "mock" {
			return nil, fmt.Errorf("unknown retriever %q", name)
		}
		return retriever, nil
	}
	s := pipeline.NewService(pipeline.Deps{Retrievers: factory, Eval: config.Default().Eval})

	result := s.Evaluate(testContext(), jobModel.Job{
		Kind:   jobModel.JobKindEval,
		Params: jobModel.JobParams{Dataset: dir, Retriever: "mock"},
	})
	require.Equal(t, jobModel.JobStatusComplete, result.Status, result.Error.Message)
	assert.True(t, retriever.Closed)
	assert.Equal(t, 1, result.Result.Counts["queries"])
	assert.InDelta(t, 1.0, result.Result.Metrics["recall@10"], 1e-9)
	assert.InDelta(t, 0.5, result.Result.Metrics["mrr@10"], 1e-9)
	assert.FileExists(t, filepath.Join(dir, "eval_mock.json"))

	t.Run("unknown retriever", func(t *testing.T) {
		result := s.Evaluate(testContext(), jobModel.Job{Params: jobModel.JobParams{Dataset: dir, Retriever: "splade"}})
		assert.Equal(t, http.StatusBadRequest, result.Error.Code)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		retriever.Err = errors.New("search down")
		result := s.Evaluate(testContext(), jobModel.Job{Params: jobModel.JobParams{Dataset: dir, Retriever: "mock"}})
		assert.Equal(t, jobModel.JobStatusError, result.Status)
		assert.Equal(t, http.StatusInternalServerError, result.Error.Code)
		assert.Contains(t, result.Error.Message, "EVALUATION_FAILURE")
	})
}

func TestDispatch_UnknownKind(t *testing.T) {
	s := pipeline.NewService(pipeline.Deps{})
	result := pipeline.Dispatch(testContext(), s, jobModel.Job{Kind: "index"})
	assert.Equal(t, http.StatusBadRequest, result.Error.Code)
}

func TestEvaluate_ReportsSteps(t *testing.T) {
	dir := writeDataset(t)
	factory := func(ctx context.Context, name string, reindex bool) (eval.Retriever, error) {
		return &MockRetriever{Ranking: []string{"r1_0_1"}}, nil
	}
	s := pipeline.NewService(pipeline.Deps{Retrievers: factory, Eval: config.Default().Eval})

	var steps []jobModel.InternalStatus
	ctx := pipeline.WithStepFunc(testContext(), func(_ context.Context, j jobModel.Job) {
		steps = append(steps, j.CurrentStep)
	})
	result := pipeline.Dispatch(ctx, s, jobModel.Job{
		Kind:   jobModel.JobKindEval,
		Params: jobModel.JobParams{Dataset: dir, Retriever: "mock"},
	})

	require.Equal(t, jobModel.JobStatusComplete, result.Status, result.Error.Message)
	assert.Equal(t, []jobModel.InternalStatus{jobModel.StepIndex, jobModel.StepRetrieval}, steps)
}
