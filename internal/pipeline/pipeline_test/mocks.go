package pipeline_test

import (
	"context"

	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/querygen"
)

// MockBuilder implements pipeline.DatasetBuilder
type MockBuilder struct {
	OnBuildCorpus  func(ctx context.Context, opts irdataset.BuildOptions) (irdataset.BuildResult, error)
	OnBuildQueries func(ctx context.Context, opts irdataset.BuildOptions) (irdataset.QueryResult, error)
	OnRemap        func(ctx context.Context, dir string, cat irdataset.ResourceCategory) (irdataset.RemapResult, error)
}

func (m *MockBuilder) BuildCorpus(ctx context.Context, opts irdataset.BuildOptions) (irdataset.BuildResult, error) {
	if m.OnBuildCorpus != nil {
		return m.OnBuildCorpus(ctx, opts)
	}
	return irdataset.BuildResult{Dir: "out", Documents: 1}, nil
}

func (m *MockBuilder) BuildQueries(ctx context.Context, opts irdataset.BuildOptions) (irdataset.QueryResult, error) {
	if m.OnBuildQueries != nil {
		return m.OnBuildQueries(ctx, opts)
	}
	return irdataset.QueryResult{Dir: "out"}, nil
}

func (m *MockBuilder) Remap(ctx context.Context, dir string, cat irdataset.ResourceCategory) (irdataset.RemapResult, error) {
	if m.OnRemap != nil {
		return m.OnRemap(ctx, dir, cat)
	}
	return irdataset.RemapResult{}, nil
}

type MockGenerator struct {
	OnRun func(ctx context.Context, opts querygen.Options) (querygen.Report, error)
}

func (m *MockGenerator) Run(ctx context.Context, opts querygen.Options) (querygen.Report, error) {
	if m.OnRun != nil {
		return m.OnRun(ctx, opts)
	}
	return querygen.Report{}, nil
}

// MockRetriever returns the same ranking for every query.
type MockRetriever struct {
	Ranking []string
	Err     error
	Closed  bool
}

func (m *MockRetriever) Name() string { return "mock" }

func (m *MockRetriever) Prepare(context.Context, *eval.Dataset) error { return nil }

func (m *MockRetriever) Retrieve(context.Context, string, int) ([]string, error) {
	return m.Ranking, m.Err
}

func (m *MockRetriever) Close() error {
	m.Closed = true
	return nil
}
