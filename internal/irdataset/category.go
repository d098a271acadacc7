package irdataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/irModel"
)

// MetaSource is the slice of bookkeeping the dataset builders read.
type MetaSource interface {
	ProcessedLessonPlanGroups(ctx context.Context) ([]irModel.GroupRow, error)
	LessonPlanMetas(ctx context.Context) ([]irModel.ResourceMeta, error)
	ProcessedTextbookGroups(ctx context.Context) ([]irModel.GroupRow, error)
	TextbookMetas(ctx context.Context) ([]irModel.ResourceMeta, error)
	GeneratedCorpusIDs(ctx context.Context, corpusType string) ([]string, error)
}

type MetaKey struct {
	Group    string
	Filename string
}

// MetaMap resolves (group id, pdf filename) to resource metadata.
type MetaMap map[MetaKey]irModel.ResourceMeta

func (m MetaMap) Lookup(groupID, pdfStem string) (irModel.ResourceMeta, bool) {
	meta, ok := m[MetaKey{Group: groupID, Filename: pdfStem + ".pdf"}]
	return meta, ok
}

// ByFilenameCode re-keys the map on (group id, filename code), deriving the
// code from the filename when the stored one is empty.
func (m MetaMap) ByFilenameCode() MetaMap {
	out := make(MetaMap, len(m))
	for key, meta := range m {
		code := meta.FilenameCode
		if code == "" {
			code = FilenameCode(meta.Filename)
		}
		out[MetaKey{Group: key.Group, Filename: code}] = meta
	}
	return out
}

// ResourceCategory captures what differs between lesson plans and textbooks:
// where processed files live, which groups are ready and how metadata is keyed.
type ResourceCategory interface {
	Name() string
	ProcessedDir(outRoot, groupID string) string
	Rows(ctx context.Context, src MetaSource) ([]irModel.GroupRow, error)
	MetaMap(ctx context.Context, src MetaSource) (MetaMap, error)
}

type LessonPlan struct{}

func (LessonPlan) Name() string { return config.LessonPlanCategory }

func (LessonPlan) ProcessedDir(outRoot, courseBagID string) string {
	return filepath.Join(outRoot, config.ProcessedDir, courseBagID, config.LessonPlanCategory)
}

func (LessonPlan) Rows(ctx context.Context, src MetaSource) ([]irModel.GroupRow, error) {
	return src.ProcessedLessonPlanGroups(ctx)
}

func (LessonPlan) MetaMap(ctx context.Context, src MetaSource) (MetaMap, error) {
	metas, err := src.LessonPlanMetas(ctx)
	if err != nil {
		return nil, err
	}
	out := make(MetaMap, len(metas))
	for _, m := range metas {
		out[MetaKey{Group: m.CourseBagID, Filename: m.Filename}] = m
	}
	return out, nil
}

type TmTextbook struct{}

func (TmTextbook) Name() string { return config.TmTextbookCategory }

func (TmTextbook) ProcessedDir(outRoot, textbookID string) string {
	return filepath.Join(outRoot, config.TmProcessedDir, textbookID)
}

func (TmTextbook) Rows(ctx context.Context, src MetaSource) ([]irModel.GroupRow, error) {
	return src.ProcessedTextbookGroups(ctx)
}

func (TmTextbook) MetaMap(ctx context.Context, src MetaSource) (MetaMap, error) {
	metas, err := src.TextbookMetas(ctx)
	if err != nil {
		return nil, err
	}
	out := make(MetaMap, len(metas))
	for _, m := range metas {
		out[MetaKey{Group: m.ID, Filename: m.Filename}] = m
	}
	return out, nil
}

func CategoryByName(name string) (ResourceCategory, error) {
	switch name {
	case config.LessonPlanCategory:
		return LessonPlan{}, nil
	case config.TmTextbookCategory:
		return TmTextbook{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrCategoryUnknown, name)
}
