package irdataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/middle"
	"github.com/akolanti/irbench/pkg/logger_i"
)

type Variant string

const (
	VariantUnsplit   Variant = "unsplit"
	VariantParagraph Variant = "paragraph"
	VariantPage      Variant = "page"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantUnsplit, VariantParagraph, VariantPage:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown dataset variant %q", s)
}

func variantDir(v Variant) string {
	switch v {
	case VariantUnsplit:
		return config.UnsplitDatasetDir
	case VariantPage:
		return config.PageDatasetDir
	default:
		return config.SplitDatasetDir
	}
}

// DatasetDir is where a variant's artifacts for one category are written.
func DatasetDir(outRoot string, v Variant, category string) string {
	return filepath.Join(outRoot, variantDir(v), category)
}

// DatasetName is the name recorded in metadata.yaml.
func DatasetName(v Variant, category string) string {
	return variantDir(v) + "/" + category
}

type BuildOptions struct {
	Variant  Variant
	Category ResourceCategory
	// LegacyIDs keys page records on the group/category/filename composite
	// instead of resource metadata.
	LegacyIDs bool
}

type BuildResult struct {
	Dir          string
	Groups       int
	Documents    int
	Merged       int
	SkippedFiles int
	SpanTypes    []string
	ParaTypes    []string
}

type Builder struct {
	src     MetaSource
	outRoot string
	logger  *logger_i.Logger
}

func NewBuilder(src MetaSource, outRoot string) *Builder {
	return &Builder{src: src, outRoot: outRoot, logger: logger_i.NewLogger("irdataset")}
}

// BuildCorpus writes documents.jsonl (plus documents_merged.jsonl for split
// variants) and metadata.yaml for one category.
func (b *Builder) BuildCorpus(ctx context.Context, opts BuildOptions) (BuildResult, error) {
	if opts.Category == nil {
		return BuildResult{}, ErrCategoryUnknown
	}
	if opts.Variant == VariantUnsplit {
		return b.buildUnsplit(ctx, opts.Category)
	}

	cat := opts.Category
	dir := DatasetDir(b.outRoot, opts.Variant, cat.Name())
	result := BuildResult{Dir: dir}
	log := b.logger.WithTrace(ctx).With("category", cat.Name(), "variant", opts.Variant)

	rows, err := cat.Rows(ctx, b.src)
	if err != nil {
		return result, fmt.Errorf("list %s groups: %w", cat.Name(), err)
	}
	result.Groups = len(rows)
	log.Info("building corpus", "groups", len(rows))

	var metaMap MetaMap
	if !opts.LegacyIDs {
		if metaMap, err = cat.MetaMap(ctx, b.src); err != nil {
			return result, fmt.Errorf("load %s meta: %w", cat.Name(), err)
		}
	}

	walker := middle.NewWalker()
	var docs, paragraphs []irModel.DocumentRecord

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		files, err := b.middleFiles(cat.ProcessedDir(b.outRoot, row.GroupID))
		if err != nil {
			log.Warn("processed directory unavailable, skipping group", "group", row.GroupID, "error", err)
			continue
		}

		for _, f := range files {
			src := fileSource{group: row.GroupID, category: cat.Name(), stem: f.stem, tagNames: row.TagNames}
			if metaMap != nil {
				meta, ok := metaMap.Lookup(row.GroupID, f.stem)
				if !ok {
					log.Warn("meta not found, skipping file", "group", row.GroupID, "filename", f.stem+".pdf")
					metrics.FilesSkipped("meta_missing")
					result.SkippedFiles++
					continue
				}
				src.meta = &meta
			}

			doc, err := middle.LoadFile(f.path)
			if err != nil {
				log.Warn("failed to load middle file, skipping", "path", f.path, "error", err)
				metrics.FilesSkipped("decode_failed")
				result.SkippedFiles++
				continue
			}

			switch {
			case opts.Variant == VariantParagraph, opts.LegacyIDs:
				recs := paragraphRecords(src, walker.Paragraphs(doc))
				docs = append(docs, recs...)
				paragraphs = append(paragraphs, recs...)
			default:
				pages, paras := pageRecords(src, walker.Pages(doc))
				docs = append(docs, pages...)
				paragraphs = append(paragraphs, paras...)
			}
		}
	}

	result.SpanTypes = walker.SpanTypes.Sorted()
	result.ParaTypes = walker.ParaTypes.Sorted()
	log.Info("observed types", "para_types", result.ParaTypes, "span_types", result.SpanTypes)

	merged := MergeDocuments(paragraphs)
	if err := WriteJSONL(filepath.Join(dir, DocumentsFile), docs); err != nil {
		return result, err
	}
	if err := WriteJSONL(filepath.Join(dir, MergedDocumentsFile), merged); err != nil {
		return result, err
	}
	if err := WriteMetadata(dir, datasetMetadata(DatasetName(opts.Variant, cat.Name()), QrelFormatNested)); err != nil {
		return result, err
	}
	result.Documents = len(docs)
	result.Merged = len(merged)
	metrics.RecordsEmitted(string(opts.Variant), "documents", len(docs))
	metrics.RecordsEmitted(string(opts.Variant), "merged", len(merged))
	log.Info("corpus written", "dir", dir, "documents", len(docs), "merged", len(merged), "skipped_files", result.SkippedFiles)
	return result, nil
}

type middleFile struct {
	path string
	stem string
}

func (b *Builder) middleFiles(dir string) ([]middleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []middleFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if stem, ok := PDFStem(e.Name()); ok {
			out = append(out, middleFile{path: filepath.Join(dir, e.Name()), stem: stem})
		}
	}
	return out, nil
}

// fileSource is everything a record inherits from its source file.
type fileSource struct {
	group    string
	category string
	stem     string
	tagNames *string
	meta     *irModel.ResourceMeta
}

func (s fileSource) withMeta(rec irModel.DocumentRecord) irModel.DocumentRecord {
	if s.meta != nil {
		rec.RecordMeta = irModel.NewRecordMeta(*s.meta)
	}
	return rec
}

func (s fileSource) pageKey(pageIdx int) string {
	if s.meta == nil {
		return LegacyPageID(s.group, s.category, FilenameCode(s.stem+".pdf"), pageIdx)
	}
	return PageID(s.meta.ID, pageIdx)
}

// paragraphRecords emits one record per paragraph. With metadata the doc id
// is per paragraph; without it every paragraph of a page shares the legacy
// page key.
func paragraphRecords(src fileSource, paras []middle.Paragraph) []irModel.DocumentRecord {
	out := make([]irModel.DocumentRecord, 0, len(paras))
	for _, p := range paras {
		key := src.pageKey(p.PageIdx)
		rec := irModel.DocumentRecord{
			PageIdx:   p.PageIdx,
			BBox:      p.BBox,
			BBoxIndex: p.BBoxIndex,
			PageSize:  p.PageSize,
			Text:      p.Text(),
			TagNames:  src.tagNames,
			MergeKey:  key,
		}
		if src.meta != nil {
			rec.DocID = ParagraphDocID(src.meta.ID, p.PageIdx, p.BBoxIndex)
			rec.PageID = key
		} else {
			rec.DocID = key
		}
		out = append(out, src.withMeta(rec))
	}
	return out
}

// pageRecords emits one record per page plus the paragraph records used for
// the merged view.
func pageRecords(src fileSource, pages []middle.PageText) (docs, paras []irModel.DocumentRecord) {
	for _, pg := range pages {
		key := src.pageKey(pg.PageIdx)
		rec := irModel.DocumentRecord{
			DocID:    key,
			PageID:   key,
			PageIdx:  pg.PageIdx,
			BBox:     unionBBox(pg.Paragraphs),
			PageSize: pg.PageSize,
			Text:     pg.Text,
			TagNames: src.tagNames,
			MergeKey: key,
		}
		if len(pg.Paragraphs) > 0 {
			rec.BBoxIndex = pg.Paragraphs[0].BBoxIndex
		}
		docs = append(docs, src.withMeta(rec))
		paras = append(paras, paragraphRecords(src, pg.Paragraphs)...)
	}
	return docs, paras
}

// unionBBox is the smallest box covering every paragraph box on a page, or
// nil when no paragraph carries a four-number box.
func unionBBox(paras []middle.Paragraph) []float64 {
	var box []float64
	for _, p := range paras {
		if len(p.BBox) != 4 {
			continue
		}
		if box == nil {
			box = append([]float64(nil), p.BBox...)
			continue
		}
		box[0] = min(box[0], p.BBox[0])
		box[1] = min(box[1], p.BBox[1])
		box[2] = max(box[2], p.BBox[2])
		box[3] = max(box[3], p.BBox[3])
	}
	return box
}

func (b *Builder) buildUnsplit(ctx context.Context, cat ResourceCategory) (BuildResult, error) {
	dir := DatasetDir(b.outRoot, VariantUnsplit, cat.Name())
	result := BuildResult{Dir: dir}
	log := b.logger.WithTrace(ctx).With("category", cat.Name(), "variant", VariantUnsplit)

	rows, err := cat.Rows(ctx, b.src)
	if err != nil {
		return result, fmt.Errorf("list %s groups: %w", cat.Name(), err)
	}
	result.Groups = len(rows)

	var docs []irModel.PlainDocument
	for _, row := range rows {
		processed := cat.ProcessedDir(b.outRoot, row.GroupID)
		entries, err := os.ReadDir(processed)
		if err != nil {
			log.Warn("processed directory unavailable, skipping group", "group", row.GroupID, "error", err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(processed, e.Name()))
			if err != nil {
				log.Warn("failed to read markdown, skipping", "file", e.Name(), "error", err)
				result.SkippedFiles++
				continue
			}
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			docs = append(docs, irModel.PlainDocument{DocID: UnsplitDocID(row.GroupID, stem), Text: string(raw)})
		}
	}

	if err := WriteJSONL(filepath.Join(dir, DocumentsFile), docs); err != nil {
		return result, err
	}
	if err := WriteMetadata(dir, datasetMetadata(DatasetName(VariantUnsplit, cat.Name()), QrelFormatFlat)); err != nil {
		return result, err
	}
	result.Documents = len(docs)
	metrics.RecordsEmitted(string(VariantUnsplit), "documents", len(docs))
	log.Info("corpus written", "dir", dir, "documents", len(docs))
	return result, nil
}
