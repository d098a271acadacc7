package irdataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/domain/middleModel"
	"github.com/akolanti/irbench/internal/middle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lessonGroups []irModel.GroupRow
	lessonMetas  []irModel.ResourceMeta
	tmGroups     []irModel.GroupRow
	tmMetas      []irModel.ResourceMeta
	generated    map[string][]string
}

func (f *fakeSource) ProcessedLessonPlanGroups(context.Context) ([]irModel.GroupRow, error) {
	return f.lessonGroups, nil
}
func (f *fakeSource) LessonPlanMetas(context.Context) ([]irModel.ResourceMeta, error) {
	return f.lessonMetas, nil
}
func (f *fakeSource) ProcessedTextbookGroups(context.Context) ([]irModel.GroupRow, error) {
	return f.tmGroups, nil
}
func (f *fakeSource) TextbookMetas(context.Context) ([]irModel.ResourceMeta, error) {
	return f.tmMetas, nil
}
func (f *fakeSource) GeneratedCorpusIDs(_ context.Context, corpusType string) ([]string, error) {
	return f.generated[corpusType], nil
}

func textPara(s string) middleModel.ParaBlock {
	return middleModel.ParaBlock{Type: "text", BBox: []float64{0, 0, 1, 1}, Lines: []middleModel.Line{
		{Spans: []middleModel.Span{{Type: middleModel.SpanText, Content: s}}},
	}}
}

func sampleDocument() middleModel.Document {
	return middleModel.Document{PdfInfo: []middleModel.Page{
		{PageIdx: 0, PageSize: []float64{595, 842}, ParaBlocks: []middleModel.ParaBlock{
			textPara("Hello"),
			{Type: "image", Lines: []middleModel.Line{
				{Spans: []middleModel.Span{{Type: middleModel.SpanImage, ImagePath: "img/1.png"}}},
			}},
		}},
		{PageIdx: 1, PageSize: []float64{595, 842}, ParaBlocks: []middleModel.ParaBlock{textPara("World")}},
	}}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

// fixture lays out one processed course bag with a resolvable file and one
// whose meta is missing.
func fixture(t *testing.T) (string, *fakeSource) {
	t.Helper()
	out := t.TempDir()
	processed := LessonPlan{}.ProcessedDir(out, "cb1")
	writeJSON(t, filepath.Join(processed, "plan-a_middle.json"), sampleDocument())
	writeJSON(t, filepath.Join(processed, "教案_middle.json"), sampleDocument())

	tags := "数学,七年级"
	src := &fakeSource{
		lessonGroups: []irModel.GroupRow{{GroupID: "cb1", TagNames: &tags}, {GroupID: "missing"}},
		lessonMetas: []irModel.ResourceMeta{{
			ID: "res1", CourseBagID: "cb1", Filename: "plan-a.pdf",
			ResourceTypeCode: "elite_lesson", ContainerID: "c1", TagList: "t1",
		}},
		generated: map[string][]string{},
	}
	return out, src
}

func TestSafeStem(t *testing.T) {
	assert.Equal(t, "plan-a_01", SafeStem("plan-a_01"))

	sum := md5.Sum([]byte("教案 1"))
	assert.Equal(t, hex.EncodeToString(sum[:]), SafeStem("教案 1"))
	assert.Equal(t, SafeStem("教案 1"), SafeStem("教案 1"))
	assert.Len(t, SafeStem("a.b"), 32)
}

func TestFilenameCodeAndStem(t *testing.T) {
	assert.Equal(t, "plan-a_middle", FilenameCode("plan-a.pdf"))

	stem, ok := PDFStem("plan-a_middle.json")
	assert.True(t, ok)
	assert.Equal(t, "plan-a", stem)

	_, ok = PDFStem("plan-a.md")
	assert.False(t, ok)
}

func TestParagraphNumber(t *testing.T) {
	n, ok := ParagraphNumber("paragraph_12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ParagraphNumber("paragraph_x")
	assert.False(t, ok)
	_, ok = ParagraphNumber("twelve")
	assert.False(t, ok)
}

func TestCategoryByName(t *testing.T) {
	cat, err := CategoryByName("tm_textbook")
	require.NoError(t, err)
	assert.Equal(t, "tm_textbook", cat.Name())

	_, err = CategoryByName("video")
	assert.True(t, errors.Is(err, ErrCategoryUnknown))
}

func TestBuildCorpus_Paragraph(t *testing.T) {
	out, src := fixture(t)
	b := NewBuilder(src, out)

	res, err := b.BuildCorpus(context.Background(), BuildOptions{Variant: VariantParagraph, Category: LessonPlan{}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedFiles)
	assert.Equal(t, filepath.Join(out, "ir_datasets_splitted", "lesson_plan"), res.Dir)

	docs, err := ReadJSONL[irModel.DocumentRecord](filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "res1_0_0", docs[0].DocID)
	assert.Equal(t, "res1_0", docs[0].PageID)
	assert.Equal(t, "Hello", docs[0].Text)
	require.NotNil(t, docs[0].RecordMeta)
	assert.Equal(t, "res1", docs[0].ID)
	require.NotNil(t, docs[0].ParentID)
	assert.Equal(t, "cb1", *docs[0].ParentID)
	require.NotNil(t, docs[0].ResourceTypeCode)
	assert.Equal(t, "elite_lesson", *docs[0].ResourceTypeCode)
	require.NotNil(t, docs[0].TagNames)
	assert.Equal(t, "数学,七年级", *docs[0].TagNames)

	assert.Equal(t, "res1_0_1", docs[1].DocID)
	assert.Equal(t, "[image](img/1.png)", docs[1].Text)
	assert.Equal(t, "res1_1_0", docs[2].DocID)

	merged, err := ReadJSONL[irModel.MergedDocument](filepath.Join(res.Dir, MergedDocumentsFile))
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "res1_0", merged[0].DocID)
	assert.Equal(t, []string{"paragraph_0: Hello", "paragraph_1: [image](img/1.png)"}, merged[0].Paragraphs)

	md, err := ReadMetadata(res.Dir)
	require.NoError(t, err)
	assert.Equal(t, DocumentsFile, md.Files.Documents.Path)
	assert.Equal(t, QrelFormatNested, md.Files.Qrels.Format)
}

func TestBuildCorpus_NonASCIIKeptLiteral(t *testing.T) {
	out, src := fixture(t)
	res, err := NewBuilder(src, out).BuildCorpus(context.Background(), BuildOptions{Variant: VariantParagraph, Category: LessonPlan{}})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "数学,七年级")
}

func TestBuildCorpus_Page(t *testing.T) {
	out, src := fixture(t)
	res, err := NewBuilder(src, out).BuildCorpus(context.Background(), BuildOptions{Variant: VariantPage, Category: LessonPlan{}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "ir_datasets_splitted_page", "lesson_plan"), res.Dir)

	docs, err := ReadJSONL[irModel.DocumentRecord](filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "res1_0", docs[0].DocID)
	assert.Equal(t, "Hello\n[image](img/1.png)", docs[0].Text)
	assert.Equal(t, "res1_1", docs[1].DocID)
	assert.Equal(t, []float64{0, 0, 1, 1}, docs[0].BBox, "union of the page's paragraph boxes")

	merged, err := ReadJSONL[irModel.MergedDocument](filepath.Join(res.Dir, MergedDocumentsFile))
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Len(t, merged[0].Paragraphs, 2)

	raw, err := os.ReadFile(filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	first := strings.SplitN(string(raw), "\n", 2)[0]
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &line))
	for _, key := range []string{"doc_id", "page_idx", "bbox", "bbox_index", "page_size", "text", "id", "resource_type_code", "resource_type_code_name", "container_id", "tag_list", "parent_id"} {
		assert.Contains(t, line, key)
	}
	assert.Nil(t, line["resource_type_code_name"])
	assert.Equal(t, "c1", line["container_id"])
}

func TestUnionBBox(t *testing.T) {
	paras := []middle.Paragraph{
		{BBox: []float64{10, 20, 50, 40}},
		{BBox: nil},
		{BBox: []float64{5, 30, 45, 90}},
	}
	assert.Equal(t, []float64{5, 20, 50, 90}, unionBBox(paras))
	assert.Nil(t, unionBBox([]middle.Paragraph{{}}))
	assert.Equal(t, []float64{10, 20, 50, 40}, paras[0].BBox, "inputs untouched")
}

func TestBuildCorpus_PageLegacyIDs(t *testing.T) {
	out, src := fixture(t)
	res, err := NewBuilder(src, out).BuildCorpus(context.Background(), BuildOptions{Variant: VariantPage, Category: LessonPlan{}, LegacyIDs: true})
	require.NoError(t, err)
	assert.Zero(t, res.SkippedFiles)

	docs, err := ReadJSONL[irModel.DocumentRecord](filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	require.Len(t, docs, 6)

	ids := map[string]int{}
	for _, d := range docs {
		ids[d.DocID]++
		assert.Nil(t, d.RecordMeta)
	}
	assert.Equal(t, 2, ids["cb1_lesson_plan_plan-a_middle_0"])
	assert.Equal(t, 1, ids["cb1_lesson_plan_plan-a_middle_1"])
	assert.Equal(t, 2, ids["cb1_lesson_plan_"+SafeStem("教案_middle")+"_0"])

	raw, err := os.ReadFile(filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"id":`)
	assert.Contains(t, string(raw), `"bbox":[0,0,1,1]`)
}

func TestBuildQueries_Nested(t *testing.T) {
	out, src := fixture(t)
	src.generated["lesson_plan"] = []string{"res1_0", "res1_9"}
	writeJSON(t, filepath.Join(out, "queries", "res1_0.json"), irModel.GeneratedQueries{Content: irModel.GeneratedContent{
		Queries: []irModel.GeneratedQuery{
			{Query: "图片里是什么", RecallableParagraphs: []string{"paragraph_1", "bogus"}},
			{Query: "问候语", RecallableParagraphs: []string{"paragraph_0"}},
		},
	}})
	b := NewBuilder(src, out)

	t.Run("paragraph qrels", func(t *testing.T) {
		res, err := b.BuildQueries(context.Background(), BuildOptions{Variant: VariantParagraph, Category: LessonPlan{}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.SkippedIDs)

		queries, err := ReadJSONL[irModel.Query](filepath.Join(res.Dir, QueriesFile))
		require.NoError(t, err)
		require.Len(t, queries, 2)
		assert.Equal(t, "res1_0_0", queries[0].QueryID)

		qrels, err := ReadJSONL[irModel.NestedQrel](filepath.Join(res.Dir, QrelsFile))
		require.NoError(t, err)
		require.Len(t, qrels, 2)
		assert.Equal(t, []irModel.QrelDoc{{DocID: "res1_0_1", Relevance: 1}}, qrels[0].Docs)
		assert.Equal(t, []irModel.QrelDoc{{DocID: "res1_0_0", Relevance: 1}}, qrels[1].Docs)
	})

	t.Run("page qrels point at the page", func(t *testing.T) {
		res, err := b.BuildQueries(context.Background(), BuildOptions{Variant: VariantPage, Category: LessonPlan{}})
		require.NoError(t, err)

		qrels, err := ReadJSONL[irModel.NestedQrel](filepath.Join(res.Dir, QrelsFile))
		require.NoError(t, err)
		require.Len(t, qrels, 2)
		assert.Equal(t, []irModel.QrelDoc{{DocID: "res1_0", Relevance: 1}}, qrels[0].Docs)
	})
}

func TestBuildUnsplit(t *testing.T) {
	out, src := fixture(t)
	processed := LessonPlan{}.ProcessedDir(out, "cb1")
	require.NoError(t, os.WriteFile(filepath.Join(processed, "a.md"), []byte("# 教学目标"), 0o644))
	writeJSON(t, filepath.Join(out, "queries", "cb1", "lesson_plan", "a.json"), irModel.PlainQueries{Queries: []string{"q1", "q2"}})
	b := NewBuilder(src, out)

	res, err := b.BuildCorpus(context.Background(), BuildOptions{Variant: VariantUnsplit, Category: LessonPlan{}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "ir_datasets", "lesson_plan"), res.Dir)

	docs, err := ReadJSONL[irModel.PlainDocument](filepath.Join(res.Dir, DocumentsFile))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, irModel.PlainDocument{DocID: "cb1_lesson_plan_a", Text: "# 教学目标"}, docs[0])

	qres, err := b.BuildQueries(context.Background(), BuildOptions{Variant: VariantUnsplit, Category: LessonPlan{}})
	require.NoError(t, err)
	assert.Equal(t, QrelFormatFlat, qres.QrelsFormat)

	qrels, err := ReadJSONL[irModel.FlatQrel](filepath.Join(res.Dir, QrelsFile))
	require.NoError(t, err)
	require.Len(t, qrels, 2)
	assert.Equal(t, irModel.FlatQrel{QueryID: "cb1_lesson_plan_a_1", DocID: "cb1_lesson_plan_a", Relevance: 1}, qrels[1])
}

func writeLegacyDataset(t *testing.T, dir string, queries []irModel.Query, qrels []irModel.NestedQrel) {
	t.Helper()
	require.NoError(t, WriteJSONL(filepath.Join(dir, QueriesFile), queries))
	require.NoError(t, WriteJSONL(filepath.Join(dir, QrelsFile), qrels))
}

func TestRemap(t *testing.T) {
	out, src := fixture(t)
	b := NewBuilder(src, out)
	dir := t.TempDir()

	legacy := "cb1_lesson_plan_plan-a_middle_0_3"
	writeLegacyDataset(t, dir,
		[]irModel.Query{{QueryID: legacy, Text: "问候语"}},
		[]irModel.NestedQrel{{QueryID: legacy, Docs: []irModel.QrelDoc{{DocID: "cb1_lesson_plan_plan-a_middle_0_1", Relevance: 1}}}},
	)

	res, err := b.Remap(context.Background(), dir, LessonPlan{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queries)

	queries, err := ReadJSONL[irModel.Query](filepath.Join(dir, QueriesFile))
	require.NoError(t, err)
	assert.Equal(t, []irModel.Query{{QueryID: "res1_0_3", Text: "问候语"}}, queries)

	qrels, err := ReadJSONL[irModel.NestedQrel](filepath.Join(dir, QrelsFile))
	require.NoError(t, err)
	assert.Equal(t, []irModel.QrelDoc{{DocID: "res1_0_1", Relevance: 1}}, qrels[0].Docs)

	mapping, err := ReadJSONL[irModel.QueryMapping](filepath.Join(dir, QueriesMappingFile))
	require.NoError(t, err)
	assert.Equal(t, []irModel.QueryMapping{{OldQueryID: legacy, NewQueryID: "res1_0_3", DocID: "res1", PageIdx: "0"}}, mapping)

	t.Run("second pass fails fast", func(t *testing.T) {
		_, err := b.Remap(context.Background(), dir, LessonPlan{})
		assert.True(t, errors.Is(err, ErrMalformedQueryID))
	})
}

func TestRemap_FatalLeavesInputsIntact(t *testing.T) {
	out, src := fixture(t)
	b := NewBuilder(src, out)

	t.Run("missing meta", func(t *testing.T) {
		dir := t.TempDir()
		q := []irModel.Query{{QueryID: "cb9_lesson_plan_x_middle_0_0", Text: "q"}}
		writeLegacyDataset(t, dir, q, nil)

		_, err := b.Remap(context.Background(), dir, LessonPlan{})
		assert.True(t, errors.Is(err, ErrMetaNotFound))

		got, err := ReadJSONL[irModel.Query](filepath.Join(dir, QueriesFile))
		require.NoError(t, err)
		assert.Equal(t, q, got)
		_, err = os.Stat(filepath.Join(dir, QueriesMappingFile))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("qrel without mapping", func(t *testing.T) {
		dir := t.TempDir()
		writeLegacyDataset(t, dir,
			[]irModel.Query{{QueryID: "cb1_lesson_plan_plan-a_middle_0_0", Text: "q"}},
			[]irModel.NestedQrel{{QueryID: "cb1_lesson_plan_plan-a_middle_0_7"}},
		)
		_, err := b.Remap(context.Background(), dir, LessonPlan{})
		assert.True(t, errors.Is(err, ErrMissingMapping))
	})
}

func TestMergeDocuments_FirstSeenOrder(t *testing.T) {
	recs := []irModel.DocumentRecord{
		{MergeKey: "b", BBoxIndex: 0, Text: "x"},
		{MergeKey: "a", BBoxIndex: 2, Text: "y"},
		{MergeKey: "b", BBoxIndex: 3, Text: "z"},
	}
	merged := MergeDocuments(recs)
	require.Len(t, merged, 2)
	assert.Equal(t, "b", merged[0].DocID)
	assert.Equal(t, []string{"paragraph_0: x", "paragraph_3: z"}, merged[0].Paragraphs)
	assert.Equal(t, []string{"paragraph_2: y"}, merged[1].Paragraphs)
}
