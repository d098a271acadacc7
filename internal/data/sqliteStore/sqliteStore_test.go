package sqliteStore

import (
	"context"
	"testing"

	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestEnsurePragmas(t *testing.T) {
	got := ensurePragmas("file:/tmp/x.db", true, 5000)
	assert.Equal(t, "file:/tmp/x.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", got)
	assert.Equal(t, got, ensurePragmas(got, true, 5000), "existing pragmas are not repeated")
}

func TestTextbookRollup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertTextbook(ctx, "tb1", "语文 一年级"))
	require.NoError(t, s.UpsertTextbook(ctx, "tb2", "数学 一年级"))
	require.NoError(t, s.SaveDownloadStatus(ctx, ResourceStatus{CourseBagID: "cb1", TextbookID: "tb1", LessonPlan: 7}))
	require.NoError(t, s.SaveDownloadStatus(ctx, ResourceStatus{CourseBagID: "cb2", TextbookID: "tb1", LessonPlan: 5}))
	require.NoError(t, s.RollupTextbookCounts(ctx))

	below, err := s.TextbooksBelow(ctx, 10)
	require.NoError(t, err)
	require.Len(t, below, 1)
	assert.Equal(t, "tb2", below[0].ID)

	total, err := s.TotalDownloadedLessonPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
}

func TestDownloadAndProcessStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveDownloadStatus(ctx, ResourceStatus{CourseBagID: "cb1", TextbookID: "tb1", LessonPlan: 2}))
	require.NoError(t, s.SaveDownloadStatus(ctx, ResourceStatus{CourseBagID: "cb2", TextbookID: "tb1", LessonPlan: 1}))
	require.NoError(t, s.SetProcessedLessonPlans(ctx, "cb2", "tb1", 1))

	t.Run("downloaded flag", func(t *testing.T) {
		ok, err := s.IsDownloaded(ctx, "cb1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.IsDownloaded(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("pending processing uses outer join", func(t *testing.T) {
		pending, err := s.PendingProcessing(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "cb1", pending[0].CourseBagID)
	})

	t.Run("processed groups", func(t *testing.T) {
		groups, err := s.ProcessedLessonPlanGroups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []irModel.GroupRow{{GroupID: "cb2"}}, groups)
	})

	t.Run("tags", func(t *testing.T) {
		require.NoError(t, s.SetDownloadTags(ctx, "cb1", "prepare_lesson", `[{"tag_name":"语文"}]`, strPtr("语文")))
		all, err := s.DownloadStatuses(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "prepare_lesson", all[0].ResourceTypeCode)
		require.NotNil(t, all[0].TagNames)
		assert.Equal(t, "语文", *all[0].TagNames)
		assert.Nil(t, all[1].TagNames)
	})
}

func TestMetaTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveLessonPlanMeta(ctx, irModel.ResourceMeta{ID: "r1", CourseBagID: "cb1", Filename: "001_教案.pdf"}))
	require.NoError(t, s.SetLessonPlanFilenameCode(ctx, "r1", "abc"))
	metas, err := s.LessonPlanMetas(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "abc", metas[0].FilenameCode)

	require.NoError(t, s.UpsertTextbookTM(ctx, TextbookTM{ID: "tm1", TagNames: strPtr("数学,一年级"), Filename: strPtr("book.pdf")}))
	require.NoError(t, s.UpsertTextbookTM(ctx, TextbookTM{ID: "tm2"}))
	require.NoError(t, s.SetTextbookTMProcessed(ctx, "tm1", 1))

	tmMetas, err := s.TextbookMetas(ctx)
	require.NoError(t, err)
	require.Len(t, tmMetas, 1, "textbooks without filename are not resources")
	assert.Equal(t, "tm1", tmMetas[0].ID)
	assert.Empty(t, tmMetas[0].CourseBagID)

	groups, err := s.ProcessedTextbookGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "数学,一年级", *groups[0].TagNames)
}

func TestCorpusQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.IsGenerated(ctx, "c1", "lesson_plan")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkGenerated(ctx, "c1", "lesson_plan"))
	require.NoError(t, s.MarkGenerated(ctx, "c1", "lesson_plan"))
	require.NoError(t, s.MarkGenerated(ctx, "c2", "tm_textbook"))

	ok, err = s.IsGenerated(ctx, "c1", "lesson_plan")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.GeneratedCorpusIDs(ctx, "lesson_plan")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}
