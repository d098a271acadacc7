package smartcn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "MAC id=\"test\""

// contentAPI serves parts, course bags, details and one PDF. The primary
// host answers 404 for everything so requests fall back to it.
func contentAPI(t *testing.T) (primary, fallback *httptest.Server) {
	t.Helper()
	primary = httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(primary.Close)

	mux := http.NewServeMux()
	fallback = httptest.NewServer(mux)
	t.Cleanup(fallback.Close)

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/zxx/ndrs/prepare_lesson/teachingmaterials/tb1/resources/parts.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{fallback.URL + "/bags/1.json"})
	})
	mux.HandleFunc("/bags/1.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{
			{"id": "cb1", "resource_type_code": "elite_lesson"},
			{"id": "cb2", "resource_type_code": "video_lesson"},
		})
	})
	mux.HandleFunc("/zxx/ndrv2/resources/cb1.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"relations": map[string]any{
				"course_resource": []any{
					map[string]any{
						"id": "r1", "resource_type_code": "assets_document", "container_id": "c1",
						"tag_list": []map[string]string{{"tag_name": "教学设计"}, {"tag_name": "数学"}},
						"ti_items": []any{
							map[string]any{"ti_file_flag": "pdf", "ti_storages": []any{fallback.URL + "/files/plan.pdf?sig=1"}},
							map[string]any{"ti_file_flag": "docx", "ti_storages": []any{fallback.URL + "/files/plan.docx"}},
						},
					},
					map[string]any{
						"id": "r2", "tag_list": []map[string]string{{"tag_name": "课件"}},
						"ti_items": []any{
							map[string]any{"ti_file_flag": "pdf", "ti_storages": []any{map[string]string{"url": fallback.URL + "/files/slides.pdf"}}},
						},
					},
				},
				"summary": "not a list",
			},
		})
	})
	mux.HandleFunc("/files/plan.pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(config.SmartcnAuthHeader) != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4 test"))
	})
	return primary, fallback
}

func newTestDownloader(t *testing.T, token string, limit int) (*Downloader, *sqliteStore.Store, string) {
	t.Helper()
	primary, fallback := contentAPI(t)

	store, err := sqliteStore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.UpsertTextbook(context.Background(), "tb1", "义务教育教科书 数学 七年级上册"))
	require.NoError(t, store.UpsertTextbook(context.Background(), "tb2", "无关教材"))

	cfg := config.Default().Smartcn
	cfg.Hosts = []string{primary.URL, fallback.URL}
	cfg.AuthToken = token
	cfg.RequestDelay = 0
	cfg.LessonPlanLimit = limit

	out := t.TempDir()
	client := NewClient(cfg, http.DefaultClient)
	return NewDownloader(client, store, cfg, out), store, out
}

func TestDownloader_Run(t *testing.T) {
	d, store, out := newTestDownloader(t, testToken, 100)
	ctx := context.Background()

	report, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Textbooks)
	assert.Equal(t, 1, report.Downloaded)
	assert.False(t, report.ThresholdReached)

	body, err := os.ReadFile(filepath.Join(out, "downloads", "cb1", "lesson_plan", "001_plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(body))

	metas, err := store.LessonPlanMetas(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "r1", metas[0].ID)
	assert.Equal(t, "cb1", metas[0].CourseBagID)
	assert.Equal(t, "001_plan.pdf", metas[0].Filename)
	assert.Equal(t, "001_plan_middle", metas[0].FilenameCode)
	require.NotNil(t, metas[0].TagNames)
	assert.Equal(t, "教学设计,数学", *metas[0].TagNames)

	total, err := store.TotalDownloadedLessonPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	t.Run("downloaded course bags are skipped", func(t *testing.T) {
		again, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, again.Downloaded)
	})
}

func TestDownloader_AuthExpiredIsFatal(t *testing.T) {
	d, store, _ := newTestDownloader(t, "stale", 100)

	_, err := d.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAuthExpired))

	done, err := store.IsDownloaded(context.Background(), "cb1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestDownloader_StopsAtThreshold(t *testing.T) {
	d, _, _ := newTestDownloader(t, testToken, 1)

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.ThresholdReached)

	t.Run("already reached", func(t *testing.T) {
		again, err := d.Run(context.Background())
		require.NoError(t, err)
		assert.True(t, again.ThresholdReached)
		assert.Zero(t, again.Textbooks)
	})
}

func TestTiItemStorageURLs(t *testing.T) {
	var item TiItem
	require.NoError(t, json.Unmarshal([]byte(`{"ti_file_flag":"pdf","ti_storages":["a.pdf",{"url":"b.pdf"},{"name":"x"},"",3]}`), &item))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, item.StorageURLs())
}

func TestSeedAndSupplement(t *testing.T) {
	ctx := context.Background()
	input := t.TempDir()
	out := t.TempDir()

	write := func(rel string, v any) {
		p := filepath.Join(input, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(p, raw, 0o644))
	}
	write("textbook/info_parts_1.json", []any{
		map[string]string{"id": "tb1", "title": "数学 七年级"},
		map[string]string{"id": "tb-missing-title"},
		"junk",
	})
	write("textbook_tm/textbook_tm_1.json", []any{
		map[string]any{"id": "tm1", "tag_list": []map[string]string{{"tag_name": "高中"}, {"tag_name": "物理"}}},
	})

	store, err := sqliteStore.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	seeded, err := Seed(ctx, store, input)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded.Textbooks)
	assert.Equal(t, 1, seeded.TextbookTMs)

	tms, err := store.TextbookTMs(ctx)
	require.NoError(t, err)
	require.Len(t, tms, 1)
	require.NotNil(t, tms[0].TagNames)
	assert.Equal(t, "高中,物理", *tms[0].TagNames)

	names := "教学设计"
	require.NoError(t, store.SaveDownloadStatus(ctx, sqliteStore.ResourceStatus{CourseBagID: "cb1", TextbookID: "tb1", LessonPlan: 5}))
	require.NoError(t, store.SaveLessonPlanMeta(ctx, resourceMeta(Resource{
		ID: "r1", ResourceTypeCode: "assets_document", TagList: []Tag{{TagName: names}},
	}, "cb1", "教案.pdf")))
	require.NoError(t, store.SetLessonPlanFilenameCode(ctx, "r1", ""))

	pdfDir := filepath.Join(out, "downloads", "cb1", "lesson_plan")
	require.NoError(t, os.MkdirAll(pdfDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pdfDir, "001_a.PDF"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pdfDir, "001_a.md"), []byte("x"), 0o644))

	report, err := Supplement(ctx, store, input, out)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StatusesFilled)
	assert.Equal(t, 1, report.DownloadedPDFs)

	statuses, err := store.DownloadStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses[0].LessonPlan)
	assert.Equal(t, "assets_document", statuses[0].ResourceTypeCode)
	require.NotNil(t, statuses[0].TagNames)
	assert.Equal(t, names, *statuses[0].TagNames)

	metas, err := store.LessonPlanMetas(ctx)
	require.NoError(t, err)
	assert.Len(t, metas[0].FilenameCode, 32)

	total, err := store.TotalDownloadedLessonPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
