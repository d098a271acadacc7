package smartcn

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/pkg/logger_i"
)

type SupplementReport struct {
	StatusesFilled  int
	FilenameCodes   int
	TextbookTagList int
	DownloadedPDFs  int
}

// Supplement backfills derived bookkeeping columns and recounts downloaded
// PDFs from disk.
func Supplement(ctx context.Context, store *sqliteStore.Store, inputDir, outRoot string) (SupplementReport, error) {
	var report SupplementReport
	log := logger_i.NewLogger("supplement").WithTrace(ctx)

	metas, err := store.LessonPlanMetas(ctx)
	if err != nil {
		return report, err
	}

	statuses, err := store.DownloadStatuses(ctx)
	if err != nil {
		return report, err
	}
	byBag := firstMetaByCourseBag(metas)
	for _, st := range statuses {
		filled := fillStatus(st, byBag)
		if filled == st {
			continue
		}
		if err := store.SetDownloadTags(ctx, st.CourseBagID, filled.ResourceTypeCode, filled.TagList, filled.TagNames); err != nil {
			return report, err
		}
		report.StatusesFilled++
	}

	for _, m := range metas {
		if m.Filename == "" || m.FilenameCode != "" {
			continue
		}
		if err := store.SetLessonPlanFilenameCode(ctx, m.ID, irdataset.FilenameCode(m.Filename)); err != nil {
			return report, err
		}
		report.FilenameCodes++
	}

	tms, err := store.TextbookTMs(ctx)
	if err != nil {
		return report, err
	}
	var tmItems map[string]textbookTMItem
	for _, tm := range tms {
		if tm.TagList == "" {
			if tmItems == nil {
				items, err := loadTextbookTMs(inputDir)
				if err != nil {
					log.Warn("textbook_tm inputs unreadable", "error", err)
				}
				tmItems = make(map[string]textbookTMItem, len(items))
				for _, it := range items {
					if _, seen := tmItems[it.ID]; !seen {
						tmItems[it.ID] = it
					}
				}
			}
			if it, ok := tmItems[tm.ID]; ok {
				raw, _ := json.Marshal(it.TagList)
				if it.TagList == nil {
					raw = []byte("[]")
				}
				if err := store.SetTextbookTMTagList(ctx, tm.ID, string(raw)); err != nil {
					return report, err
				}
				report.TextbookTagList++
			}
		}
		if tm.Filename != nil && tm.FilenameCode == "" {
			if err := store.SetTextbookTMFilenameCode(ctx, tm.ID, irdataset.FilenameCode(*tm.Filename)); err != nil {
				return report, err
			}
			report.FilenameCodes++
		}
	}

	counts, err := countDownloadedPDFs(filepath.Join(outRoot, config.DownloadsDir))
	if err != nil {
		return report, err
	}
	for _, st := range statuses {
		n := counts[st.CourseBagID]
		report.DownloadedPDFs += n
		if err := store.SetDownloadedLessonPlans(ctx, st.CourseBagID, n); err != nil {
			return report, err
		}
	}
	if err := store.RollupTextbookCounts(ctx); err != nil {
		return report, err
	}
	log.Info("supplement done", "statuses", report.StatusesFilled, "filename_codes", report.FilenameCodes, "pdfs", report.DownloadedPDFs)
	return report, nil
}

func firstMetaByCourseBag(metas []irModel.ResourceMeta) map[string]irModel.ResourceMeta {
	out := make(map[string]irModel.ResourceMeta, len(metas))
	for _, m := range metas {
		if _, ok := out[m.CourseBagID]; !ok {
			out[m.CourseBagID] = m
		}
	}
	return out
}

// fillStatus completes tag_list, tag_names and resource_type_code from the
// course bag's first lesson plan meta.
func fillStatus(st sqliteStore.ResourceStatus, byBag map[string]irModel.ResourceMeta) sqliteStore.ResourceStatus {
	meta, hasMeta := byBag[st.CourseBagID]
	if st.TagList == "" && hasMeta {
		st.TagList = meta.TagList
	}
	if st.TagNames == nil && st.TagList != "" {
		var tags []Tag
		if err := json.Unmarshal([]byte(st.TagList), &tags); err == nil {
			names := TagNames(tags)
			st.TagNames = &names
		}
	}
	if st.ResourceTypeCode == "" && hasMeta {
		st.ResourceTypeCode = meta.ResourceTypeCode
	}
	return st
}

// countDownloadedPDFs counts *.pdf files below each course bag directory.
func countDownloadedPDFs(downloads string) (map[string]int, error) {
	counts := map[string]int{}
	entries, err := os.ReadDir(downloads)
	if os.IsNotExist(err) {
		return counts, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := 0
		err := filepath.WalkDir(filepath.Join(downloads, e.Name()), func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
				n++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		counts[e.Name()] = n
	}
	return counts, nil
}
