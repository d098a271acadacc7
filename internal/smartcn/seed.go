package smartcn

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/akolanti/irbench/internal/data/sqliteStore"
)

type SeedReport struct {
	Textbooks   int
	TextbookTMs int
}

type textbookItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type textbookTMItem struct {
	ID                   string `json:"id"`
	TagList              []Tag  `json:"tag_list"`
	ResourceTypeCode     string `json:"resource_type_code"`
	ResourceTypeCodeName string `json:"resource_type_code_name"`
	ContainerID          string `json:"container_id"`
}

// Seed loads {input}/textbook/info_parts_*.json into textbooks and
// {input}/textbook_tm/textbook_tm_*.json into textbook_tm.
func Seed(ctx context.Context, store *sqliteStore.Store, inputDir string) (SeedReport, error) {
	var report SeedReport

	books, err := readItems[textbookItem](filepath.Join(inputDir, "textbook", "info_parts_*.json"))
	if err != nil {
		return report, err
	}
	for _, b := range books {
		if b.ID == "" || b.Title == "" {
			continue
		}
		if err := store.UpsertTextbook(ctx, b.ID, b.Title); err != nil {
			return report, err
		}
		report.Textbooks++
	}

	tms, err := loadTextbookTMs(inputDir)
	if err != nil {
		return report, err
	}
	for _, tm := range tms {
		if tm.ID == "" || tm.TagList == nil {
			continue
		}
		names := TagNames(tm.TagList)
		tagList, _ := json.Marshal(tm.TagList)
		if err := store.UpsertTextbookTM(ctx, sqliteStore.TextbookTM{
			ID:                   tm.ID,
			TagNames:             &names,
			TagList:              string(tagList),
			ResourceTypeCode:     tm.ResourceTypeCode,
			ResourceTypeCodeName: tm.ResourceTypeCodeName,
			ContainerID:          tm.ContainerID,
		}); err != nil {
			return report, err
		}
		report.TextbookTMs++
	}
	return report, nil
}

func loadTextbookTMs(inputDir string) ([]textbookTMItem, error) {
	return readItems[textbookTMItem](filepath.Join(inputDir, "textbook_tm", "textbook_tm_*.json"))
}

// readItems concatenates the JSON arrays of every file matching pattern.
// Array entries that are not objects are dropped.
func readItems[T any](pattern string) ([]T, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []T
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f, err)
		}
		for _, e := range entries {
			var item T
			if err := json.Unmarshal(e, &item); err != nil {
				continue
			}
			out = append(out, item)
		}
	}
	return out, nil
}
