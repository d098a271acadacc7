package irdataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/irbench/internal/domain/irModel"
)

// WriteJSONL writes one object per line, non-ASCII kept literal. The file is
// replaced atomically so a failed run leaves the previous artifact intact.
func WriteJSONL[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("encode record %d of %s: %w", i, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadJSONL decodes every non-empty line of path.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

// MergeDocuments groups paragraph records by MergeKey, keeping first-seen
// group order and emission order within a group.
func MergeDocuments(records []irModel.DocumentRecord) []irModel.MergedDocument {
	var out []irModel.MergedDocument
	index := map[string]int{}
	for _, rec := range records {
		i, ok := index[rec.MergeKey]
		if !ok {
			i = len(out)
			index[rec.MergeKey] = i
			out = append(out, irModel.MergedDocument{DocID: rec.MergeKey})
		}
		out[i].Paragraphs = append(out[i].Paragraphs, fmt.Sprintf("paragraph_%d: %s", rec.BBoxIndex, rec.Text))
		if rec.TagNames != nil {
			out[i].TagNames = rec.TagNames
		}
		page := rec.PageIdx
		out[i].PageIdx = &page
	}
	return out
}
