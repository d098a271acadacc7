package stats

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/irbench/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   Summary
	}{
		{"empty", nil, Summary{}},
		{"single", []int{7}, Summary{Count: 1, Mean: 7, Median: 7, P25: 7, P75: 7, Min: 7, Max: 7}},
		{"even", []int{4, 1, 3, 2}, Summary{Count: 4, Mean: 2.5, Median: 2.5, P25: 1.75, P75: 3.25, Min: 1, Max: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.values))
		})
	}
}

func TestCollect(t *testing.T) {
	out := t.TempDir()
	write := func(cb, name, body string) {
		dir := filepath.Join(out, config.ProcessedDir, cb, config.LessonPlanCategory)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("cb1", "a.md", "教学目标")
	write("cb1", "a_middle.json", `{"pdf_info":[]}`)
	write("cb2", "b.md", "# 教学过程\n")
	require.NoError(t, os.MkdirAll(filepath.Join(out, config.ProcessedDir, "cb2", config.LessonPlanCategory, "images"), 0o755))

	report, err := Collect(context.Background(), out, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents.Count)
	assert.Equal(t, 4, report.Documents.Min)
	assert.Zero(t, report.PDFPages.Count)
}
