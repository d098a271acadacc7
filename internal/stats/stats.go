// Package stats summarises the size of the processed corpus.
package stats

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// Summary describes a distribution of per-file counts.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

type Report struct {
	Documents  Summary  `json:"documents"`
	PDFPages   Summary  `json:"pdf_pages"`
	PDFChars   Summary  `json:"pdf_characters"`
	Unreadable []string `json:"unreadable,omitempty"`
}

var textExts = map[string]bool{".md": true, ".txt": true, ".docx": true}

// Collect reads every processed lesson plan document under
// {outRoot}/processed/*/lesson_plan and, when withPDF is set, every
// downloaded PDF under {outRoot}/downloads/*/lesson_plan.
func Collect(ctx context.Context, outRoot string, withPDF bool) (Report, error) {
	var report Report
	log := logger_i.NewLogger("stats").WithTrace(ctx)

	docs, err := filepath.Glob(filepath.Join(outRoot, config.ProcessedDir, "*", config.LessonPlanCategory, "*"))
	if err != nil {
		return report, err
	}
	sort.Strings(docs)
	var chars []int
	for _, p := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !textExts[strings.ToLower(filepath.Ext(p))] || isDir(p) {
			continue
		}
		text, err := readText(p)
		if err != nil {
			log.Warn("document unreadable", "file", p, "error", err)
			report.Unreadable = append(report.Unreadable, p)
			continue
		}
		chars = append(chars, len([]rune(text)))
	}
	report.Documents = Summarize(chars)

	if withPDF {
		pdfs, err := filepath.Glob(filepath.Join(outRoot, config.DownloadsDir, "*", config.LessonPlanCategory, "*"))
		if err != nil {
			return report, err
		}
		sort.Strings(pdfs)
		var pages, pdfChars []int
		for _, p := range pdfs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if !strings.EqualFold(filepath.Ext(p), ".pdf") {
				continue
			}
			res, err := extractPDF(p)
			if err != nil {
				log.Warn("pdf unreadable", "file", p, "error", err)
				report.Unreadable = append(report.Unreadable, p)
				continue
			}
			pages = append(pages, res.Pages)
			pdfChars = append(pdfChars, res.Characters)
		}
		report.PDFPages = Summarize(pages)
		report.PDFChars = Summarize(pdfChars)
	}

	log.Info("corpus statistics", "documents", report.Documents.Count, "mean_chars", report.Documents.Mean,
		"median_chars", report.Documents.Median, "unreadable", len(report.Unreadable))
	return report, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func Summarize(values []int) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	total := 0
	for _, v := range sorted {
		total += v
	}
	return Summary{
		Count:  len(sorted),
		Mean:   float64(total) / float64(len(sorted)),
		Median: quantile(sorted, 0.5),
		P25:    quantile(sorted, 0.25),
		P75:    quantile(sorted, 0.75),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// quantile interpolates linearly between closest ranks.
func quantile(sorted []int, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
