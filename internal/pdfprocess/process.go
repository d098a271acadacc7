// Package pdfprocess turns downloaded lesson plan PDFs into MinerU middle
// JSON and markdown files.
package pdfprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/dslipak/pdf"
)

type Store interface {
	PendingProcessing(ctx context.Context) ([]sqliteStore.ResourceStatus, error)
	SetProcessedLessonPlans(ctx context.Context, courseBagID, textbookID string, count int) error
}

type Report struct {
	CourseBags int
	Parsed     int
	Skipped    int
	Failed     int
}

type Processor struct {
	store   Store
	parser  Parser
	outRoot string
	logger  *logger_i.Logger
}

func NewProcessor(store Store, parser Parser, outRoot string) *Processor {
	return &Processor{
		store:   store,
		parser:  parser,
		outRoot: outRoot,
		logger:  logger_i.NewLogger("pdfprocess"),
	}
}

// Run parses every pending course bag. A PDF that fails validation or
// parsing is logged and skipped; the processed count always reflects the
// middle files present on disk.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	var report Report
	log := p.logger.WithTrace(ctx)

	pending, err := p.store.PendingProcessing(ctx)
	if err != nil {
		return report, err
	}
	log.Info("course bags pending", "count", len(pending))

	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		inDir := filepath.Join(p.outRoot, config.DownloadsDir, row.CourseBagID, config.LessonPlanCategory)
		outDir := filepath.Join(p.outRoot, config.ProcessedDir, row.CourseBagID, config.LessonPlanCategory)

		pdfs, err := listPDFs(inDir)
		if err != nil {
			log.Warn("download dir unreadable, skipping", "course_bag_id", row.CourseBagID, "error", err)
			metrics.FilesSkipped("dir_missing")
			continue
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return report, fmt.Errorf("create %s: %w", outDir, err)
		}

		for _, pdfPath := range pdfs {
			switch err := p.processOne(ctx, pdfPath, outDir); {
			case err == nil:
				report.Parsed++
			case errors.Is(err, errAlreadyParsed):
				report.Skipped++
			case ctx.Err() != nil:
				return report, ctx.Err()
			default:
				report.Failed++
				log.Warn("pdf not processed", "file", pdfPath, "error", err)
			}
		}

		n, err := CountMiddleFiles(outDir)
		if err != nil {
			return report, err
		}
		if err := p.store.SetProcessedLessonPlans(ctx, row.CourseBagID, row.TextbookID, n); err != nil {
			return report, err
		}
		report.CourseBags++
		log.Info("course bag processed", "course_bag_id", row.CourseBagID, "middle_files", n, "downloaded", row.LessonPlan)
	}
	return report, nil
}

var errAlreadyParsed = errors.New("already parsed")

func (p *Processor) processOne(ctx context.Context, pdfPath, outDir string) error {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	if _, err := os.Stat(filepath.Join(outDir, stem+config.MiddleFileSuffix)); err == nil {
		return errAlreadyParsed
	}

	pages, err := pageCount(pdfPath)
	if err != nil {
		metrics.FilesSkipped("pdf_unreadable")
		return err
	}

	workDir, err := os.MkdirTemp(outDir, ".mineru-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	start := time.Now()
	err = p.parser.Parse(ctx, pdfPath, workDir)
	metrics.CaptureExecutionMetrics("mineru", time.Since(start))
	if err != nil {
		return err
	}
	if err := collect(workDir, outDir, stem); err != nil {
		return fmt.Errorf("collect %s: %w", stem, err)
	}
	if _, err := os.Stat(filepath.Join(outDir, stem+config.MiddleFileSuffix)); err != nil {
		return fmt.Errorf("mineru produced no middle json for %s", stem)
	}
	p.logger.Debug("pdf parsed", "file", filepath.Base(pdfPath), "pages", pages, "took", time.Since(start))
	return nil
}

// pageCount opens the PDF to reject truncated or non-PDF downloads before
// handing them to MinerU.
func pageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf %s: %v", filepath.Base(path), r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	n = r.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("pdf %s has no pages", filepath.Base(path))
	}
	return n, nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// CountMiddleFiles counts *_middle.json files directly in dir.
func CountMiddleFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), config.MiddleFileSuffix) {
			n++
		}
	}
	return n, nil
}
