package smartcn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// Store is the bookkeeping the downloader reads and writes.
type Store interface {
	TotalDownloadedLessonPlans(ctx context.Context) (int, error)
	TextbooksBelow(ctx context.Context, limit int) ([]sqliteStore.Textbook, error)
	IsDownloaded(ctx context.Context, courseBagID string) (bool, error)
	SaveDownloadStatus(ctx context.Context, r sqliteStore.ResourceStatus) error
	SaveLessonPlanMeta(ctx context.Context, m irModel.ResourceMeta) error
	RollupTextbookCounts(ctx context.Context) error
}

type Report struct {
	Textbooks        int
	CourseBags       int
	Downloaded       int
	Total            int
	ThresholdReached bool
}

type Downloader struct {
	client  *Client
	store   Store
	cfg     config.SmartcnConfig
	outRoot string
	rnd     *rand.Rand
	logger  *logger_i.Logger
}

func NewDownloader(client *Client, store Store, cfg config.SmartcnConfig, outRoot string) *Downloader {
	return &Downloader{
		client:  client,
		store:   store,
		cfg:     cfg,
		outRoot: outRoot,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger_i.NewLogger("downloader"),
	}
}

// Run downloads lesson plan PDFs for one textbook per subject keyword until
// the lesson plan threshold is met. It returns ErrAuthExpired as soon as the
// API rejects the auth header.
func (d *Downloader) Run(ctx context.Context) (Report, error) {
	var report Report
	log := d.logger.WithTrace(ctx)

	total, err := d.store.TotalDownloadedLessonPlans(ctx)
	if err != nil {
		return report, err
	}
	report.Total = total
	if d.reached(total) {
		log.Info("lesson plan threshold already reached", "total", total, "limit", d.cfg.LessonPlanLimit)
		report.ThresholdReached = true
		return report, nil
	}

	textbooks, err := d.store.TextbooksBelow(ctx, d.cfg.PerTextbookMin)
	if err != nil {
		return report, err
	}
	selected := d.selectTextbooks(textbooks)
	report.Textbooks = len(selected)

	for _, tb := range selected {
		log.Info("processing textbook", "title", tb.Title, "textbook_id", tb.ID)
		var parts []string
		if err := d.client.getFromHosts(ctx, partsPath(tb.ID), &parts); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Warn("failed to fetch parts.json", "textbook_id", tb.ID, "error", err)
			continue
		}

		for _, partURL := range parts {
			var bags []CourseBag
			if err := d.client.getJSON(ctx, partURL, &bags); err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				log.Warn("failed to fetch course bags", "url", partURL, "error", err)
				continue
			}

			for _, bag := range bags {
				n, err := d.processCourseBag(ctx, tb.ID, bag)
				if err != nil {
					return report, err
				}
				if n == 0 {
					continue
				}
				report.CourseBags++
				report.Downloaded += n

				total, err := d.store.TotalDownloadedLessonPlans(ctx)
				if err != nil {
					return report, err
				}
				report.Total = total
				log.Info("lesson plan progress", "total", total, "limit", d.cfg.LessonPlanLimit)
				if d.reached(total) {
					log.Info("lesson plan threshold reached, stopping", "limit", d.cfg.LessonPlanLimit)
					report.ThresholdReached = true
					return report, nil
				}
			}
		}
	}
	return report, nil
}

func (d *Downloader) reached(total int) bool {
	return d.cfg.LessonPlanLimit > 0 && total >= d.cfg.LessonPlanLimit
}

// selectTextbooks takes the first textbook whose title holds each subject
// keyword, then samples down to TextbooksPerRun.
func (d *Downloader) selectTextbooks(textbooks []sqliteStore.Textbook) []sqliteStore.Textbook {
	var selected []sqliteStore.Textbook
	for _, subject := range d.cfg.Subjects {
		for _, tb := range textbooks {
			if strings.Contains(tb.Title, subject) {
				selected = append(selected, tb)
				break
			}
		}
	}
	if limit := d.cfg.TextbooksPerRun; limit > 0 && len(selected) > limit {
		d.rnd.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
		selected = selected[:limit]
	}
	return selected
}

// processCourseBag returns the number of PDFs written. Only auth expiry and
// context cancellation are returned as errors.
func (d *Downloader) processCourseBag(ctx context.Context, textbookID string, bag CourseBag) (int, error) {
	log := d.logger.WithTrace(ctx).With("course_bag_id", bag.ID, "resource_type_code", bag.ResourceTypeCode)

	detailURL, ok := detailPath(bag.ResourceTypeCode, bag.ID)
	if !ok {
		log.Debug("unsupported resource type, skipping")
		return 0, nil
	}
	done, err := d.store.IsDownloaded(ctx, bag.ID)
	if err != nil {
		return 0, err
	}
	if done {
		log.Debug("course bag already downloaded")
		return 0, nil
	}

	var detail Detail
	if err := d.client.getFromHosts(ctx, detailURL, &detail); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.Warn("failed to fetch course bag detail", "error", err)
		return 0, nil
	}

	n, err := d.downloadLessonPlans(ctx, bag, detail)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, nil
	}

	if err := d.store.SaveDownloadStatus(ctx, sqliteStore.ResourceStatus{
		CourseBagID:      bag.ID,
		TextbookID:       textbookID,
		LessonPlan:       n,
		ResourceTypeCode: bag.ResourceTypeCode,
	}); err != nil {
		return n, err
	}
	return n, d.store.RollupTextbookCounts(ctx)
}

// downloadLessonPlans saves at most one PDF per ti item of every resource
// tagged as a lesson plan, named {idx:03d}_{original name}.
func (d *Downloader) downloadLessonPlans(ctx context.Context, bag CourseBag, detail Detail) (int, error) {
	log := d.logger.WithTrace(ctx).With("course_bag_id", bag.ID)
	outDir := filepath.Join(d.outRoot, config.DownloadsDir, bag.ID, config.LessonPlanCategory)
	count := 0

	for _, res := range detail.Resources() {
		if !res.HasTag(config.SmartcnLessonPlanTagName) {
			continue
		}
		metaSaved := false
		for _, item := range res.TiItems {
			if item.TiFileFlag != "pdf" {
				continue
			}
			for _, url := range item.StorageURLs() {
				body, err := d.client.download(ctx, url)
				if errors.Is(err, ErrAuthExpired) {
					metrics.Download("auth_expired")
					return count, err
				}
				if err != nil {
					if ctx.Err() != nil {
						return count, ctx.Err()
					}
					metrics.Download("failed")
					log.Warn("failed to download pdf", "url", url, "error", err)
					continue
				}

				filename := fmt.Sprintf("%03d_%s", count+1, path.Base(strings.SplitN(url, "?", 2)[0]))
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return count, err
				}
				if err := os.WriteFile(filepath.Join(outDir, filename), body, 0o644); err != nil {
					return count, fmt.Errorf("write %s: %w", filename, err)
				}
				metrics.Download("ok")
				log.Info("downloaded pdf", "file", filename)
				count++

				if !metaSaved {
					if err := d.store.SaveLessonPlanMeta(ctx, resourceMeta(res, bag.ID, filename)); err != nil {
						return count, err
					}
					metaSaved = true
				}
				break
			}
		}
	}
	return count, nil
}

func resourceMeta(res Resource, courseBagID, filename string) irModel.ResourceMeta {
	tagList, _ := json.Marshal(res.TagList)
	names := TagNames(res.TagList)
	return irModel.ResourceMeta{
		ID:                   res.ID,
		ResourceTypeCode:     res.ResourceTypeCode,
		ResourceTypeCodeName: res.ResourceTypeCodeName,
		ContainerID:          res.ContainerID,
		TagList:              string(tagList),
		TagNames:             &names,
		CourseBagID:          courseBagID,
		Filename:             filename,
		FilenameCode:         irdataset.FilenameCode(filename),
	}
}
