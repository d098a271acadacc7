package sqliteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/domain/irModel"
)

// ResourceStatus is a per course bag counter row, shared by the download and
// process status tables.
type ResourceStatus struct {
	CourseBagID      string
	TextbookID       string
	LessonPlan       int
	ResourceTypeCode string
	TagList          string
	TagNames         *string
}

// SaveDownloadStatus upserts a course bag's download counters.
func (s *Store) SaveDownloadStatus(ctx context.Context, r ResourceStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resource_download_status (course_bag_id, textbook_id, lesson_plan, resource_type_code, tag_list, tag_names)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(course_bag_id) DO UPDATE SET
			textbook_id = excluded.textbook_id,
			lesson_plan = excluded.lesson_plan,
			resource_type_code = CASE WHEN excluded.resource_type_code != '' THEN excluded.resource_type_code ELSE resource_type_code END`,
		r.CourseBagID, r.TextbookID, r.LessonPlan, r.ResourceTypeCode, r.TagList, nullable(r.TagNames))
	if err != nil {
		return fmt.Errorf("save download status %s: %w", r.CourseBagID, err)
	}
	return nil
}

// IsDownloaded reports whether a course bag already has lesson plans on disk.
func (s *Store) IsDownloaded(ctx context.Context, courseBagID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT lesson_plan FROM resource_download_status WHERE course_bag_id = ?`, courseBagID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check download %s: %w", courseBagID, err)
	}
	return n > 0, nil
}

func (s *Store) DownloadStatuses(ctx context.Context) ([]ResourceStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT course_bag_id, textbook_id, lesson_plan, resource_type_code, tag_list, tag_names
		FROM resource_download_status ORDER BY course_bag_id`)
	if err != nil {
		return nil, fmt.Errorf("list download status: %w", err)
	}
	defer rows.Close()

	var out []ResourceStatus
	for rows.Next() {
		var r ResourceStatus
		var tagNames sql.NullString
		if err := rows.Scan(&r.CourseBagID, &r.TextbookID, &r.LessonPlan, &r.ResourceTypeCode, &r.TagList, &tagNames); err != nil {
			return nil, err
		}
		r.TagNames = fromNull(tagNames)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SetDownloadedLessonPlans(ctx context.Context, courseBagID string, count int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE resource_download_status SET lesson_plan = ? WHERE course_bag_id = ?`, count, courseBagID)
	if err != nil {
		return fmt.Errorf("set lesson plan count %s: %w", courseBagID, err)
	}
	return nil
}

func (s *Store) SetDownloadTags(ctx context.Context, courseBagID, resourceTypeCode, tagList string, tagNames *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE resource_download_status SET resource_type_code = ?, tag_list = ?, tag_names = ?
		WHERE course_bag_id = ?`, resourceTypeCode, tagList, nullable(tagNames), courseBagID)
	if err != nil {
		return fmt.Errorf("set download tags %s: %w", courseBagID, err)
	}
	return nil
}

// PendingProcessing lists course bags whose downloaded lesson plans outnumber
// the processed ones.
func (s *Store) PendingProcessing(ctx context.Context) ([]ResourceStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.course_bag_id, d.textbook_id, d.lesson_plan
		FROM resource_download_status d
		LEFT OUTER JOIN resource_process_status p ON p.course_bag_id = d.course_bag_id
		WHERE d.lesson_plan > COALESCE(p.lesson_plan, 0)
		ORDER BY d.course_bag_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending processing: %w", err)
	}
	defer rows.Close()

	var out []ResourceStatus
	for rows.Next() {
		var r ResourceStatus
		if err := rows.Scan(&r.CourseBagID, &r.TextbookID, &r.LessonPlan); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SetProcessedLessonPlans(ctx context.Context, courseBagID, textbookID string, count int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resource_process_status (course_bag_id, textbook_id, lesson_plan) VALUES (?, ?, ?)
		ON CONFLICT(course_bag_id) DO UPDATE SET lesson_plan = excluded.lesson_plan`, courseBagID, textbookID, count)
	if err != nil {
		return fmt.Errorf("set processed count %s: %w", courseBagID, err)
	}
	return nil
}

// ProcessedLessonPlanGroups lists course bags with at least one processed
// lesson plan. Lesson plan rows carry no tag names.
func (s *Store) ProcessedLessonPlanGroups(ctx context.Context) ([]irModel.GroupRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT course_bag_id FROM resource_process_status WHERE lesson_plan > 0 ORDER BY course_bag_id`)
	if err != nil {
		return nil, fmt.Errorf("list processed lesson plans: %w", err)
	}
	defer rows.Close()

	var out []irModel.GroupRow
	for rows.Next() {
		var g irModel.GroupRow
		if err := rows.Scan(&g.GroupID); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
