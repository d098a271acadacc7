package sqliteStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akolanti/irbench/internal/domain/irModel"
)

type TextbookTM struct {
	ID                   string
	TagNames             *string
	TagList              string
	Filename             *string
	FilenameCode         string
	ResourceTypeCode     string
	ResourceTypeCodeName string
	ContainerID          string
	Processed            int
}

func (s *Store) SaveLessonPlanMeta(ctx context.Context, m irModel.ResourceMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lesson_plan_resource_meta
			(id, resource_type_code, resource_type_code_name, container_id, tag_list, tag_names, course_bag_id, filename, filename_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource_type_code = excluded.resource_type_code,
			resource_type_code_name = excluded.resource_type_code_name,
			container_id = excluded.container_id,
			tag_list = excluded.tag_list,
			tag_names = excluded.tag_names,
			course_bag_id = excluded.course_bag_id,
			filename = excluded.filename`,
		m.ID, m.ResourceTypeCode, m.ResourceTypeCodeName, m.ContainerID, m.TagList, nullable(m.TagNames), m.CourseBagID, m.Filename, m.FilenameCode)
	if err != nil {
		return fmt.Errorf("save lesson plan meta %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) LessonPlanMetas(ctx context.Context) ([]irModel.ResourceMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resource_type_code, resource_type_code_name, container_id, tag_list, tag_names, course_bag_id, filename, filename_code
		FROM lesson_plan_resource_meta ORDER BY course_bag_id, filename`)
	if err != nil {
		return nil, fmt.Errorf("list lesson plan meta: %w", err)
	}
	defer rows.Close()

	var out []irModel.ResourceMeta
	for rows.Next() {
		var m irModel.ResourceMeta
		var tagNames sql.NullString
		if err := rows.Scan(&m.ID, &m.ResourceTypeCode, &m.ResourceTypeCodeName, &m.ContainerID, &m.TagList, &tagNames, &m.CourseBagID, &m.Filename, &m.FilenameCode); err != nil {
			return nil, err
		}
		m.TagNames = fromNull(tagNames)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetLessonPlanFilenameCode(ctx context.Context, id, code string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lesson_plan_resource_meta SET filename_code = ? WHERE id = ?`, code, id)
	if err != nil {
		return fmt.Errorf("set filename code %s: %w", id, err)
	}
	return nil
}

func (s *Store) UpsertTextbookTM(ctx context.Context, tm TextbookTM) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO textbook_tm (id, tag_names, tag_list, filename, filename_code, resource_type_code, resource_type_code_name, container_id, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tag_names = COALESCE(excluded.tag_names, tag_names),
			tag_list = CASE WHEN excluded.tag_list != '' THEN excluded.tag_list ELSE tag_list END,
			filename = COALESCE(excluded.filename, filename)`,
		tm.ID, nullable(tm.TagNames), tm.TagList, nullable(tm.Filename), tm.FilenameCode,
		tm.ResourceTypeCode, tm.ResourceTypeCodeName, tm.ContainerID, tm.Processed)
	if err != nil {
		return fmt.Errorf("upsert textbook tm %s: %w", tm.ID, err)
	}
	return nil
}

func (s *Store) TextbookTMs(ctx context.Context) ([]TextbookTM, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tag_names, tag_list, filename, filename_code, resource_type_code, resource_type_code_name, container_id, processed
		FROM textbook_tm ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list textbook tm: %w", err)
	}
	defer rows.Close()

	var out []TextbookTM
	for rows.Next() {
		var tm TextbookTM
		var tagNames, filename sql.NullString
		if err := rows.Scan(&tm.ID, &tagNames, &tm.TagList, &filename, &tm.FilenameCode,
			&tm.ResourceTypeCode, &tm.ResourceTypeCodeName, &tm.ContainerID, &tm.Processed); err != nil {
			return nil, err
		}
		tm.TagNames = fromNull(tagNames)
		tm.Filename = fromNull(filename)
		out = append(out, tm)
	}
	return out, rows.Err()
}

// ProcessedTextbookGroups lists textbooks with processed content, carrying
// their tag names onto every record of the group.
func (s *Store) ProcessedTextbookGroups(ctx context.Context) ([]irModel.GroupRow, error) {
	tms, err := s.TextbookTMs(ctx)
	if err != nil {
		return nil, err
	}
	var out []irModel.GroupRow
	for _, tm := range tms {
		if tm.Processed > 0 {
			out = append(out, irModel.GroupRow{GroupID: tm.ID, TagNames: tm.TagNames})
		}
	}
	return out, nil
}

// TextbookMetas returns textbook rows with a filename as resource metadata.
// Textbooks have no parent course bag.
func (s *Store) TextbookMetas(ctx context.Context) ([]irModel.ResourceMeta, error) {
	tms, err := s.TextbookTMs(ctx)
	if err != nil {
		return nil, err
	}
	var out []irModel.ResourceMeta
	for _, tm := range tms {
		if tm.Filename == nil {
			continue
		}
		out = append(out, irModel.ResourceMeta{
			ID:                   tm.ID,
			ResourceTypeCode:     tm.ResourceTypeCode,
			ResourceTypeCodeName: tm.ResourceTypeCodeName,
			ContainerID:          tm.ContainerID,
			TagList:              tm.TagList,
			TagNames:             tm.TagNames,
			Filename:             *tm.Filename,
			FilenameCode:         tm.FilenameCode,
		})
	}
	return out, nil
}

func (s *Store) SetTextbookTMFilenameCode(ctx context.Context, id, code string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE textbook_tm SET filename_code = ? WHERE id = ?`, code, id)
	if err != nil {
		return fmt.Errorf("set textbook filename code %s: %w", id, err)
	}
	return nil
}

func (s *Store) SetTextbookTMTagList(ctx context.Context, id, tagList string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE textbook_tm SET tag_list = ? WHERE id = ?`, tagList, id)
	if err != nil {
		return fmt.Errorf("set textbook tag list %s: %w", id, err)
	}
	return nil
}

func (s *Store) SetTextbookTMProcessed(ctx context.Context, id string, count int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE textbook_tm SET processed = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("set textbook processed %s: %w", id, err)
	}
	return nil
}
