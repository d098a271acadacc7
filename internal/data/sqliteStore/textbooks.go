package sqliteStore

import (
	"context"
	"fmt"
)

type Textbook struct {
	ID                      string
	Title                   string
	DownloadedLessonPlanNum int
}

// UpsertTextbook inserts a textbook or refreshes its title, keeping counters.
func (s *Store) UpsertTextbook(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO textbooks (id, title) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title`, id, title)
	if err != nil {
		return fmt.Errorf("upsert textbook %s: %w", id, err)
	}
	return nil
}

// TextbooksBelow lists textbooks with fewer downloaded lesson plans than limit.
func (s *Store) TextbooksBelow(ctx context.Context, limit int) ([]Textbook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, downloaded_lesson_plan_num FROM textbooks
		WHERE downloaded_lesson_plan_num < ? ORDER BY id`, limit)
	if err != nil {
		return nil, fmt.Errorf("list textbooks: %w", err)
	}
	defer rows.Close()

	var out []Textbook
	for rows.Next() {
		var t Textbook
		if err := rows.Scan(&t.ID, &t.Title, &t.DownloadedLessonPlanNum); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RollupTextbookCounts recomputes every textbook's downloaded lesson plan
// count from the per course bag download status.
func (s *Store) RollupTextbookCounts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE textbooks SET downloaded_lesson_plan_num = COALESCE((
			SELECT SUM(r.lesson_plan) FROM resource_download_status r
			WHERE r.textbook_id = textbooks.id), 0)`)
	if err != nil {
		return fmt.Errorf("rollup textbook counts: %w", err)
	}
	return nil
}

// TotalDownloadedLessonPlans sums lesson plan downloads across all textbooks.
func (s *Store) TotalDownloadedLessonPlans(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(downloaded_lesson_plan_num), 0) FROM textbooks`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum lesson plans: %w", err)
	}
	return total, nil
}
