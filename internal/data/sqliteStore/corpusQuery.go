package sqliteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MarkGenerated records that a query set exists for (corpusID, corpusType).
func (s *Store) MarkGenerated(ctx context.Context, corpusID, corpusType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corpus_query (corpus_id, corpus_type, is_generated) VALUES (?, ?, 1)
		ON CONFLICT(corpus_id, corpus_type) DO UPDATE SET is_generated = 1`, corpusID, corpusType)
	if err != nil {
		return fmt.Errorf("mark generated %s/%s: %w", corpusID, corpusType, err)
	}
	return nil
}

func (s *Store) IsGenerated(ctx context.Context, corpusID, corpusType string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `
		SELECT is_generated FROM corpus_query WHERE corpus_id = ? AND corpus_type = ?`, corpusID, corpusType).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check generated %s/%s: %w", corpusID, corpusType, err)
	}
	return flag == 1, nil
}

// GeneratedCorpusIDs lists corpus ids of one type with a generated query set.
func (s *Store) GeneratedCorpusIDs(ctx context.Context, corpusType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT corpus_id FROM corpus_query WHERE is_generated = 1 AND corpus_type = ? ORDER BY corpus_id`, corpusType)
	if err != nil {
		return nil, fmt.Errorf("list generated corpus ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
