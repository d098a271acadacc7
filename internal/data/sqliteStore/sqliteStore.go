// Package sqliteStore keeps the download, processing and query-generation
// bookkeeping of a pipeline run.
package sqliteStore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/pkg/logger_i"
	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	logger *logger_i.Logger
}

// Open opens (or creates) the bookkeeping database and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", ensurePragmas("file:"+path, path != ":memory:", 5000))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: the pipeline is a single writer and :memory: is per-connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger_i.NewLogger("sqliteStore")}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("bookkeeping db ready", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func ensurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	lower := strings.ToLower(dsn)
	if wal && !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = appendPragma(dsn, "journal_mode(WAL)")
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = appendPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn
}

func appendPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS textbooks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			downloaded_lesson_plan_num INTEGER NOT NULL DEFAULT 0,
			downloaded_video_num INTEGER NOT NULL DEFAULT 0,
			downloaded_slides_num INTEGER NOT NULL DEFAULT 0,
			downloaded_learning_task_num INTEGER NOT NULL DEFAULT 0,
			downloaded_worksheet_num INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS resource_download_status (
			course_bag_id TEXT PRIMARY KEY,
			textbook_id TEXT NOT NULL DEFAULT '',
			lesson_plan INTEGER NOT NULL DEFAULT 0,
			video INTEGER NOT NULL DEFAULT 0,
			slides INTEGER NOT NULL DEFAULT 0,
			learning_task INTEGER NOT NULL DEFAULT 0,
			worksheet INTEGER NOT NULL DEFAULT 0,
			resource_type_code TEXT NOT NULL DEFAULT '',
			tag_list TEXT NOT NULL DEFAULT '',
			tag_names TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS resource_process_status (
			course_bag_id TEXT PRIMARY KEY,
			textbook_id TEXT NOT NULL DEFAULT '',
			lesson_plan INTEGER NOT NULL DEFAULT 0,
			video INTEGER NOT NULL DEFAULT 0,
			slides INTEGER NOT NULL DEFAULT 0,
			learning_task INTEGER NOT NULL DEFAULT 0,
			worksheet INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_plan_resource_meta (
			id TEXT PRIMARY KEY,
			resource_type_code TEXT NOT NULL DEFAULT '',
			resource_type_code_name TEXT NOT NULL DEFAULT '',
			container_id TEXT NOT NULL DEFAULT '',
			tag_list TEXT NOT NULL DEFAULT '',
			tag_names TEXT,
			course_bag_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			filename_code TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lp_meta_bag ON lesson_plan_resource_meta(course_bag_id, filename);`,
		`CREATE TABLE IF NOT EXISTS textbook_tm (
			id TEXT PRIMARY KEY,
			tag_names TEXT,
			tag_list TEXT NOT NULL DEFAULT '',
			filename TEXT,
			filename_code TEXT NOT NULL DEFAULT '',
			resource_type_code TEXT NOT NULL DEFAULT '',
			resource_type_code_name TEXT NOT NULL DEFAULT '',
			container_id TEXT NOT NULL DEFAULT '',
			processed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS corpus_query (
			corpus_id TEXT NOT NULL,
			corpus_type TEXT NOT NULL,
			is_generated INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (corpus_id, corpus_type)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
