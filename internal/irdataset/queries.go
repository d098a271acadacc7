package irdataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/metrics"
)

type QueryResult struct {
	Dir         string
	CorpusIDs   int
	Queries     int
	Qrels       int
	SkippedIDs  int
	QrelsFormat string
}

// BuildQueries assembles queries.jsonl and qrels.jsonl for a dataset built by
// BuildCorpus from the generated query files under {out}/queries.
func (b *Builder) BuildQueries(ctx context.Context, opts BuildOptions) (QueryResult, error) {
	if opts.Category == nil {
		return QueryResult{}, ErrCategoryUnknown
	}
	if opts.Variant == VariantUnsplit {
		return b.buildPlainQueries(ctx, opts.Category)
	}

	cat := opts.Category
	dir := DatasetDir(b.outRoot, opts.Variant, cat.Name())
	result := QueryResult{Dir: dir, QrelsFormat: QrelFormatNested}
	log := b.logger.WithTrace(ctx).With("category", cat.Name(), "variant", opts.Variant)

	corpusIDs, err := b.src.GeneratedCorpusIDs(ctx, cat.Name())
	if err != nil {
		return result, fmt.Errorf("list generated corpus ids: %w", err)
	}
	result.CorpusIDs = len(corpusIDs)
	pageQrels := opts.Variant == VariantPage && !opts.LegacyIDs

	var queries []irModel.Query
	var qrels []irModel.NestedQrel
	for _, corpusID := range corpusIDs {
		path := filepath.Join(b.outRoot, config.QueriesDir, corpusID+".json")
		gen, err := readGenerated(path)
		if err != nil {
			log.Warn("generated queries unreadable, skipping", "corpus_id", corpusID, "error", err)
			metrics.FilesSkipped("decode_failed")
			result.SkippedIDs++
			continue
		}

		for idx, q := range gen.Content.Queries {
			queryID := fmt.Sprintf("%s_%d", corpusID, idx)
			queries = append(queries, irModel.Query{QueryID: queryID, Text: q.Query})

			docs := []irModel.QrelDoc{}
			for _, p := range q.RecallableParagraphs {
				n, ok := ParagraphNumber(p)
				if !ok {
					log.Debug("unparsable recallable paragraph", "query_id", queryID, "value", p)
					continue
				}
				if pageQrels {
					docs = []irModel.QrelDoc{{DocID: corpusID, Relevance: 1}}
					break
				}
				docs = append(docs, irModel.QrelDoc{DocID: fmt.Sprintf("%s_%d", corpusID, n), Relevance: 1})
			}
			qrels = append(qrels, irModel.NestedQrel{QueryID: queryID, Docs: docs})
		}
	}

	if err := WriteJSONL(filepath.Join(dir, QueriesFile), queries); err != nil {
		return result, err
	}
	if err := WriteJSONL(filepath.Join(dir, QrelsFile), qrels); err != nil {
		return result, err
	}
	result.Queries = len(queries)
	result.Qrels = len(qrels)
	metrics.RecordsEmitted(string(opts.Variant), "queries", len(queries))
	log.Info("queries written", "dir", dir, "queries", len(queries), "skipped_corpus_ids", result.SkippedIDs)
	return result, nil
}

func readGenerated(path string) (irModel.GeneratedQueries, error) {
	var gen irModel.GeneratedQueries
	raw, err := os.ReadFile(path)
	if err != nil {
		return gen, err
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return gen, fmt.Errorf("decode %s: %w", path, err)
	}
	return gen, nil
}

// ParagraphNumber parses the N of a "paragraph_N" reference.
func ParagraphNumber(ref string) (int, bool) {
	_, tail, ok := splitLast(strings.TrimSpace(ref))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// buildPlainQueries reads queries/{corpus_id}/{corpus_type}/*.json, one
// corpus id per processed course bag.
func (b *Builder) buildPlainQueries(ctx context.Context, cat ResourceCategory) (QueryResult, error) {
	dir := DatasetDir(b.outRoot, VariantUnsplit, cat.Name())
	result := QueryResult{Dir: dir, QrelsFormat: QrelFormatFlat}
	log := b.logger.WithTrace(ctx).With("category", cat.Name(), "variant", VariantUnsplit)

	rows, err := cat.Rows(ctx, b.src)
	if err != nil {
		return result, fmt.Errorf("list %s groups: %w", cat.Name(), err)
	}

	var queries []irModel.Query
	var qrels []irModel.FlatQrel
	for _, row := range rows {
		queryDir := filepath.Join(b.outRoot, config.QueriesDir, row.GroupID, cat.Name())
		entries, err := os.ReadDir(queryDir)
		if err != nil {
			log.Debug("no queries for group", "group", row.GroupID)
			continue
		}
		result.CorpusIDs++

		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			raw, err := os.ReadFile(filepath.Join(queryDir, name))
			if err != nil {
				log.Warn("failed to read query file", "file", name, "error", err)
				result.SkippedIDs++
				continue
			}
			var plain irModel.PlainQueries
			if err := json.Unmarshal(raw, &plain); err != nil {
				log.Warn("failed to decode query file", "file", name, "error", err)
				metrics.FilesSkipped("decode_failed")
				result.SkippedIDs++
				continue
			}
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			for idx, text := range plain.Queries {
				queryID := fmt.Sprintf("%s_%s_%s_%d", row.GroupID, cat.Name(), stem, idx)
				docID, _, _ := splitLast(queryID)
				queries = append(queries, irModel.Query{QueryID: queryID, Text: text})
				qrels = append(qrels, irModel.FlatQrel{QueryID: queryID, DocID: docID, Relevance: 1})
			}
		}
	}

	if err := WriteJSONL(filepath.Join(dir, QueriesFile), queries); err != nil {
		return result, err
	}
	if err := WriteJSONL(filepath.Join(dir, QrelsFile), qrels); err != nil {
		return result, err
	}
	result.Queries = len(queries)
	result.Qrels = len(qrels)
	metrics.RecordsEmitted(string(VariantUnsplit), "queries", len(queries))
	log.Info("queries written", "dir", dir, "queries", len(queries))
	return result, nil
}
