package irdataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/internal/domain/irModel"
)

type RemapResult struct {
	Queries int
	Qrels   int
}

// legacyQueryID is the parsed form of
// {group}_{category}_{filename_code}_{page_idx}_{query_idx}.
type legacyQueryID struct {
	group        string
	filenameCode string
	pageIdx      string
	queryIdx     string
}

// parseLegacyQueryID splits on every underscore. Both category names hold one
// underscore, so the filename code is everything between the fourth segment
// and the last two.
func parseLegacyQueryID(id string) (legacyQueryID, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 6 {
		return legacyQueryID{}, fmt.Errorf("%w: %q", ErrMalformedQueryID, id)
	}
	return legacyQueryID{
		group:        parts[0],
		filenameCode: strings.Join(parts[3:len(parts)-2], "_"),
		pageIdx:      parts[len(parts)-2],
		queryIdx:     parts[len(parts)-1],
	}, nil
}

// Remap rewrites queries.jsonl and qrels.jsonl in dir from legacy composite
// ids onto resource ids and records the translation in queries_mapping.jsonl.
// Every id is resolved before anything is written.
func (b *Builder) Remap(ctx context.Context, dir string, cat ResourceCategory) (RemapResult, error) {
	var result RemapResult
	if cat == nil {
		return result, ErrCategoryUnknown
	}
	log := b.logger.WithTrace(ctx).With("category", cat.Name(), "dir", dir)

	metaMap, err := cat.MetaMap(ctx, b.src)
	if err != nil {
		return result, fmt.Errorf("load %s meta: %w", cat.Name(), err)
	}
	byCode := metaMap.ByFilenameCode()

	queries, err := ReadJSONL[irModel.Query](filepath.Join(dir, QueriesFile))
	if err != nil {
		return result, fmt.Errorf("read queries: %w", err)
	}
	qrels, err := ReadJSONL[irModel.NestedQrel](filepath.Join(dir, QrelsFile))
	if err != nil {
		return result, fmt.Errorf("read qrels: %w", err)
	}

	mappings := make([]irModel.QueryMapping, 0, len(queries))
	byOldID := make(map[string]irModel.QueryMapping, len(queries))
	for i, q := range queries {
		parsed, err := parseLegacyQueryID(q.QueryID)
		if err != nil {
			return result, err
		}
		meta, ok := byCode[MetaKey{Group: parsed.group, Filename: parsed.filenameCode}]
		if !ok {
			return result, fmt.Errorf("%w: (%s, %s)", ErrMetaNotFound, parsed.group, parsed.filenameCode)
		}
		m := irModel.QueryMapping{
			OldQueryID: q.QueryID,
			NewQueryID: fmt.Sprintf("%s_%s_%s", meta.ID, parsed.pageIdx, parsed.queryIdx),
			DocID:      meta.ID,
			PageIdx:    parsed.pageIdx,
		}
		mappings = append(mappings, m)
		byOldID[q.QueryID] = m
		queries[i].QueryID = m.NewQueryID
	}

	for i, qrel := range qrels {
		m, ok := byOldID[qrel.QueryID]
		if !ok {
			return result, fmt.Errorf("%w: %q", ErrMissingMapping, qrel.QueryID)
		}
		docs := make([]irModel.QrelDoc, 0, len(qrel.Docs))
		for _, d := range qrel.Docs {
			_, paraIdx, _ := splitLast(d.DocID)
			docs = append(docs, irModel.QrelDoc{
				DocID:     fmt.Sprintf("%s_%s_%s", m.DocID, m.PageIdx, paraIdx),
				Relevance: d.Relevance,
			})
		}
		qrels[i] = irModel.NestedQrel{QueryID: m.NewQueryID, Docs: docs}
	}

	if err := WriteJSONL(filepath.Join(dir, QueriesMappingFile), mappings); err != nil {
		return result, err
	}
	if err := WriteJSONL(filepath.Join(dir, QueriesFile), queries); err != nil {
		return result, err
	}
	if err := WriteJSONL(filepath.Join(dir, QrelsFile), qrels); err != nil {
		return result, err
	}
	result.Queries = len(queries)
	result.Qrels = len(qrels)
	log.Info("ids remapped", "queries", result.Queries, "qrels", result.Qrels)
	return result, nil
}
