// Package eval scores retrievers against a local IR dataset.
package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/akolanti/irbench/internal/irdataset"
)

type Query struct {
	ID   string
	Text string
}

// Dataset holds a loaded benchmark. Relevant lists, per query, the doc ids
// judged with relevance > 0 in file order.
type Dataset struct {
	Name     string
	Dir      string
	Docs     []commonModels.Document
	Queries  []Query
	Relevant map[string][]string
}

// LoadDataset reads dir/metadata.yaml and the files it names. Missing files
// load as empty. Qrels may be nested ({query_id, docs:[...]}) or flat
// ({query_id, doc_id, relevance}); the format is detected per line unless
// metadata pins it.
func LoadDataset(dir string) (*Dataset, error) {
	md, err := irdataset.ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Name: md.Dataset, Dir: dir, Relevant: map[string][]string{}}

	docSpec := md.Files.Documents
	err = eachLine(filepath.Join(dir, docSpec.Path), func(obj map[string]any) error {
		ds.Docs = append(ds.Docs, commonModels.Document{
			DocID: field(obj, docSpec.IDField),
			Text:  field(obj, docSpec.TextField),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	qSpec := md.Files.Queries
	err = eachLine(filepath.Join(dir, qSpec.Path), func(obj map[string]any) error {
		ds.Queries = append(ds.Queries, Query{ID: field(obj, qSpec.IDField), Text: field(obj, qSpec.TextField)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	rSpec := md.Files.Qrels
	seen := map[string]map[string]bool{}
	add := func(qid, docID string, rel float64) {
		if rel <= 0 || docID == "" {
			return
		}
		if seen[qid] == nil {
			seen[qid] = map[string]bool{}
		}
		if seen[qid][docID] {
			return
		}
		seen[qid][docID] = true
		ds.Relevant[qid] = append(ds.Relevant[qid], docID)
	}
	err = eachLine(filepath.Join(dir, rSpec.Path), func(obj map[string]any) error {
		qid := field(obj, rSpec.QueryIDField)
		docs, nested := obj["docs"].([]any)
		if rSpec.Format == irdataset.QrelFormatFlat {
			nested = false
		}
		if !nested {
			add(qid, field(obj, rSpec.DocIDField), number(obj[rSpec.RelevanceField]))
			return nil
		}
		for _, d := range docs {
			if m, ok := d.(map[string]any); ok {
				add(qid, field(m, rSpec.DocIDField), number(m[rSpec.RelevanceField]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func eachLine(path string, fn func(map[string]any) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(sc.Bytes(), &obj); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return sc.Err()
}

func field(obj map[string]any, name string) string {
	switch v := obj[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// number treats a missing relevance as relevant.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case nil:
		return 1
	}
	return 0
}
