package eval

import (
	"math"
	"sort"
	"strings"
)

// PageID strips the trailing _N paragraph segment of a doc id.
func PageID(docID string) string {
	if i := strings.LastIndex(docID, "_"); i >= 0 {
		return docID[:i]
	}
	return docID
}

// collapse maps ids to their page ids, keeping the first occurrence.
func collapse(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p := PageID(id)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

type judged struct {
	relevant  map[string]bool
	pageLevel bool
}

func newJudged(relevant []string, pageLevel bool) judged {
	if pageLevel {
		relevant = collapse(relevant)
	}
	set := make(map[string]bool, len(relevant))
	for _, id := range relevant {
		set[id] = true
	}
	return judged{relevant: set, pageLevel: pageLevel}
}

// cut returns the ranked list considered at cutoff k. In page-level mode the
// top k hits are collapsed after cutting.
func (j judged) cut(retrieved []string, k int) []string {
	if len(retrieved) > k {
		retrieved = retrieved[:k]
	}
	if j.pageLevel {
		return collapse(retrieved)
	}
	return retrieved
}

func (j judged) hits(ranked []string) int {
	n := 0
	for _, id := range ranked {
		if j.relevant[id] {
			n++
		}
	}
	return n
}

func (j judged) Recall(retrieved []string, k int) float64 {
	if len(j.relevant) == 0 {
		return 0
	}
	return float64(j.hits(j.cut(retrieved, k))) / float64(len(j.relevant))
}

// Precision divides by k, not by the number of hits returned.
func (j judged) Precision(retrieved []string, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(j.hits(j.cut(retrieved, k))) / float64(k)
}

// NDCG uses binary gains.
func (j judged) NDCG(retrieved []string, k int) float64 {
	var dcg float64
	for i, id := range j.cut(retrieved, k) {
		if j.relevant[id] {
			dcg += 1 / math.Log2(float64(i+2))
		}
	}
	var idcg float64
	for i := 0; i < min(len(j.relevant), k); i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func (j judged) MRR(retrieved []string, k int) float64 {
	for i, id := range j.cut(retrieved, k) {
		if j.relevant[id] {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// QrelStats summarises relevant documents per judged query.
type QrelStats struct {
	Queries int     `json:"queries"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Avg     float64 `json:"avg"`
	Median  int     `json:"median"`
}

func ComputeQrelStats(relevant map[string][]string) QrelStats {
	counts := make([]int, 0, len(relevant))
	for _, docs := range relevant {
		if len(docs) > 0 {
			counts = append(counts, len(docs))
		}
	}
	if len(counts) == 0 {
		return QrelStats{}
	}
	sort.Ints(counts)
	total := 0
	for _, c := range counts {
		total += c
	}
	return QrelStats{
		Queries: len(counts),
		Min:     counts[0],
		Max:     counts[len(counts)-1],
		Avg:     float64(total) / float64(len(counts)),
		Median:  counts[len(counts)/2],
	}
}
