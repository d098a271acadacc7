package commonModels

// Document is the unit handed to a retrieval index.
type Document struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// Hit is one ranked search result.
type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

func HitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	return ids
}
