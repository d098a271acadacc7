package irModel

// ResourceMeta identifies the source document of every emitted record.
type ResourceMeta struct {
	ID                   string  `json:"id"`
	ResourceTypeCode     string  `json:"resource_type_code"`
	ResourceTypeCodeName string  `json:"resource_type_code_name"`
	ContainerID          string  `json:"container_id"`
	TagList              string  `json:"tag_list"`
	TagNames             *string `json:"tag_names,omitempty"`
	CourseBagID          string  `json:"course_bag_id"`
	Filename             string  `json:"filename"`
	FilenameCode         string  `json:"filename_code"`
}

// DocumentRecord is one line of documents.jsonl. Legacy page ids are built
// without a meta lookup and leave RecordMeta nil, which drops its keys.
type DocumentRecord struct {
	DocID  string `json:"doc_id"`
	PageID string `json:"page_id,omitempty"`
	*RecordMeta
	PageIdx   int       `json:"page_idx"`
	BBox      []float64 `json:"bbox"`
	BBoxIndex int       `json:"bbox_index"`
	PageSize  []float64 `json:"page_size"`
	Text      string    `json:"text"`
	TagNames  *string   `json:"tag_names,omitempty"`

	// MergeKey groups records into documents_merged.jsonl; never serialised.
	MergeKey string `json:"-"`
}

// RecordMeta is the resource metadata denormalised onto every record that
// has one. Empty values are written as null.
type RecordMeta struct {
	ID                   string  `json:"id"`
	ResourceTypeCode     *string `json:"resource_type_code"`
	ResourceTypeCodeName *string `json:"resource_type_code_name"`
	ContainerID          *string `json:"container_id"`
	TagList              *string `json:"tag_list"`
	ParentID             *string `json:"parent_id"`
}

// NewRecordMeta copies the denormalised fields of m.
func NewRecordMeta(m ResourceMeta) *RecordMeta {
	return &RecordMeta{
		ID:                   m.ID,
		ResourceTypeCode:     nullable(m.ResourceTypeCode),
		ResourceTypeCodeName: nullable(m.ResourceTypeCodeName),
		ContainerID:          nullable(m.ContainerID),
		TagList:              nullable(m.TagList),
		ParentID:             nullable(m.CourseBagID),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type MergedDocument struct {
	DocID      string   `json:"doc_id"`
	Paragraphs []string `json:"paragraphs"`
	TagNames   *string  `json:"tag_names,omitempty"`
	PageIdx    *int     `json:"page_idx,omitempty"`
}

type Query struct {
	QueryID string `json:"query_id"`
	Text    string `json:"text"`
}

type QrelDoc struct {
	DocID     string `json:"doc_id"`
	Relevance int    `json:"relevance"`
}

// NestedQrel is the split-variant qrel schema.
type NestedQrel struct {
	QueryID string    `json:"query_id"`
	Docs    []QrelDoc `json:"docs"`
}

// FlatQrel is the unsplit-variant qrel schema.
type FlatQrel struct {
	QueryID   string `json:"query_id"`
	DocID     string `json:"doc_id"`
	Relevance int    `json:"relevance"`
}

type QueryMapping struct {
	OldQueryID string `json:"old_query_id"`
	NewQueryID string `json:"new_query_id"`
	DocID      string `json:"doc_id"`
	PageIdx    string `json:"page_idx"`
}

// GeneratedQueries is the file written per corpus id by query generation.
type GeneratedQueries struct {
	Content GeneratedContent `json:"content"`
}

type GeneratedContent struct {
	Queries []GeneratedQuery `json:"queries"`
}

type GeneratedQuery struct {
	Query                string   `json:"query"`
	RecallableParagraphs []string `json:"recallable_paragraphs"`
}

// PlainQueries is the unsplit-variant query file: a bare list of strings.
type PlainQueries struct {
	Queries []string `json:"queries"`
}

// GroupRow is one processed group (course bag or textbook) eligible for a build.
type GroupRow struct {
	GroupID  string
	TagNames *string
}

type CorpusQuery struct {
	CorpusID    string
	CorpusType  string
	IsGenerated bool
}

// PlainDocument is a whole-file record of the unsplit variant.
type PlainDocument struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}
