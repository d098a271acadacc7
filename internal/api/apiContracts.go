package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"3f6c1d1e-8f0b-4c1e-9a51-6c2b1f0d9a10"`
	Kind      string            `json:"kind" example:"eval"`
	Result    Result            `json:"result"`
	Events    []string          `json:"events,omitempty"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status    string             `json:"status"`
	Step      string             `json:"step,omitempty"`
	OutputDir string             `json:"output_dir,omitempty"`
	Counts    map[string]int     `json:"counts,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

// JobRequest starts one pipeline stage. Kind is one of build, queries,
// querygen, remap, eval.
type JobRequest struct {
	Kind   string    `json:"kind" validate:"required" example:"build"`
	Params JobParams `json:"params"`
}

type JobParams struct {
	Variant       string `json:"variant,omitempty" example:"paragraph"`
	Category      string `json:"category,omitempty" example:"lesson_plan"`
	LegacyIDs     bool   `json:"legacy_ids,omitempty"`
	QueriesPerDoc int    `json:"queries_per_doc,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Dataset       string `json:"dataset,omitempty"`
	Retriever     string `json:"retriever,omitempty" example:"bm25"`
	PageLevel     bool   `json:"page_level,omitempty"`
	Reindex       bool   `json:"reindex,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
	BatchSize     int    `json:"batch_size,omitempty"`
	Output        string `json:"output,omitempty"`
}
