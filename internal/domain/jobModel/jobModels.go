package jobModel

import (
	"context"
	"maps"
	"time"
)

type JobStatus string
type InternalStatus string

type JobKind string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	StepInit      InternalStatus = "Init"
	StepCorpus    InternalStatus = "Corpus"
	StepQueries   InternalStatus = "Queries"
	StepGenerate  InternalStatus = "LLM"
	StepRemap     InternalStatus = "Remap"
	StepIndex     InternalStatus = "Index"
	StepRetrieval InternalStatus = "Retrieval"
	StepError     InternalStatus = "Error"
	StepComplete  InternalStatus = "Complete"

	JobKindBuild    JobKind = "build"
	JobKindQueries  JobKind = "queries"
	JobKindQueryGen JobKind = "querygen"
	JobKindRemap    JobKind = "remap"
	JobKindEval     JobKind = "eval"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobKindBuild, JobKindQueries, JobKindQueryGen, JobKindRemap, JobKindEval:
		return true
	}
	return false
}

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	Kind        JobKind        `json:"kind"`
	Params      JobParams      `json:"params"`
	Result      JobResult      `json:"result"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// JobParams mirrors the CLI flags of the matching subcommand.
type JobParams struct {
	Variant   string `json:"variant,omitempty"`
	Category  string `json:"category,omitempty"`
	LegacyIDs bool   `json:"legacy_ids,omitempty"`

	QueriesPerDoc int `json:"queries_per_doc,omitempty"`
	Limit         int `json:"limit,omitempty"`

	Dataset   string `json:"dataset,omitempty"`
	Retriever string `json:"retriever,omitempty"`
	PageLevel bool   `json:"page_level,omitempty"`
	Reindex   bool   `json:"reindex,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	Output    string `json:"output,omitempty"`
}

type JobResult struct {
	OutputDir string             `json:"output_dir,omitempty"`
	Counts    map[string]int     `json:"counts,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Clone copies the result maps so a stored job never aliases the worker's.
func (j Job) Clone() Job {
	j.Result.Counts = maps.Clone(j.Result.Counts)
	j.Result.Metrics = maps.Clone(j.Result.Metrics)
	return j
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// EventStore keeps a short progress log per job.
type EventStore interface {
	AppendEvent(ctx context.Context, jobID string, event string) error
	RecentEvents(ctx context.Context, jobID string) ([]string, error)
}
