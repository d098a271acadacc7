package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "irbench_jobs_in_queue",
	Help: "Number of pipeline jobs waiting for a worker",
})

var dispatcherSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "irbench_dispatcher_signal_total",
	Help: "How often the dispatcher has signaled to start a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "irbench_active_workers",
	Help: "Number of active workers",
})

var recordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_records_emitted_total",
	Help: "Dataset records written, by variant and kind",
}, []string{"variant", "kind"})

var filesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_files_skipped_total",
	Help: "Source files skipped during a build, by reason",
}, []string{"reason"})

var downloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_downloads_total",
	Help: "Content API downloads by outcome",
}, []string{"status"})

var llmAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_llm_attempts_total",
	Help: "LLM generation attempts by outcome",
}, []string{"outcome"})

var evalQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_eval_queries_total",
	Help: "Queries scored during evaluation, by retriever",
}, []string{"retriever"})

var runningJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "irbench_running_jobs",
	Help: "Pipeline jobs currently executing, by kind",
}, []string{"kind"})

var jobPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irbench_job_panics_total",
	Help: "Pipeline jobs that panicked inside a worker, by kind",
}, []string{"kind"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

// JobStarted returns the func that marks the job finished.
func JobStarted(kind string) func() {
	g := runningJobs.WithLabelValues(kind)
	g.Inc()
	return g.Dec
}

func JobPanicked(kind string) {
	jobPanics.WithLabelValues(kind).Inc()
}

func RecordsEmitted(variant, kind string, n int) {
	recordsEmitted.WithLabelValues(variant, kind).Add(float64(n))
}

func FilesSkipped(reason string) {
	filesSkipped.WithLabelValues(reason).Inc()
}

func Download(status string) {
	downloads.WithLabelValues(status).Inc()
}

func LLMAttempt(outcome string) {
	llmAttempts.WithLabelValues(outcome).Inc()
}

func EvalQueries(retriever string, n int) {
	evalQueries.WithLabelValues(retriever).Add(float64(n))
}

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "irbench_job_duration_seconds",
	Help:    "Total time spent executing a pipeline job.",
	Buckets: []float64{1, 5, 30, 60, 300, 900, 3600},
}, []string{"kind", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "irbench_dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(kind, status string, timeElapsed time.Duration) {
	jobDuration.WithLabelValues(kind, status).Observe(timeElapsed.Seconds())
}
