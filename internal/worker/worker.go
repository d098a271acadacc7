package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/job"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/pipeline"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// Pool state is process wide: serve wires one job service and one pipeline.
var (
	_jobService        *job.Service
	_pipeline          pipeline.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             *logger_i.Logger
	minWorkerCount     = config.MinWorkerCount
	idleTimeout        = config.IdleWorkerTimeout
)

func InitServices(jobService *job.Service, pipelineService pipeline.Service) {
	_jobService = jobService
	_pipeline = pipelineService
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool", "min", atomic.LoadInt64(&minWorkerCount), "max", config.MaxWorkerCount)
	go dispatcher()
}

// dispatcher grows the pool by one worker per signal up to MaxWorkerCount.
// Handlers signal for every eval or querygen job since those hold a worker
// for minutes to hours.
func dispatcher() {
	createWorker()
	for range dispatcherChannel {
		workers := atomic.LoadInt64(&currentWorkerCount)
		if workers >= config.MaxWorkerCount {
			logger.Debug("Pool at capacity", "workers", workers, "backlog", len(_jobService.JobChannel))
			continue
		}
		logger.Info("Growing pool", "workers", workers, "backlog", len(_jobService.JobChannel))
		createWorker()
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go worker()
}

func worker() {
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			executeJob(currentJob)
			idle.Reset(idleTimeout)

		case <-stopWorkerChannel:
			removeWorker("stop signal")
			return

		case <-idle.C:
			if tryRetire() {
				return
			}
			idle.Reset(idleTimeout)
		}
	}
}

// tryRetire removes the calling worker unless that would leave fewer than
// minWorkerCount running. Concurrent idle workers race on the count with
// CompareAndSwap so the floor holds.
func tryRetire() bool {
	for {
		n := atomic.LoadInt64(&currentWorkerCount)
		if n <= atomic.LoadInt64(&minWorkerCount) {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, n, n-1) {
			releaseWorker("idle timeout", n-1)
			return true
		}
	}
}

func removeWorker(reason string) {
	releaseWorker(reason, atomic.AddInt64(&currentWorkerCount, -1))
}

func releaseWorker(reason string, remaining int64) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", remaining)
}
