package enricher

import (
	"context"
	"sort"
	"sync"
	"time"

	"dicescraper/pkg/logger"
	"dicescraper/pkg/models"
)

// Job is one listing card waiting for its detail page
type Job struct {
	Index int
	Stub  models.JobStub
}

// Result is the enriched record for a Job
type Result struct {
	Job      Job
	Record   *models.Record
	Error    error
	Duration time.Duration
	Worker   int
}

// ProcessFunc turns a Job into a Result. worker is the zero-based id of the
// calling worker so callers can hand each worker its own browser tab.
type ProcessFunc func(ctx context.Context, worker int, job Job) Result

// WorkerPool runs detail enrichment over a fixed number of workers
type WorkerPool struct {
	numWorkers int
	process    ProcessFunc
	logger     logger.Logger
}

// NewWorkerPool creates a pool; numWorkers below one means one
func NewWorkerPool(numWorkers int, process ProcessFunc, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		process:    process,
		logger:     log,
	}
}

// Workers returns the number of workers
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Process runs every job and returns one result per job ordered by Index.
// Jobs not started before ctx is cancelled get ctx.Err() as their error.
func (wp *WorkerPool) Process(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	workers := wp.numWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobQueue := make(chan Job)
	resultQueue := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, jobQueue, resultQueue, &wg)
	}

	skipped := make([]Job, 0)
feed:
	for i, job := range jobs {
		select {
		case jobQueue <- job:
		case <-ctx.Done():
			skipped = append(skipped, jobs[i:]...)
			break feed
		}
	}
	close(jobQueue)
	wg.Wait()
	close(resultQueue)

	results := make([]Result, 0, len(jobs))
	for r := range resultQueue {
		results = append(results, r)
	}
	for _, job := range skipped {
		results = append(results, Result{Job: job, Error: ctx.Err(), Worker: -1})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Job.Index < results[j].Job.Index
	})
	return results
}

func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- Result{Job: job, Error: err, Worker: id}
			continue
		}

		start := time.Now()
		r := wp.process(ctx, id, job)
		r.Job = job
		r.Worker = id
		if r.Duration == 0 {
			r.Duration = time.Since(start)
		}

		wp.logger.DebugWithFields("Worker finished job", map[string]interface{}{
			"worker_id": id,
			"index":     job.Index,
			"url":       job.Stub.URL,
			"duration":  r.Duration,
			"failed":    r.Error != nil,
		})
		results <- r
	}
}
