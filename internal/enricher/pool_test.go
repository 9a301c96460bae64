package enricher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dicescraper/pkg/logger"
	"dicescraper/pkg/models"
)

func makeJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		stub := models.NewJobStub()
		stub.Title = fmt.Sprintf("Job %d", i)
		stub.URL = fmt.Sprintf("https://www.dice.com/job-detail/%d", i)
		jobs[i] = Job{Index: i, Stub: stub}
	}
	return jobs
}

func TestWorkerPoolPreservesOrder(t *testing.T) {
	process := func(ctx context.Context, worker int, job Job) Result {
		// Later jobs finish first
		time.Sleep(time.Duration(10-job.Index) * 3 * time.Millisecond)
		return Result{Record: job.Stub.Record()}
	}

	pool := NewWorkerPool(4, process, logger.NewTestLogger())
	results := pool.Process(context.Background(), makeJobs(10))

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Job.Index != i {
			t.Errorf("Result %d has index %d", i, r.Job.Index)
		}
		if got := r.Record.GetString(models.KeyTitle); got != fmt.Sprintf("Job %d", i) {
			t.Errorf("Result %d has title %q", i, got)
		}
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	var active, peak int32
	process := func(ctx context.Context, worker int, job Job) Result {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return Result{}
	}

	NewWorkerPool(3, process, logger.NewNopLogger()).Process(context.Background(), makeJobs(12))

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent jobs, saw %d", peak)
	}
}

func TestWorkerPoolSingleWorkerIsSequential(t *testing.T) {
	var mu sync.Mutex
	var order []int
	workers := map[int]bool{}
	process := func(ctx context.Context, worker int, job Job) Result {
		mu.Lock()
		order = append(order, job.Index)
		workers[worker] = true
		mu.Unlock()
		return Result{}
	}

	NewWorkerPool(0, process, nil).Process(context.Background(), makeJobs(5))

	for i, idx := range order {
		if idx != i {
			t.Fatalf("Expected sequential order, got %v", order)
		}
	}
	if len(workers) != 1 || !workers[0] {
		t.Errorf("Expected only worker 0, got %v", workers)
	}
}

func TestWorkerPoolCarriesErrors(t *testing.T) {
	boom := errors.New("detail failed")
	process := func(ctx context.Context, worker int, job Job) Result {
		if job.Index == 1 {
			return Result{Record: job.Stub.Record(), Error: boom}
		}
		return Result{Record: job.Stub.Record()}
	}

	results := NewWorkerPool(2, process, logger.NewNopLogger()).Process(context.Background(), makeJobs(3))
	if !errors.Is(results[1].Error, boom) {
		t.Errorf("Expected error on job 1, got %v", results[1].Error)
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("Expected other jobs to succeed")
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	process := func(ctx context.Context, worker int, job Job) Result {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return Result{}
	}

	results := NewWorkerPool(1, process, logger.NewNopLogger()).Process(ctx, makeJobs(6))
	if len(results) != 6 {
		t.Fatalf("Expected a result per job, got %d", len(results))
	}
	if !errors.Is(results[5].Error, context.Canceled) {
		t.Errorf("Expected last job cancelled, got %v", results[5].Error)
	}
	if atomic.LoadInt32(&calls) > 3 {
		t.Errorf("Expected processing to stop soon after cancel, got %d calls", calls)
	}
}

func TestWorkerPoolEmpty(t *testing.T) {
	pool := NewWorkerPool(2, func(ctx context.Context, worker int, job Job) Result {
		t.Fatal("process should not be called")
		return Result{}
	}, logger.NewNopLogger())

	if got := pool.Process(context.Background(), nil); got != nil {
		t.Errorf("Expected nil results, got %v", got)
	}
}
