package conduit

import (
	"context"
	"sync"
	"time"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

// DefaultBatchConcurrency bounds parallel calls in bulk helpers. Conduit
// installs rate-limit aggressively, so the default stays small.
const DefaultBatchConcurrency = constants.DefaultConcurrencyLimit

// BatchFunc is one operation of a bulk execution.
type BatchFunc[T any] func(ctx context.Context) (T, error)

// BatchResult is the outcome of one operation in a bulk execution.
type BatchResult[T any] struct {
	Value    T
	Err      error
	Duration time.Duration
}

// BatchExecutor runs independent operations concurrently with a bounded
// worker budget. Results keep the order of the submitted operations.
type BatchExecutor[T any] struct {
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor[T any](concurrency int) *BatchExecutor[T] {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	return &BatchExecutor[T]{concurrency: concurrency}
}

// SetTimeout bounds each operation separately. Zero leaves only the caller's
// context deadline in effect.
func (b *BatchExecutor[T]) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs every operation and returns per-operation results. A failed
// operation never aborts its siblings; callers inspect each Err.
func (b *BatchExecutor[T]) Execute(ctx context.Context, operations []BatchFunc[T]) []BatchResult[T] {
	results := make([]BatchResult[T], len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchFunc[T]) {
			defer waitGroup.Done()

			// Acquire semaphore
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx := ctx

			if b.timeout > 0 {
				var cancel context.CancelFunc

				opCtx, cancel = context.WithTimeout(ctx, b.timeout)
				defer cancel()
			}

			start := time.Now()
			value, err := operation(opCtx)
			results[index] = BatchResult[T]{
				Value:    value,
				Err:      err,
				Duration: time.Since(start),
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results
}

// FetchTasks loads several tasks concurrently. Each result carries its own
// error so one missing task does not hide the others.
func FetchTasks(ctx context.Context, client Client, taskIDs []int) []BatchResult[*Task] {
	operations := make([]BatchFunc[*Task], len(taskIDs))

	for i, taskID := range taskIDs {
		operations[i] = func(ctx context.Context) (*Task, error) {
			return client.Maniphest().GetTask(ctx, taskID)
		}
	}

	return NewBatchExecutor[*Task](DefaultBatchConcurrency).Execute(ctx, operations)
}

// FetchRevisions loads several revisions concurrently.
func FetchRevisions(ctx context.Context, client Client, revisionIDs []int) []BatchResult[*Revision] {
	operations := make([]BatchFunc[*Revision], len(revisionIDs))

	for i, revisionID := range revisionIDs {
		operations[i] = func(ctx context.Context) (*Revision, error) {
			return client.Differential().GetRevision(ctx, revisionID)
		}
	}

	return NewBatchExecutor[*Revision](DefaultBatchConcurrency).Execute(ctx, operations)
}
