package conduit

import (
	"context"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

// PageFetcher fetches one page of a cursor-based search. The after cursor is
// empty for the first page and otherwise forwarded opaquely from the
// previous result; limit is the requested page size (0 for server default).
// Transient failures inside a fetcher are retried by the transport, so a
// mid-sequence retry re-issues only the current page.
type PageFetcher[T any] func(ctx context.Context, after string, limit int) (*SearchResult[T], error)

// PaginationOptions tunes multi-page fetches.
type PaginationOptions struct {
	// PageSize is the per-request page size. Zero selects the standard
	// Conduit page size.
	PageSize int

	// Limit bounds the total number of items yielded. Zero means no bound
	// beyond the cursor stream itself.
	Limit int

	// Cap is the safety bound for full aggregation. Zero means the
	// default; exceeding it fails with ResultTooLargeError rather than
	// silently truncating.
	Cap int
}

// CursorIterator walks a cursor-based result set lazily, one page at a
// time. It never assumes a maximum page count: it iterates until the remote
// signals no further cursor or the configured item limit is reached. The
// sequence is restartable only by constructing a new iterator.
type CursorIterator[T any] struct {
	ctx      context.Context
	fetch    PageFetcher[T]
	pageSize int
	limit    int

	buffer  []T
	after   string
	started bool
	done    bool
	yielded int
	err     error
}

// NewCursorIterator creates an iterator over fetch. opts may be nil.
func NewCursorIterator[T any](ctx context.Context, fetch PageFetcher[T], opts *PaginationOptions) *CursorIterator[T] {
	it := &CursorIterator[T]{
		ctx:   ctx,
		fetch: fetch,
	}

	if opts != nil {
		it.pageSize = opts.PageSize
		it.limit = opts.Limit
	}

	return it
}

// HasNext reports whether another item is available. It may fetch the next
// page; a fetch failure is reported by the following Next call.
func (it *CursorIterator[T]) HasNext() bool {
	if it.err != nil {
		return true
	}

	if len(it.buffer) > 0 {
		return true
	}

	if it.done {
		return false
	}

	it.fetchPage()

	return it.err != nil || len(it.buffer) > 0
}

// Next returns the next item, or ErrNoMoreItems past the end of the
// sequence.
func (it *CursorIterator[T]) Next() (T, error) {
	var zero T

	if it.err != nil {
		err := it.err
		it.err = nil

		return zero, err
	}

	if len(it.buffer) == 0 {
		if it.done {
			return zero, ErrNoMoreItems
		}

		it.fetchPage()

		if it.err != nil {
			err := it.err
			it.err = nil

			return zero, err
		}

		if len(it.buffer) == 0 {
			return zero, ErrNoMoreItems
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	it.yielded++

	if it.limit > 0 && it.yielded >= it.limit {
		it.buffer = nil
		it.done = true
	}

	return item, nil
}

// ForEach applies fn to every remaining item.
func (it *CursorIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// All collects every remaining item up to cap. Exceeding cap fails with
// ResultTooLargeError instead of silently truncating. cap <= 0 selects the
// default.
func (it *CursorIterator[T]) All(resultCap int) ([]T, error) {
	if resultCap <= 0 {
		resultCap = constants.DefaultResultCap
	}

	var items []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}

		items = append(items, item)

		if len(items) > resultCap {
			return nil, &ResultTooLargeError{Cap: resultCap, Fetched: len(items)}
		}
	}

	return items, nil
}

func (it *CursorIterator[T]) fetchPage() {
	it.started = true

	pageSize := it.pageSize
	if pageSize == 0 {
		pageSize = constants.DefaultPageSize
	}

	if it.limit > 0 {
		remaining := it.limit - it.yielded
		if remaining <= 0 {
			it.done = true

			return
		}

		if remaining < pageSize {
			pageSize = remaining
		}
	}

	result, err := it.fetch(it.ctx, it.after, pageSize)
	if err != nil {
		it.err = err

		return
	}

	it.buffer = append(it.buffer, result.Data...)
	it.after = result.Cursor.After

	if !result.Cursor.HasMore() || len(result.Data) == 0 {
		it.done = true
	}
}

// FetchAllPages aggregates a full cursor stream into one bounded collection.
func FetchAllPages[T any](ctx context.Context, fetch PageFetcher[T], opts *PaginationOptions) ([]T, error) {
	iterator := NewCursorIterator(ctx, fetch, opts)

	var resultCap int
	if opts != nil {
		resultCap = opts.Cap
	}

	return iterator.All(resultCap)
}

// PageResult is one streamed page.
type PageResult[T any] struct {
	Items  []T
	Cursor Cursor
	Err    error
}

// StreamPages fetches pages in the background and delivers them on a
// channel. The channel is closed after the last page or the first error;
// cancelling ctx stops the stream.
func StreamPages[T any](ctx context.Context, fetch PageFetcher[T], opts *PaginationOptions) <-chan PageResult[T] {
	pageSize := constants.DefaultPageSize
	if opts != nil && opts.PageSize > 0 {
		pageSize = opts.PageSize
	}

	results := make(chan PageResult[T], constants.SmallBufferSize)

	go func() {
		defer close(results)

		after := ""

		for {
			result, err := fetch(ctx, after, pageSize)
			if err != nil {
				select {
				case results <- PageResult[T]{Err: err}:
				case <-ctx.Done():
				}

				return
			}

			select {
			case results <- PageResult[T]{Items: result.Data, Cursor: result.Cursor}:
			case <-ctx.Done():
				return
			}

			if !result.Cursor.HasMore() || len(result.Data) == 0 {
				return
			}

			after = result.Cursor.After
		}
	}()

	return results
}
