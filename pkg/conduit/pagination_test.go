package conduit_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// fakePages serves a fixed item count in cursor pages and counts requests.
type fakePages struct {
	total    int
	requests int
}

func (f *fakePages) fetch(_ context.Context, after string, limit int) (*conduit.SearchResult[int], error) {
	f.requests++

	start := 0
	if after != "" {
		parsed, err := strconv.Atoi(after)
		if err != nil {
			return nil, err
		}

		start = parsed
	}

	if limit <= 0 {
		limit = 100
	}

	end := start + limit
	if end > f.total {
		end = f.total
	}

	items := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, i)
	}

	cursor := conduit.Cursor{Limit: limit}
	if end < f.total {
		cursor.After = strconv.Itoa(end)
	}

	return &conduit.SearchResult[int]{Data: items, Cursor: cursor}, nil
}

func TestCursorIteratorWalksAllPages(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 7}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 3})

	var items []int

	for it.HasNext() {
		item, err := it.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, items)
	assert.Equal(t, 3, server.requests)

	_, err := it.Next()
	assert.ErrorIs(t, err, conduit.ErrNoMoreItems)
}

func TestCursorIteratorLimitBoundsRequests(t *testing.T) {
	t.Parallel()

	// Limit 10 with page size 5 issues exactly two requests, never a third.
	server := &fakePages{total: 100}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{
		PageSize: 5,
		Limit:    10,
	})

	var items []int

	for it.HasNext() {
		item, err := it.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	assert.Len(t, items, 10)
	assert.Equal(t, 2, server.requests)
}

func TestCursorIteratorLimitShrinksLastPage(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 100}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{
		PageSize: 5,
		Limit:    7,
	})

	items, err := it.All(0)
	require.NoError(t, err)

	assert.Len(t, items, 7)
	assert.Equal(t, 2, server.requests)
}

func TestCursorIteratorForEach(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 4}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 2})

	var sum int

	err := it.ForEach(func(item int) error {
		sum += item

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

func TestCursorIteratorForEachStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 10}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 5})

	stop := errors.New("stop")

	var seen int

	err := it.ForEach(func(int) error {
		seen++
		if seen == 3 {
			return stop
		}

		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, seen)
}

func TestCursorIteratorPropagatesFetchError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("boom")
	fetch := func(context.Context, string, int) (*conduit.SearchResult[int], error) {
		return nil, fetchErr
	}

	it := conduit.NewCursorIterator(context.Background(), fetch, nil)

	require.True(t, it.HasNext())

	_, err := it.Next()
	assert.ErrorIs(t, err, fetchErr)
}

func TestAllEnforcesCap(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 50}
	it := conduit.NewCursorIterator(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 10})

	_, err := it.All(25)

	var tooLarge *conduit.ResultTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 25, tooLarge.Cap)
}

func TestFetchAllPages(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 12}

	items, err := conduit.FetchAllPages(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, items, 12)
}

func TestStreamPages(t *testing.T) {
	t.Parallel()

	server := &fakePages{total: 7}

	var (
		pages int
		items []int
	)

	for page := range conduit.StreamPages(context.Background(), server.fetch, &conduit.PaginationOptions{PageSize: 3}) {
		require.NoError(t, page.Err)

		pages++
		items = append(items, page.Items...)
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, items, 7)
}

func TestStreamPagesDeliversError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("boom")
	fetch := func(context.Context, string, int) (*conduit.SearchResult[int], error) {
		return nil, fetchErr
	}

	var last conduit.PageResult[int]

	for page := range conduit.StreamPages(context.Background(), fetch, nil) {
		last = page
	}

	assert.ErrorIs(t, last.Err, fetchErr)
}

func TestStreamPagesHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	server := &fakePages{total: 1000}
	stream := conduit.StreamPages(ctx, server.fetch, &conduit.PaginationOptions{PageSize: 1})

	<-stream
	cancel()

	// The stream closes promptly after cancellation.
	for range stream { //nolint:revive // draining until close
	}
}
