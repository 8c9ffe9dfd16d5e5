package conduit_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func TestShapeItems(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5}

	shaped := conduit.ShapeItems(items, 3)
	assert.Equal(t, []int{1, 2, 3}, shaped.Items)
	assert.True(t, shaped.Truncated)
	assert.Equal(t, 3, shaped.Continuation)
	assert.Equal(t, 5, shaped.Total)
	assert.NotEmpty(t, shaped.Suggestion)

	// Identical input and budget always produce the same cut.
	again := conduit.ShapeItems(items, 3)
	assert.Equal(t, shaped.Items, again.Items)
	assert.Equal(t, shaped.Continuation, again.Continuation)
}

func TestShapeItemsWithinBudget(t *testing.T) {
	t.Parallel()

	shaped := conduit.ShapeItems([]string{"a", "b"}, 10)
	assert.False(t, shaped.Truncated)
	assert.Equal(t, []string{"a", "b"}, shaped.Items)
	assert.Empty(t, shaped.Suggestion)
}

func TestShapeItemsDisabled(t *testing.T) {
	t.Parallel()

	shaped := conduit.ShapeItems([]int{1, 2, 3}, 0)
	assert.False(t, shaped.Truncated)
	assert.Len(t, shaped.Items, 3)
}

func TestShapeItemsFromCoversWithoutGapOrDuplicate(t *testing.T) {
	t.Parallel()

	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	var collected []int

	offset := 0
	for {
		shaped := conduit.ShapeItemsFrom(items, offset, 3)
		collected = append(collected, shaped.Items...)

		if !shaped.Truncated {
			break
		}

		offset = shaped.Continuation
	}

	assert.Equal(t, items, collected)
}

func TestShapeRawItemsByteBudget(t *testing.T) {
	t.Parallel()

	items := []json.RawMessage{
		json.RawMessage(`{"id":1}`),
		json.RawMessage(`{"id":2}`),
		json.RawMessage(`{"id":3}`),
	}

	shaped := conduit.ShapeRawItems(items, 17)
	assert.True(t, shaped.Truncated)
	assert.Len(t, shaped.Items, 2)
	assert.Equal(t, 2, shaped.Continuation)
}

func TestShapeRawItemsFirstItemAlwaysIncluded(t *testing.T) {
	t.Parallel()

	items := []json.RawMessage{json.RawMessage(`{"huge":"` + strings.Repeat("x", 100) + `"}`)}

	shaped := conduit.ShapeRawItems(items, 10)
	assert.Len(t, shaped.Items, 1)
	assert.False(t, shaped.Truncated)
}

func TestShapeTextLineBoundary(t *testing.T) {
	t.Parallel()

	text := "line one\nline two\nline three\n"

	shaped := conduit.ShapeText(text, 20)
	require.True(t, shaped.Truncated)
	assert.Equal(t, "line one\nline two\n", shaped.Content)
	assert.Equal(t, len("line one\nline two\n"), shaped.Continuation)
	assert.Equal(t, len(text), shaped.OriginalLength)
	assert.Equal(t, len(text)-shaped.Continuation, shaped.RemainingLength)
}

func TestShapeTextRuneBoundary(t *testing.T) {
	t.Parallel()

	// No newline within budget; the cut must not split a multi-byte rune.
	text := strings.Repeat("é", 10)

	shaped := conduit.ShapeText(text, 5)
	require.True(t, shaped.Truncated)
	assert.Equal(t, "éé", shaped.Content)
	assert.Equal(t, 4, shaped.Continuation)
}

func TestShapeTextResumesWithoutGap(t *testing.T) {
	t.Parallel()

	text := "alpha\nbeta\ngamma\ndelta\n"

	var rebuilt strings.Builder

	offset := 0
	for {
		shaped := conduit.ShapeTextFrom(text, offset, 8)
		rebuilt.WriteString(shaped.Content)

		if !shaped.Truncated {
			break
		}

		offset = shaped.Continuation
	}

	assert.Equal(t, text, rebuilt.String())
}

func TestShapeTextWithinBudget(t *testing.T) {
	t.Parallel()

	shaped := conduit.ShapeText("short", 100)
	assert.False(t, shaped.Truncated)
	assert.Equal(t, "short", shaped.Content)
	assert.Zero(t, shaped.Continuation)
}

func TestShapeTextProgressOnOversizedRune(t *testing.T) {
	t.Parallel()

	shaped := conduit.ShapeText("世界", 1)
	require.True(t, shaped.Truncated)
	assert.Equal(t, "世", shaped.Content)
	assert.Equal(t, 3, shaped.Continuation)
}
