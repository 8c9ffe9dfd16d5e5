package conduit

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// The token-budget shaper bounds response payloads for callers with
// constrained context windows. Shaping is deterministic: the same payload
// and budget always produce the same truncation point, cut at an item or
// line boundary, never mid-unit. Truncated results carry a continuation
// marker that resumes at exactly the next untruncated unit.

// ShapedList is a list payload after shaping.
type ShapedList[T any] struct {
	Items []T `json:"items" yaml:"items"`

	// Truncated reports whether items were dropped to fit the budget.
	Truncated bool `json:"truncated" yaml:"truncated"`

	// Continuation is the index of the first item not included. Resume
	// by shaping the original list starting at this index.
	Continuation int `json:"continuation,omitempty" yaml:"continuation,omitempty"`

	// Total is the length of the unshaped list.
	Total int `json:"total" yaml:"total"`

	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ShapeItems bounds a list to at most budget items. budget <= 0 disables
// shaping.
func ShapeItems[T any](items []T, budget int) ShapedList[T] {
	if budget <= 0 || len(items) <= budget {
		return ShapedList[T]{Items: items, Total: len(items)}
	}

	remaining := len(items) - budget

	return ShapedList[T]{
		Items:        items[:budget],
		Truncated:    true,
		Continuation: budget,
		Total:        len(items),
		Suggestion:   fmt.Sprintf("Result truncated to %d items; %d remaining. Resume from index %d or narrow the search constraints.", budget, remaining, budget),
	}
}

// ShapeItemsFrom resumes a shaped list at offset, yielding the next budget
// items. Successive calls with the returned Continuation cover the list
// with no duplication or gap.
func ShapeItemsFrom[T any](items []T, offset, budget int) ShapedList[T] {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(items) {
		return ShapedList[T]{Items: nil, Total: len(items)}
	}

	shaped := ShapeItems(items[offset:], budget)
	if shaped.Truncated {
		shaped.Continuation += offset
		shaped.Suggestion = fmt.Sprintf("Result truncated; resume from index %d.", shaped.Continuation)
	}

	shaped.Total = len(items)

	return shaped
}

// ShapeRawItems bounds a list of encoded items to maxBytes of payload,
// cutting at an item boundary. The first item is always included even when
// it alone exceeds the budget, so progress is guaranteed.
func ShapeRawItems(items []json.RawMessage, maxBytes int) ShapedList[json.RawMessage] {
	if maxBytes <= 0 {
		return ShapedList[json.RawMessage]{Items: items, Total: len(items)}
	}

	size := 0
	count := 0

	for _, item := range items {
		if count > 0 && size+len(item) > maxBytes {
			break
		}

		size += len(item)
		count++
	}

	if count >= len(items) {
		return ShapedList[json.RawMessage]{Items: items, Total: len(items)}
	}

	return ShapedList[json.RawMessage]{
		Items:        items[:count],
		Truncated:    true,
		Continuation: count,
		Total:        len(items),
		Suggestion:   fmt.Sprintf("Payload truncated at %d of %d items to fit %d bytes; resume from index %d.", count, len(items), maxBytes, count),
	}
}

// ShapedText is a text payload after shaping.
type ShapedText struct {
	Content string `json:"content" yaml:"content"`

	Truncated bool `json:"truncated" yaml:"truncated"`

	// Continuation is the byte offset of the first byte not included.
	Continuation int `json:"continuation,omitempty" yaml:"continuation,omitempty"`

	OriginalLength  int `json:"original_length"            yaml:"original_length"`
	RemainingLength int `json:"remaining_length,omitempty" yaml:"remaining_length,omitempty"`

	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ShapeText bounds text to at most budget bytes, cutting at the last line
// boundary within the budget, or at a rune boundary when no newline fits.
// budget <= 0 disables shaping.
func ShapeText(text string, budget int) ShapedText {
	return ShapeTextFrom(text, 0, budget)
}

// ShapeTextFrom resumes shaped text at a byte offset returned as a prior
// Continuation. Successive calls cover the text with no duplication or gap.
func ShapeTextFrom(text string, offset, budget int) ShapedText {
	if offset < 0 {
		offset = 0
	}

	if offset > len(text) {
		offset = len(text)
	}

	rest := text[offset:]

	if budget <= 0 || len(rest) <= budget {
		return ShapedText{
			Content:        rest,
			OriginalLength: len(text),
		}
	}

	cut := truncationPoint(rest, budget)
	remaining := len(rest) - cut

	return ShapedText{
		Content:         rest[:cut],
		Truncated:       true,
		Continuation:    offset + cut,
		OriginalLength:  len(text),
		RemainingLength: remaining,
		Suggestion:      fmt.Sprintf("Content truncated; %d bytes remaining. Request again from offset %d.", remaining, offset+cut),
	}
}

// truncationPoint returns the largest cut <= budget that ends on a line
// boundary, falling back to a rune boundary. Always positive so shaping
// makes progress.
func truncationPoint(text string, budget int) int {
	window := text[:budget]

	if idx := strings.LastIndexByte(window, '\n'); idx > 0 {
		return idx + 1
	}

	cut := budget
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	if cut == 0 {
		// A single rune wider than the budget; emit it whole.
		_, width := utf8.DecodeRuneInString(text)

		return width
	}

	return cut
}
