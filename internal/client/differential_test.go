package client

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func revisionResult(id int, title, status string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "DREV",
		"phid": "PHID-DREV-" + title,
		"fields": map[string]any{
			"title":      title,
			"authorPHID": "PHID-USER-author",
			"status":     map[string]any{"value": status, "name": status},
		},
	}
}

func TestDifferentialSearchRevisions(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("differential.revision.search", func(form url.Values) (any, string, string) {
		assert.Equal(t, "needs-review", form.Get("constraints[statuses][0]"))

		return searchEnvelope([]any{revisionResult(10, "fix crash", "needs-review")}, ""), "", ""
	})

	client := newTestClient(t, fake)

	result, err := client.Differential().SearchRevisions(context.Background(), &conduit.SearchOptions{
		Constraints: map[string]any{"statuses": []string{"needs-review"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "fix crash", result.Data[0].Fields.Title)
}

func TestDifferentialGetRevision(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("differential.revision.search", func(form url.Values) (any, string, string) {
		assert.Equal(t, "456", form.Get("constraints[ids][0]"))

		return searchEnvelope([]any{revisionResult(456, "target", "accepted")}, ""), "", ""
	})

	client := newTestClient(t, fake)

	revision, err := client.Differential().GetRevision(context.Background(), 456)
	require.NoError(t, err)
	assert.Equal(t, 456, revision.ID)
}

func TestDifferentialGetRevisionNotFound(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("differential.revision.search", searchEnvelope(nil, ""))

	client := newTestClient(t, fake)

	_, err := client.Differential().GetRevision(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, conduit.IsNotFound(err))
}

func TestDifferentialAddComment(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("differential.revision.edit", func(form url.Values) (any, string, string) {
		assert.Equal(t, "D456", form.Get("objectIdentifier"))
		assert.Equal(t, "comment", form.Get("transactions[0][type]"))
		assert.Equal(t, "Looks good.", form.Get("transactions[0][value]"))

		return editEnvelope(456, "PHID-DREV-x"), "", ""
	})

	client := newTestClient(t, fake)

	_, err := client.Differential().AddComment(context.Background(), "D456", "Looks good.")
	require.NoError(t, err)
}

func TestDifferentialAddCommentRequiresText(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	client := newTestClient(t, fake)

	_, err := client.Differential().AddComment(context.Background(), "D456", "")
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestDifferentialEditRevisionAccept(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("differential.revision.edit", func(form url.Values) (any, string, string) {
		assert.Equal(t, "accept", form.Get("transactions[0][type]"))

		return editEnvelope(456, "PHID-DREV-x"), "", ""
	})

	client := newTestClient(t, fake)

	_, err := client.Differential().EditRevision(context.Background(), "D456", []conduit.Transaction{
		{Type: "accept", Value: true},
	})
	require.NoError(t, err)
}

func TestDifferentialEditInvalidatesRevisionCache(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("differential.revision.search", searchEnvelope([]any{revisionResult(1, "r", "needs-review")}, ""))
	fake.result("differential.revision.edit", editEnvelope(1, "PHID-DREV-r"))

	client := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.Differential().SearchRevisions(ctx, nil)
	require.NoError(t, err)

	_, err = client.Differential().SearchRevisions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount("differential.revision.search"))

	_, err = client.Differential().EditRevision(ctx, "D1", []conduit.Transaction{{Type: "abandon", Value: true}})
	require.NoError(t, err)

	_, err = client.Differential().SearchRevisions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.callCount("differential.revision.search"))
}

func TestDifferentialGetRawDiff(t *testing.T) {
	t.Parallel()

	const rawDiff = "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n"

	fake := newFakeConduit(t)
	fake.on("differential.getrawdiff", func(form url.Values) (any, string, string) {
		assert.Equal(t, "42", form.Get("diffID"))

		return rawDiff, "", ""
	})

	client := newTestClient(t, fake)

	diff, err := client.Differential().GetRawDiff(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, rawDiff, diff)

	// Raw diffs are immutable per diff ID and served from cache on repeat.
	_, err = client.Differential().GetRawDiff(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount("differential.getrawdiff"))
}

func TestDifferentialSearchDiffs(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("differential.diff.search", searchEnvelope([]any{
		map[string]any{
			"id":   7,
			"type": "DIFF",
			"phid": "PHID-DIFF-7",
			"fields": map[string]any{
				"revisionPHID": "PHID-DREV-x",
				"authorPHID":   "PHID-USER-author",
			},
		},
	}, ""))

	client := newTestClient(t, fake)

	result, err := client.Differential().SearchDiffs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, conduit.PHID("PHID-DREV-x"), result.Data[0].Fields.RevisionPHID)
}
