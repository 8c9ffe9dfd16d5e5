package conduit_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func TestBuildSearchParams(t *testing.T) {
	t.Parallel()

	opts := &conduit.SearchOptions{
		QueryKey: "open",
		Constraints: map[string]any{
			"statuses":  []string{"open", "stalled"},
			"assigned":  []string{"PHID-USER-abc"},
			"createdStart": 1700000000,
		},
		Attachments: map[string]bool{"projects": true},
		Order:       "newest",
		After:       "cursor-42",
		Limit:       25,
	}

	params := conduit.BuildSearchParams(opts)

	assert.Equal(t, "25", params.Get("limit"))
	assert.Equal(t, "open", params.Get("queryKey"))
	assert.Equal(t, "newest", params.Get("order"))
	assert.Equal(t, "cursor-42", params.Get("after"))
	assert.Equal(t, "open", params.Get("constraints[statuses][0]"))
	assert.Equal(t, "stalled", params.Get("constraints[statuses][1]"))
	assert.Equal(t, "PHID-USER-abc", params.Get("constraints[assigned][0]"))
	assert.Equal(t, "1700000000", params.Get("constraints[createdStart]"))
	assert.Equal(t, "1", params.Get("attachments[projects]"))
}

func TestBuildSearchParamsNil(t *testing.T) {
	t.Parallel()

	params := conduit.BuildSearchParams(nil)
	assert.Empty(t, params)
}

func TestBuildTransactionParamsPreservesOrder(t *testing.T) {
	t.Parallel()

	transactions := []conduit.Transaction{
		{Type: "status", Value: "resolved"},
		{Type: "comment", Value: "Fixed in D456."},
		{Type: "projects.add", Value: []string{"PHID-PROJ-x"}},
	}

	params := conduit.BuildTransactionParams("T123", transactions)

	assert.Equal(t, "T123", params.Get("objectIdentifier"))
	assert.Equal(t, "status", params.Get("transactions[0][type]"))
	assert.Equal(t, "resolved", params.Get("transactions[0][value]"))
	assert.Equal(t, "comment", params.Get("transactions[1][type]"))
	assert.Equal(t, "Fixed in D456.", params.Get("transactions[1][value]"))
	assert.Equal(t, "projects.add", params.Get("transactions[2][type]"))
	assert.Equal(t, "PHID-PROJ-x", params.Get("transactions[2][value][0]"))
}

func TestBuildTransactionParamsCreate(t *testing.T) {
	t.Parallel()

	params := conduit.BuildTransactionParams("", []conduit.Transaction{
		{Type: "title", Value: "New task"},
	})

	assert.Empty(t, params.Get("objectIdentifier"))
	assert.Equal(t, "New task", params.Get("transactions[0][value]"))
}

func TestFlattenParamsNested(t *testing.T) {
	t.Parallel()

	params := conduit.FlattenParams(map[string]any{
		"bool":  true,
		"inner": map[string]any{"list": []int{1, 2}},
	}, "constraints")

	assert.Equal(t, "1", params.Get("constraints[bool]"))
	assert.Equal(t, "1", params.Get("constraints[inner][list][0]"))
	assert.Equal(t, "2", params.Get("constraints[inner][list][1]"))
}

func TestFingerprintStability(t *testing.T) {
	t.Parallel()

	// Equivalent parameter sets built in different insertion orders must
	// produce identical fingerprints.
	first := url.Values{}
	first.Set("constraints[statuses][0]", "open")
	first.Set("limit", "10")

	second := url.Values{}
	second.Set("limit", "10")
	second.Set("constraints[statuses][0]", "open")

	digest := conduit.CredentialDigest("api-abcdefghijklmnopqrstuvwxyz12")

	keyA := conduit.Fingerprint("maniphest.search", first, digest)
	keyB := conduit.Fingerprint("maniphest.search", second, digest)
	require.Equal(t, keyA, keyB)

	// The method leads the key so namespace invalidation can match by
	// prefix.
	assert.Contains(t, keyA, "maniphest.search:")
}

func TestFingerprintDiscriminates(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("limit", "10")

	base := conduit.Fingerprint("maniphest.search", params, "digest-a")

	otherMethod := conduit.Fingerprint("project.search", params, "digest-a")
	assert.NotEqual(t, base, otherMethod)

	otherTenant := conduit.Fingerprint("maniphest.search", params, "digest-b")
	assert.NotEqual(t, base, otherTenant)

	changed := url.Values{}
	changed.Set("limit", "20")
	otherParams := conduit.Fingerprint("maniphest.search", changed, "digest-a")
	assert.NotEqual(t, base, otherParams)
}

func TestCredentialDigest(t *testing.T) {
	t.Parallel()

	digest := conduit.CredentialDigest("api-abcdefghijklmnopqrstuvwxyz12")
	assert.Len(t, digest, 16)
	assert.NotContains(t, digest, "api-")

	assert.Equal(t, "anonymous", conduit.CredentialDigest(""))
}
