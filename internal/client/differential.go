package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// DifferentialClient implements conduit.DifferentialClient.
type DifferentialClient struct {
	core *Client
}

// NewDifferentialClient creates a Differential client.
func NewDifferentialClient(core *Client) *DifferentialClient {
	return &DifferentialClient{core: core}
}

// SearchRevisions implements conduit.DifferentialClient.SearchRevisions.
func (c *DifferentialClient) SearchRevisions(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.Revision], error) {
	return search[conduit.Revision](ctx, c.core, "differential.revision.search", opts)
}

// GetRevision implements conduit.DifferentialClient.GetRevision.
func (c *DifferentialClient) GetRevision(ctx context.Context, revisionID int) (*conduit.Revision, error) {
	if revisionID <= 0 {
		return nil, &conduit.ValidationError{Field: "revision", Reason: "revision ID must be positive"}
	}

	result, err := search[conduit.Revision](ctx, c.core, "differential.revision.search", &conduit.SearchOptions{
		Constraints: map[string]any{"ids": []int{revisionID}},
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, &conduit.RemoteError{
			StatusCode: 404,
			Info:       fmt.Sprintf("revision D%d does not exist or is not visible", revisionID),
		}
	}

	return &result.Data[0], nil
}

// EditRevision implements conduit.DifferentialClient.EditRevision.
func (c *DifferentialClient) EditRevision(ctx context.Context, objectIdentifier string, transactions []conduit.Transaction) (*conduit.EditResult, error) {
	if objectIdentifier == "" {
		return nil, &conduit.ValidationError{Field: "objectIdentifier", Reason: "object identifier is required"}
	}

	return c.core.edit(ctx, "differential.revision.edit", conduit.ResourceRevision, objectIdentifier, transactions)
}

// AddComment implements conduit.DifferentialClient.AddComment as a
// single-transaction revision edit.
func (c *DifferentialClient) AddComment(ctx context.Context, objectIdentifier string, comment string) (*conduit.EditResult, error) {
	if comment == "" {
		return nil, &conduit.ValidationError{Field: "comment", Reason: "comment text is required"}
	}

	return c.EditRevision(ctx, objectIdentifier, []conduit.Transaction{
		{Type: "comment", Value: comment},
	})
}

// SearchDiffs implements conduit.DifferentialClient.SearchDiffs.
func (c *DifferentialClient) SearchDiffs(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.Diff], error) {
	return search[conduit.Diff](ctx, c.core, "differential.diff.search", opts)
}

// GetRawDiff implements conduit.DifferentialClient.GetRawDiff. The result is
// the unified diff text for one diff ID.
func (c *DifferentialClient) GetRawDiff(ctx context.Context, diffID int) (string, error) {
	if diffID <= 0 {
		return "", &conduit.ValidationError{Field: "diff", Reason: "diff ID must be positive"}
	}

	params := url.Values{}
	params.Set("diffID", strconv.Itoa(diffID))

	data, err := c.core.call(ctx, "differential.getrawdiff", params)
	if err != nil {
		return "", fmt.Errorf("calling differential.getrawdiff: %w", err)
	}

	var raw string

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return "", fmt.Errorf("parsing differential.getrawdiff result: %w", err)
	}

	return raw, nil
}
