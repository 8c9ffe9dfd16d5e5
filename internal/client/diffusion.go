package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// DiffusionClient implements conduit.DiffusionClient.
type DiffusionClient struct {
	core *Client
}

// NewDiffusionClient creates a Diffusion client.
func NewDiffusionClient(core *Client) *DiffusionClient {
	return &DiffusionClient{core: core}
}

// SearchRepositories implements conduit.DiffusionClient.SearchRepositories.
func (c *DiffusionClient) SearchRepositories(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.Repository], error) {
	return search[conduit.Repository](ctx, c.core, "diffusion.repository.search", opts)
}

// EditRepository implements conduit.DiffusionClient.EditRepository.
func (c *DiffusionClient) EditRepository(ctx context.Context, objectIdentifier string, transactions []conduit.Transaction) (*conduit.EditResult, error) {
	if objectIdentifier == "" {
		return nil, &conduit.ValidationError{Field: "objectIdentifier", Reason: "object identifier is required"}
	}

	return c.core.edit(ctx, "diffusion.repository.edit", conduit.ResourceRepository, objectIdentifier, transactions)
}

// browseParams builds the common parameter set of the diffusion.*query
// methods. repository accepts a callsign, short name, or PHID; commit is
// optional and defaults to the repository head.
func browseParams(repository, path, commit string) (url.Values, error) {
	if repository == "" {
		return nil, &conduit.ValidationError{Field: "repository", Reason: "repository is required"}
	}

	params := url.Values{}
	params.Set("repository", repository)

	if path != "" {
		params.Set("path", path)
	}

	if commit != "" {
		params.Set("commit", commit)
	}

	return params, nil
}

// Browse implements conduit.DiffusionClient.Browse: a directory listing at
// one path of a repository.
func (c *DiffusionClient) Browse(ctx context.Context, repository, path, commit string) (*conduit.BrowseResult, error) {
	params, err := browseParams(repository, path, commit)
	if err != nil {
		return nil, err
	}

	data, err := c.core.call(ctx, "diffusion.browsequery", params)
	if err != nil {
		return nil, fmt.Errorf("calling diffusion.browsequery: %w", err)
	}

	var result conduit.BrowseResult

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing diffusion.browsequery result: %w", err)
	}

	return &result, nil
}

// FileContent implements conduit.DiffusionClient.FileContent. The result is
// a reference to a file object; the bytes themselves come from
// file.download.
func (c *DiffusionClient) FileContent(ctx context.Context, repository, path, commit string) (*conduit.FileContentRef, error) {
	if path == "" {
		return nil, &conduit.ValidationError{Field: "path", Reason: "path is required"}
	}

	params, err := browseParams(repository, path, commit)
	if err != nil {
		return nil, err
	}

	data, err := c.core.call(ctx, "diffusion.filecontentquery", params)
	if err != nil {
		return nil, fmt.Errorf("calling diffusion.filecontentquery: %w", err)
	}

	var ref conduit.FileContentRef

	err = json.Unmarshal(data, &ref)
	if err != nil {
		return nil, fmt.Errorf("parsing diffusion.filecontentquery result: %w", err)
	}

	return &ref, nil
}

// GetFileContent implements conduit.DiffusionClient.GetFileContent. It
// chains filecontentquery and file.download, then bounds the text to budget
// bytes. budget zero selects the client default; negative disables shaping.
func (c *DiffusionClient) GetFileContent(ctx context.Context, repository, path, commit string, budget int) (*conduit.ShapedText, error) {
	ref, err := c.FileContent(ctx, repository, path, commit)
	if err != nil {
		return nil, err
	}

	if ref.TooHuge {
		return nil, &conduit.RemoteError{
			StatusCode: 413,
			Info:       fmt.Sprintf("%s is too large for the remote to materialize", path),
		}
	}

	if ref.TooSlow || ref.FilePHID == "" {
		return nil, &conduit.RemoteError{
			StatusCode: 503,
			Info:       fmt.Sprintf("the remote declined to materialize %s; retry later", path),
		}
	}

	content, err := c.core.downloadFile(ctx, ref.FilePHID)
	if err != nil {
		return nil, err
	}

	if budget == 0 {
		budget = c.core.textBudget
	}

	shaped := conduit.ShapeText(string(content), budget)

	return &shaped, nil
}
