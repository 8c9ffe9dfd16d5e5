package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// FilesClient implements conduit.FilesClient.
type FilesClient struct {
	core *Client
}

// NewFilesClient creates a Files client.
func NewFilesClient(core *Client) *FilesClient {
	return &FilesClient{core: core}
}

// SearchFiles implements conduit.FilesClient.SearchFiles.
func (c *FilesClient) SearchFiles(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.File], error) {
	return search[conduit.File](ctx, c.core, "file.search", opts)
}

// GetFileInfo implements conduit.FilesClient.GetFileInfo. It resolves a
// single file by PHID through file.search.
func (c *FilesClient) GetFileInfo(ctx context.Context, filePHID conduit.PHID) (*conduit.File, error) {
	if filePHID == "" {
		return nil, &conduit.ValidationError{Field: "filePHID", Reason: "file PHID is required"}
	}

	result, err := search[conduit.File](ctx, c.core, "file.search", &conduit.SearchOptions{
		Constraints: map[string]any{"phids": []string{string(filePHID)}},
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, &conduit.RemoteError{
			StatusCode: 404,
			Info:       fmt.Sprintf("file %s does not exist or is not visible", filePHID),
		}
	}

	return &result.Data[0], nil
}

// Download implements conduit.FilesClient.Download.
func (c *FilesClient) Download(ctx context.Context, filePHID conduit.PHID) ([]byte, error) {
	return c.core.downloadFile(ctx, filePHID)
}

// Upload implements conduit.FilesClient.Upload. The payload travels
// base64-encoded in the form body; the result is the PHID of the stored
// file.
func (c *FilesClient) Upload(ctx context.Context, name string, data []byte, viewPolicy string) (conduit.PHID, error) {
	if len(data) == 0 {
		return "", &conduit.ValidationError{Field: "data", Reason: "upload data is required"}
	}

	params := url.Values{}
	params.Set("data_base64", base64.StdEncoding.EncodeToString(data))

	if name != "" {
		params.Set("name", name)
	}

	if viewPolicy != "" {
		params.Set("viewPolicy", viewPolicy)
	}

	result, err := c.core.mutate(ctx, "file.upload", params)
	if err != nil {
		return "", fmt.Errorf("calling file.upload: %w", err)
	}

	var phid conduit.PHID

	err = json.Unmarshal(result, &phid)
	if err != nil {
		return "", fmt.Errorf("parsing file.upload result: %w", err)
	}

	return phid, nil
}

// downloadFile fetches file bytes by PHID. Conduit transports them as a
// base64 string in the result. Downloads bypass the cache: the payloads are
// large and already content-addressed upstream.
func (c *Client) downloadFile(ctx context.Context, filePHID conduit.PHID) ([]byte, error) {
	if filePHID == "" {
		return nil, &conduit.ValidationError{Field: "filePHID", Reason: "file PHID is required"}
	}

	params := url.Values{}
	params.Set("phid", string(filePHID))

	data, err := c.call(ctx, "file.download", params)
	if err != nil {
		return nil, fmt.Errorf("calling file.download: %w", err)
	}

	var encoded string

	err = json.Unmarshal(data, &encoded)
	if err != nil {
		return nil, fmt.Errorf("parsing file.download result: %w", err)
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding file content: %w", err)
	}

	return content, nil
}
