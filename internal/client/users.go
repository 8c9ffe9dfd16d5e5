package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// UsersClient implements conduit.UsersClient.
type UsersClient struct {
	core *Client
}

// NewUsersClient creates a Users client.
func NewUsersClient(core *Client) *UsersClient {
	return &UsersClient{core: core}
}

// SearchUsers implements conduit.UsersClient.SearchUsers.
func (c *UsersClient) SearchUsers(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.User], error) {
	return search[conduit.User](ctx, c.core, "user.search", opts)
}

// Whoami implements conduit.UsersClient.Whoami: the identity behind the
// current credential.
func (c *UsersClient) Whoami(ctx context.Context) (*conduit.Whoami, error) {
	data, err := c.core.call(ctx, "user.whoami", nil)
	if err != nil {
		return nil, fmt.Errorf("calling user.whoami: %w", err)
	}

	var who conduit.Whoami

	err = json.Unmarshal(data, &who)
	if err != nil {
		return nil, fmt.Errorf("parsing user.whoami result: %w", err)
	}

	return &who, nil
}
