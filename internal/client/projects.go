package client

import (
	"context"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// ProjectsClient implements conduit.ProjectsClient.
type ProjectsClient struct {
	core *Client
}

// NewProjectsClient creates a Projects client.
func NewProjectsClient(core *Client) *ProjectsClient {
	return &ProjectsClient{core: core}
}

// SearchProjects implements conduit.ProjectsClient.SearchProjects.
func (c *ProjectsClient) SearchProjects(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.Project], error) {
	return search[conduit.Project](ctx, c.core, "project.search", opts)
}

// EditProject implements conduit.ProjectsClient.EditProject. An empty
// objectIdentifier creates a new project.
func (c *ProjectsClient) EditProject(ctx context.Context, objectIdentifier string, transactions []conduit.Transaction) (*conduit.EditResult, error) {
	return c.core.edit(ctx, "project.edit", conduit.ResourceProject, objectIdentifier, transactions)
}
