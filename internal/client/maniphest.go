package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// ManiphestClient implements conduit.ManiphestClient.
type ManiphestClient struct {
	core *Client
}

// NewManiphestClient creates a Maniphest client.
func NewManiphestClient(core *Client) *ManiphestClient {
	return &ManiphestClient{core: core}
}

// SearchTasks implements conduit.ManiphestClient.SearchTasks.
func (c *ManiphestClient) SearchTasks(ctx context.Context, opts *conduit.SearchOptions) (*conduit.SearchResult[conduit.Task], error) {
	return search[conduit.Task](ctx, c.core, "maniphest.search", opts)
}

// GetTask implements conduit.ManiphestClient.GetTask. It resolves a single
// task by ID through maniphest.search.
func (c *ManiphestClient) GetTask(ctx context.Context, taskID int) (*conduit.Task, error) {
	if taskID <= 0 {
		return nil, &conduit.ValidationError{Field: "task", Reason: "task ID must be positive"}
	}

	result, err := search[conduit.Task](ctx, c.core, "maniphest.search", &conduit.SearchOptions{
		Constraints: map[string]any{"ids": []int{taskID}},
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, &conduit.RemoteError{
			StatusCode: 404,
			Info:       fmt.Sprintf("task T%d does not exist or is not visible", taskID),
		}
	}

	return &result.Data[0], nil
}

// CreateTask implements conduit.ManiphestClient.CreateTask. The request is
// expressed as an ordered transaction list against maniphest.edit with no
// object identifier, which the remote treats as a create.
func (c *ManiphestClient) CreateTask(ctx context.Context, request *conduit.TaskCreateRequest) (*conduit.EditResult, error) {
	if request == nil || request.Title == "" {
		return nil, &conduit.ValidationError{Field: "title", Reason: "task title is required"}
	}

	transactions := []conduit.Transaction{
		{Type: "title", Value: request.Title},
	}

	if request.Description != "" {
		transactions = append(transactions, conduit.Transaction{Type: "description", Value: request.Description})
	}

	if request.OwnerPHID != "" {
		transactions = append(transactions, conduit.Transaction{Type: "owner", Value: request.OwnerPHID})
	}

	if len(request.CCPHIDs) > 0 {
		transactions = append(transactions, conduit.Transaction{Type: "subscribers.set", Value: request.CCPHIDs})
	}

	if request.Priority != nil {
		transactions = append(transactions, conduit.Transaction{Type: "priority", Value: strconv.Itoa(*request.Priority)})
	}

	if len(request.ProjectPHIDs) > 0 {
		transactions = append(transactions, conduit.Transaction{Type: "projects.set", Value: request.ProjectPHIDs})
	}

	if request.ViewPolicy != "" {
		transactions = append(transactions, conduit.Transaction{Type: "view", Value: request.ViewPolicy})
	}

	if request.EditPolicy != "" {
		transactions = append(transactions, conduit.Transaction{Type: "edit", Value: request.EditPolicy})
	}

	return c.core.edit(ctx, "maniphest.edit", conduit.ResourceTask, "", transactions)
}

// EditTask implements conduit.ManiphestClient.EditTask. objectIdentifier is
// a task ID, T-monogram, or PHID.
func (c *ManiphestClient) EditTask(ctx context.Context, objectIdentifier string, transactions []conduit.Transaction) (*conduit.EditResult, error) {
	if objectIdentifier == "" {
		return nil, &conduit.ValidationError{Field: "objectIdentifier", Reason: "object identifier is required"}
	}

	return c.core.edit(ctx, "maniphest.edit", conduit.ResourceTask, objectIdentifier, transactions)
}
