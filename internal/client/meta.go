package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/phorge-tools/conduit-client/internal/constants"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// MetaClient implements conduit.MetaClient.
type MetaClient struct {
	core *Client
}

// NewMetaClient creates a Meta client.
func NewMetaClient(core *Client) *MetaClient {
	return &MetaClient{core: core}
}

// Ping implements conduit.MetaClient.Ping and returns the server hostname.
func (c *MetaClient) Ping(ctx context.Context) (string, error) {
	data, err := c.core.call(ctx, "conduit.ping", nil)
	if err != nil {
		return "", fmt.Errorf("calling conduit.ping: %w", err)
	}

	var hostname string

	err = json.Unmarshal(data, &hostname)
	if err != nil {
		return "", fmt.Errorf("parsing conduit.ping result: %w", err)
	}

	return hostname, nil
}

// GetCapabilities implements conduit.MetaClient.GetCapabilities.
func (c *MetaClient) GetCapabilities(ctx context.Context) (*conduit.Capabilities, error) {
	data, err := c.core.call(ctx, "conduit.getcapabilities", nil)
	if err != nil {
		return nil, fmt.Errorf("calling conduit.getcapabilities: %w", err)
	}

	var capabilities conduit.Capabilities

	err = json.Unmarshal(data, &capabilities)
	if err != nil {
		return nil, fmt.Errorf("parsing conduit.getcapabilities result: %w", err)
	}

	return &capabilities, nil
}

// ConnectStatus implements conduit.MetaClient.ConnectStatus. Token-based
// transports have no session to establish, so this doubles as a credential
// and reachability probe.
func (c *MetaClient) ConnectStatus(ctx context.Context) (*conduit.ConnectStatus, error) {
	params := url.Values{}
	params.Set("client", constants.ClientName)
	params.Set("clientVersion", constants.ClientVersion)

	data, err := c.core.callDirect(ctx, "conduit.connect", params)
	if err != nil {
		return nil, fmt.Errorf("calling conduit.connect: %w", err)
	}

	var status conduit.ConnectStatus

	err = json.Unmarshal(data, &status)
	if err != nil {
		return nil, fmt.Errorf("parsing conduit.connect result: %w", err)
	}

	return &status, nil
}

// QueryMethods implements conduit.MetaClient.QueryMethods: the method
// catalog the server exposes, keyed by method name.
func (c *MetaClient) QueryMethods(ctx context.Context) (map[string]any, error) {
	data, err := c.core.call(ctx, "conduit.query", nil)
	if err != nil {
		return nil, fmt.Errorf("calling conduit.query: %w", err)
	}

	var methods map[string]any

	err = json.Unmarshal(data, &methods)
	if err != nil {
		return nil, fmt.Errorf("parsing conduit.query result: %w", err)
	}

	return methods, nil
}
