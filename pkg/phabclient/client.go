// Package phabclient provides the main entry point for creating Conduit API clients.
package phabclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/phorge-tools/conduit-client/internal/auth"
	"github.com/phorge-tools/conduit-client/internal/client"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// New creates a new Conduit API client from config.
func New(ctx context.Context, config *conduit.Config) (conduit.Client, error) {
	if config == nil {
		return nil, conduit.ErrConfigRequired
	}

	config.APIURL = normalizeEndpoint(config.APIURL)

	if config.SkipTLSVerify && !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set CONDUIT_DEV_MODE=true)", conduit.ErrSkipTLSOnlyInDev)
	}

	client, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// normalizeEndpoint fills in the conventional scheme and API path so callers
// can pass a bare install hostname.
func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return endpoint
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	// Conduit methods live under /api/ on every install.
	trimmed := strings.TrimSuffix(endpoint, "/")
	if !strings.HasSuffix(trimmed, "/api") {
		trimmed += "/api"
	}

	return trimmed + "/"
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv("CONDUIT_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

// NewWithEndpoint creates a new client with just an endpoint. Each call must
// then carry its own credential via conduit.WithToken.
func NewWithEndpoint(ctx context.Context, endpoint string) (conduit.Client, error) {
	return New(ctx, &conduit.Config{
		APIURL: endpoint,
	})
}

// NewWithToken creates a new client with an endpoint and a fixed API token.
func NewWithToken(ctx context.Context, endpoint, token string) (conduit.Client, error) {
	return New(ctx, &conduit.Config{
		APIURL: endpoint,
		Token:  token,
	})
}

// NewFromArcRC creates a new client using the credential arcanist stored for
// the endpoint in ~/.arcrc (or arcRCPath when non-empty).
func NewFromArcRC(ctx context.Context, endpoint, arcRCPath string) (conduit.Client, error) {
	apiURL := normalizeEndpoint(endpoint)

	provider, err := auth.NewArcRCProvider(arcRCPath, apiURL)
	if err != nil {
		return nil, err
	}

	token, err := provider.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving arcanist credential: %w", err)
	}

	return New(ctx, &conduit.Config{
		APIURL: apiURL,
		Token:  token,
	})
}
