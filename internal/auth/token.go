// Package auth resolves Conduit API credentials.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// TokenSource supplies the credential for a call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider serves one fixed token.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider for a pre-validated token.
func NewStaticProvider(token string) (*StaticProvider, error) {
	err := conduit.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return &StaticProvider{token: token}, nil
}

// Token returns the configured token.
func (p *StaticProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

// ContextProvider resolves a per-call token from the request context,
// falling back to a base provider. This is how one client instance serves
// multiple tenants: each caller attaches its own credential with
// conduit.WithToken.
type ContextProvider struct {
	fallback TokenSource
}

// NewContextProvider creates a context-first provider. fallback may be nil
// when every call is expected to carry its own credential.
func NewContextProvider(fallback TokenSource) *ContextProvider {
	return &ContextProvider{fallback: fallback}
}

// Token returns the context-scoped token if present, otherwise the fallback
// provider's token.
func (p *ContextProvider) Token(ctx context.Context) (string, error) {
	if token, ok := conduit.TokenFromContext(ctx); ok {
		err := conduit.ValidateToken(token)
		if err != nil {
			return "", err
		}

		return token, nil
	}

	if p.fallback == nil {
		return "", conduit.ErrTokenRequired
	}

	return p.fallback.Token(ctx)
}

// arcRC is the credential file written by arcanist (~/.arcrc): a hosts map
// keyed by normalized API URL.
type arcRC struct {
	Hosts map[string]arcRCHost `json:"hosts"`
}

type arcRCHost struct {
	Token string `json:"token"`
}

// ArcRCProvider reads the token for one API URL from an arcanist credential
// file. The file is re-read on every call so external `arc install-certificate`
// runs take effect without a restart.
type ArcRCProvider struct {
	path   string
	apiURL string
}

// NewArcRCProvider creates a provider for apiURL. path may be empty to use
// the default ~/.arcrc location.
func NewArcRCProvider(path, apiURL string) (*ArcRCProvider, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}

		path = filepath.Join(home, ".arcrc")
	}

	normalized, err := conduit.NormalizeAPIURL(apiURL)
	if err != nil {
		return nil, err
	}

	return &ArcRCProvider{path: path, apiURL: normalized}, nil
}

// Token returns the stored token for the provider's API URL.
func (p *ArcRCProvider) Token(context.Context) (string, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}

	var rc arcRC

	err = json.Unmarshal(raw, &rc)
	if err != nil {
		return "", fmt.Errorf("parsing credential file: %w", err)
	}

	host, ok := rc.Hosts[p.apiURL]
	if !ok || host.Token == "" {
		return "", &conduit.ValidationError{
			Field:  "token",
			Reason: fmt.Sprintf("no credential for %s in %s", p.apiURL, p.path),
		}
	}

	err = conduit.ValidateToken(host.Token)
	if err != nil {
		return "", err
	}

	return host.Token, nil
}
