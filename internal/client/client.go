package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/phorge-tools/conduit-client/internal/auth"
	"github.com/phorge-tools/conduit-client/internal/constants"
	"github.com/phorge-tools/conduit-client/internal/http"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// Client implements the conduit.Client interface. One instance serves any
// number of tenants: the credential is resolved per call, and cache entries
// are keyed by a digest of the credential that resolved them.
type Client struct {
	httpClient *http.Client
	tokens     auth.TokenSource
	cache      *conduit.CacheManager
	policy     *conduit.CachingPolicy
	validator  *conduit.Validator
	logger     conduit.Logger

	cacheTTL   time.Duration
	itemBudget int
	textBudget int
	resultCap  int

	// Application clients
	maniphest    conduit.ManiphestClient
	differential conduit.DifferentialClient
	diffusion    conduit.DiffusionClient
	files        conduit.FilesClient
	projects     conduit.ProjectsClient
	users        conduit.UsersClient
	meta         conduit.MetaClient
}

// createTokenSource builds the credential chain from config. A configured
// token becomes the fallback; a per-call context token always wins.
func createTokenSource(config *conduit.Config) (auth.TokenSource, error) {
	var base auth.TokenSource

	if config.Token != "" {
		static, err := auth.NewStaticProvider(config.Token)
		if err != nil {
			return nil, err
		}

		base = static
	}

	return auth.NewContextProvider(base), nil
}

// createHTTPClientOptions builds transport options from config.
func createHTTPClientOptions(config *conduit.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Timeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.Timeout))
	}

	if config.TokenMode == conduit.TokenModeHeader {
		httpOpts = append(httpOpts, http.WithHeaderAuth(true))
	}

	if config.ProxyURL != "" {
		httpOpts = append(httpOpts, http.WithProxy(config.ProxyURL))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) // #nosec G402 -- Gated by the development environment check in phabclient
	}

	retryMax := config.RetryMax
	if retryMax == 0 {
		retryMax = constants.DefaultRetryMax
	} else if retryMax < 0 {
		retryMax = 0
	}

	retryWaitMin := config.RetryWaitMin
	if retryWaitMin <= 0 {
		retryWaitMin = constants.DefaultRetryWaitMin
	}

	retryWaitMax := config.RetryWaitMax
	if retryWaitMax <= 0 {
		retryWaitMax = constants.DefaultRetryWaitMax
	}

	httpOpts = append(httpOpts, http.WithRetryConfig(retryMax, retryWaitMin, retryWaitMax))

	return httpOpts
}

// New creates a Conduit client from config.
func New(ctx context.Context, config *conduit.Config) (*Client, error) {
	if config == nil {
		return nil, conduit.ErrConfigRequired
	}

	apiURL, err := conduit.NormalizeAPIURL(config.APIURL)
	if err != nil {
		return nil, err
	}

	tokens, err := createTokenSource(config)
	if err != nil {
		return nil, err
	}

	httpClient := http.NewClient(apiURL, tokens, createHTTPClientOptions(config)...)

	cacheConfig := config.Cache
	if cacheConfig == nil {
		cacheConfig = conduit.DefaultCacheConfig()
	}

	cache, err := conduit.NewCacheFromConfig(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("building cache: %w", err)
	}

	client := &Client{
		httpClient: httpClient,
		tokens:     tokens,
		cache:      conduit.NewCacheManager(cache, config.Logger),
		policy:     DefaultPolicy(cacheConfig),
		validator:  &conduit.Validator{Strict: config.StrictValidation},
		logger:     config.Logger,
		cacheTTL:   config.CacheTTL,
		itemBudget: config.ItemBudget,
		textBudget: config.TextBudget,
		resultCap:  config.ResultCap,
	}

	// TTL precedence: explicit Config.CacheTTL, then the cache backend's
	// own default, then the package default.
	if client.cacheTTL <= 0 {
		if cacheConfig.Options != nil && cacheConfig.Options.DefaultTTL > 0 {
			client.cacheTTL = cacheConfig.Options.DefaultTTL
		} else {
			client.cacheTTL = constants.DefaultCacheTTL
		}
	}

	if client.itemBudget == 0 {
		client.itemBudget = constants.DefaultItemBudget
	}

	if client.textBudget == 0 {
		client.textBudget = constants.DefaultTextBudget
	}

	if client.resultCap <= 0 {
		client.resultCap = constants.DefaultResultCap
	}

	client.initializeApplicationClients()

	return client, nil
}

// DefaultPolicy derives the caching policy for a cache configuration. A
// disabled cache short-circuits the read path entirely.
func DefaultPolicy(cacheConfig *conduit.CacheConfig) *conduit.CachingPolicy {
	if cacheConfig != nil && cacheConfig.Type == conduit.CacheTypeNone {
		return &conduit.CachingPolicy{CacheReads: false}
	}

	return conduit.DefaultCachingPolicy()
}

func (c *Client) initializeApplicationClients() {
	c.maniphest = NewManiphestClient(c)
	c.differential = NewDifferentialClient(c)
	c.diffusion = NewDiffusionClient(c)
	c.files = NewFilesClient(c)
	c.projects = NewProjectsClient(c)
	c.users = NewUsersClient(c)
	c.meta = NewMetaClient(c)
}

// Maniphest implements conduit.Client.Maniphest.
func (c *Client) Maniphest() conduit.ManiphestClient {
	return c.maniphest
}

// Differential implements conduit.Client.Differential.
func (c *Client) Differential() conduit.DifferentialClient {
	return c.differential
}

// Diffusion implements conduit.Client.Diffusion.
func (c *Client) Diffusion() conduit.DiffusionClient {
	return c.diffusion
}

// Files implements conduit.Client.Files.
func (c *Client) Files() conduit.FilesClient {
	return c.files
}

// Projects implements conduit.Client.Projects.
func (c *Client) Projects() conduit.ProjectsClient {
	return c.projects
}

// Users implements conduit.Client.Users.
func (c *Client) Users() conduit.UsersClient {
	return c.users
}

// Meta implements conduit.Client.Meta.
func (c *Client) Meta() conduit.MetaClient {
	return c.meta
}

// CacheStats returns a snapshot of cache effectiveness counters.
func (c *Client) CacheStats() conduit.CacheStats {
	return c.cache.GetStats()
}

// ClearCache drops every cached entry.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// call executes a Conduit method. Cacheable reads are memoized by request
// fingerprint with a single-flight guarantee; everything else goes straight
// to the transport.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if !c.policy.ShouldCache(method) {
		return c.callDirect(ctx, method, params)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	key := c.cache.GetCacheKey(method, params, conduit.CredentialDigest(token))

	data, err := c.cache.GetOrCompute(ctx, key, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.callDirect(ctx, method, params)
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// mutate executes a write method and invalidates the method's cache
// namespace after the remote confirms the change, so the next read in that
// application cannot observe the stale value.
func (c *Client) mutate(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	data, err := c.callDirect(ctx, method, params)
	if err != nil {
		return nil, err
	}

	err = c.cache.InvalidateNamespace(ctx, method)
	if err != nil && c.logger != nil {
		c.logger.Warn("cache invalidation failed", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
	}

	return data, nil
}

func (c *Client) callDirect(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	resp, err := c.httpClient.CallMethod(ctx, method, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Result) == 0 {
		// Cache entries must carry a payload; a null result is stored as
		// the literal.
		return json.RawMessage("null"), nil
	}

	return resp.Result, nil
}

// searchPayload is the wire shape of a *.search result.
type searchPayload[T any] struct {
	Data   []T            `json:"data"`
	Cursor conduit.Cursor `json:"cursor"`
}

// search runs a *.search method and shapes the result page to the item
// budget. The cursor always refers to the unshaped server page, so resuming
// from Continuation never skips items.
func search[T any](ctx context.Context, c *Client, method string, opts *conduit.SearchOptions) (*conduit.SearchResult[T], error) {
	if opts == nil {
		opts = &conduit.SearchOptions{}
	}

	if opts.Limit < 0 {
		return nil, &conduit.ValidationError{Field: "limit", Reason: "limit cannot be negative"}
	}

	err := c.validator.ValidateConstraints(opts.Constraints)
	if err != nil {
		return nil, err
	}

	data, err := c.call(ctx, method, conduit.BuildSearchParams(opts))
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}

	var payload searchPayload[T]

	err = json.Unmarshal(data, &payload)
	if err != nil {
		return nil, fmt.Errorf("parsing %s result: %w", method, err)
	}

	result := &conduit.SearchResult[T]{
		Data:   payload.Data,
		Cursor: payload.Cursor,
	}

	budget := opts.ItemBudget
	if budget == 0 {
		budget = c.itemBudget
	}

	shaped := conduit.ShapeItems(payload.Data, budget)
	if shaped.Truncated {
		result.Data = shaped.Items
		result.Truncated = true
		result.Continuation = shaped.Continuation
		result.Suggestion = shaped.Suggestion
	}

	return result, nil
}

// edit runs an *.edit method after validating the transaction list against
// the resource's transaction catalog.
func (c *Client) edit(ctx context.Context, method string, kind conduit.ResourceKind, objectIdentifier string, transactions []conduit.Transaction) (*conduit.EditResult, error) {
	err := conduit.ValidateTransactions(kind, transactions)
	if err != nil {
		return nil, err
	}

	data, err := c.mutate(ctx, method, conduit.BuildTransactionParams(objectIdentifier, transactions))
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}

	var result conduit.EditResult

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s result: %w", method, err)
	}

	return &result, nil
}
