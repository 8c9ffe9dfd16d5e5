package conduit

import (
	"context"
	"errors"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrDeprecatedClientConstructor = errors.New("use github.com/phorge-tools/conduit-client/pkg/phabclient.New to create a client")
)

// Client provides access to all Conduit application clients.
type Client interface {
	Maniphest() ManiphestClient
	Differential() DifferentialClient
	Diffusion() DiffusionClient
	Files() FilesClient
	Projects() ProjectsClient
	Users() UsersClient
	Meta() MetaClient
}

// ManiphestClient exposes task-tracking operations.
type ManiphestClient interface {
	SearchTasks(ctx context.Context, opts *SearchOptions) (*SearchResult[Task], error)
	GetTask(ctx context.Context, taskID int) (*Task, error)
	CreateTask(ctx context.Context, request *TaskCreateRequest) (*EditResult, error)
	EditTask(ctx context.Context, objectIdentifier string, transactions []Transaction) (*EditResult, error)
}

// DifferentialClient exposes code-review operations.
type DifferentialClient interface {
	SearchRevisions(ctx context.Context, opts *SearchOptions) (*SearchResult[Revision], error)
	GetRevision(ctx context.Context, revisionID int) (*Revision, error)
	EditRevision(ctx context.Context, objectIdentifier string, transactions []Transaction) (*EditResult, error)
	AddComment(ctx context.Context, objectIdentifier string, comment string) (*EditResult, error)
	SearchDiffs(ctx context.Context, opts *SearchOptions) (*SearchResult[Diff], error)
	GetRawDiff(ctx context.Context, diffID int) (string, error)
}

// DiffusionClient exposes repository-browsing operations.
type DiffusionClient interface {
	SearchRepositories(ctx context.Context, opts *SearchOptions) (*SearchResult[Repository], error)
	EditRepository(ctx context.Context, objectIdentifier string, transactions []Transaction) (*EditResult, error)
	Browse(ctx context.Context, repository, path, commit string) (*BrowseResult, error)
	FileContent(ctx context.Context, repository, path, commit string) (*FileContentRef, error)
	GetFileContent(ctx context.Context, repository, path, commit string, budget int) (*ShapedText, error)
}

// FilesClient exposes file storage operations.
type FilesClient interface {
	SearchFiles(ctx context.Context, opts *SearchOptions) (*SearchResult[File], error)
	GetFileInfo(ctx context.Context, filePHID PHID) (*File, error)
	Download(ctx context.Context, filePHID PHID) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, viewPolicy string) (PHID, error)
}

// ProjectsClient exposes project operations.
type ProjectsClient interface {
	SearchProjects(ctx context.Context, opts *SearchOptions) (*SearchResult[Project], error)
	EditProject(ctx context.Context, objectIdentifier string, transactions []Transaction) (*EditResult, error)
}

// UsersClient exposes user operations.
type UsersClient interface {
	SearchUsers(ctx context.Context, opts *SearchOptions) (*SearchResult[User], error)
	Whoami(ctx context.Context) (*Whoami, error)
}

// MetaClient exposes conduit.* system endpoints.
type MetaClient interface {
	Ping(ctx context.Context) (string, error)
	GetCapabilities(ctx context.Context) (*Capabilities, error)
	ConnectStatus(ctx context.Context) (*ConnectStatus, error)
	QueryMethods(ctx context.Context) (map[string]any, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenMode selects how the credential is attached to requests.
type TokenMode string

const (
	// TokenModeParam sends the credential as the api.token form field.
	// This is the standard Conduit transport mode.
	TokenModeParam TokenMode = "param"

	// TokenModeHeader sends the credential as an Authorization bearer
	// header. Used behind proxies that strip or log form bodies.
	TokenModeHeader TokenMode = "header"
)

// Config represents client configuration for building a conduit.Client.
//
// # Credentials
//
// Token is the Conduit API token ("api-" followed by 28 characters). In
// single-tenant mode it is fixed here for the client's lifetime. In
// multi-tenant mode leave Token empty and attach a per-call credential with
// WithToken; the client validates it on every call. The token is never
// logged; cache keys carry only a digest of it.
//
// # Timeouts, retries, and TLS
//
// Per-request deadlines are controlled via the context passed to client
// methods; Timeout is the outer bound applied by the transport. Retry
// behavior is tuned via RetryMax/RetryWaitMin/RetryWaitMax: transient
// failures (connection errors, timeouts, 429, 5xx) are retried with
// exponential backoff and jitter, everything else fails immediately.
type Config struct {
	// APIURL is the base URL of the Conduit API, e.g.
	// "https://phab.example.com/api/". It must be absolute; a missing
	// trailing slash is added during normalization.
	APIURL string

	// Token is the fixed API token for single-tenant use. Optional when
	// every call carries its own credential via WithToken.
	Token string

	// TokenMode selects param (default) or header credential transport.
	TokenMode TokenMode

	// Timeout bounds a single request attempt. Zero means the default.
	Timeout time.Duration

	// RetryMax is the maximum number of retries after the initial
	// attempt. Zero means the default; negative disables retries.
	RetryMax int

	// RetryWaitMin is the base backoff between retries.
	RetryWaitMin time.Duration

	// RetryWaitMax caps the backoff between retries.
	RetryWaitMax time.Duration

	// ProxyURL routes requests through an HTTP proxy when set.
	ProxyURL string

	// SkipTLSVerify disables certificate verification. Intended for
	// self-hosted installs with private CAs; do not use in production.
	SkipTLSVerify bool

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Cache configures the response cache backend. Nil selects the
	// default in-memory cache; use CacheTypeNone to disable caching.
	Cache *CacheConfig

	// CacheTTL bounds staleness of cached read results. Zero means the
	// default.
	CacheTTL time.Duration

	// StrictValidation enables the schema-checked call path. When false,
	// constraint maps are passed through unchecked.
	StrictValidation bool

	// ItemBudget is the default per-call item budget applied by the
	// token-budget shaper to search results. Zero means the default;
	// negative disables shaping.
	ItemBudget int

	// TextBudget is the default byte budget for text payloads such as
	// file content. Zero means the default; negative disables shaping.
	TextBudget int

	// ResultCap bounds "fetch everything" aggregation. Zero means the
	// default.
	ResultCap int

	// Debug enables verbose request/response logging when a Logger is
	// provided.
	Debug bool

	// Logger is an optional structured logger.
	Logger Logger
}

// NewClient creates a new Conduit client.
// Deprecated: Use github.com/phorge-tools/conduit-client/pkg/phabclient.New instead.
func NewClient(config *Config) (Client, error) {
	return nil, ErrDeprecatedClientConstructor
}

type contextKey string

const tokenContextKey contextKey = "conduit-token"

// WithToken attaches a per-call credential to the context. It overrides the
// client's configured token for that call, which is how multi-tenant
// deployments route one shared client across many credentials.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the per-call credential, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)

	return token, ok && token != ""
}
