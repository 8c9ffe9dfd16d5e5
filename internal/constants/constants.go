package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for Conduit requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 10 * time.Second

	// ShortHTTPTimeout is used for quick operations such as conduit.ping.
	ShortHTTPTimeout = 10 * time.Second
)

// Connection pool sizing.
const (
	// DefaultMaxIdleConns is the connection pool size.
	DefaultMaxIdleConns = 100

	// DefaultMaxIdleConnsPerHost is the per-host keepalive pool size.
	DefaultMaxIdleConnsPerHost = 20
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries after the
	// initial attempt.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the base backoff delay.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax caps the backoff delay between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Cache defaults.
const (
	// DefaultCacheTTL bounds staleness of cached read results.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheSize is the maximum number of cached entries.
	DefaultCacheSize = 1000

	// DefaultCacheCleanupInterval is how often expired entries are swept,
	// as a duration string.
	DefaultCacheCleanupInterval = "1m"
)

// Pagination and result limits.
const (
	// DefaultPageSize is the Conduit default search page size.
	DefaultPageSize = 100

	// DefaultResultCap bounds "fetch everything" aggregation.
	DefaultResultCap = 1000
)

// Token budget defaults.
const (
	// DefaultItemBudget is the default maximum item count for shaped
	// search results.
	DefaultItemBudget = 50

	// DefaultTextBudget is the default maximum byte length for shaped
	// text payloads such as file content.
	DefaultTextBudget = 8192
)

// Conduit token format: "api-" followed by 28 alphanumerics.
const (
	// TokenLength is the exact length of a Conduit API token.
	TokenLength = 32

	// TokenPrefix is the fixed prefix of a Conduit API token.
	TokenPrefix = "api-"
)

// Output formats.
const (
	// FormatTable renders results as an aligned text table.
	FormatTable = "table"

	// FormatJSON renders results as indented JSON.
	FormatJSON = "json"

	// FormatYAML renders results as YAML.
	FormatYAML = "yaml"
)

// Client identification.
const (
	// ClientName is the name reported in the conduit.connect handshake.
	ClientName = "conduit-client"

	// ClientVersion is the version reported in the conduit.connect handshake.
	ClientVersion = "1.0"

	// DefaultUserAgent identifies the client to the Conduit server.
	DefaultUserAgent = ClientName + "/" + ClientVersion
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit limits concurrent bulk operations.
	DefaultConcurrencyLimit = 3

	// SmallBufferSize is used for page streaming channels.
	SmallBufferSize = 10
)
