package domain

const (
	DefaultAnypointURL = "https://anypoint.mulesoft.com"

	DefaultSearchLimit   = 50
	DefaultSearchFetch   = 250
	DefaultSearchTimeout = 30

	DefaultHTTPTimeoutSeconds = 15
	DefaultMaxResponseBytes   = 8 * 1024 * 1024

	DefaultMaxArchiveBytes   = 32 * 1024 * 1024
	DefaultMaxArchiveEntries = 256
	DefaultMaxEntryBytes     = 8 * 1024 * 1024

	TokenSafetyMarginSeconds = 60
	DefaultTokenExpirySeconds = 3600
)

// DefaultAPITypes are the catalog asset types treated as APIs.
var DefaultAPITypes = []string{"rest-api", "soap-api", "http-api"}

// ConnectorTypes are the catalog asset types treated as connectors.
var ConnectorTypes = []string{"connector"}
