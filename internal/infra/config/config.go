package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"exmcp/internal/domain"
)

// Config is the process configuration, consumed from the environment.
type Config struct {
	AnypointURL  string
	ClientID     string
	ClientSecret string
	OrgID        string
	LogLevel     string

	HTTPTimeout      time.Duration
	MaxResponseBytes int64

	MaxArchiveBytes   int64
	MaxArchiveEntries int
	MaxEntryBytes     int64

	SearchLimit int
	SearchFetch int

	MetricsAddr string
}

var requiredKeys = []string{"CLIENT_ID", "CLIENT_SECRET", "ORG_ID"}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range append([]string{
		"ANYPOINT_URL", "LOG_LEVEL", "METRICS_ADDR",
		"HTTP_TIMEOUT_SECONDS", "MAX_RESPONSE_BYTES",
		"MAX_ARCHIVE_BYTES", "MAX_ARCHIVE_ENTRIES", "MAX_ENTRY_BYTES",
		"SEARCH_LIMIT", "SEARCH_FETCH",
	}, requiredKeys...) {
		_ = v.BindEnv(key)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ANYPOINT_URL", domain.DefaultAnypointURL)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", domain.DefaultHTTPTimeoutSeconds)
	v.SetDefault("MAX_RESPONSE_BYTES", domain.DefaultMaxResponseBytes)
	v.SetDefault("MAX_ARCHIVE_BYTES", domain.DefaultMaxArchiveBytes)
	v.SetDefault("MAX_ARCHIVE_ENTRIES", domain.DefaultMaxArchiveEntries)
	v.SetDefault("MAX_ENTRY_BYTES", domain.DefaultMaxEntryBytes)
	v.SetDefault("SEARCH_LIMIT", domain.DefaultSearchLimit)
	v.SetDefault("SEARCH_FETCH", domain.DefaultSearchFetch)
}

// Load reads configuration from the environment and validates that the
// credentials required for the client-credentials exchange are present.
func Load() (Config, error) {
	v := newEnvViper()

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		AnypointURL:       strings.TrimRight(v.GetString("ANYPOINT_URL"), "/"),
		ClientID:          v.GetString("CLIENT_ID"),
		ClientSecret:      v.GetString("CLIENT_SECRET"),
		OrgID:             v.GetString("ORG_ID"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		HTTPTimeout:       time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		MaxResponseBytes:  v.GetInt64("MAX_RESPONSE_BYTES"),
		MaxArchiveBytes:   v.GetInt64("MAX_ARCHIVE_BYTES"),
		MaxArchiveEntries: v.GetInt("MAX_ARCHIVE_ENTRIES"),
		MaxEntryBytes:     v.GetInt64("MAX_ENTRY_BYTES"),
		SearchLimit:       v.GetInt("SEARCH_LIMIT"),
		SearchFetch:       v.GetInt("SEARCH_FETCH"),
		MetricsAddr:       v.GetString("METRICS_ADDR"),
	}

	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.SearchLimit <= 0 {
		return Config{}, fmt.Errorf("SEARCH_LIMIT must be > 0")
	}
	if cfg.MaxArchiveBytes <= 0 || cfg.MaxArchiveEntries <= 0 || cfg.MaxEntryBytes <= 0 {
		return Config{}, fmt.Errorf("archive limits must be > 0")
	}
	return cfg, nil
}
