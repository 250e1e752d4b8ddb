package model

import (
	"errors"
	"time"
)

// ErrMissingAPIKey is returned when no Census API key is configured
var ErrMissingAPIKey = errors.New("CENSUS_API_KEY environment variable (or api_key config) is required")

// ErrMissingCongressAPIKey is returned by Congress queries when no ProPublica key is configured
var ErrMissingCongressAPIKey = errors.New("CENSUS_CONGRESS_API_KEY environment variable (or congress_api_key config) is required")

// Config is the complete client configuration
type Config struct {
	Dataset        Dataset            `yaml:"dataset" mapstructure:"dataset"`
	Cache          CacheConfig        `yaml:"cache" mapstructure:"cache"`
	HTTP           HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting   RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency    ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	APIKey         string             `yaml:"api_key,omitempty" mapstructure:"api_key"`
	CongressAPIKey string             `yaml:"congress_api_key,omitempty" mapstructure:"congress_api_key"`
	Verbose        bool               `yaml:"verbose" mapstructure:"verbose"`
}

// CacheConfig controls the on-disk cache
type CacheConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	OnDisk       bool   `yaml:"on_disk" mapstructure:"on_disk"`             // read/write the cache at all
	LoadExisting bool   `yaml:"load_existing" mapstructure:"load_existing"` // trust data from a previous run
}

// HTTPConfig controls outbound API requests
type HTTPConfig struct {
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	CongressBaseURL string        `yaml:"congress_base_url" mapstructure:"congress_base_url"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy       string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy      string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy         string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"` // comma-separated hosts that bypass the proxy
}

// RateLimitingConfig bounds the request rate per API host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls the stats batch fan-out
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Dataset: Dataset{
			Year:        2019,
			DatasetType: "acs",
			SurveyType:  "acs1",
		},
		Cache: CacheConfig{
			Dir:          "cache",
			OnDisk:       true,
			LoadExisting: true,
		},
		HTTP: HTTPConfig{
			BaseURL:         "https://api.census.gov/data",
			CongressBaseURL: "https://api.propublica.org/congress/v1",
			Timeout:         30 * time.Second,
			UserAgent:       "uscensus/0.1 (+https://github.com/ppiankov/uscensus)",
			MaxBodyBytes:    50 << 20,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
	}
}

// Validate checks the configuration before any request is made
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
