// internal/config/types.go
package config

import (
	"time"

	"github.com/valpere/DataRetriever/internal/download"
	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/retrieve"
)

// Config is the top-level application configuration loaded from YAML.
type Config struct {
	// Name identifies the retrieval job in logs and metrics.
	Name string `yaml:"name" json:"name"`

	// Description documents what the job fetches.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Client configures the HTTP layer.
	Client ClientConfig `yaml:"client" json:"client"`

	// Retrieve configures caching and fallback.
	Retrieve RetrieveConfig `yaml:"retrieve" json:"retrieve"`

	// Sources lists the resources to fetch.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// LogJSON switches log output from console to JSON lines.
	LogJSON bool `yaml:"log_json,omitempty" json:"log_json,omitempty"`
}

// ClientConfig maps onto download.Config.
type ClientConfig struct {
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// IgnoreEnv disables the USER_AGENT, BASIC_AUTH and EXTRA_PARAMS
	// environment overrides.
	IgnoreEnv bool `yaml:"ignore_env,omitempty" json:"ignore_env,omitempty"`

	Auth          *download.BasicAuth `yaml:"auth,omitempty" json:"auth,omitempty"`
	BasicAuth     string              `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
	BasicAuthFile string              `yaml:"basic_auth_file,omitempty" json:"basic_auth_file,omitempty"`

	ExtraParams       map[string]string `yaml:"extra_params,omitempty" json:"extra_params,omitempty"`
	ExtraParamsJSON   string            `yaml:"extra_params_json,omitempty" json:"extra_params_json,omitempty"`
	ExtraParamsYAML   string            `yaml:"extra_params_yaml,omitempty" json:"extra_params_yaml,omitempty"`
	ExtraParamsLookup string            `yaml:"extra_params_lookup,omitempty" json:"extra_params_lookup,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	RateLimit *download.RateLimit `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`

	Timeout       time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryAttempts int           `yaml:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	RetryDelay    time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
}

// RetrieveConfig maps onto retrieve.Config.
type RetrieveConfig struct {
	SavedDir    string          `yaml:"saved_dir,omitempty" json:"saved_dir,omitempty"`
	TempDir     string          `yaml:"temp_dir,omitempty" json:"temp_dir,omitempty"`
	FallbackDir string          `yaml:"fallback_dir,omitempty" json:"fallback_dir,omitempty"`
	Prefix      string          `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Policy      retrieve.Policy `yaml:"policy" json:"policy"`
}

// SourceConfig names one resource to fetch.
type SourceConfig struct {
	// URL is the resource location.
	URL string `yaml:"url" json:"url"`

	// Kind selects decoding: file, text, json, yaml or rows.
	Kind string `yaml:"kind" json:"kind"`

	// Filename overrides the cache filename derived from the URL.
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`

	// Fallback permits static fallback substitution on failure.
	Fallback bool `yaml:"fallback,omitempty" json:"fallback,omitempty"`

	// HeaderRow is the 1-based header row for rows sources.
	HeaderRow int `yaml:"header_row,omitempty" json:"header_row,omitempty"`

	// Sheet selects the worksheet for spreadsheet sources.
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
}

var sourceKinds = map[string]bool{
	"file": true,
	"text": true,
	"json": true,
	"yaml": true,
	"rows": true,
}

// Validate checks the configuration for structural problems the type system
// cannot catch.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &xerrors.ConfigurationError{Reason: "name is required"}
	}
	if c.Client.UserAgent == "" && c.Client.IgnoreEnv {
		return &xerrors.ConfigurationError{Reason: "user_agent is required when environment overrides are disabled"}
	}
	if c.Retrieve.Policy.Save && c.Retrieve.Policy.UseSaved {
		return &xerrors.ConfigurationError{Reason: "policy.save and policy.use_saved cannot both be set"}
	}
	if (c.Retrieve.Policy.Save || c.Retrieve.Policy.UseSaved) && c.Retrieve.SavedDir == "" {
		return &xerrors.ConfigurationError{Reason: "saved_dir is required by the configured policy"}
	}
	if c.Client.RetryAttempts < 0 {
		return &xerrors.ConfigurationError{Reason: "retry_attempts cannot be negative"}
	}
	for i, source := range c.Sources {
		if source.URL == "" {
			return &xerrors.ConfigurationError{Reason: "source URL is required"}
		}
		if !sourceKinds[source.Kind] {
			return &xerrors.ConfigurationError{
				Reason: "source " + source.URL + " has unknown kind " + source.Kind,
			}
		}
		if source.Kind == "rows" && source.HeaderRow < 1 {
			c.Sources[i].HeaderRow = 1
		}
	}
	return nil
}

// Build assembles the download configuration.
func (c ClientConfig) Build() download.Config {
	return download.Config{
		UserAgent:         c.UserAgent,
		IgnoreEnv:         c.IgnoreEnv,
		Auth:              c.Auth,
		BasicAuth:         c.BasicAuth,
		BasicAuthFile:     c.BasicAuthFile,
		ExtraParams:       c.ExtraParams,
		ExtraParamsJSON:   c.ExtraParamsJSON,
		ExtraParamsYAML:   c.ExtraParamsYAML,
		ExtraParamsLookup: c.ExtraParamsLookup,
		Headers:           c.Headers,
		RateLimit:         c.RateLimit,
		Timeout:           c.Timeout,
		Retry: download.RetryConfig{
			MaxAttempts: c.RetryAttempts,
			BaseDelay:   c.RetryDelay,
		},
	}
}
