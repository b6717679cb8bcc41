package domain

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxResults    = 50
	DefaultMaxConcurrent = 8
	DefaultServiceName   = "jira-mcp-server"
)

// DefaultPriorities are the stock Jira priority names.
var DefaultPriorities = []string{"Highest", "High", "Medium", "Low", "Lowest"}

// Environment variables that override file configuration.
const (
	EnvJiraURL         = "JIRA_URL"
	EnvJiraUsername    = "JIRA_USERNAME"
	EnvJiraToken       = "JIRA_PAT"
	EnvJiraProjectKeys = "JIRA_PROJECT_KEYS"
)

// Config represents the server configuration.
// This is the root configuration structure loaded from YAML or TOML files.
type Config struct {
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Jira      JiraConfig      `yaml:"jira" toml:"jira"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

// TransportConfig defines transport settings.
// Specifies whether to use stdio or HTTP transport.
type TransportConfig struct {
	Type string     `yaml:"type" toml:"type"` // "stdio" or "http"
	HTTP HTTPConfig `yaml:"http,omitempty" toml:"http"`
}

// HTTPConfig defines HTTP transport settings.
// Only used when transport type is "http".
type HTTPConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// JiraConfig describes the backend and the locally maintained allow-lists.
type JiraConfig struct {
	BaseURL     string          `yaml:"base_url" toml:"base_url"`
	Auth        AuthConfig      `yaml:"auth" toml:"auth"`
	ProjectKeys []string        `yaml:"project_keys" toml:"project_keys"`
	Priorities  []string        `yaml:"priorities" toml:"priorities"`
	Timeout     string          `yaml:"timeout" toml:"timeout"`
	MaxResults  int             `yaml:"max_results" toml:"max_results"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// AuthConfig defines authentication settings.
type AuthConfig struct {
	Type     string `yaml:"type" toml:"type"` // "basic" or "token"
	Username string `yaml:"username,omitempty" toml:"username"`
	Token    string `yaml:"token,omitempty" toml:"token"`
}

// RateLimitConfig bounds outbound request rate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// ServerConfig tunes request handling.
type ServerConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" toml:"max_concurrent"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json or console
}

// TelemetryConfig enables OTLP export when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" toml:"service_name"`
	Insecure     bool   `yaml:"insecure" toml:"insecure"`
}

// LoadConfig reads a YAML or TOML file (chosen by extension), applies
// environment overrides and defaults, and validates the result.
// An empty path loads from the environment alone.
// Every failure is a *ConfigurationError.
func LoadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewConfigurationError(fmt.Sprintf("configuration file not found: %s", path))
			}
			return nil, NewConfigurationError(fmt.Sprintf("failed to read configuration file: %v", err))
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &config); err != nil {
				return nil, NewConfigurationError(fmt.Sprintf("invalid TOML syntax in configuration file: %v", err))
			}
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, NewConfigurationError(fmt.Sprintf("invalid YAML syntax in configuration file: %v", err))
			}
		}
	}

	config.ApplyEnv(os.LookupEnv)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyEnv overrides Jira settings from the environment. lookup is
// os.LookupEnv in production and a map lookup in tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvJiraURL); ok && v != "" {
		c.Jira.BaseURL = v
	}
	if v, ok := lookup(EnvJiraUsername); ok && v != "" {
		c.Jira.Auth.Username = v
	}
	if v, ok := lookup(EnvJiraToken); ok && v != "" {
		c.Jira.Auth.Token = v
	}
	if v, ok := lookup(EnvJiraProjectKeys); ok && v != "" {
		c.Jira.ProjectKeys = splitList(v)
	}
}

// ApplyDefaults fills unset optional values.
func (c *Config) ApplyDefaults() {
	if c.Transport.Type == "" {
		c.Transport.Type = "stdio"
	}
	if c.Jira.Auth.Type == "" {
		c.Jira.Auth.Type = "basic"
	}
	if len(c.Jira.Priorities) == 0 {
		c.Jira.Priorities = append([]string(nil), DefaultPriorities...)
	}
	if c.Jira.MaxResults == 0 {
		c.Jira.MaxResults = DefaultMaxResults
	}
	if c.Server.MaxConcurrent == 0 {
		c.Server.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks the configuration for completeness and correctness.
// It reports every problem at once in a single *ConfigurationError.
func (c *Config) Validate() error {
	var problems []string

	problems = append(problems, c.validateTransport()...)
	problems = append(problems, c.validateJira()...)

	if c.Server.MaxConcurrent < 1 {
		problems = append(problems, fmt.Sprintf("server max_concurrent %d must be at least 1", c.Server.MaxConcurrent))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid logging level '%s'", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		problems = append(problems, fmt.Sprintf("invalid logging format '%s': must be 'json' or 'console'", c.Logging.Format))
	}

	if len(problems) > 0 {
		return NewConfigurationError(problems...)
	}
	return nil
}

// validateTransport validates the transport configuration.
func (c *Config) validateTransport() []string {
	var problems []string

	if c.Transport.Type != "stdio" && c.Transport.Type != "http" {
		problems = append(problems, fmt.Sprintf("invalid transport type '%s': must be 'stdio' or 'http'", c.Transport.Type))
	}

	if c.Transport.Type == "http" {
		if c.Transport.HTTP.Host == "" {
			problems = append(problems, "HTTP host is required when transport type is 'http'")
		}
		if c.Transport.HTTP.Port <= 0 || c.Transport.HTTP.Port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid HTTP port %d: must be between 1 and 65535", c.Transport.HTTP.Port))
		}
	}

	return problems
}

// validateJira validates the backend section.
func (c *Config) validateJira() []string {
	var problems []string
	j := c.Jira

	if j.BaseURL == "" {
		problems = append(problems, "jira base_url is required (or set "+EnvJiraURL+")")
	} else if parsedURL, err := url.Parse(j.BaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("jira base_url is invalid: %v", err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		problems = append(problems, "jira base_url must use http or https scheme")
	} else if parsedURL.Host == "" {
		problems = append(problems, "jira base_url must include a host")
	}

	if _, err := ParseAuthType(j.Auth.Type); err != nil {
		problems = append(problems, "jira "+err.Error())
	}
	if j.Auth.Username == "" {
		problems = append(problems, "jira auth username is required (or set "+EnvJiraUsername+")")
	}
	if j.Auth.Token == "" {
		problems = append(problems, "jira auth token is required (or set "+EnvJiraToken+")")
	}

	if len(j.ProjectKeys) == 0 {
		problems = append(problems, "jira project_keys must list at least one project (or set "+EnvJiraProjectKeys+")")
	}
	if dup := firstDuplicate(j.ProjectKeys); dup != "" {
		problems = append(problems, fmt.Sprintf("jira project_keys contains duplicate '%s'", dup))
	}
	if dup := firstDuplicate(j.Priorities); dup != "" {
		problems = append(problems, fmt.Sprintf("jira priorities contains duplicate '%s'", dup))
	}

	if j.Timeout != "" {
		if d, err := time.ParseDuration(j.Timeout); err != nil {
			problems = append(problems, fmt.Sprintf("jira timeout '%s' is invalid: %v", j.Timeout, err))
		} else if d <= 0 {
			problems = append(problems, "jira timeout must be positive")
		}
	}
	if j.MaxResults < 1 {
		problems = append(problems, fmt.Sprintf("jira max_results %d must be at least 1", j.MaxResults))
	}
	if j.RateLimit.RequestsPerSecond < 0 {
		problems = append(problems, "jira rate_limit requests_per_second must not be negative")
	}

	return problems
}

// TimeoutDuration returns the per-call backend timeout.
func (j JiraConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(j.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

// CredentialContext builds the immutable credential context from the
// validated Jira section.
func (c *Config) CredentialContext() (*CredentialContext, error) {
	authType, err := ParseAuthType(c.Jira.Auth.Type)
	if err != nil {
		return nil, NewConfigurationError(err.Error())
	}
	return NewCredentialContext(c.Jira.BaseURL, c.Jira.Auth.Username, c.Jira.Auth.Token, authType)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
