package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for passport-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory containing SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Value-mapping engine configuration
	Mapping MappingConfig `yaml:"mapping"`

	// Bulk import limits
	Import ImportConfig `yaml:"import"`

	// Optional LLM-backed suggestion advisor
	Advisor AdvisorConfig `yaml:"advisor"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"passport"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"passport_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// MappingConfig holds value-mapping engine settings.
type MappingConfig struct {
	// CacheTTLMinutes is how long resolved mappings stay in the in-process cache.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"MAPPING_CACHE_TTL_MINUTES" env-default:"60"`
	// SweepIntervalMinutes is how often the background sweeper evicts expired
	// cache entries. Zero disables the sweeper (lazy eviction still applies).
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" env:"MAPPING_SWEEP_INTERVAL_MINUTES" env-default:"10"`
	// FuzzyThreshold is the minimum similarity (0-100) for suggestions.
	FuzzyThreshold int `yaml:"fuzzy_threshold" env:"MAPPING_FUZZY_THRESHOLD" env-default:"60"`
	// MaxSuggestions caps the number of fuzzy matches returned per value.
	MaxSuggestions int `yaml:"max_suggestions" env:"MAPPING_MAX_SUGGESTIONS" env-default:"5"`
	// MaxValueLength rejects raw values longer than this before auto-creation.
	MaxValueLength int `yaml:"max_value_length" env:"MAPPING_MAX_VALUE_LENGTH" env-default:"255"`
	// SynonymOverridesPath optionally points to a YAML file with extra
	// synonym entries merged into the built-in table at startup.
	SynonymOverridesPath string `yaml:"synonym_overrides_path" env:"MAPPING_SYNONYM_OVERRIDES" env-default:""`
}

// CacheTTL returns the cache TTL as a duration.
func (c *MappingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// SweepInterval returns the background sweep interval as a duration.
func (c *MappingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// ImportConfig holds bulk import limits.
type ImportConfig struct {
	// MaxRows is the maximum number of data rows accepted per import file.
	MaxRows int `yaml:"max_rows" env:"IMPORT_MAX_ROWS" env-default:"50000"`
	// MaxUploadBytes is the maximum accepted upload size.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"IMPORT_MAX_UPLOAD_BYTES" env-default:"26214400"`
}

// AdvisorConfig holds settings for the LLM-backed mapping advisor.
// The advisor is disabled unless both endpoint and model are configured.
type AdvisorConfig struct {
	LLMBaseURL string `yaml:"llm_base_url" env:"ADVISOR_LLM_BASE_URL" env-default:""`
	LLMModel   string `yaml:"llm_model" env:"ADVISOR_LLM_MODEL" env-default:""`
	APIKey     string `yaml:"-" env:"ADVISOR_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if the advisor is configured.
func (c *AdvisorConfig) IsAvailable() bool {
	return c.LLMBaseURL != "" && c.LLMModel != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if cfg.Auth.EnableVerification && len(cfg.Auth.JWKSEndpoints) == 0 {
		return nil, fmt.Errorf("auth verification enabled but no JWKS endpoints configured")
	}

	return cfg, nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
