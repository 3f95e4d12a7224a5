package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Identity IdentityConfig `toml:"identity"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// CatalogConfig contains TMDB API settings.
type CatalogConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	ImageBaseURL   string  `toml:"image_base_url"`
	Language       string  `toml:"language"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// IdentityConfig selects and configures the identity/document backend.
type IdentityConfig struct {
	Backend      string `toml:"backend"`
	APIKey       string `toml:"api_key"`
	IdentityURL  string `toml:"identity_url"`
	DocumentsURL string `toml:"documents_url"`
}

// StorageConfig selects the key-value persistence backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

const (
	IdentityLocal    = "local"
	IdentityFirebase = "firebase"
	StorageSQLite    = "sqlite"
	StorageFile      = "file"
	StorageMemory    = "memory"
)

// Environment variables that override values from the config file.
const (
	EnvCatalogAPIKey  = "TMDB_API_KEY"
	EnvIdentityAPIKey = "REELX_FIREBASE_API_KEY"
	EnvDocumentsURL   = "REELX_DOCUMENTS_URL"
	EnvDatabasePath   = "REELX_DB_PATH"
	EnvRateLimit      = "REELX_RATE_LIMIT"
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads .env style files into the process environment. Missing files are skipped.
func LoadEnv(paths ...string) error {
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with any set environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCatalogAPIKey); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv(EnvIdentityAPIKey); v != "" {
		c.Identity.APIKey = v
	}
	if v := os.Getenv(EnvDocumentsURL); v != "" {
		c.Identity.DocumentsURL = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		if rl, err := strconv.ParseFloat(v, 64); err == nil {
			c.Catalog.RateLimit = rl
		}
	}
}

// Validate checks the backend selections.
func (c *Config) Validate() error {
	switch c.Identity.Backend {
	case IdentityLocal:
	case IdentityFirebase:
		if c.Identity.APIKey == "" {
			return fmt.Errorf("%w: identity.api_key is required for the firebase backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown identity backend %q", ErrInvalidConfig, c.Identity.Backend)
	}

	switch c.Storage.Backend {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	return nil
}
