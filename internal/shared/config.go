package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Crawl       CrawlConfig       `toml:"crawl"`
	Clustering  ClusteringConfig  `toml:"clustering"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify client-credentials for the Web API.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
	}
	if s.BaseURL != "" {
		m["base_url"] = s.BaseURL
	}
	return m
}

// Empty reports whether either half of the client credentials is missing.
func (s SpotifyConfig) Empty() bool {
	return s.ClientID == "" || s.ClientSecret == ""
}

// CrawlConfig contains catalog crawl settings.
type CrawlConfig struct {
	OutputDir         string  `toml:"output_dir"`
	DeepLookup        bool    `toml:"deep_lookup"`
	Workers           int     `toml:"workers"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ClusteringConfig contains k-means parameters.
type ClusteringConfig struct {
	K       int    `toml:"k"`
	Seed    uint64 `toml:"seed"`
	NInit   int    `toml:"n_init"`
	MaxIter int    `toml:"max_iter"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults. When the Spotify
// credentials are still empty, a .env file next to the config is consulted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if config.Credentials.Spotify.Empty() {
		if err := config.ApplyDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// ApplyDotEnv fills empty Spotify credentials from SPOTIFY_CLIENT_ID and
// SPOTIFY_CLIENT_SECRET in the given dotenv file. A missing file is not an error.
func (c *Config) ApplyDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", ErrInvalidConfig, path, err)
	}

	if c.Credentials.Spotify.ClientID == "" {
		c.Credentials.Spotify.ClientID = env["SPOTIFY_CLIENT_ID"]
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		c.Credentials.Spotify.ClientSecret = env["SPOTIFY_CLIENT_SECRET"]
	}
	return nil
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
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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
