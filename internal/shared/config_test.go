package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./cratedig.db" {
			t.Errorf("expected database path ./cratedig.db, got %s", config.Database.Path)
		}
		if config.Clustering.K != 8 {
			t.Errorf("expected k 8, got %d", config.Clustering.K)
		}
		if config.Clustering.Seed != 7 {
			t.Errorf("expected seed 7, got %d", config.Clustering.Seed)
		}
		if config.Crawl.OutputDir != "./data" {
			t.Errorf("expected output dir ./data, got %s", config.Crawl.OutputDir)
		}
		if config.Crawl.Workers != 1 {
			t.Errorf("expected 1 worker, got %d", config.Crawl.Workers)
		}
		if !config.Credentials.Spotify.Empty() {
			t.Error("expected default spotify credentials to be empty")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[crawl]
workers = 4
requests_per_second = 2.5
deep_lookup = true

[clustering]
k = 5

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Crawl.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", config.Crawl.Workers)
		}
		if config.Crawl.RequestsPerSecond != 2.5 {
			t.Errorf("expected 2.5 rps, got %v", config.Crawl.RequestsPerSecond)
		}
		if !config.Crawl.DeepLookup {
			t.Error("expected deep lookup to be enabled")
		}
		if config.Clustering.K != 5 {
			t.Errorf("expected k 5, got %d", config.Clustering.K)
		}
		if config.Clustering.Seed != 7 {
			t.Errorf("expected seed to keep default 7, got %d", config.Clustering.Seed)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[crawl\nworkers = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Credentials From DotEnv", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := os.WriteFile(configPath, []byte("[crawl]\nworkers = 2\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		dotenv := "SPOTIFY_CLIENT_ID=env_id\nSPOTIFY_CLIENT_SECRET=env_secret\n"
		if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(dotenv), 0600); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected client id from .env, got %q", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected client secret from .env, got %q", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("DotEnv Does Not Override TOML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := "[credentials.spotify]\nclient_id = \"toml_id\"\nclient_secret = \"toml_secret\"\n"
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		dotenv := "SPOTIFY_CLIENT_ID=env_id\nSPOTIFY_CLIENT_SECRET=env_secret\n"
		if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(dotenv), 0600); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Credentials.Spotify.ClientID != "toml_id" {
			t.Errorf("expected toml client id to win, got %q", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_id"
		config.Clustering.K = 12

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Credentials.Spotify.ClientID != "saved_id" {
			t.Errorf("expected saved_id, got %s", loaded.Credentials.Spotify.ClientID)
		}
		if loaded.Clustering.K != 12 {
			t.Errorf("expected k 12, got %d", loaded.Clustering.K)
		}
	})

	t.Run("SpotifyConfig Map", func(t *testing.T) {
		m := SpotifyConfig{ClientID: "id", ClientSecret: "secret"}.Map()
		if m["client_id"] != "id" || m["client_secret"] != "secret" {
			t.Errorf("unexpected map: %v", m)
		}
		if _, ok := m["base_url"]; ok {
			t.Error("expected base_url to be omitted when empty")
		}
	})
}
