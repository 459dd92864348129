package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	App struct {
		Port string
	}
	Store struct {
		// Backend selects the persistence variant: "local" or "remote".
		// The two are mutually exclusive.
		Backend        string
		SnapshotPath   string
		APIBaseURL     string
		CSRFCookieName string
	}
}

// Load reads configuration from the environment, optionally seeded from a
// .env file at path. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = os.Getenv("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	cfg.Store.Backend = os.Getenv("STORE_BACKEND")
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendLocal
	}
	if cfg.Store.Backend != BackendLocal && cfg.Store.Backend != BackendRemote {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendLocal, BackendRemote, cfg.Store.Backend)
	}

	cfg.Store.SnapshotPath = os.Getenv("CART_SNAPSHOT_PATH")
	if cfg.Store.SnapshotPath == "" {
		cfg.Store.SnapshotPath = "cart.json"
	}

	cfg.Store.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.Store.Backend == BackendRemote && cfg.Store.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required when STORE_BACKEND is %q", BackendRemote)
	}

	cfg.Store.CSRFCookieName = os.Getenv("CSRF_COOKIE_NAME")
	if cfg.Store.CSRFCookieName == "" {
		cfg.Store.CSRFCookieName = "csrftoken"
	}

	return cfg, nil
}
