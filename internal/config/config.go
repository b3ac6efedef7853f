// Package config loads tool configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the tool configuration loaded from environment variables.
// Connection settings (base URL, endpoints, client id) are optional at load
// time: the tool starts without them so the operator can store credentials
// first, and commands that need them fail with a pointed message instead.
type Config struct {
	BaseURL        string
	AuthURL        string
	TokenURL       string
	ClientID       string
	DataDir        string
	RegistryPath   string
	RegistryEngine string
	DBPath         string
	CertFile       string
	KeyFile        string
	Destination    string
	HTTPTimeout    time.Duration
}

// HasConnection reports whether enough is configured to reach the remote API.
func (c *Config) HasConnection() bool {
	return c.BaseURL != "" && c.ClientID != "" && (c.TokenURL != "" || c.AuthURL != "")
}

// Load reads configuration from PIPECTL_* environment variables and returns a
// validated Config. Defaults: data dir ~/.pipectl, registry and journal under
// it, structured registry engine, 30s HTTP timeout.
func Load() (*Config, error) {
	dataDir := os.Getenv("PIPECTL_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pipectl")
	}

	registryPath := os.Getenv("PIPECTL_REGISTRY_PATH")
	if registryPath == "" {
		registryPath = filepath.Join(dataDir, "registry.json")
	}

	dbPath := os.Getenv("PIPECTL_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "journal.db")
	}

	engine := os.Getenv("PIPECTL_REGISTRY_ENGINE")
	if engine == "" {
		engine = "auto"
	}
	switch engine {
	case "auto", "structured", "text":
	default:
		return nil, fmt.Errorf("PIPECTL_REGISTRY_ENGINE has invalid value %q: want auto, structured or text", engine)
	}

	timeout := 30 * time.Second
	if v, ok := os.LookupEnv("PIPECTL_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PIPECTL_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		timeout = parsed
	}

	certFile := os.Getenv("PIPECTL_CERT_FILE")
	if certFile == "" {
		certFile = "client.crt"
	}
	keyFile := os.Getenv("PIPECTL_KEY_FILE")
	if keyFile == "" {
		keyFile = "client.key"
	}

	return &Config{
		BaseURL:        os.Getenv("PIPECTL_BASE_URL"),
		AuthURL:        os.Getenv("PIPECTL_AUTH_URL"),
		TokenURL:       os.Getenv("PIPECTL_TOKEN_URL"),
		ClientID:       os.Getenv("PIPECTL_CLIENT_ID"),
		DataDir:        dataDir,
		RegistryPath:   registryPath,
		RegistryEngine: engine,
		DBPath:         dbPath,
		CertFile:       certFile,
		KeyFile:        keyFile,
		Destination:    os.Getenv("PIPECTL_DESTINATION"),
		HTTPTimeout:    timeout,
	}, nil
}
