// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragchat.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.ragchat/config.toml.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragchat configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	User   UserConfig   `toml:"user"`
	Search SearchConfig `toml:"search"`
	Upload UploadConfig `toml:"upload"`
	UI     UIConfig     `toml:"ui"`
}

// ServerConfig contains backend connection configuration.
type ServerConfig struct {
	// BaseURL is the backend base address.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds ordinary unary requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// UploadTimeoutSecs bounds document uploads.
	UploadTimeoutSecs int `toml:"upload_timeout_secs"`
	// FallbackTimeoutSecs bounds the non-streaming chat fallback.
	FallbackTimeoutSecs int `toml:"fallback_timeout_secs"`
}

// UserConfig identifies the user to the backend.
type UserConfig struct {
	// ID is the stable per-user identity sent with every request.
	// Generated on first run when empty.
	ID string `toml:"id"`
}

// SearchConfig contains direct document search configuration.
type SearchConfig struct {
	// TopK is the number of matches requested per search.
	TopK int `toml:"top_k"`
}

// UploadConfig contains document upload configuration.
type UploadConfig struct {
	// DropDir, when set, is watched for new files to upload automatically.
	DropDir string `toml:"drop_dir"`
	// Visibility is the default for uploaded documents: PRIVATE or PUBLIC.
	Visibility string `toml:"visibility"`
	// Department, DocType, PolicyYear, and Tags are default metadata fields
	// applied to uploads when not set per file.
	Department string `toml:"department"`
	DocType    string `toml:"doc_type"`
	PolicyYear string `toml:"policy_year"`
	Tags       string `toml:"tags"`
}

// UIConfig contains presentation configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:             "http://localhost:8000",
			TimeoutSecs:         30,
			UploadTimeoutSecs:   60,
			FallbackTimeoutSecs: 60,
		},
		Search: SearchConfig{
			TopK: 6,
		},
		Upload: UploadConfig{
			Visibility: api.VisibilityPrivate,
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the ragchat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.EnsureUserID()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with defaults,
// environment overrides, and validation. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}
	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	cfg.EnsureUserID()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if cfg.Server.UploadTimeoutSecs <= 0 {
		cfg.Server.UploadTimeoutSecs = defaults.Server.UploadTimeoutSecs
	}
	if cfg.Server.FallbackTimeoutSecs <= 0 {
		cfg.Server.FallbackTimeoutSecs = defaults.Server.FallbackTimeoutSecs
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = defaults.Search.TopK
	}
	if cfg.Upload.Visibility == "" {
		cfg.Upload.Visibility = defaults.Upload.Visibility
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// ApplyEnvOverrides applies environment variable overrides. The variables
// win over file values so deployments can point at another backend without
// editing the file.
func (c *Config) ApplyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("RAGCHAT_BASE_URL")); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCHAT_USER_ID")); v != "" {
		c.User.ID = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCHAT_DROP_DIR")); v != "" {
		c.Upload.DropDir = v
	}
}

// EnsureUserID generates a stable user identity on first run.
func (c *Config) EnsureUserID() {
	if c.User.ID == "" {
		c.User.ID = "user_" + uuid.NewString()[:8]
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	switch c.Upload.Visibility {
	case api.VisibilityPrivate, api.VisibilityPublic:
	default:
		return fmt.Errorf("upload.visibility %q must be %s or %s",
			c.Upload.Visibility, api.VisibilityPrivate, api.VisibilityPublic)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("ui.theme %q must be dark or light", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default TOML file atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to the given path atomically, so a
// crash mid-write never leaves a truncated config behind.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# ragchat configuration file\n")
	buf.WriteString("# Edit with care; environment variables override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// BRIDGING
// =============================================================================

// ClientConfig derives the backend client configuration.
func (c *Config) ClientConfig() *api.ClientConfig {
	return &api.ClientConfig{
		BaseURL:         api.ResolveBaseURL(c.Server.BaseURL),
		Timeout:         time.Duration(c.Server.TimeoutSecs) * time.Second,
		UploadTimeout:   time.Duration(c.Server.UploadTimeoutSecs) * time.Second,
		FallbackTimeout: time.Duration(c.Server.FallbackTimeoutSecs) * time.Second,
	}
}

// UploadMeta derives the default upload metadata.
func (c *Config) UploadMeta() api.UploadMeta {
	return api.UploadMeta{
		Visibility: c.Upload.Visibility,
		Department: c.Upload.Department,
		DocType:    c.Upload.DocType,
		PolicyYear: c.Upload.PolicyYear,
		Tags:       c.Upload.Tags,
	}
}
