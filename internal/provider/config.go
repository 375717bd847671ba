// Package provider defines provider configuration persistence, the Provider
// interface, usage accounting, rate-limit snapshots, and the selection policy.
package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
)

// Type tags a provider configuration.
type Type string

const (
	TypeAnthropic  Type = "anthropic"
	TypeOpenAI     Type = "openai"
	TypeClaudeCode Type = "claude_code"
	TypeCodex      Type = "codex"
)

// IsAnthropic reports whether the provider speaks the Anthropic Messages API.
func (t Type) IsAnthropic() bool {
	return t == TypeAnthropic || t == TypeClaudeCode
}

// OAuthCredentials is the oauth sub-section of a provider file.
type OAuthCredentials struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	// ExpiresAt is absolute, milliseconds since the Unix epoch.
	ExpiresAt int64    `toml:"expires_at"`
	Scopes    []string `toml:"scopes"`
}

// refreshThresholdMs is the proactive-refresh window before expiry.
const refreshThresholdMs = 5 * 60 * 1000

// StaleAt reports whether the credential needs a refresh at the given time.
func (c *OAuthCredentials) StaleAt(nowMs int64) bool {
	return nowMs+refreshThresholdMs >= c.ExpiresAt
}

// Stale reports whether the credential needs a refresh now.
func (c *OAuthCredentials) Stale() bool {
	return c.StaleAt(time.Now().UnixMilli())
}

// APICredentials is the api sub-section of a provider file.
type APICredentials struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// Config is one provider record. Exactly one of OAuth and API is set.
type Config struct {
	Name string `toml:"-"`
	Type Type   `toml:"type"`
	// AliasTools turns on tool-name aliasing for this provider.
	AliasTools bool `toml:"alias_tools,omitempty"`
	// DisableOnAuthError takes the provider out of scheduling after a hard
	// 4xx from the token refresh endpoint.
	DisableOnAuthError bool              `toml:"disable_on_auth_error,omitempty"`
	OAuth              *OAuthCredentials `toml:"oauth,omitempty"`
	API                *APICredentials   `toml:"api,omitempty"`
}

var (
	ErrMissingType   = errors.New("provider config missing type")
	ErrNoCredentials = errors.New("provider config has neither [oauth] nor [api] section")
	ErrAmbiguousAuth = errors.New("provider config has both [oauth] and [api] sections")
)

func (c *Config) validate() error {
	if strings.TrimSpace(string(c.Type)) == "" {
		return ErrMissingType
	}
	switch {
	case c.OAuth != nil && c.API != nil:
		return ErrAmbiguousAuth
	case c.OAuth == nil && c.API == nil:
		return ErrNoCredentials
	}
	return nil
}

func configPath(dir, name string) string {
	return filepath.Join(dir, name+".toml")
}

// Save serializes cfg to dir/name.toml, creating dir if needed. The write
// goes to a temp file first and is renamed into place so concurrent readers
// never observe a torn file.
func Save(dir, name string, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create providers directory: %w", err)
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize provider %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".toml.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write provider %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write provider %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, configPath(dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("install provider %s: %w", name, err)
	}
	return nil
}

// Load reads and validates one provider file. The file stem becomes Name.
func Load(dir, name string) (*Config, error) {
	return loadPath(configPath(dir, name))
}

func loadPath(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Name = strings.TrimSuffix(filepath.Base(path), ".toml")
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.OAuth != nil && cfg.OAuth.Scopes == nil {
		cfg.OAuth.Scopes = []string{}
	}
	return &cfg, nil
}

// LoadAll enumerates dir/*.toml. Files that fail to load are logged and
// skipped so one broken file does not take down the rest.
func LoadAll(dir string) ([]*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read providers directory: %w", err)
	}

	var configs []*Config
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		cfg, err := loadPath(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.L().Warn("skipping provider config", zap.Error(err))
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// UpdateOAuth replaces the oauth sub-section of an existing record,
// preserving its type and unrelated fields.
func UpdateOAuth(dir, name string, creds *OAuthCredentials) error {
	cfg, err := Load(dir, name)
	if err != nil {
		return err
	}
	cfg.OAuth = creds
	cfg.API = nil
	return Save(dir, name, cfg)
}
