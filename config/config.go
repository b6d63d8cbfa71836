// Package config loads the qveris client configuration from an optional
// YAML file, applying defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Host application identifiers. The host determines the credential
// namespace suffix, which MCP config targets are written, and whether
// the rules file is managed.
const (
	HostVSCode = "vscode"
	HostCursor = "cursor"
)

const (
	// DefaultBaseURL is the production Qveris API host.
	DefaultBaseURL = "https://api.qveris.ai"
	// DefaultLoginURL is the browser login page used by the OAuth flow.
	DefaultLoginURL = "https://app.qveris.ai/login"
	// DefaultRulesPath is resolved relative to the workspace root.
	DefaultRulesPath = ".cursor/rules/qveris.mdc"
)

// Config holds all client settings.
type Config struct {
	// BaseURL is the Qveris API host, without a trailing slash.
	BaseURL string `yaml:"base_url"`
	// LoginURL is the browser page opened for OAuth login.
	LoginURL string `yaml:"login_url"`
	// Host is the host application this client integrates with
	// (HostVSCode or HostCursor).
	Host string `yaml:"host"`
	// KeyPrefix names API keys created by this client.
	KeyPrefix string `yaml:"key_prefix"`
	// Workspace is the open workspace root; empty means no workspace.
	Workspace string `yaml:"workspace"`
	// RulesPath locates the managed rules file. Supports "~/" shorthand,
	// absolute paths, and workspace-relative paths.
	RulesPath string `yaml:"rules_path"`
	// MCPConfigPath is the always-written user-home MCP descriptor.
	MCPConfigPath string `yaml:"mcp_config_path"`
	// DataDir holds the local credential store.
	DataDir string `yaml:"data_dir"`
	// CallbackPort is the loopback port for the OAuth callback
	// listener; 0 picks an ephemeral port.
	CallbackPort int `yaml:"callback_port"`
	// SearchLimit caps free-text search results.
	SearchLimit int `yaml:"search_limit"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qveris", "config.yaml")
}

// Load reads the config file at path (missing file is not an error),
// applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.Host != HostVSCode && cfg.Host != HostCursor {
		return nil, fmt.Errorf("unknown host application %q", cfg.Host)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QVERIS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("QVERIS_LOGIN_URL"); v != "" {
		cfg.LoginURL = v
	}
	if v := os.Getenv("QVERIS_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("QVERIS_WORKSPACE"); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv("QVERIS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QVERIS_CALLBACK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.CallbackPort = p
		}
	}
}

func applyDefaults(cfg *Config) {
	home, _ := os.UserHomeDir()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.Host == "" {
		cfg.Host = HostCursor
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "qveris-" + cfg.Host
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = DefaultRulesPath
	}
	if cfg.MCPConfigPath == "" && home != "" {
		cfg.MCPConfigPath = filepath.Join(home, ".cursor", "mcp.json")
	}
	if cfg.DataDir == "" && home != "" {
		cfg.DataDir = filepath.Join(home, ".config", "qveris")
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
}

// ExpandPath resolves a path that may be absolute, "~/"-relative, or
// workspace-relative.
func (c *Config) ExpandPath(p string) string {
	if p == "" {
		return ""
	}
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	if c.Workspace != "" {
		return filepath.Join(c.Workspace, p)
	}
	return p
}
