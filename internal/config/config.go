package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters shared by the catalog, the lifecycle
// manager and the request clients. Both components receive it at
// construction; there is no package-level mutable configuration.
type Config struct {
	// ModelsDir is where pulled model files land and where import scans.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// DataDir holds the catalog database, the server state file and logs.
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	// DBPath overrides the catalog database location. Empty means
	// <data_dir>/catalog.db.
	DBPath string `json:"db_path" yaml:"db_path" toml:"db_path"`

	// ServerBin is the llama-server executable to spawn.
	ServerBin string `json:"server_bin" yaml:"server_bin" toml:"server_bin"`
	// Host and Port address the single active inference server.
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
	// ServerArgs are extra arguments appended to every spawn.
	ServerArgs []string `json:"server_args" yaml:"server_args" toml:"server_args"`

	// StartupTimeoutSec bounds the readiness wait after a spawn.
	StartupTimeoutSec int `json:"startup_timeout_sec" yaml:"startup_timeout_sec" toml:"startup_timeout_sec"`
	// ConnectTimeoutSec is the TCP connect timeout for forwarded requests.
	ConnectTimeoutSec int `json:"connect_timeout_sec" yaml:"connect_timeout_sec" toml:"connect_timeout_sec"`

	// DownloaderBin fetches hub models into ModelsDir.
	DownloaderBin string `json:"downloader_bin" yaml:"downloader_bin" toml:"downloader_bin"`
	// HubBaseURL is the model hub API root used by recent/trending.
	HubBaseURL string `json:"hub_base_url" yaml:"hub_base_url" toml:"hub_base_url"`

	// Addr is the listen address for the management API (serve).
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Default returns the baseline configuration with environment overrides
// applied. Flags applied by the CLI take precedence over both.
func Default() Config {
	home, _ := os.UserHomeDir()
	cfg := Config{
		ModelsDir:         filepath.Join(home, "models", "llm"),
		DataDir:           filepath.Join(home, ".llamactl"),
		ServerBin:         "llama-server",
		Host:              "127.0.0.1",
		Port:              8012,
		StartupTimeoutSec: 300,
		ConnectTimeoutSec: 5,
		DownloaderBin:     "huggingface-cli",
		HubBaseURL:        "https://huggingface.co",
		Addr:              ":8090",
		LogLevel:          "info",
	}
	if v := os.Getenv("LLAMACTL_MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
	}
	if v := os.Getenv("LLAMACTL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LLAMACTL_SERVER_BIN"); v != "" {
		cfg.ServerBin = v
	}
	if v := os.Getenv("LLAMACTL_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}
	if v := os.Getenv("LLAMACTL_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LLAMACTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays non-zero fields of other onto c and returns the result.
func (c Config) Merge(other Config) Config {
	out := c
	if other.ModelsDir != "" {
		out.ModelsDir = other.ModelsDir
	}
	if other.DataDir != "" {
		out.DataDir = other.DataDir
	}
	if other.DBPath != "" {
		out.DBPath = other.DBPath
	}
	if other.ServerBin != "" {
		out.ServerBin = other.ServerBin
	}
	if other.Host != "" {
		out.Host = other.Host
	}
	if other.Port != 0 {
		out.Port = other.Port
	}
	if len(other.ServerArgs) > 0 {
		out.ServerArgs = other.ServerArgs
	}
	if other.StartupTimeoutSec != 0 {
		out.StartupTimeoutSec = other.StartupTimeoutSec
	}
	if other.ConnectTimeoutSec != 0 {
		out.ConnectTimeoutSec = other.ConnectTimeoutSec
	}
	if other.DownloaderBin != "" {
		out.DownloaderBin = other.DownloaderBin
	}
	if other.HubBaseURL != "" {
		out.HubBaseURL = other.HubBaseURL
	}
	if other.Addr != "" {
		out.Addr = other.Addr
	}
	if other.CORSEnabled {
		out.CORSEnabled = true
	}
	if len(other.CORSOrigins) > 0 {
		out.CORSOrigins = other.CORSOrigins
	}
	if other.LogLevel != "" {
		out.LogLevel = other.LogLevel
	}
	return out
}

// DatabasePath resolves the catalog database location.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "catalog.db")
}

// StateFilePath resolves the lifecycle state file location.
func (c Config) StateFilePath() string {
	return filepath.Join(c.DataDir, "servers.json")
}

// LogDir resolves the directory holding per-slug server logs.
func (c Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// StartupTimeout returns the readiness ceiling as a duration.
func (c Config) StartupTimeout() time.Duration {
	return time.Duration(c.StartupTimeoutSec) * time.Second
}

// ConnectTimeout returns the request connect timeout as a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// ServerAddr returns host:port of the single active server slot.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerBaseURL returns the HTTP base URL of the active server slot.
func (c Config) ServerBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
