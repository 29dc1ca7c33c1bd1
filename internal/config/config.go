package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults applied when a key is absent from config.toml.
const (
	DefaultPageSize            = 30
	DefaultCandidateLimit      = 40
	DefaultThumbnailRetryDelay = 1500 * time.Millisecond
	DefaultSearchBot           = "ProSearchM11Bot"
	DefaultLinkBot             = "FileToLinkV5Bot"
	DefaultSearchTimeout       = 10 * time.Second
	DefaultLinkTimeout         = 30 * time.Second
	DefaultPlayer              = "mpv"
	DefaultLogLevel            = "info"
	envAPIID                   = "TELE_API_ID"
	envAPIHash                 = "TELE_API_HASH"
)

// Duration wraps time.Duration so it can be written as "1500ms" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.tele/config.toml.
type Config struct {
	DefaultSession      string   `toml:"default_session"`
	APIID               int64    `toml:"api_id,omitempty"`
	APIHash             string   `toml:"api_hash,omitempty"`
	PageSize            int      `toml:"page_size,omitempty"`
	CandidateLimit      int      `toml:"candidate_limit,omitempty"`
	ThumbnailRetryDelay Duration `toml:"thumbnail_retry_delay,omitempty"`
	SearchBot           string   `toml:"search_bot,omitempty"`
	LinkBot             string   `toml:"link_bot,omitempty"`
	SearchTimeout       Duration `toml:"search_timeout,omitempty"`
	LinkTimeout         Duration `toml:"link_timeout,omitempty"`
	MetricsAddr         string   `toml:"metrics_addr,omitempty"`
	LogLevel            string   `toml:"log_level,omitempty"`
	Player              string   `toml:"player,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from the given path. Returns nil and an error if the
// file is missing or malformed.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return nil, fmt.Errorf("load config %s: %w", path, err)
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = DefaultCandidateLimit
	}
	if c.ThumbnailRetryDelay.Duration <= 0 {
		c.ThumbnailRetryDelay.Duration = DefaultThumbnailRetryDelay
	}
	if c.SearchBot == "" {
		c.SearchBot = DefaultSearchBot
	}
	if c.LinkBot == "" {
		c.LinkBot = DefaultLinkBot
	}
	if c.SearchTimeout.Duration <= 0 {
		c.SearchTimeout.Duration = DefaultSearchTimeout
	}
	if c.LinkTimeout.Duration <= 0 {
		c.LinkTimeout.Duration = DefaultLinkTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Player == "" {
		c.Player = DefaultPlayer
	}
}

// ApplyEnv overlays API credentials from a dotenv file (if present) and the
// process environment. Explicit environment variables win over the file,
// and both win over config.toml.
func (c *Config) ApplyEnv(dotenvPath string) error {
	fileEnv := map[string]string{}
	if dotenvPath != "" {
		env, err := godotenv.Read(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		if env != nil {
			fileEnv = env
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fileEnv[key]
	}
	if v := lookup(envAPIID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envAPIID, err)
		}
		c.APIID = id
	}
	if v := lookup(envAPIHash); v != "" {
		c.APIHash = v
	}
	return nil
}

// HasCredentials reports whether both API credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.APIID > 0 && c.APIHash != ""
}
