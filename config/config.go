// Package config loads the psyreport server configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/log"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"database"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Render  RenderConfig  `yaml:"render"`
	AI      assist.Config `yaml:"ai"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// MaxBodyBytes bounds request bodies; uploads arrive as base64 JSON.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type StorageConfig struct {
	UploadDir     string        `yaml:"upload_dir"`
	TempMaxAge    time.Duration `yaml:"temp_max_age"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type RenderConfig struct {
	MaxConcurrent   int           `yaml:"max_concurrent"`
	AssetTimeout    time.Duration `yaml:"asset_timeout"`
	RequireSections bool          `yaml:"require_sections"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  time.Minute,
			MaxBodyBytes: 10 << 20,
		},
		DB: DBConfig{Path: "psyreport.sqlite"},
		Auth: AuthConfig{
			TokenTTL: 2 * time.Hour,
		},
		Storage: StorageConfig{
			UploadDir:     "uploads",
			TempMaxAge:    24 * time.Hour,
			PurgeInterval: time.Hour,
		},
		Render: RenderConfig{
			MaxConcurrent:   4,
			AssetTimeout:    5 * time.Second,
			RequireSections: true,
		},
		AI:      assist.Config{Model: assist.DefaultModel},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment overrides. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PSYREPORT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PSYREPORT_DB"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("PSYREPORT_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}
	if v := os.Getenv("PSYREPORT_UPLOAD_DIR"); v != "" {
		c.Storage.UploadDir = v
	}
	if v := os.Getenv("PSYREPORT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("PSYREPORT_AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("PSYREPORT_AI_MOCK"); v != "" {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PSYREPORT_AI_MOCK: %w", err)
		}
		c.AI.Mock = mock
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.TokenSecret == "" {
		return errors.New("config: missing auth.token_secret (or PSYREPORT_TOKEN_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: auth.token_ttl must be positive")
	}
	if c.DB.Path == "" {
		return errors.New("config: missing database.path")
	}
	if c.Storage.UploadDir == "" {
		return errors.New("config: missing storage.upload_dir")
	}
	if c.Storage.PurgeInterval <= 0 || c.Storage.TempMaxAge <= 0 {
		return errors.New("config: storage.purge_interval and storage.temp_max_age must be positive")
	}
	if c.Render.MaxConcurrent <= 0 {
		return errors.New("config: render.max_concurrent must be positive")
	}
	if c.Render.AssetTimeout <= 0 {
		return errors.New("config: render.asset_timeout must be positive")
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Logging.Level)
}

// RenderOptions are the server-wide defaults of every render. Page format
// and orientation come from each user's branding.
func (c *Config) RenderOptions() []psyreport.Option {
	opts := []psyreport.Option{
		psyreport.WithAssetTimeout(c.Render.AssetTimeout),
	}
	if c.Render.RequireSections {
		opts = append(opts, psyreport.WithRequiredSections())
	}
	return opts
}

// URL is the address the server can be reached at locally.
func (c *Config) URL() string {
	return "http://" + regexp.MustCompile(`^(0\.0\.0\.0)?:`).ReplaceAllString(c.Server.Addr, "localhost:")
}
