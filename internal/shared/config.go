package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Extractor ExtractorConfig `toml:"extractor"`
	Auth      AuthConfig      `toml:"auth"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server and session settings.
type ServerConfig struct {
	Host          string        `toml:"host"`
	Port          int           `toml:"port"`
	SessionSecret string        `toml:"session_secret"`
	SessionTTL    time.Duration `toml:"session_ttl"`
	CookieSecure  bool          `toml:"cookie_secure"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig contains the durable file storage location.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// ExtractorConfig contains settings for the external yt-dlp binary.
type ExtractorConfig struct {
	YTDLPPath  string        `toml:"ytdlp_path"`
	FFmpegPath string        `toml:"ffmpeg_path"`
	Timeout    time.Duration `toml:"timeout"`
}

// AuthConfig contains login/register throttling settings.
type AuthConfig struct {
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config values from YTFETCH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("YTFETCH_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("YTFETCH_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("YTFETCH_SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
}

// Validate checks that the values required to serve requests are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("%w: storage dir is empty", ErrInvalidConfig)
	}
	if c.Server.SessionSecret == "" {
		return fmt.Errorf("%w: session secret is empty", ErrInvalidConfig)
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("%w: extractor timeout must be positive", ErrInvalidConfig)
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
