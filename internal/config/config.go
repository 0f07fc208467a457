package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/utils"
)

const appName = "rawst"

type Config struct {
	ConfigDir   string `mapstructure:"config_dir"`
	ConfigFile  string `mapstructure:"config_file_path"`
	CacheDir    string `mapstructure:"cache_dir"`
	HistoryFile string `mapstructure:"history_file_path"`
	LogDir      string `mapstructure:"log_dir"`
	DownloadDir string `mapstructure:"download_dir"`

	Threads int `mapstructure:"threads"`
	Workers int `mapstructure:"workers"`

	History HistoryConfig `mapstructure:"history"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Retry   RetryConfig   `mapstructure:"retry"`
	S3      S3Config      `mapstructure:"s3"`
	Control ControlConfig `mapstructure:"control"`
}

// HistoryConfig selects the history backend, "json" or "sqlite".
type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
}

type HTTPConfig struct {
	Timeout       string   `mapstructure:"timeout"`
	KeepAlive     string   `mapstructure:"keep_alive_timeout"`
	UserAgent     string   `mapstructure:"user_agent"`
	Proxy         string   `mapstructure:"proxy"`
	ProxyUsername string   `mapstructure:"proxy_username"`
	ProxyPassword string   `mapstructure:"proxy_password"`
	Headers       []string `mapstructure:"headers"`
}

type RetryConfig struct {
	Attempts   int    `mapstructure:"attempts"`
	Backoff    string `mapstructure:"backoff"`
	MaxBackoff string `mapstructure:"max_backoff"`
}

type S3Config struct {
	Profile string `mapstructure:"profile"`
}

type ControlConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// Default returns the configuration used when no config file exists. Paths
// follow the XDG base directories, each with a rawst subdirectory.
func Default() *Config {
	configDir := filepath.Join(userDir(os.UserConfigDir, ".config"), appName)
	cacheDir := filepath.Join(userDir(os.UserCacheDir, ".cache"), appName)
	return &Config{
		ConfigDir:   configDir,
		ConfigFile:  filepath.Join(configDir, "config.toml"),
		CacheDir:    cacheDir,
		HistoryFile: filepath.Join(cacheDir, "history.json"),
		LogDir:      filepath.Join(cacheDir, "logs"),
		DownloadDir: filepath.Join(downloadDir(), appName),
		Threads:     1,
		Workers:     1,
		History:     HistoryConfig{Backend: "json"},
		HTTP: HTTPConfig{
			Timeout:   "3m",
			KeepAlive: "90s",
			UserAgent: utils.ToolUserAgent,
		},
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    "500ms",
			MaxBackoff: "10s",
		},
		Control: ControlConfig{
			BindAddr:     "127.0.0.1:7878",
			ReadTimeout:  "10s",
			WriteTimeout: "10s",
		},
	}
}

func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

func downloadDir() string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}

func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	for key, value := range defaults.settings() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("RAWST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) settings() map[string]any {
	return map[string]any{
		"config_dir":              c.ConfigDir,
		"config_file_path":        c.ConfigFile,
		"cache_dir":               c.CacheDir,
		"history_file_path":       c.HistoryFile,
		"log_dir":                 c.LogDir,
		"download_dir":            c.DownloadDir,
		"threads":                 c.Threads,
		"workers":                 c.Workers,
		"history.backend":         c.History.Backend,
		"http.timeout":            c.HTTP.Timeout,
		"http.keep_alive_timeout": c.HTTP.KeepAlive,
		"http.user_agent":         c.HTTP.UserAgent,
		"http.proxy":              c.HTTP.Proxy,
		"http.proxy_username":     c.HTTP.ProxyUsername,
		"http.proxy_password":     c.HTTP.ProxyPassword,
		"http.headers":            c.HTTP.Headers,
		"retry.attempts":          c.Retry.Attempts,
		"retry.backoff":           c.Retry.Backoff,
		"retry.max_backoff":       c.Retry.MaxBackoff,
		"s3.profile":              c.S3.Profile,
		"control.bind_addr":       c.Control.BindAddr,
		"control.read_timeout":    c.Control.ReadTimeout,
		"control.write_timeout":   c.Control.WriteTimeout,
	}
}

// Load reads the TOML config at path, or the default location when path is
// empty. A missing file yields the defaults. RAWST_* environment variables
// override file values, e.g. RAWST_HTTP_PROXY.
func Load(path string) (*Config, error) {
	defaults := Default()
	if path == "" {
		path = defaults.ConfigFile
	}
	v := newViper(defaults)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug().Str("op", "config").Msgf("No config at %s, using defaults", path)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.ConfigFile = path
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts must not be negative")
	}
	switch c.History.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("history.backend must be json or sqlite, got %q", c.History.Backend)
	}
	durations := map[string]string{
		"http.timeout":            c.HTTP.Timeout,
		"http.keep_alive_timeout": c.HTTP.KeepAlive,
		"retry.backoff":           c.Retry.Backoff,
		"retry.max_backoff":       c.Retry.MaxBackoff,
		"control.read_timeout":    c.Control.ReadTimeout,
		"control.write_timeout":   c.Control.WriteTimeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// Initialise creates the config, cache and log directories, writes the
// config file and an empty history log.
func (c *Config) Initialise() error {
	log.Debug().Str("op", "config").Msg("Creating new configuration")
	for _, dir := range []string{c.ConfigDir, c.CacheDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	v := viper.New()
	for key, value := range c.settings() {
		if headers, ok := value.([]string); ok && headers == nil {
			value = []string{}
		}
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(c.ConfigFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if c.History.Backend == "json" {
		if err := os.WriteFile(c.HistoryFile, []byte("[\n\n]"), 0644); err != nil {
			return fmt.Errorf("failed to write history file: %w", err)
		}
	}
	return nil
}

// HistoryPath is the history file for the configured backend.
func (c *Config) HistoryPath() string {
	if c.History.Backend == "sqlite" {
		return strings.TrimSuffix(c.HistoryFile, filepath.Ext(c.HistoryFile)) + ".db"
	}
	return c.HistoryFile
}

// LogFilePath names a fresh per-run log file, e.g.
// logs/2024-12-31_23h-59m-59s-4242.log.
func (c *Config) LogFilePath() string {
	runID := fmt.Sprintf("%s-%d", time.Now().Format("2006-01-02_15h-04m-05s"), os.Getpid())
	return filepath.Join(c.LogDir, runID+".log")
}

// HTTPClientConfig converts the http section. Validate must have passed.
// More than 8 threads per download enables high-thread socket options.
func (c *Config) HTTPClientConfig() utils.HTTPClientConfig {
	timeout, _ := time.ParseDuration(c.HTTP.Timeout)
	keepAlive, _ := time.ParseDuration(c.HTTP.KeepAlive)
	return utils.HTTPClientConfig{
		Timeout:        timeout,
		KATimeout:      keepAlive,
		ProxyURL:       c.HTTP.Proxy,
		ProxyUsername:  c.HTTP.ProxyUsername,
		ProxyPassword:  c.HTTP.ProxyPassword,
		UserAgent:      c.HTTP.UserAgent,
		Headers:        utils.ParseHeaderArgs(c.HTTP.Headers),
		HighThreadMode: c.Threads > 8,
	}
}

func (c *Config) RetryPolicy() engine.RetryPolicy {
	backoff, _ := time.ParseDuration(c.Retry.Backoff)
	maxBackoff, _ := time.ParseDuration(c.Retry.MaxBackoff)
	return engine.RetryPolicy{
		Attempts:   c.Retry.Attempts,
		Backoff:    backoff,
		MaxBackoff: maxBackoff,
	}
}
