package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-medreport/internal/tagger"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultOutputDir   = "training"
	DefaultCacheTTL    = 10 * time.Minute

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes the environment variables, as in MEDREPORT_LOG_LEVEL.
	EnvPrefix = "MEDREPORT"
)

// Config holds all configuration for the medical report processor
type Config struct {
	// Server configuration
	Mode        string `mapstructure:"mode"` // "server" or "stdio"
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Document configuration
	InputDirectory  string `mapstructure:"dir"`
	OutputDirectory string `mapstructure:"output"`
	Pages           string `mapstructure:"pages"`
	LexiconPath     string `mapstructure:"lexicon"`

	// Processing configuration
	Workers     int           `mapstructure:"workers"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	WithIDs     bool          `mapstructure:"with_ids"`
	MaxFileSize int64         `mapstructure:"max_file_size"` // Maximum PDF file size in bytes

	// Tagger runs the labelling model. An empty command disables labelling.
	Tagger tagger.ExecConfig `mapstructure:"tagger"`

	// Application configuration
	Version    string `mapstructure:"-"`
	ServerName string `mapstructure:"-"`
	LogLevel   string `mapstructure:"log_level"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	exec := tagger.DefaultExecConfig()
	exec.Command = ""

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		InputDirectory:  currentDir,
		OutputDirectory: filepath.Join(currentDir, DefaultOutputDir),
		CacheTTL:        DefaultCacheTTL,
		MaxFileSize:     DefaultMaxFileSize,
		Tagger:          exec,
		Version:         "1.0.0",
		ServerName:      "mcp-medreport",
		LogLevel:        DefaultLogLevel,
	}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"mode":           "mode",
	"host":           "host",
	"port":           "port",
	"metrics-addr":   "metrics_addr",
	"dir":            "dir",
	"output":         "output",
	"pages":          "pages",
	"lexicon":        "lexicon",
	"workers":        "workers",
	"cache-ttl":      "cache_ttl",
	"with-ids":       "with_ids",
	"max-file-size":  "max_file_size",
	"log-level":      "log_level",
	"tagger-command": "tagger.command",
	"tagger-model":   "tagger.model",
	"tagger-timeout": "tagger.timeout",
}

// DefineFlags adds the configuration flags to fs.
func DefineFlags(fs *pflag.FlagSet) {
	cfg := DefaultConfig()
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("metrics-addr", cfg.MetricsAddr, "Address serving Prometheus metrics, empty to disable")
	fs.String("dir", cfg.InputDirectory, "Directory containing the PDF reports")
	fs.String("output", cfg.OutputDirectory, "Directory receiving the training files")
	fs.String("pages", cfg.Pages, "Pages to extract, e.g. 1-3,5 (all pages when empty)")
	fs.String("lexicon", cfg.LexiconPath, "YAML lexicon replacing the embedded one")
	fs.Int("workers", cfg.Workers, "Documents processed concurrently (0 uses the CPU count)")
	fs.Duration("cache-ttl", cfg.CacheTTL, "How long processed documents are cached")
	fs.Bool("with-ids", cfg.WithIDs, "Add xml:id attributes to the TEI elements")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("tagger-command", cfg.Tagger.Command, "Labelling command reading feature records on stdin")
	fs.String("tagger-model", cfg.Tagger.Model, "Model file passed to the labelling command")
	fs.Duration("tagger-timeout", cfg.Tagger.Timeout, "Timeout of one labelling attempt")
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads the configuration from defaults, an optional YAML file,
// MEDREPORT_ environment variables and the flags of fs, in increasing
// precedence. Without cfgFile, config.yaml is looked up in the working
// directory and in $HOME/.medreport.
func NewManager(fs *pflag.FlagSet, cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(fs, cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(fs *pflag.FlagSet, cfgFile string) error {
	v := m.v
	defaults := DefaultConfig()
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("dir", defaults.InputDirectory)
	v.SetDefault("output", defaults.OutputDirectory)
	v.SetDefault("pages", defaults.Pages)
	v.SetDefault("lexicon", defaults.LexiconPath)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("cache_ttl", defaults.CacheTTL)
	v.SetDefault("with_ids", defaults.WithIDs)
	v.SetDefault("max_file_size", defaults.MaxFileSize)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("tagger.command", defaults.Tagger.Command)
	v.SetDefault("tagger.args", defaults.Tagger.Args)
	v.SetDefault("tagger.model", defaults.Tagger.Model)
	v.SetDefault("tagger.attempts", defaults.Tagger.Attempts)
	v.SetDefault("tagger.delay", defaults.Tagger.Delay)
	v.SetDefault("tagger.timeout", defaults.Tagger.Timeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.medreport")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a validated Config.
func (m *Manager) load() (*Config, error) {
	cfg := DefaultConfig()
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig reloads the configuration when the config file changes.
// Invalid changes are reported to onError and the previous configuration
// stays in effect.
func (m *Manager) WatchConfig(onError func(error)) {
	m.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.InputDirectory, &c.OutputDirectory, &c.LexiconPath} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.InputDirectory == "" {
		return errors.New("input directory cannot be empty")
	}
	if info, err := os.Stat(c.InputDirectory); err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDirectory, err)
	} else if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", c.InputDirectory)
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	if c.Tagger.Command != "" && c.Tagger.Timeout < 0 {
		return errors.New("tagger timeout cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// EnsureOutputDirectory creates the output directory when missing.
func (c *Config) EnsureOutputDirectory() error {
	if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
	}
	return nil
}

// HasTagger reports whether a labelling command is configured.
func (c *Config) HasTagger() bool {
	return c.Tagger.Command != ""
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Input: %s, Output: %s, Tagger: %q, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.InputDirectory, c.OutputDirectory, c.Tagger.Command, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
