// Package config loads runsettings configuration from YAML, .env files and
// RUNSETTINGS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"runsettings/internal/logging"
	"runsettings/internal/observability"
	"runsettings/internal/settings"
	"runsettings/internal/toolpolicy"
)

const (
	EnvPrefix       = "RUNSETTINGS"
	ConfigName      = "runsettings"
	DefaultHomeDir  = "$HOME/.runsettings"
	DefaultCookie   = "selected_model"
	DefaultLifetime = 365
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	Debug        bool          `mapstructure:"debug" yaml:"debug"`
	EnableCORS   bool          `mapstructure:"enable_cors" yaml:"enable_cors"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig mirrors logging.LogConfig without the writer.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PickerConfig selects the model catalog and picker mode.
type PickerConfig struct {
	AllowCustom bool                   `mapstructure:"allow_custom" yaml:"allow_custom"`
	Preset      string                 `mapstructure:"preset" yaml:"preset"`
	Models      []settings.ModelOption `mapstructure:"models" yaml:"models"`
}

// CookieConfig names the persisted selection cookie.
type CookieConfig struct {
	Name       string `mapstructure:"name" yaml:"name"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// MaxAge returns the cookie lifetime.
func (c CookieConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// SessionsConfig bounds the session registry.
type SessionsConfig struct {
	Max     int           `mapstructure:"max" yaml:"max"`
	IdleTTL time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
}

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig                `mapstructure:"server" yaml:"server"`
	Log          LogConfig                   `mapstructure:"log" yaml:"log"`
	Picker       PickerConfig                `mapstructure:"picker" yaml:"picker"`
	DefaultsFile string                      `mapstructure:"defaults_file" yaml:"defaults_file"`
	StateFile    string                      `mapstructure:"state_file" yaml:"state_file"`
	Cookie       CookieConfig                `mapstructure:"cookie" yaml:"cookie"`
	Sessions     SessionsConfig              `mapstructure:"sessions" yaml:"sessions"`
	Metrics      observability.MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing      observability.TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	ToolPolicy   toolpolicy.Config           `mapstructure:"tool_policy" yaml:"tool_policy"`

	// ConfigFile is the file viper read, empty when running on defaults.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("picker.allow_custom", false)
	v.SetDefault("picker.preset", settings.PresetDrawer)
	v.SetDefault("defaults_file", "")
	v.SetDefault("state_file", "")
	v.SetDefault("cookie.name", DefaultCookie)
	v.SetDefault("cookie.max_age_days", DefaultLifetime)
	v.SetDefault("sessions.max", 1024)
	v.SetDefault("sessions.idle_ttl", 24*time.Hour)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "otlp")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.zipkin_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "runsettings")
	v.SetDefault("tracing.service_version", "")
	v.SetDefault("tool_policy.long_prompt_tokens", toolpolicy.DefaultLongPromptTokens)
	v.SetDefault("tool_policy.deep_research_tokens", toolpolicy.DefaultDeepResearchTokens)
}

type loadOptions struct {
	configPath string
	envFiles   []string
	searchDirs []string
}

// Option customizes Load.
type Option func(*loadOptions)

// WithConfigPath reads an explicit file instead of searching.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) { o.configPath = strings.TrimSpace(path) }
}

// WithEnvFiles loads the given .env files before reading the environment.
// Missing files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(o *loadOptions) { o.envFiles = paths }
}

// WithSearchDirs replaces the directories searched for runsettings.yaml.
func WithSearchDirs(dirs ...string) Option {
	return func(o *loadOptions) { o.searchDirs = dirs }
}

// Load resolves configuration. Precedence, lowest first: defaults, config
// file, .env files, process environment.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{
		envFiles:   []string{".env"},
		searchDirs: []string{".", DefaultHomeDir},
	}
	for _, opt := range opts {
		opt(&options)
	}

	for _, path := range options.envFiles {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.configPath != "" {
		v.SetConfigFile(options.configPath)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, dir := range options.searchDirs {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || options.configPath != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return fmt.Errorf("cookie.name is required")
	}
	if c.Cookie.MaxAgeDays <= 0 {
		return fmt.Errorf("cookie.max_age_days must be positive")
	}
	if len(c.Picker.Models) == 0 {
		if _, err := settings.PresetCatalog(c.Picker.Preset); err != nil {
			return fmt.Errorf("picker.preset: %w", err)
		}
	}
	return nil
}

// Catalog builds the model catalog: an explicit models list wins over the
// preset.
func (c Config) Catalog() (*settings.Catalog, error) {
	if len(c.Picker.Models) > 0 {
		catalog := settings.NewCatalog(c.Picker.Models...)
		if catalog.Len() == 0 {
			return nil, fmt.Errorf("picker.models has no usable entries")
		}
		return catalog, nil
	}
	return settings.PresetCatalog(c.Picker.Preset)
}

// DefaultTable loads defaults_file, or returns the built-in table when unset.
func (c Config) DefaultTable() (*settings.DefaultTable, error) {
	if strings.TrimSpace(c.DefaultsFile) == "" {
		return settings.BuiltinDefaults(), nil
	}
	return settings.LoadDefaultTableFile(c.DefaultsFile)
}

// LoggingConfig converts the log section for logging.Configure.
func (c Config) LoggingConfig() logging.LogConfig {
	return logging.LogConfig{Level: c.Log.Level, Format: c.Log.Format}
}
