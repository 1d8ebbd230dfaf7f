package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_autosave/internal/logger"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "GO_AUTOSAVE"
	envConfigPath = "GO_AUTOSAVE_CONFIG_PATH"
	envPort       = "PORT"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	AutoSave AutoSaveConfig
	Misc     MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

type DataConfig struct {
	FilePath        string
	PersistInterval time.Duration
}

// AutoSaveConfig controls editing sessions and where their saves go.
type AutoSaveConfig struct {
	Delay          time.Duration
	SessionTTL     time.Duration
	ReaperPoll     time.Duration
	Executor       string
	RemoteBaseURL  string
	RemoteTimeout  time.Duration
	MaxBufferBytes int64
}

type MiscConfig struct {
	GinMode  string
	LogLevel string
}

// LoadConfig reads config.yaml from GO_AUTOSAVE_CONFIG_PATH (default ./config),
// applies GO_AUTOSAVE_* env overrides and validates the result.
// The data file is created with an empty document when missing.
func LoadConfig() (*Config, error) {
	viper.Reset()

	confPath := getEnvOrDefault(envConfigPath, "./config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(confPath)

	setDefaults()

	// GO_AUTOSAVE_AUTOSAVE_DELAY overrides autosave.delay
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Infof("no config file found in %s, using defaults and env vars", confPath)
	}

	port, err := getEnvOrViperPort(envPort, "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     viper.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			FilePath:        viper.GetString("data.file_path"),
			PersistInterval: viper.GetDuration("data.persist_interval"),
		},
		AutoSave: AutoSaveConfig{
			Delay:          viper.GetDuration("autosave.delay"),
			SessionTTL:     viper.GetDuration("autosave.session_ttl"),
			ReaperPoll:     viper.GetDuration("autosave.reaper_poll"),
			Executor:       strings.ToLower(viper.GetString("autosave.executor")),
			RemoteBaseURL:  viper.GetString("autosave.remote_base_url"),
			RemoteTimeout:  viper.GetDuration("autosave.remote_timeout"),
			MaxBufferBytes: viper.GetInt64("autosave.max_buffer_bytes"),
		},
		Misc: MiscConfig{
			GinMode:  viper.GetString("misc.gin_mode"),
			LogLevel: getEnvOrDefault("LOG_LEVEL", viper.GetString("misc.log_level")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureDataFile(cfg.Data.FilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8084)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "5s")
	viper.SetDefault("server.request_timeout", "5s")
	viper.SetDefault("server.cors_allowed_origins", "*")

	viper.SetDefault("data.file_path", "./config/data/profiles.json")
	viper.SetDefault("data.persist_interval", "5s")

	viper.SetDefault("autosave.delay", "2s")
	viper.SetDefault("autosave.session_ttl", "30m")
	viper.SetDefault("autosave.reaper_poll", "1m")
	viper.SetDefault("autosave.executor", "store")
	viper.SetDefault("autosave.remote_base_url", "")
	viper.SetDefault("autosave.remote_timeout", "10s")
	viper.SetDefault("autosave.max_buffer_bytes", 1<<20)

	viper.SetDefault("misc.gin_mode", "release")
	viper.SetDefault("misc.log_level", "info")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server read, write and idle timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}

	if c.Data.FilePath == "" {
		return errors.New("data file path is required")
	}
	if c.Data.PersistInterval <= 0 {
		return errors.New("data persist interval must be positive")
	}

	if c.AutoSave.Delay <= 0 {
		return errors.New("autosave delay must be positive")
	}
	if c.AutoSave.SessionTTL <= 0 {
		return errors.New("autosave session ttl must be positive")
	}
	if c.AutoSave.ReaperPoll <= 0 {
		return errors.New("autosave reaper poll must be positive")
	}
	if c.AutoSave.MaxBufferBytes <= 0 {
		return errors.New("autosave max buffer bytes must be positive")
	}
	switch c.AutoSave.Executor {
	case "store", "":
	case "http":
		if c.AutoSave.RemoteBaseURL == "" {
			return errors.New("autosave remote base url is required for the http executor")
		}
		if c.AutoSave.RemoteTimeout <= 0 {
			return errors.New("autosave remote timeout must be positive")
		}
	default:
		return fmt.Errorf("unknown autosave executor: %s", c.AutoSave.Executor)
	}

	return nil
}

func ensureDataFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat data file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	logger.WithComponent("config").Infof("created empty data file %s", path)
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, v, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}
