package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

type PushConfig struct {
	Transport         string        `yaml:"transport"`
	URL               string        `yaml:"url"`
	NATSURL           string        `yaml:"nats_url"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// Config is the client configuration. Precedence: defaults, then the YAML
// file, then environment variables.
type Config struct {
	APIURL        string        `yaml:"api_url"`
	Push          PushConfig    `yaml:"push"`
	StatsInterval time.Duration `yaml:"stats_interval"`
	ViewAddr      string        `yaml:"view_addr"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	LogLevel      string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL: "http://localhost:8000",
		Push: PushConfig{
			Transport:         TransportWebSocket,
			URL:               "ws://localhost:8765",
			NATSURL:           "nats://localhost:4222",
			ReconnectInterval: 5 * time.Second,
		},
		StatsInterval: 5 * time.Second,
		ViewAddr:      ":8090",
		LogLevel:      "info",
	}
}

// Load reads .env if present, then the YAML file at path (or PVP_CONFIG when
// path is empty), then the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("PVP_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getEnv("OLYMPIAD_API_URL", cfg.APIURL)
	cfg.Push.Transport = getEnv("PVP_PUSH_TRANSPORT", cfg.Push.Transport)
	cfg.Push.URL = getEnv("PVP_PUSH_URL", cfg.Push.URL)
	cfg.Push.NATSURL = getEnv("NATS_URL", cfg.Push.NATSURL)
	cfg.Push.ReconnectInterval = getEnvAsDuration("PVP_RECONNECT_INTERVAL", cfg.Push.ReconnectInterval)
	cfg.StatsInterval = getEnvAsDuration("PVP_STATS_INTERVAL", cfg.StatsInterval)
	cfg.ViewAddr = getEnv("PVP_VIEW_ADDR", cfg.ViewAddr)
	cfg.Username = getEnv("PVP_USERNAME", cfg.Username)
	cfg.Password = getEnv("PVP_PASSWORD", cfg.Password)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Push.Transport {
	case TransportWebSocket, TransportNATS:
	default:
		errs = append(errs, fmt.Errorf("unknown push transport %q", c.Push.Transport))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is required"))
	}
	if c.Push.ReconnectInterval <= 0 {
		errs = append(errs, fmt.Errorf("reconnect interval must be positive, got %s", c.Push.ReconnectInterval))
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats interval must be positive, got %s", c.StatsInterval))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the configured zerolog level, defaulting to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s") or plain seconds ("5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration")
	return defaultValue
}
