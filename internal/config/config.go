package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server and device configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Device    DeviceConfig    `yaml:"device"`
	Timer     TimerConfig     `yaml:"timer"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TransportConfig struct {
	// Mode is "stdio" or "http".
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DeviceConfig identifies who is using this device and where its local
// state lives.
type DeviceConfig struct {
	UserID    string `yaml:"user_id"`
	StatePath string `yaml:"state_path"`
}

type TimerConfig struct {
	WatchInterval  time.Duration `yaml:"watch_interval"`
	NotesDebounce  time.Duration `yaml:"notes_debounce"`
	NotesMaxLength int           `yaml:"notes_max_length"`
}

type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "timekeep.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Device: DeviceConfig{
			UserID:    "local",
			StatePath: defaultStatePath(),
		},
		Timer: TimerConfig{
			WatchInterval:  500 * time.Millisecond,
			NotesDebounce:  time.Second,
			NotesMaxLength: 500,
		},
		Events: EventsConfig{
			KafkaTopic: "timekeep.sessions",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TIMEKEEP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TIMEKEEP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TIMEKEEP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEKEEP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TIMEKEEP_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TIMEKEEP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("TIMEKEEP_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("TIMEKEEP_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEKEEP_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if userID := os.Getenv("TIMEKEEP_USER_ID"); userID != "" {
		cfg.Device.UserID = userID
	}
	if statePath := os.Getenv("TIMEKEEP_STATE_PATH"); statePath != "" {
		cfg.Device.StatePath = statePath
	}
	if err := durationEnv("TIMEKEEP_WATCH_INTERVAL", &cfg.Timer.WatchInterval); err != nil {
		return Config{}, err
	}
	if err := durationEnv("TIMEKEEP_NOTES_DEBOUNCE", &cfg.Timer.NotesDebounce); err != nil {
		return Config{}, err
	}
	if brokers := os.Getenv("TIMEKEEP_KAFKA_BROKERS"); brokers != "" {
		cfg.Events.KafkaBrokers = splitList(brokers)
	}
	if topic := os.Getenv("TIMEKEEP_KAFKA_TOPIC"); topic != "" {
		cfg.Events.KafkaTopic = topic
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Device.UserID == "" {
		return fmt.Errorf("device user id is empty")
	}
	if c.Timer.WatchInterval <= 0 || c.Timer.NotesDebounce <= 0 {
		return fmt.Errorf("timer intervals must be positive")
	}
	if c.Timer.NotesMaxLength <= 0 {
		return fmt.Errorf("notes max length must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func durationEnv(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "timekeep-device.yaml"
	}
	return filepath.Join(home, ".timekeep", "device.yaml")
}
