// Package serverconfig resolves process settings from the environment, with
// an optional YAML file layered on top.
package serverconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the optional YAML overlay
const ConfigPathEnv = "POLLROOM_CONFIG"

// Config holds the server's settings.
type Config struct {
	Port         string          `yaml:"port"`
	ClientOrigin string          `yaml:"client_origin"`
	LogLevel     string          `yaml:"log_level"`
	NATS         NATSConfig      `yaml:"nats"`
	WebSocket    WebSocketConfig `yaml:"websocket"`
}

// NATSConfig controls the JetStream event mirror. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type WebSocketConfig struct {
	MaxMessageSize int64         `yaml:"max_message_size"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// NewConfigFromEnv reads the environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		Port:         getEnv("PORT", "3000"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			Stream:        getEnv("NATS_STREAM", "CLASSROOM_EVENTS"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "classroom.events"),
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
		},
	}
}

// Load overlays the YAML file at path onto base. Keys missing from the file
// keep base's values.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Resolve builds the config from the environment and, when ConfigPathEnv is
// set, the YAML file it names.
func Resolve() (Config, error) {
	cfg := NewConfigFromEnv()
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return Load(path, cfg)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("websocket max message size must be positive, got %d", c.WebSocket.MaxMessageSize)
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket ping interval must be positive, got %s", c.WebSocket.PingInterval)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// AllowedOrigins splits ClientOrigin on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.ClientOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
