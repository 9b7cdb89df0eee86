package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// Config holds all runtime configuration. Values come from the environment,
// then an optional YAML file (CONFIG_FILE) keyed by the same names, then defaults.
// CHAT_TOKEN and CHAT_BROADCAST_CHANNEL are required.
type Config struct {
	// Global kill-switch for all outbound delivery.
	Enabled bool

	// Identity sent to the messages service
	Organization     string
	ClientID         string
	NotificationType string

	// Upstream messages service
	MessagesBaseURL string
	PollInterval    time.Duration
	FetchTimeout    time.Duration

	// Chat platform
	ChatToken            string
	ChatAPIURL           string
	ChatBroadcastChannel string
	ChatConnectTimeout   time.Duration
	ChatSendTimeout      time.Duration
	ChatRateLimit        int
	MaxReplyLength       int

	// Dispatch
	SupportedEventType string
	TemplateDir        string
	TemplateWatch      bool
	SiteURL            string

	// Read model (empty = no lookups)
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	DBMigrate      bool
	MigrationsPath string

	// Server. APIToken is the bearer token for /api/v1; empty leaves the
	// intake API open, so bind it on a trusted network only.
	APIToken        string
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	QueueCapacity int
	LogLevel      string
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	return src.build()
}

func (s source) build() (*Config, error) {
	cfg := &Config{
		Enabled: s.getBool("ENABLED", true),

		Organization:     s.getEnv("ORGANIZATION", "StarfireAviation"),
		ClientID:         s.getEnv("CLIENT_ID", "TELEGRAM"),
		NotificationType: s.getEnv("NOTIFICATION_TYPE", "TELEGRAM"),

		MessagesBaseURL: strings.TrimRight(s.getEnv("MESSAGES_BASE_URL", "https://messages.starfireaviation.com"), "/"),
		PollInterval:    s.getDuration("POLL_INTERVAL", time.Second),
		FetchTimeout:    s.getDuration("FETCH_TIMEOUT", 10*time.Second),

		ChatToken:            s.getEnv("CHAT_TOKEN", ""),
		ChatAPIURL:           s.getEnv("CHAT_API_URL", ""),
		ChatBroadcastChannel: s.getEnv("CHAT_BROADCAST_CHANNEL", ""),
		ChatConnectTimeout:   s.getDuration("CHAT_CONNECT_TIMEOUT", 10*time.Second),
		ChatSendTimeout:      s.getDuration("CHAT_SEND_TIMEOUT", 10*time.Second),
		ChatRateLimit:        s.getInt("CHAT_RATE_LIMIT", 25),
		MaxReplyLength:       s.getInt("MAX_REPLY_LENGTH", 4096),

		SupportedEventType: s.getEnv("SUPPORTED_EVENT_TYPE", "GROUNDSCHOOL"),
		TemplateDir:        s.getEnv("TEMPLATE_DIR", ""),
		TemplateWatch:      s.getBool("TEMPLATE_WATCH", false),
		SiteURL:            s.getEnv("SITE_URL", "https://www.starfireaviation.com"),

		DatabaseURL:    s.getEnv("DATABASE_URL", ""),
		DBMaxConns:     int32(s.getInt("DB_MAX_CONNS", 10)),
		DBMinConns:     int32(s.getInt("DB_MIN_CONNS", 1)),
		DBMigrate:      s.getBool("DB_MIGRATE", false),
		MigrationsPath: s.getEnv("MIGRATIONS_PATH", "file://migrations"),

		APIToken:        s.getEnv("API_TOKEN", ""),
		HTTPPort:        s.getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     s.getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    s.getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: s.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		QueueCapacity: s.getInt("QUEUE_CAPACITY", 1000),
		LogLevel:      s.getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ChatToken == "" {
		return nil, fmt.Errorf("CHAT_TOKEN is required")
	}
	if cfg.ChatBroadcastChannel == "" {
		return nil, fmt.Errorf("CHAT_BROADCAST_CHANNEL is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

// source resolves a key from the environment first, then from the YAML file.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	s := source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return s, fmt.Errorf("yaml unmarshal: %w", err)
	}
	for k, v := range raw {
		if v == nil {
			continue
		}
		s.file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return s, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultVal string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return defaultVal
}

func (s source) getInt(key string, defaultVal int) int {
	if v := s.lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func (s source) getBool(key string, defaultVal bool) bool {
	if v := s.lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func (s source) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
