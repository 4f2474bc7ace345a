// Package config loads the server and CLI configuration: defaults, then an
// optional YAML file, then JAAT_* environment variables (a .env file is
// read first when present).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/store"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Personas PersonasConfig `yaml:"personas"`
	Notifier NotifierConfig `yaml:"notifier"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per session, 0 = unlimited
	RateBurst       int           `yaml:"rate_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
}

type StoreConfig struct {
	Backend     string        `yaml:"backend"` // memory, redis or sqlite
	DSN         string        `yaml:"dsn"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Enabled reports whether a generation backend is configured.
func (c OpenAIConfig) Enabled() bool { return c.APIKey != "" }

type PersonasConfig struct {
	Dir       string `yaml:"dir"`        // extra YAML definitions, loaded after the built-ins
	Watch     bool   `yaml:"watch"`      // reload Dir on change
	UploadDir string `yaml:"upload_dir"` // versioned store for uploaded definitions
}

type NotifierConfig struct {
	Stagger      time.Duration `yaml:"stagger"`
	DurationMS   int           `yaml:"duration_ms"`
	NATSURL      string        `yaml:"nats_url"`
	NATSSubject  string        `yaml:"nats_subject"`
	PushSubject  string        `yaml:"push_subject"` // mailto: or https: contact; empty disables Web Push
	VAPIDPublic  string        `yaml:"vapid_public_key"`
	VAPIDPrivate string        `yaml:"vapid_private_key"`
}

type ExportConfig struct {
	Theme           string `yaml:"theme"`
	Watermark       string `yaml:"watermark"`
	DefaultFileName string `yaml:"default_file_name"`
	Timezone        string `yaml:"timezone"`
}

// Location resolves Timezone, falling back to the local zone.
func (c ExportConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[Config] unknown timezone %q, using local time", c.Timezone)
		return time.Local
	}
	return loc
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       10,
			RateBurst:       20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      30 * time.Minute,
		},
		Store: StoreConfig{Backend: store.BackendMemory, RedisPrefix: "jaat"},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
			Timeout:     60 * time.Second,
		},
		Notifier: NotifierConfig{
			Stagger:     300 * time.Millisecond,
			DurationMS:  5000,
			NATSSubject: "jaat.notifications",
		},
		Export: ExportConfig{Theme: "light", DefaultFileName: "chat-export"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// DefaultEnvFiles are tried, in order, when Load is given none.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Load builds the configuration. path may be empty. Env files only set
// variables that are not already set; JAAT_DOTENV=off skips them.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("JAAT_DOTENV"))) {
	case "0", "false", "off", "no":
		return nil
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
		log.Printf("[Config] loaded env from %s", f)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	str("JAAT_ADDR", &cfg.Server.Addr)
	if v := strings.TrimSpace(os.Getenv("JAAT_RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("JAAT_RATE_LIMIT: %w", err))
		} else {
			cfg.Server.RateLimit = f
		}
	}
	num("JAAT_RATE_BURST", &cfg.Server.RateBurst)
	dur("JAAT_SESSION_TTL", &cfg.Server.SessionTTL)

	str("JAAT_STORE_BACKEND", &cfg.Store.Backend)
	str("JAAT_STORE_DSN", &cfg.Store.DSN)
	if cfg.Store.DSN == "" && strings.EqualFold(cfg.Store.Backend, store.BackendRedis) {
		str("REDIS_URL", &cfg.Store.DSN)
	}

	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("JAAT_OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("JAAT_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("JAAT_OPENAI_MODEL", &cfg.OpenAI.Model)

	str("JAAT_PERSONA_DIR", &cfg.Personas.Dir)
	str("JAAT_PERSONA_UPLOAD_DIR", &cfg.Personas.UploadDir)

	dur("JAAT_NOTIFIER_STAGGER", &cfg.Notifier.Stagger)
	num("JAAT_NOTIFIER_DURATION_MS", &cfg.Notifier.DurationMS)
	str("JAAT_NATS_URL", &cfg.Notifier.NATSURL)
	str("JAAT_PUSH_SUBJECT", &cfg.Notifier.PushSubject)
	str("JAAT_VAPID_PUBLIC_KEY", &cfg.Notifier.VAPIDPublic)
	str("JAAT_VAPID_PRIVATE_KEY", &cfg.Notifier.VAPIDPrivate)

	str("JAAT_EXPORT_WATERMARK", &cfg.Export.Watermark)
	str("JAAT_TIMEZONE", &cfg.Export.Timezone)

	str("JAAT_LOG_LEVEL", &cfg.Log.Level)
	str("JAAT_LOG_FORMAT", &cfg.Log.Format)
	return errors.Join(errs...)
}

// Validate checks the values Load cannot repair.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Store.Backend) {
	case "", store.BackendMemory:
	case store.BackendRedis, store.BackendSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store backend %s requires a dsn", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server addr is empty"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("rate burst must be at least 1"))
	}
	if c.Notifier.Stagger <= 0 {
		errs = append(errs, errors.New("notifier stagger must be positive"))
	}
	if c.Notifier.DurationMS < 0 {
		errs = append(errs, errors.New("notifier duration must not be negative"))
	}
	if (c.Notifier.VAPIDPublic == "") != (c.Notifier.VAPIDPrivate == "") {
		errs = append(errs, errors.New("vapid public and private keys must be set together"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
