package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/backoff"
	"github.com/xraph/crontab/queue"
)

// envPrefix namespaces every environment variable the daemon reads.
const envPrefix = "CRONTAB_"

// queueConfig throttles remote calls for one queue.
type queueConfig struct {
	Name           string  `yaml:"name"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst"`
}

// config is the daemon configuration. Sources are applied in order:
// defaults, the YAML file, the .env file, the environment, then flags.
type config struct {
	RedisURL   string `yaml:"redis_url"`
	TCPAddr    string `yaml:"tcp_addr"`
	HTTPAddr   string `yaml:"http_addr"`
	WSPath     string `yaml:"ws_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	KeyPrefix  string `yaml:"key_prefix"`
	Queue      string `yaml:"default_queue"`
	Method     string `yaml:"default_method"`
	EnvFile    string `yaml:"-"`
	ConfigFile string `yaml:"-"`

	DelayInterval   time.Duration `yaml:"delay_interval"`
	ConsumeInterval time.Duration `yaml:"consume_interval"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RemotePrefixes  []string      `yaml:"remote_prefixes"`

	Backoff        string        `yaml:"backoff"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	DLQ              bool          `yaml:"dlq"`
	JanitorSchedule  string        `yaml:"janitor_schedule"`
	JanitorRetention time.Duration `yaml:"janitor_retention"`

	Audit        bool     `yaml:"audit"`
	AuditActions []string `yaml:"audit_actions"`

	Queues []queueConfig `yaml:"queues"`
}

func defaultConfig() config {
	base := crontab.DefaultConfig()
	return config{
		RedisURL:         "redis://localhost:6379/0",
		TCPAddr:          ":7070",
		HTTPAddr:         ":8080",
		WSPath:           "/ws",
		LogLevel:         "info",
		LogFormat:        "text",
		KeyPrefix:        base.KeyPrefix,
		Queue:            base.DefaultQueue,
		Method:           base.DefaultMethod,
		EnvFile:          ".env",
		DelayInterval:    base.DelayInterval,
		ConsumeInterval:  base.ConsumeInterval,
		HandlerTimeout:   base.HandlerTimeout,
		ShutdownTimeout:  base.ShutdownTimeout,
		RemotePrefixes:   base.RemotePrefixes,
		BackoffInitial:   30 * time.Second,
		BackoffMax:       time.Hour,
		DLQ:              true,
		JanitorRetention: 7 * 24 * time.Hour,
	}
}

// engineConfig maps the daemon settings onto the engine configuration.
func (c config) engineConfig() crontab.Config {
	return crontab.Config{
		DelayInterval:   c.DelayInterval,
		ConsumeInterval: c.ConsumeInterval,
		KeyPrefix:       c.KeyPrefix,
		DefaultQueue:    c.Queue,
		RemotePrefixes:  c.RemotePrefixes,
		DefaultMethod:   c.Method,
		HandlerTimeout:  c.HandlerTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

func (c config) backoff() (backoff.Strategy, error) {
	return backoff.Parse(c.Backoff, c.BackoffInitial, c.BackoffMax)
}

func (c config) queueConfigs() []queue.Config {
	out := make([]queue.Config, 0, len(c.Queues))
	for _, q := range c.Queues {
		out = append(out, queue.Config{
			Name:           q.Name,
			MaxConcurrency: q.MaxConcurrency,
			RateLimit:      q.RateLimit,
			RateBurst:      q.RateBurst,
		})
	}
	return out
}

func (c config) validate() error {
	switch {
	case c.RedisURL == "":
		return errors.New("redis url is required")
	case c.TCPAddr == "" && c.HTTPAddr == "":
		return errors.New("at least one of tcp addr and http addr is required")
	case c.DelayInterval <= 0 || c.ConsumeInterval <= 0:
		return errors.New("intervals must be positive")
	case c.Queue == "":
		return errors.New("default queue must not be empty")
	case !strings.HasPrefix(c.WSPath, "/") || strings.HasPrefix(c.WSPath, "/v1/") || c.WSPath == "/healthz":
		return fmt.Errorf("ws path %q must start with / and not collide with the admin routes", c.WSPath)
	}
	for _, q := range c.Queues {
		if q.Name == "" {
			return errors.New("queue config without a name")
		}
	}
	if _, err := c.backoff(); err != nil {
		return err
	}
	return nil
}

// loadConfig builds the configuration from args and the environment
// lookup getenv.
func loadConfig(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("crontabd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", getenv(envPrefix+"CONFIG"), "path to a YAML config file (overrides $CRONTAB_CONFIG)")
	envFile := fs.String("env-file", cfg.EnvFile, "path to a .env file")
	redisURL := fs.String("redis-url", "", "Redis URL (overrides $CRONTAB_REDIS_URL)")
	tcpAddr := fs.String("tcp-addr", "", "TCP listener address, empty to disable (overrides $CRONTAB_TCP_ADDR)")
	httpAddr := fs.String("http-addr", "", "HTTP/WebSocket listener address, empty to disable (overrides $CRONTAB_HTTP_ADDR)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides $CRONTAB_LOG_LEVEL)")
	keyPrefix := fs.String("key-prefix", "", "Redis key namespace (overrides $CRONTAB_KEY_PREFIX)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configFile != "" {
		if err := loadYAML(*configFile, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ConfigFile = *configFile
	cfg.EnvFile = *envFile

	lookup, err := envLookup(cfg.EnvFile, getenv)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}

	// Flags win over every other source, but only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "tcp-addr":
			cfg.TCPAddr = *tcpAddr
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "key-prefix":
			cfg.KeyPrefix = *keyPrefix
		}
	})

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// envLookup layers the process environment over the .env file. A missing
// .env file is not an error.
func envLookup(envFile string, getenv func(string) string) (func(string) (string, bool), error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileEnv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}

	return func(key string) (string, bool) {
		if v := getenv(key); v != "" {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok && v != ""
	}, nil
}

func applyEnv(cfg *config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"REDIS_URL":        &cfg.RedisURL,
		"TCP_ADDR":         &cfg.TCPAddr,
		"HTTP_ADDR":        &cfg.HTTPAddr,
		"WS_PATH":          &cfg.WSPath,
		"LOG_LEVEL":        &cfg.LogLevel,
		"LOG_FORMAT":       &cfg.LogFormat,
		"KEY_PREFIX":       &cfg.KeyPrefix,
		"DEFAULT_QUEUE":    &cfg.Queue,
		"DEFAULT_METHOD":   &cfg.Method,
		"BACKOFF":          &cfg.Backoff,
		"JANITOR_SCHEDULE": &cfg.JanitorSchedule,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"DELAY_INTERVAL":    &cfg.DelayInterval,
		"CONSUME_INTERVAL":  &cfg.ConsumeInterval,
		"HANDLER_TIMEOUT":   &cfg.HandlerTimeout,
		"SHUTDOWN_TIMEOUT":  &cfg.ShutdownTimeout,
		"BACKOFF_INITIAL":   &cfg.BackoffInitial,
		"BACKOFF_MAX":       &cfg.BackoffMax,
		"JANITOR_RETENTION": &cfg.JanitorRetention,
	}
	for key, dst := range durations {
		v, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "DLQ"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDLQ: %w", envPrefix, err)
		}
		cfg.DLQ = b
	}
	if v, ok := lookup(envPrefix + "AUDIT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sAUDIT: %w", envPrefix, err)
		}
		cfg.Audit = b
	}
	if v, ok := lookup(envPrefix + "REMOTE_PREFIXES"); ok {
		cfg.RemotePrefixes = strings.Split(v, ",")
	}
	return nil
}
