package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/augur/internal/alert"
	"github.com/newthinker/augur/internal/core"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Log        LogConfig                 `mapstructure:"log"`
	Instrument InstrumentConfig          `mapstructure:"instrument"`
	Collector  CollectorConfig           `mapstructure:"collector"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Lock       LockConfig                `mapstructure:"lock"`
	Resolution ResolutionConfig          `mapstructure:"resolution"`
	Export     ExportConfig              `mapstructure:"export"`
	Journal    JournalConfig             `mapstructure:"journal"`
	Schedule   ScheduleConfig            `mapstructure:"schedule"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Alerts     AlertsConfig              `mapstructure:"alerts"`
	API        APIConfig                 `mapstructure:"api"`
	LLM        LLMConfig                 `mapstructure:"llm"`
	Commentary CommentaryConfig          `mapstructure:"commentary"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// InstrumentConfig names the forecast target.
type InstrumentConfig struct {
	Ticker       string `mapstructure:"ticker"`
	LookbackDays int    `mapstructure:"lookback_days"`
	Timezone     string `mapstructure:"timezone"`
}

// Location loads the instrument timezone.
func (c InstrumentConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	return loc, nil
}

type CollectorConfig struct {
	Name          string        `mapstructure:"name"` // "yahoo" or "csv"
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Proxy         string        `mapstructure:"proxy"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	CSVPath       string        `mapstructure:"csv_path"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type StorageConfig struct {
	Type        string   `mapstructure:"type"` // "localfs" or "s3"
	Path        string   `mapstructure:"path"` // For localfs
	S3          S3Config `mapstructure:"s3"`   // For S3
	LedgerKey   string   `mapstructure:"ledger_key"`
	ForecastKey string   `mapstructure:"forecast_key"`
	ExportKey   string   `mapstructure:"export_key"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LockConfig selects how concurrent ledger writers are excluded.
type LockConfig struct {
	Type  string        `mapstructure:"type"` // "file", "redis", "memory" or "none"
	Path  string        `mapstructure:"path"`
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// ResolutionConfig controls when and how pending predictions are graded.
type ResolutionConfig struct {
	MinAge      time.Duration `mapstructure:"min_age"`
	Sessions    int           `mapstructure:"sessions"`
	DeadZonePct float64       `mapstructure:"dead_zone_pct"`
}

type ExportConfig struct {
	RecentLimit int `mapstructure:"recent_limit"`
}

type JournalConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ScheduleConfig holds cron expressions with a leading seconds field.
type ScheduleConfig struct {
	ForecastCron string `mapstructure:"forecast_cron"`
	EvaluateCron string `mapstructure:"evaluate_cron"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Listen   string `mapstructure:"listen"`
	Path     string `mapstructure:"path"`
	Textfile string `mapstructure:"textfile"`
}

// NotifierConfig configures one of "telegram", "webhook" or "email".
type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// URL is the webhook endpoint, or an alternate Bot API base for telegram.
	URL string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// LLMConfig selects the model provider used for forecast commentary.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// CommentaryConfig controls the optional plain-language note attached to
// each forecast. The note never changes the forecast itself.
type CommentaryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// APIConfig holds the read-only JSON API served next to the metrics
// endpoint in schedule mode.
type APIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	MaxJobs int           `mapstructure:"max_jobs"`
	JobTTL  time.Duration `mapstructure:"job_ttl"`
}

// AlertsConfig holds ledger health alert rules.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []AlertRule   `mapstructure:"rules"`
}

// AlertRule defines a single alert rule, e.g. expr "accuracy < 50".
type AlertRule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// Load reads configuration from file, layered over Defaults. A .env file
// next to the working directory is applied first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("AUGUR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default so that keys absent from the file
// still unmarshal and can be overridden from the environment.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("instrument.ticker", d.Instrument.Ticker)
	v.SetDefault("instrument.lookback_days", d.Instrument.LookbackDays)
	v.SetDefault("instrument.timezone", d.Instrument.Timezone)

	v.SetDefault("collector.name", d.Collector.Name)
	v.SetDefault("collector.base_url", d.Collector.BaseURL)
	v.SetDefault("collector.timeout", d.Collector.Timeout)
	v.SetDefault("collector.proxy", d.Collector.Proxy)
	v.SetDefault("collector.rate_per_second", d.Collector.RatePerSecond)
	v.SetDefault("collector.burst", d.Collector.Burst)
	v.SetDefault("collector.csv_path", d.Collector.CSVPath)
	v.SetDefault("collector.breaker.consecutive_failures", d.Collector.Breaker.ConsecutiveFailures)
	v.SetDefault("collector.breaker.open_timeout", d.Collector.Breaker.OpenTimeout)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	v.SetDefault("storage.s3.endpoint", d.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("storage.s3.access_key", d.Storage.S3.AccessKey)
	v.SetDefault("storage.s3.secret_key", d.Storage.S3.SecretKey)
	v.SetDefault("storage.s3.prefix", d.Storage.S3.Prefix)
	v.SetDefault("storage.ledger_key", d.Storage.LedgerKey)
	v.SetDefault("storage.forecast_key", d.Storage.ForecastKey)
	v.SetDefault("storage.export_key", d.Storage.ExportKey)

	v.SetDefault("lock.type", d.Lock.Type)
	v.SetDefault("lock.path", d.Lock.Path)
	v.SetDefault("lock.ttl", d.Lock.TTL)
	v.SetDefault("lock.redis.addr", d.Lock.Redis.Addr)
	v.SetDefault("lock.redis.password", d.Lock.Redis.Password)
	v.SetDefault("lock.redis.db", d.Lock.Redis.DB)
	v.SetDefault("lock.redis.key", d.Lock.Redis.Key)

	v.SetDefault("resolution.min_age", d.Resolution.MinAge)
	v.SetDefault("resolution.sessions", d.Resolution.Sessions)
	v.SetDefault("resolution.dead_zone_pct", d.Resolution.DeadZonePct)

	v.SetDefault("export.recent_limit", d.Export.RecentLimit)

	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.sqlite_path", d.Journal.SQLitePath)

	v.SetDefault("schedule.forecast_cron", d.Schedule.ForecastCron)
	v.SetDefault("schedule.evaluate_cron", d.Schedule.EvaluateCron)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("alerts.cooldown", d.Alerts.Cooldown)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.ollama.endpoint", d.LLM.Ollama.Endpoint)
	v.SetDefault("commentary.enabled", d.Commentary.Enabled)
	v.SetDefault("commentary.max_tokens", d.Commentary.MaxTokens)
	v.SetDefault("commentary.temperature", d.Commentary.Temperature)
	v.SetDefault("commentary.timeout", d.Commentary.Timeout)
	v.SetDefault("api.enabled", d.API.Enabled)
	v.SetDefault("api.api_key", d.API.APIKey)
	v.SetDefault("api.max_jobs", d.API.MaxJobs)
	v.SetDefault("api.job_ttl", d.API.JobTTL)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Instrument: InstrumentConfig{
			Ticker:       "SPY",
			LookbackDays: 100,
			Timezone:     "America/New_York",
		},
		Collector: CollectorConfig{
			Name:          "yahoo",
			Timeout:       10 * time.Second,
			RatePerSecond: 2,
			Burst:         1,
			Breaker: BreakerConfig{
				ConsecutiveFailures: 5,
				OpenTimeout:         time.Minute,
			},
		},
		Storage: StorageConfig{
			Type:        "localfs",
			Path:        ".",
			LedgerKey:   "data/prediction_history.json",
			ForecastKey: "forecast_latest.json",
			ExportKey:   "predictions_data.json",
		},
		Lock: LockConfig{
			Type: "file",
			Path: "data/.ledger.lock",
			TTL:  10 * time.Minute,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "augur:ledger",
			},
		},
		Resolution: ResolutionConfig{
			MinAge:      24 * time.Hour,
			Sessions:    2,
			DeadZonePct: 0.1,
		},
		Export: ExportConfig{
			RecentLimit: 30,
		},
		Journal: JournalConfig{
			Enabled:    false,
			SQLitePath: "data/journal.db",
		},
		Schedule: ScheduleConfig{
			// 16:30 and 17:00 local time on weekdays, after the US close.
			ForecastCron: "0 30 16 * * 1-5",
			EvaluateCron: "0 0 17 * * 1-5",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9108",
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Cooldown: 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider: "claude",
			Ollama:   OllamaConfig{Endpoint: "http://localhost:11434"},
		},
		Commentary: CommentaryConfig{
			Enabled:     false,
			MaxTokens:   400,
			Temperature: 0.3,
			Timeout:     30 * time.Second,
		},
		API: APIConfig{
			Enabled: true,
			MaxJobs: 100,
			JobTTL:  24 * time.Hour,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Instrument validation
	if strings.TrimSpace(c.Instrument.Ticker) == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("instrument.ticker is required"))
	}
	if c.Instrument.LookbackDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_days must be positive, got %d", c.Instrument.LookbackDays))
	}
	if _, err := c.Instrument.Location(); err != nil {
		return err
	}

	switch c.Collector.Name {
	case "yahoo":
	case "csv":
		if c.Collector.CSVPath == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("collector.csv_path required when collector is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown collector %q", c.Collector.Name))
	}
	if c.Collector.RatePerSecond < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_per_second cannot be negative, got %f", c.Collector.RatePerSecond))
	}

	// Storage validation
	switch c.Storage.Type {
	case "localfs":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.path required for localfs"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.s3.bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}
	if c.Storage.LedgerKey == "" || c.Storage.ForecastKey == "" || c.Storage.ExportKey == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage keys must not be empty"))
	}

	switch c.Lock.Type {
	case "none", "memory":
	case "file":
		if c.Lock.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("lock.path required for file lock"))
		}
	case "redis":
		if c.Lock.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("lock.redis.addr required for redis lock"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown lock type %q", c.Lock.Type))
	}

	// Resolution validation
	if c.Resolution.Sessions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("resolution.sessions must be at least 1, got %d", c.Resolution.Sessions))
	}
	if c.Resolution.MinAge < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("resolution.min_age cannot be negative, got %s", c.Resolution.MinAge))
	}
	if c.Resolution.DeadZonePct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("dead_zone_pct cannot be negative, got %f", c.Resolution.DeadZonePct))
	}

	if c.Export.RecentLimit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("recent_limit cannot be negative, got %d", c.Export.RecentLimit))
	}
	if c.Journal.Enabled && c.Journal.SQLitePath == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("journal.sqlite_path required when journal is enabled"))
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("telegram bot_token and chat_id required when enabled"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook url required when enabled"))
			}
		case "email":
			if n.Host == "" || n.From == "" || len(n.To) == 0 {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("email host, from and to required when enabled"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}
	}

	if c.Commentary.Enabled {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("llm.claude.api_key required for commentary"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("llm.openai.api_key required for commentary"))
			}
		case "ollama":
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	for _, rule := range c.Alerts.Rules {
		ar := alert.Rule{Name: rule.Name, Expr: rule.Expr}
		if err := ar.Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"forecast_cron": c.Schedule.ForecastCron,
		"evaluate_cron": c.Schedule.EvaluateCron,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("%s: %w", name, err))
		}
	}

	return nil
}
