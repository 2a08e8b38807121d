package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"pitchwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	MLB        MLBConfig        `mapstructure:"mlb"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates the optional PostgreSQL alert audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Retention prunes audit rows older than this on startup. Zero keeps
	// everything.
	Retention time.Duration `mapstructure:"retention"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// MLBConfig covers Stats API access.
type MLBConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SportID        int           `mapstructure:"sport_id"`
	TeamID         int           `mapstructure:"team_id"`
	Source         string        `mapstructure:"source"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`

	// TimeZone is the IANA zone that defines "today" for the schedule
	// query. Empty uses the process-local zone.
	TimeZone string `mapstructure:"time_zone"`
}

// ThresholdsConfig defines the suspicion rule. Stat thresholds are strings
// so they reach decimal parsing without float drift.
type ThresholdsConfig struct {
	MinInning              int    `mapstructure:"min_inning"`
	ERA                    string `mapstructure:"era"`
	StolenBasePct          string `mapstructure:"stolen_base_pct"`
	InheritedRunnersScored int    `mapstructure:"inherited_runners_scored"`
	WildPitches            int    `mapstructure:"wild_pitches"`
	RookieSeason           int    `mapstructure:"rookie_season"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DiscordConfig describes Discord webhook delivery parameters.
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PITCHWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pitchwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70697763))

	v.SetDefault("mlb.base_url", "https://statsapi.mlb.com")
	v.SetDefault("mlb.sport_id", 1)
	v.SetDefault("mlb.team_id", 0)
	v.SetDefault("mlb.source", "feed")
	v.SetDefault("mlb.request_timeout", "10s")
	v.SetDefault("mlb.user_agent", "pitchwatch/1.0")
	v.SetDefault("mlb.time_zone", "")

	v.SetDefault("thresholds.min_inning", 6)
	v.SetDefault("thresholds.era", "5.00")
	v.SetDefault("thresholds.stolen_base_pct", "80")
	v.SetDefault("thresholds.inherited_runners_scored", 5)
	v.SetDefault("thresholds.wild_pitches", 3)
	v.SetDefault("thresholds.rookie_season", 0)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.channels", []string{"discord"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.discord.enabled", false)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention", "0s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.MLB.SportID <= 0 {
		return fmt.Errorf("mlb.sport_id must be greater than zero")
	}
	if c.MLB.Source != "feed" && c.MLB.Source != "boxscore" {
		return fmt.Errorf("mlb.source must be %q or %q", "feed", "boxscore")
	}
	if c.MLB.TimeZone != "" {
		if _, err := time.LoadLocation(c.MLB.TimeZone); err != nil {
			return fmt.Errorf("mlb.time_zone: %w", err)
		}
	}
	if c.Thresholds.MinInning < 0 {
		return fmt.Errorf("thresholds.min_inning cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Alerting.Discord.Enabled && c.Alerting.Discord.WebhookURL == "" {
		return fmt.Errorf("alerting.discord.webhook_url is required when discord is enabled")
	}
	return nil
}
