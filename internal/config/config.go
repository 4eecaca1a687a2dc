// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Close    CloseConfig    `yaml:"close" mapstructure:"close"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CloseConfig holds Close CRM API credentials and fetch behavior.
type CloseConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	SourceFieldID     string  `yaml:"source_field_id" mapstructure:"source_field_id"`
	SourceTag         string  `yaml:"source_tag" mapstructure:"source_tag"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	EnrichConcurrency int     `yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
	RateLimitRPS      float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// Timeout returns the per-request HTTP timeout.
func (c CloseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SheetsConfig holds the Google Sheets target and credentials. An empty
// SpreadsheetID makes the exporter create a new document on each run.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
	ShareEmail      string `yaml:"share_email" mapstructure:"share_email"`
}

// ScheduleConfig holds the daily trigger time.
type ScheduleConfig struct {
	Hour     int    `yaml:"hour" mapstructure:"hour"`
	Minute   int    `yaml:"minute" mapstructure:"minute"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// Optional .env in the working directory, matching the deployment
	// layout the exporter inherited.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv feeds Unmarshal.
	v.SetDefault("close.api_key", "")
	v.SetDefault("close.base_url", "https://api.close.com/api/v1")
	v.SetDefault("close.source_field_id", "")
	v.SetDefault("close.source_tag", "Lead-Maggy")
	v.SetDefault("close.timeout_secs", 10)
	v.SetDefault("close.enrich_concurrency", 0)
	v.SetDefault("close.rate_limit_rps", 4)
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_path", "")
	v.SetDefault("sheets.share_email", "")
	v.SetDefault("schedule.hour", 6)
	v.SetDefault("schedule.minute", 0)
	v.SetDefault("schedule.timezone", "Europe/London")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
