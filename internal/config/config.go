package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the telemetry API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	// Activity log knobs.
	ActivityLogEnabled   bool
	SinkFailureThreshold int
	LogTimezone          string

	// Query and aggregation bounds.
	DefaultPageSize    int
	MaxPageSize        int
	MaxAggregationDays int
	SummaryCacheTTL    time.Duration

	// Export bounds and spreadsheet sink.
	MaxExportRows         int
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LUMO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Lumo Telemetry API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("activity_log.enabled", true)
	v.SetDefault("activity_log.failure_threshold", 3)
	v.SetDefault("activity_log.timezone", "Asia/Seoul")
	v.SetDefault("query.default_page_size", 100)
	v.SetDefault("query.max_page_size", 500)
	v.SetDefault("aggregation.max_range_days", 92)
	v.SetDefault("aggregation.cache_ttl", "5m")
	v.SetDefault("export.max_rows", 100000)

	ttlString := v.GetString("aggregation.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid aggregation cache ttl: %w", err)
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		JWTSecret:             v.GetString("jwt.secret"),
		ActivityLogEnabled:    v.GetBool("activity_log.enabled"),
		SinkFailureThreshold:  v.GetInt("activity_log.failure_threshold"),
		LogTimezone:           v.GetString("activity_log.timezone"),
		DefaultPageSize:       v.GetInt("query.default_page_size"),
		MaxPageSize:           v.GetInt("query.max_page_size"),
		MaxAggregationDays:    v.GetInt("aggregation.max_range_days"),
		SummaryCacheTTL:       ttl,
		MaxExportRows:         v.GetInt("export.max_rows"),
		SheetsSpreadsheetID:   v.GetString("sheets.spreadsheet_id"),
		SheetsCredentialsJSON: v.GetString("sheets.credentials_json"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SinkFailureThreshold <= 0 {
		cfg.SinkFailureThreshold = 3
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 100
	}

	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	if cfg.MaxAggregationDays <= 0 {
		cfg.MaxAggregationDays = 92
	}

	if cfg.MaxExportRows <= 0 {
		cfg.MaxExportRows = 100000
	}

	return cfg, nil
}
