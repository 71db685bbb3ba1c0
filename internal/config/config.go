// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/directory-crawler/internal/catalog"
	"github.com/JakeFAU/directory-crawler/internal/storage/postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Search     SearchConfig     `mapstructure:"search"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Images     ImagesConfig     `mapstructure:"images"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	GCS        GCSConfig        `mapstructure:"gcs"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SearchConfig defines what is searched and how each unit is driven.
type SearchConfig struct {
	Areas            []catalog.Area `mapstructure:"areas"`
	Categories       []string       `mapstructure:"categories"`
	Country          string         `mapstructure:"country"`
	BaseURL          string         `mapstructure:"base_url"`
	MaxAttempts      int            `mapstructure:"max_attempts"`
	MaxWait          time.Duration  `mapstructure:"max_wait"`
	MaxExecutionTime time.Duration  `mapstructure:"max_execution_time"`
	RetryDelay       time.Duration  `mapstructure:"retry_delay"`
	SettleDelay      time.Duration  `mapstructure:"settle_delay"`
	ScrollPasses     int            `mapstructure:"scroll_passes"`
	ScrollPause      time.Duration  `mapstructure:"scroll_pause"`
	MaxListings      int            `mapstructure:"max_listings"`
	UnitPause        time.Duration  `mapstructure:"unit_pause"`
}

// BrowserConfig controls the page session.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"`
	UserAgent       string        `mapstructure:"user_agent"`
	WindowWidth     int           `mapstructure:"window_width"`
	WindowHeight    int           `mapstructure:"window_height"`
	StartPort       int           `mapstructure:"start_port"`
	PortSpan        int           `mapstructure:"port_span"`
	StartAttempts   int           `mapstructure:"start_attempts"`
	StartRetryDelay time.Duration `mapstructure:"start_retry_delay"`
	ExecPath        string        `mapstructure:"exec_path"`
	ActionTimeout   time.Duration `mapstructure:"action_timeout"`
}

// FetchConfig governs secondary HTTP fetches (images and business sites).
type FetchConfig struct {
	GateCapacity int           `mapstructure:"gate_capacity"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
	SiteTimeout  time.Duration `mapstructure:"site_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	PerHostRPS   float64       `mapstructure:"per_host_rps"`
	PerHostBurst int           `mapstructure:"per_host_burst"`
}

// ImagesConfig sets where listing images are written.
type ImagesConfig struct {
	Dir          string `mapstructure:"dir"`
	FolderPrefix string `mapstructure:"folder_prefix"`
}

// CheckpointConfig sets snapshot cadence, naming and format.
type CheckpointConfig struct {
	Interval         int           `mapstructure:"interval"`
	Duration         time.Duration `mapstructure:"duration"`
	Dir              string        `mapstructure:"dir"`
	Prefix           string        `mapstructure:"prefix"`
	Format           string        `mapstructure:"format"`
	FinalSaveTimeout time.Duration `mapstructure:"final_save_timeout"`
}

// PostgresConfig enables the optional listing table sink.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// GCSConfig enables mirroring snapshots into a bucket.
type GCSConfig struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// PubSubConfig holds metadata for snapshot notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// RedisConfig enables the completed-unit ledger.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig controls the ops HTTP server; port 0 disables it.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// Snapshot formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DIRCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")

	v.SetDefault("search.areas", catalog.DefaultAreas)
	v.SetDefault("search.categories", catalog.DefaultCategories)
	v.SetDefault("search.country", "Spain")
	v.SetDefault("search.base_url", "https://www.google.com/maps")
	v.SetDefault("search.max_attempts", 3)
	v.SetDefault("search.max_wait", 45*time.Second)
	v.SetDefault("search.max_execution_time", 300*time.Second)
	v.SetDefault("search.retry_delay", 5*time.Second)
	v.SetDefault("search.settle_delay", 3*time.Second)
	v.SetDefault("search.scroll_passes", 3)
	v.SetDefault("search.scroll_pause", 2*time.Second)
	v.SetDefault("search.max_listings", 5)
	v.SetDefault("search.unit_pause", time.Second)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.start_port", 9515)
	v.SetDefault("browser.port_span", 100)
	v.SetDefault("browser.start_attempts", 3)
	v.SetDefault("browser.start_retry_delay", 5*time.Second)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.action_timeout", 10*time.Second)

	v.SetDefault("fetch.gate_capacity", 50)
	v.SetDefault("fetch.poll_interval", 100*time.Millisecond)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay", 500*time.Millisecond)
	v.SetDefault("fetch.image_timeout", 30*time.Second)
	v.SetDefault("fetch.site_timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("fetch.max_idle_conns", 100)
	v.SetDefault("fetch.per_host_rps", 0)
	v.SetDefault("fetch.per_host_burst", 1)

	v.SetDefault("images.dir", ".")
	v.SetDefault("images.folder_prefix", "images_")

	v.SetDefault("checkpoint.interval", 10)
	v.SetDefault("checkpoint.duration", 30*time.Minute)
	v.SetDefault("checkpoint.dir", ".")
	v.SetDefault("checkpoint.prefix", "business_data")
	v.SetDefault("checkpoint.format", FormatXLSX)
	v.SetDefault("checkpoint.final_save_timeout", time.Minute)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "listings")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.max_conn_lifetime", 30*time.Minute)

	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.prefix", "snapshots")
	v.SetDefault("gcs.cache_control", "no-cache")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 72*time.Hour)

	v.SetDefault("server.port", 0)
	v.SetDefault("server.api_key", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := catalog.Validate(c.Search.Areas, c.Search.Categories); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.Search.MaxAttempts <= 0 {
		return fmt.Errorf("search.max_attempts must be > 0")
	}
	if c.Search.MaxWait <= 0 || c.Search.MaxExecutionTime <= 0 {
		return fmt.Errorf("search.max_wait and search.max_execution_time must be > 0")
	}
	if c.Search.ScrollPasses < 0 || c.Search.MaxListings < 0 {
		return fmt.Errorf("search.scroll_passes and search.max_listings must be >= 0")
	}
	if c.Browser.StartAttempts <= 0 {
		return fmt.Errorf("browser.start_attempts must be > 0")
	}
	if c.Browser.StartPort <= 0 || c.Browser.StartPort+c.Browser.PortSpan > 65536 {
		return fmt.Errorf("browser.start_port %d with span %d is out of range", c.Browser.StartPort, c.Browser.PortSpan)
	}
	if c.Fetch.GateCapacity <= 0 {
		return fmt.Errorf("fetch.gate_capacity must be > 0")
	}
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("fetch.max_retries must be > 0")
	}
	if c.Fetch.ImageTimeout <= 0 || c.Fetch.SiteTimeout <= 0 {
		return fmt.Errorf("fetch.image_timeout and fetch.site_timeout must be > 0")
	}
	if c.Checkpoint.Interval <= 0 {
		return fmt.Errorf("checkpoint.interval must be > 0")
	}
	if c.Checkpoint.Duration <= 0 {
		return fmt.Errorf("checkpoint.duration must be > 0")
	}
	switch c.Checkpoint.Format {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("checkpoint.format %q must be %q or %q", c.Checkpoint.Format, FormatXLSX, FormatCSV)
	}
	if c.Postgres.DSN != "" && !postgres.ValidTableName(c.Postgres.Table) {
		return fmt.Errorf("postgres.table %q is not a valid identifier", c.Postgres.Table)
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	return nil
}
