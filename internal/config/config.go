package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for rozvidka.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"  yaml:"session"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Export   ExportConfig   `mapstructure:"export"   yaml:"export"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SessionConfig controls the shared HTTP session used by all JSON/HTML fetches.
type SessionConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	ShortTimeout    time.Duration `mapstructure:"short_timeout"     yaml:"short_timeout"`
	PacingMin       time.Duration `mapstructure:"pacing_min"        yaml:"pacing_min"`
	PacingMax       time.Duration `mapstructure:"pacing_max"        yaml:"pacing_max"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
}

// BrowserConfig controls rendered-page extraction sessions.
type BrowserConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`
	ClickDelay        time.Duration `mapstructure:"click_delay"        yaml:"click_delay"`
	ContentTimeout    time.Duration `mapstructure:"content_timeout"    yaml:"content_timeout"`
	WindowSize        string        `mapstructure:"window_size"        yaml:"window_size"`
	BinPath           string        `mapstructure:"bin_path"           yaml:"bin_path"`
}

// PipelineConfig controls batching and pagination.
type PipelineConfig struct {
	BatchSize        int `mapstructure:"batch_size"        yaml:"batch_size"`
	MaxPages         int `mapstructure:"max_pages"         yaml:"max_pages"`
	SearchWorkers    int `mapstructure:"search_workers"    yaml:"search_workers"`
	SellerWorkers    int `mapstructure:"seller_workers"    yaml:"seller_workers"`
	FavoritesWorkers int `mapstructure:"favorites_workers" yaml:"favorites_workers"`
}

// ExportConfig controls the spreadsheet exporter.
type ExportConfig struct {
	OutputDir        string `mapstructure:"output_dir"        yaml:"output_dir"`
	FallbackCategory string `mapstructure:"fallback_category" yaml:"fallback_category"`
	PopularThreshold int    `mapstructure:"popular_threshold" yaml:"popular_threshold"`
}

// StorageConfig controls optional enriched-record sinks.
type StorageConfig struct {
	JSONLEnabled    bool   `mapstructure:"jsonl_enabled"    yaml:"jsonl_enabled"`
	JSONLPath       string `mapstructure:"jsonl_path"       yaml:"jsonl_path"`
	MongoEnabled    bool   `mapstructure:"mongo_enabled"    yaml:"mongo_enabled"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with defaults matching the marketplace's
// observed limits.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			RequestTimeout:  15 * time.Second,
			ShortTimeout:    10 * time.Second,
			PacingMin:       200 * time.Millisecond,
			PacingMax:       600 * time.Millisecond,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			AcceptLanguage:  "uk-UA,uk;q=0.9,en-US;q=0.8,en;q=0.7",
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
		Browser: BrowserConfig{
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       3 * time.Second,
			ClickDelay:        1 * time.Second,
			ContentTimeout:    30 * time.Second,
			WindowSize:        "1920,1080",
		},
		Pipeline: PipelineConfig{
			BatchSize:        60,
			MaxPages:         1000,
			SearchWorkers:    50,
			SellerWorkers:    20,
			FavoritesWorkers: 20,
		},
		Export: ExportConfig{
			OutputDir:        "./downloads",
			FallbackCategory: "Без категорії",
			PopularThreshold: 350,
		},
		Storage: StorageConfig{
			JSONLPath:       "./downloads/records.jsonl",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "rozvidka",
			MongoCollection: "products",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
