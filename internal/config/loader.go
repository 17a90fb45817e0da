package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("ROZVIDKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("rozvidka")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".rozvidka"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("session.request_timeout", cfg.Session.RequestTimeout)
	v.SetDefault("session.short_timeout", cfg.Session.ShortTimeout)
	v.SetDefault("session.pacing_min", cfg.Session.PacingMin)
	v.SetDefault("session.pacing_max", cfg.Session.PacingMax)
	v.SetDefault("session.user_agent", cfg.Session.UserAgent)
	v.SetDefault("session.accept_language", cfg.Session.AcceptLanguage)
	v.SetDefault("session.max_body_size", cfg.Session.MaxBodySize)
	v.SetDefault("session.max_idle_conns", cfg.Session.MaxIdleConns)
	v.SetDefault("session.idle_conn_timeout", cfg.Session.IdleConnTimeout)

	v.SetDefault("browser.navigation_timeout", cfg.Browser.NavigationTimeout)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)
	v.SetDefault("browser.click_delay", cfg.Browser.ClickDelay)
	v.SetDefault("browser.content_timeout", cfg.Browser.ContentTimeout)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)

	v.SetDefault("pipeline.batch_size", cfg.Pipeline.BatchSize)
	v.SetDefault("pipeline.max_pages", cfg.Pipeline.MaxPages)
	v.SetDefault("pipeline.search_workers", cfg.Pipeline.SearchWorkers)
	v.SetDefault("pipeline.seller_workers", cfg.Pipeline.SellerWorkers)
	v.SetDefault("pipeline.favorites_workers", cfg.Pipeline.FavoritesWorkers)

	v.SetDefault("export.output_dir", cfg.Export.OutputDir)
	v.SetDefault("export.fallback_category", cfg.Export.FallbackCategory)
	v.SetDefault("export.popular_threshold", cfg.Export.PopularThreshold)

	v.SetDefault("storage.jsonl_enabled", cfg.Storage.JSONLEnabled)
	v.SetDefault("storage.jsonl_path", cfg.Storage.JSONLPath)
	v.SetDefault("storage.mongo_enabled", cfg.Storage.MongoEnabled)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
