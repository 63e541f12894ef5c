package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	JokeAPIBaseURL           string        `mapstructure:"joke_api_base_url"`
	JokeAPITimeoutSeconds    int64         `mapstructure:"joke_api_timeout"`
	JokeAPIMaxRetries        int           `mapstructure:"joke_api_max_retries"`
	JokeAPIRetryDelaySeconds int64         `mapstructure:"joke_api_retry_delay"`
	JokeAPITimeout           time.Duration `mapstructure:"-"`
	JokeAPIRetryDelay        time.Duration `mapstructure:"-"`

	HarvestEndpoint        string        `mapstructure:"harvest_endpoint"`
	HarvestIntervalSeconds int64         `mapstructure:"harvest_interval"`
	HarvestInterval        time.Duration `mapstructure:"-"`
	RunOnce                bool          `mapstructure:"run_once"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	RedisPassword          string        `mapstructure:"redis_password" json:"-"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-joke-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("joke_api_base_url", "https://official-joke-api.onrender.com")
	v.SetDefault("joke_api_timeout", 30)    // seconds
	v.SetDefault("joke_api_max_retries", 3) // extra attempts after the first
	v.SetDefault("joke_api_retry_delay", 2) // seconds
	v.SetDefault("harvest_endpoint", "ten")
	v.SetDefault("harvest_interval", 900) // seconds
	v.SetDefault("run_once", false)
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/jokes.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

// finalize validates ranges and derives the duration fields.
func (cfg *Config) finalize() error {
	if cfg.JokeAPITimeoutSeconds <= 0 {
		return fmt.Errorf("invalid joke_api_timeout (must be positive seconds)")
	}
	if cfg.JokeAPIMaxRetries < 0 {
		return fmt.Errorf("invalid joke_api_max_retries (must be zero or more)")
	}
	if cfg.JokeAPIRetryDelaySeconds < 0 {
		return fmt.Errorf("invalid joke_api_retry_delay (must be zero or more seconds)")
	}
	cfg.JokeAPITimeout = time.Duration(cfg.JokeAPITimeoutSeconds) * time.Second
	cfg.JokeAPIRetryDelay = time.Duration(cfg.JokeAPIRetryDelaySeconds) * time.Second

	cfg.HarvestEndpoint = strings.ToLower(strings.TrimSpace(cfg.HarvestEndpoint))
	switch cfg.HarvestEndpoint {
	case "random", "ten":
	default:
		return fmt.Errorf("invalid harvest_endpoint %q (expected random or ten)", cfg.HarvestEndpoint)
	}

	if cfg.HarvestIntervalSeconds <= 0 {
		return fmt.Errorf("invalid harvest_interval (must be positive seconds)")
	}
	cfg.HarvestInterval = time.Duration(cfg.HarvestIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
