package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Store    StoreConfig
	Fetcher  FetcherConfig
	Resolver ResolverConfig
	Lookup   LookupConfig
}

type ServerConfig struct {
	HTTPPort string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
}

// StoreConfig selects the cache backend: postgres, redis, or memory.
type StoreConfig struct {
	Backend string
}

type FetcherConfig struct {
	TimeoutSeconds    int
	MaxBodyMB         int
	MaxRedirects      int
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// ResolverConfig carries the override table for domains whose sellers
// document is published away from the canonical location.
type ResolverConfig struct {
	Overrides []OverrideConfig
}

type OverrideConfig struct {
	Domain string
	URL    string
}

type LookupConfig struct {
	StreamTimeoutCapMs   int
	DefaultMaxConcurrent int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SELLERS_SERVICE")
	viper.AutomaticEnv()

	viper.SetDefault("server.httpport", ":8080")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("fetcher.timeoutseconds", 30)
	viper.SetDefault("fetcher.maxbodymb", 200)
	viper.SetDefault("fetcher.maxredirects", 10)
	viper.SetDefault("fetcher.useragent", "go-sellers-cache/1.0")
	viper.SetDefault("fetcher.requestspersecond", 5)
	viper.SetDefault("fetcher.burst", 10)
	viper.SetDefault("lookup.streamtimeoutcapms", 8000)
	viper.SetDefault("lookup.defaultmaxconcurrent", 3)

	// A missing config file is fine; defaults and environment cover it.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// OverrideMap flattens the override entries into the lookup table the URL
// resolver consumes.
func (c *ResolverConfig) OverrideMap() map[string]string {
	overrides := make(map[string]string, len(c.Overrides))
	for _, o := range c.Overrides {
		if o.Domain == "" || o.URL == "" {
			continue
		}
		overrides[o.Domain] = o.URL
	}
	return overrides
}
