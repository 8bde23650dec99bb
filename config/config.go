package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup and
// injected into every component that needs a tunable.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Port      int     `mapstructure:"port"`
	Mode      string  `mapstructure:"mode"` // debug | release
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeedConfig carries every feed-engine tunable. The zero value is unusable;
// use Defaults() or Load().
type FeedConfig struct {
	MaxFeedSize         int           `mapstructure:"max_feed_size"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	EngagementThreshold float64       `mapstructure:"engagement_threshold"`
	GeoPrecision        int           `mapstructure:"geo_precision"`
	RecentLikeWindow    int           `mapstructure:"recent_like_window"`
	RecentFollowWindow  int           `mapstructure:"recent_follow_window"`
	RebuildQueueSize    int           `mapstructure:"rebuild_queue_size"`
	RebuildWorkers      int           `mapstructure:"rebuild_workers"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.timeout", 2*time.Second)
	v.SetDefault("feed.max_feed_size", 200)
	v.SetDefault("feed.cache_ttl", 10*time.Minute)
	v.SetDefault("feed.engagement_threshold", 25.0)
	v.SetDefault("feed.geo_precision", 2)
	v.SetDefault("feed.recent_like_window", 50)
	v.SetDefault("feed.recent_follow_window", 100)
	v.SetDefault("feed.rebuild_queue_size", 10000)
	v.SetDefault("feed.rebuild_workers", 2)
}

// Load reads config.yaml from the given path (or the working directory when
// empty) with EVERKEEP_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("EVERKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults + env carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DefaultFeed returns the feed tunables used when no file overrides them.
// Tests construct services from this.
func DefaultFeed() FeedConfig {
	return FeedConfig{
		MaxFeedSize:         200,
		CacheTTL:            10 * time.Minute,
		EngagementThreshold: 25.0,
		GeoPrecision:        2,
		RecentLikeWindow:    50,
		RecentFollowWindow:  100,
		RebuildQueueSize:    10000,
		RebuildWorkers:      2,
	}
}
