package config

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	Lock      LockConfig
	Broadcast BroadcastConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	ClientBaseURL string
	CORSOrigins   []string

	// Proxies whose X-Forwarded-For is believed when resolving the socket
	// peer for rate limiting
	TrustedProxies []string
}

// StoreConfig selects the poll store: mongo, postgres, mysql or memory
type StoreConfig struct {
	Driver      string
	MongoURI    string
	MongoDB     string
	DatabaseURL string
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// LockConfig selects how mutations on one poll are serialized: memory or redis
type LockConfig struct {
	Backend string
	TTL     time.Duration
}

// BroadcastConfig selects the fan-out bus between instances: local, redis or kafka
type BroadcastConfig struct {
	Bus          string
	KafkaBrokers []string
	KafkaTopic   string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}

		viper.SetDefault("HOST", "")
		viper.SetDefault("PORT", "4000")
		viper.SetDefault("READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("CLIENT_BASE_URL", "http://localhost:5173")
		viper.SetDefault("CORS_ORIGINS", "http://localhost:5173")
		viper.SetDefault("TRUSTED_PROXIES", "")
		viper.SetDefault("STORE_DRIVER", "mongo")
		viper.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
		viper.SetDefault("MONGODB_DB", "live_polls")
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("LOCK_BACKEND", "memory")
		viper.SetDefault("LOCK_TTL", 5*time.Second)
		viper.SetDefault("BROADCAST_BUS", "local")
		viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
		viper.SetDefault("KAFKA_TOPIC", "poll-events")
		viper.SetDefault("RATE_LIMIT_REQUESTS", 500)
		viper.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "text")
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:           viper.GetString("HOST"),
				Port:           viper.GetString("PORT"),
				ReadTimeout:    viper.GetDuration("READ_TIMEOUT"),
				WriteTimeout:   viper.GetDuration("WRITE_TIMEOUT"),
				IdleTimeout:    viper.GetDuration("IDLE_TIMEOUT"),
				ClientBaseURL:  strings.TrimRight(viper.GetString("CLIENT_BASE_URL"), "/"),
				CORSOrigins:    splitList(viper.GetString("CORS_ORIGINS")),
				TrustedProxies: splitList(viper.GetString("TRUSTED_PROXIES")),
			},
			Store: StoreConfig{
				Driver:      strings.ToLower(viper.GetString("STORE_DRIVER")),
				MongoURI:    viper.GetString("MONGODB_URI"),
				MongoDB:     viper.GetString("MONGODB_DB"),
				DatabaseURL: viper.GetString("DATABASE_URL"),
			},
			Redis: RedisConfig{
				URI:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			Lock: LockConfig{
				Backend: strings.ToLower(viper.GetString("LOCK_BACKEND")),
				TTL:     viper.GetDuration("LOCK_TTL"),
			},
			Broadcast: BroadcastConfig{
				Bus:          strings.ToLower(viper.GetString("BROADCAST_BUS")),
				KafkaBrokers: splitList(viper.GetString("KAFKA_BROKERS")),
				KafkaTopic:   viper.GetString("KAFKA_TOPIC"),
			},
			RateLimit: RateLimitConfig{
				Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
				Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
		}
	})

	return ConfigInstance, nil
}

// AllowedOrigins merges CORS_ORIGINS with the origin of CLIENT_BASE_URL
func (s ServerConfig) AllowedOrigins() []string {
	seen := make(map[string]bool)
	origins := make([]string, 0, len(s.CORSOrigins)+1)
	candidates := append([]string{}, s.CORSOrigins...)
	if u, err := url.Parse(s.ClientBaseURL); err == nil && u.Scheme != "" && u.Host != "" {
		candidates = append(candidates, u.Scheme+"://"+u.Host)
	}
	for _, origin := range candidates {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
