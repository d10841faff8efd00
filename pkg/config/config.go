package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache drivers accepted by CACHE_DRIVER.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
	CacheDriverNone   = "none"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Search   SearchConfig
	Sync     SyncConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
	WAL          bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the suggestion cache backend.
type CacheConfig struct {
	Driver string
	Size   int
	TTL    time.Duration
}

// SearchConfig tunes suggestion queries.
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
	Deadline     time.Duration
	Authority    string
}

// SyncConfig tunes the batch ingestion worker.
type SyncConfig struct {
	Workers     int
	Retries     int
	RetryDelay  time.Duration
	StatusLimit int
	StatusTTL   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		BusyTimeout:  parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
		WAL:          v.GetBool("DB_WAL"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("CACHE_DRIVER")))
	switch driver {
	case CacheDriverMemory, CacheDriverRedis, CacheDriverNone:
	default:
		driver = CacheDriverMemory
	}
	cfg.Cache = CacheConfig{
		Driver: driver,
		Size:   v.GetInt("CACHE_SIZE"),
		TTL:    parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Search = SearchConfig{
		DefaultLimit: v.GetInt("SEARCH_DEFAULT_LIMIT"),
		MaxLimit:     v.GetInt("SEARCH_MAX_LIMIT"),
		Deadline:     parseDuration(v.GetString("SEARCH_DEADLINE"), 250*time.Millisecond),
		Authority:    v.GetString("SUGGEST_AUTHORITY"),
	}

	cfg.Sync = SyncConfig{
		Workers:     v.GetInt("SYNC_WORKERS"),
		Retries:     v.GetInt("SYNC_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("SYNC_RETRY_DELAY"), time.Second),
		StatusLimit: v.GetInt("SYNC_STATUS_LIMIT"),
		StatusTTL:   parseDuration(v.GetString("SYNC_STATUS_TTL"), time.Hour),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_PATH", "./wk-search.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")
	v.SetDefault("DB_WAL", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_DRIVER", CacheDriverMemory)
	v.SetDefault("CACHE_SIZE", 512)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("SEARCH_DEFAULT_LIMIT", 20)
	v.SetDefault("SEARCH_MAX_LIMIT", 100)
	v.SetDefault("SEARCH_DEADLINE", "250ms")
	v.SetDefault("SUGGEST_AUTHORITY", "com.smouldering_durtles.wk.subjects")

	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_DELAY", "1s")
	v.SetDefault("SYNC_STATUS_LIMIT", 1024)
	v.SetDefault("SYNC_STATUS_TTL", "1h")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
