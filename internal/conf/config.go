package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/pkg/minio"
	"github.com/lk2023060901/chat-gateway/internal/pkg/redis"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. CHATGW_SERVER_PORT
const EnvPrefix = "CHATGW"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      logger.Config  `mapstructure:"log"`
	Cache    CacheConfig    `mapstructure:"cache"`
	MinIO    minio.Config   `mapstructure:"minio"`
	Redis    redis.Config   `mapstructure:"redis"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Search   SearchConfig   `mapstructure:"search"`
	Metrics  metrics.Config `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies; generated images arrive as base64.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Cache backends
const (
	BackendFS    = "fs"
	BackendMinIO = "minio"

	IndexMemory = "memory"
	IndexRedis  = "redis"
)

type CacheConfig struct {
	DataDir string `mapstructure:"data_dir"`
	Backend string `mapstructure:"backend"` // fs, minio
	Index   string `mapstructure:"index"`   // memory, redis
}

type UpstreamConfig struct {
	// Timeout bounds non-streaming calls end to end
	Timeout time.Duration `mapstructure:"timeout"`
	// StreamTimeout bounds a whole streamed response; 0 disables it
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	// ImageTimeout bounds image generation calls
	ImageTimeout          time.Duration `mapstructure:"image_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout"`
	UserAgent             string        `mapstructure:"user_agent"`
}

type SearchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// Hosts overrides provider endpoints, keyed by provider id
	Hosts map[string]string `mapstructure:"hosts"`
}

// Validate checks the settings the gateway cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Cache.Backend {
	case BackendFS:
		if c.Cache.DataDir == "" {
			return fmt.Errorf("cache.data_dir is required for the fs backend")
		}
	case BackendMinIO:
		if err := c.MinIO.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache.backend must be 'fs' or 'minio'")
	}

	switch c.Cache.Index {
	case IndexMemory:
	case IndexRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache.index must be 'memory' or 'redis'")
	}

	return c.Log.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 32<<20)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enable_caller", lc.EnableCaller)
	v.SetDefault("log.enable_stacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.max_size", lc.File.MaxSize)
	v.SetDefault("log.file.max_age", lc.File.MaxAge)
	v.SetDefault("log.file.max_backups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	v.SetDefault("cache.data_dir", "data")
	v.SetDefault("cache.backend", BackendFS)
	v.SetDefault("cache.index", IndexMemory)

	mc := minio.DefaultConfig()
	v.SetDefault("minio.endpoint", mc.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", mc.Bucket)
	v.SetDefault("minio.prefix", "")
	v.SetDefault("minio.bucket_lookup", string(mc.BucketLookup))
	v.SetDefault("minio.request_timeout", mc.RequestTimeout)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.key_prefix", rc.KeyPrefix)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.pool_timeout", rc.PoolTimeout)

	v.SetDefault("upstream.timeout", 60*time.Second)
	v.SetDefault("upstream.stream_timeout", 10*time.Minute)
	v.SetDefault("upstream.image_timeout", 5*time.Minute)
	v.SetDefault("upstream.response_header_timeout", 60*time.Second)
	v.SetDefault("upstream.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("search.timeout", 15*time.Second)

	mtc := metrics.DefaultConfig()
	v.SetDefault("metrics.enabled", mtc.Enabled)
	v.SetDefault("metrics.namespace", mtc.Namespace)
	v.SetDefault("metrics.path", mtc.Path)
}

// LoadConfig reads the YAML file at path (optional when empty) and applies
// CHATGW_* environment overrides on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
