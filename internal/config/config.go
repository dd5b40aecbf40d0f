package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix         = "saasan"
	DefaultConfigFile = "saasan.yaml"
)

const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageImgur = "imgur"

	CacheLRU   = "lru"
	CacheRedis = "redis"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Events   EventsConfig   `yaml:"events"`
}

type ServerConfig struct {
	BindAddr        string        `yaml:"bindAddr"        envconfig:"BIND_ADDR"`
	Port            uint          `yaml:"port"            envconfig:"PORT"`
	CORSOrigins     []string      `yaml:"corsOrigins"     envconfig:"CORS_ORIGINS"`
	RateLimitRPS    float64       `yaml:"rateLimitRps"    envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rateLimitBurst"  envconfig:"RATE_LIMIT_BURST"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	// URL is either postgres://... or sqlite://<path>
	URL          string `yaml:"url"          envconfig:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DB_MAX_OPEN_CONNS"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" envconfig:"JWT_SECRET"`
}

type StorageConfig struct {
	Backend            string        `yaml:"backend"            envconfig:"STORAGE_BACKEND"`
	LocalDir           string        `yaml:"localDir"           envconfig:"STORAGE_LOCAL_DIR"`
	GCSBucket          string        `yaml:"gcsBucket"          envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string        `yaml:"gcsCredentialsFile" envconfig:"GCS_CREDENTIALS_FILE"`
	ImgurClientID      string        `yaml:"imgurClientId"      envconfig:"IMGUR_CLIENT_ID"`
	ImgurBaseURL       string        `yaml:"imgurBaseUrl"       envconfig:"IMGUR_BASE_URL"`
	UploadTimeout      time.Duration `yaml:"uploadTimeout"      envconfig:"UPLOAD_TIMEOUT"`
	MaxUploadBytes     int64         `yaml:"maxUploadBytes"     envconfig:"MAX_UPLOAD_BYTES"`
	MaxFilesPerUpload  int           `yaml:"maxFilesPerUpload"  envconfig:"MAX_FILES_PER_UPLOAD"`
}

type CacheConfig struct {
	Backend  string        `yaml:"backend"  envconfig:"CACHE_BACKEND"`
	RedisURL string        `yaml:"redisUrl" envconfig:"REDIS_URL"`
	Size     int           `yaml:"size"     envconfig:"CACHE_SIZE"`
	TTL      time.Duration `yaml:"ttl"      envconfig:"CACHE_TTL"`
}

type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `yaml:"kafkaTopic"   envconfig:"KAFKA_TOPIC"`
}

// Default returns a config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr:        "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			RateLimitRPS:    1,
			RateLimitBurst:  5,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL:          "sqlite://saasan.db",
			MaxOpenConns: 20,
		},
		Storage: StorageConfig{
			Backend:           StorageLocal,
			LocalDir:          "uploads",
			ImgurBaseURL:      "https://api.imgur.com",
			UploadTimeout:     30 * time.Second,
			MaxUploadBytes:    10 * 1024 * 1024,
			MaxFilesPerUpload: 10,
		},
		Cache: CacheConfig{
			Backend: CacheLRU,
			Size:    500,
			TTL:     time.Minute,
		},
		Events: EventsConfig{
			KafkaTopic: "saasan.reports",
		},
	}
}

// Load reads the YAML file (if present) over the defaults, then applies
// environment overrides. An empty path falls back to DefaultConfigFile and
// tolerates its absence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	buf, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (JWT_SECRET) is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.localDir is required for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcsBucket is required for the gcs backend")
		}
	case StorageImgur:
		if c.Storage.ImgurClientID == "" {
			return errors.New("storage.imgurClientId is required for the imgur backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case CacheLRU:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redisUrl is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Storage.UploadTimeout <= 0 {
		return errors.New("storage.uploadTimeout must be positive")
	}
	if c.Storage.MaxUploadBytes <= 0 || c.Storage.MaxFilesPerUpload <= 0 {
		return errors.New("storage upload limits must be positive")
	}
	if c.Cache.Size <= 0 {
		return errors.New("cache.size must be positive")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("server rate limit must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddr, c.Server.Port)
}
