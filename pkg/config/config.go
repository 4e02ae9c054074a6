// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Storage, Index, Search, Scoring, Kafka, Redis,
// Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitPerMinute caps requests per client IP; zero disables the
	// limiter.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// StorageConfig selects the document store backend and its file locations.
// Backend is "csv" (flat files under DataDir) or "postgres".
type StorageConfig struct {
	Backend         string `yaml:"backend"`
	DataDir         string `yaml:"dataDir"`
	ReviewBatchSize int    `yaml:"reviewBatchSize"`
}

// IndexConfig controls shard partitioning, the barrel cache, and the
// corrupt-shard recovery policy.
type IndexConfig struct {
	Dir               string `yaml:"dir"`
	ForwardBatchSize  int    `yaml:"forwardBatchSize"`
	InvertedBatchSize int    `yaml:"invertedBatchSize"`
	CacheSize         int    `yaml:"cacheSize"`
	// StrictCorrupt fails index operations on an unparseable shard file
	// instead of substituting an empty shard.
	StrictCorrupt  bool `yaml:"strictCorrupt"`
	RebuildWorkers int  `yaml:"rebuildWorkers"`
}

// SearchConfig controls query execution limits and the postings merge policy.
type SearchConfig struct {
	MaxResults       int    `yaml:"maxResults"`
	DefaultLimit     int    `yaml:"defaultLimit"`
	MaxDocsToProcess int    `yaml:"maxDocsToProcess"`
	// DefaultMode is "intersect" or "union". Intersection is the default for
	// precision; union is opt-in per request.
	DefaultMode string `yaml:"defaultMode"`
}

// FieldWeights maps a document field name to its scoring importance.
type FieldWeights map[string]float64

// TargetWeights holds the scoring knobs for one document collection.
type TargetWeights struct {
	BaseFreqWeight  float64      `yaml:"baseFreqWeight"`
	MultiTokenBonus float64      `yaml:"multiTokenBonus"`
	Fields          FieldWeights `yaml:"fields"`
}

// ScoringConfig holds the relevance formula parameters per target type.
type ScoringConfig struct {
	Hotels             TargetWeights `yaml:"hotels"`
	Reviews            TargetWeights `yaml:"reviews"`
	DefaultFieldWeight float64       `yaml:"defaultFieldWeight"`
	LengthNormFactor   float64       `yaml:"lengthNormFactor"`
}

// SentimentConfig controls the optional sentiment-alignment scoring
// adjustment.
type SentimentConfig struct {
	Enabled    bool    `yaml:"enabled"`
	AlignBoost float64 `yaml:"alignBoost"`
}

// KafkaConfig holds broker settings for the optional async indexing pipeline.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexJobs string `yaml:"indexJobs"`
}

// RedisConfig holds connection parameters for the optional query-result
// cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters for the "postgres"
// storage backend.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config mirroring the historical on-disk layout:
// forward shards of 50k documents, inverted shards of 20k tokens, review
// chunks of 1000 hotels, and 5 resident barrels in the cache.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			RateLimitPerMinute: 0,
		},
		Storage: StorageConfig{
			Backend:         "csv",
			DataDir:         "data",
			ReviewBatchSize: 1000,
		},
		Index: IndexConfig{
			Dir:               "index",
			ForwardBatchSize:  50000,
			InvertedBatchSize: 20000,
			CacheSize:         5,
			StrictCorrupt:     false,
			RebuildWorkers:    4,
		},
		Search: SearchConfig{
			MaxResults:       500,
			DefaultLimit:     50,
			MaxDocsToProcess: 50000,
			DefaultMode:      "intersect",
		},
		Scoring: ScoringConfig{
			Hotels: TargetWeights{
				BaseFreqWeight:  0.3,
				MultiTokenBonus: 0.2,
				Fields: FieldWeights{
					"name":           4.0,
					"street-address": 3.0,
					"locality":       2.5,
					"region":         2.0,
				},
			},
			Reviews: TargetWeights{
				BaseFreqWeight:  0.2,
				MultiTokenBonus: 0.1,
				Fields: FieldWeights{
					"title": 3.0,
					"text":  1.5,
				},
			},
			DefaultFieldWeight: 1.0,
			LengthNormFactor:   0.01,
		},
		Sentiment: SentimentConfig{
			Enabled:    false,
			AlignBoost: 0.5,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "search-engine-indexer",
			Topics: KafkaTopics{
				IndexJobs: "index-jobs",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "searchengine",
			User:            "searchengine",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads HSE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HSE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HSE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("HSE_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("HSE_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("HSE_INDEX_STRICT_CORRUPT"); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			cfg.Index.StrictCorrupt = strict
		}
	}
	if v := os.Getenv("HSE_SEARCH_DEFAULT_MODE"); v != "" {
		cfg.Search.DefaultMode = v
	}
	if v := os.Getenv("HSE_SENTIMENT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Sentiment.Enabled = enabled
		}
	}
	if v := os.Getenv("HSE_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("HSE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HSE_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("HSE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HSE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HSE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("HSE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("HSE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("HSE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("HSE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("HSE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HSE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
