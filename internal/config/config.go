package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Batch conversion.
	EventIDPrefix  string
	OutputPath     string
	MaxResidualRMS float64

	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Streaming mode.
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Optional sinks.
	SQLitePath  string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

// Load reads configuration from environment variables, applying defaults where
// unset. Variables from a .env file (DOTENV_FILE, default ".env") are loaded
// first without overriding the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(sharedcfg.EnvOrDefault("DOTENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	maxResidualRMS, err := parseNonNegativeFloat("MAX_RESIDUAL_RMS")
	if err != nil {
		return nil, err
	}

	useSSL := false
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		useSSL, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid S3_USE_SSL")
		}
	}

	cfg := &Config{
		EventIDPrefix:   os.Getenv("EVENT_ID_PREFIX"),
		OutputPath:      os.Getenv("OUTPUT_PATH"),
		MaxResidualRMS:  maxResidualRMS,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "localization-results"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "normalized-events"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "localized-events-etl"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SQLitePath:  os.Getenv("SQLITE_PATH"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:    useSSL,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
		return nil, errors.New("S3_ENDPOINT is set but S3_BUCKET is not")
	}

	return cfg, nil
}

// ObjectStoreEnabled reports whether table uploads are configured.
func (c *Config) ObjectStoreEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// ValidateStreaming checks the settings only the Kafka pipeline needs.
func (c *Config) ValidateStreaming() error {
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.KafkaGroupID == "" {
		return errors.New("KAFKA_GROUP_ID is required")
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseNonNegativeFloat(key string) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
