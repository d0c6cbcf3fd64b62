// Package config loads and validates pipeline configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// stage (corpus, vocabulary, cooccurrence, workers, memory) and for the
// optional outer sinks (metrics, Kafka, PostgreSQL, Redis).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Vocab    VocabConfig    `yaml:"vocab"`
	Cooccur  CooccurConfig  `yaml:"cooccur"`
	Workers  WorkersConfig  `yaml:"workers"`
	Memory   MemoryConfig   `yaml:"memory"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// CorpusConfig points at the preprocessed, whitespace-tokenised corpus. One
// line is one segment: cooccurrence windows never cross a newline.
type CorpusConfig struct {
	InputFile string `yaml:"inputFile"`
}

// VocabConfig controls vocabulary extraction.
type VocabConfig struct {
	File      string `yaml:"file"`
	TableSize int    `yaml:"tableSize"`
}

// CooccurConfig controls target/context selection and windowing.
type CooccurConfig struct {
	OutputDir      string  `yaml:"outputDir"`
	MinFreq        uint64  `yaml:"minFreq"`
	UpperBound     float64 `yaml:"upperBound"`
	LowerBound     float64 `yaml:"lowerBound"`
	ContextSize    int     `yaml:"contextSize"`
	DynamicContext bool    `yaml:"dynamicContext"`
	CompressRuns   bool    `yaml:"compressRuns"`
}

// WorkersConfig bounds the worker pool.
type WorkersConfig struct {
	Max    int  `yaml:"max"`
	PinCPU bool `yaml:"pinCPU"`
}

// MemoryConfig holds the soft memory limit shared by all counting workers.
type MemoryConfig struct {
	Limit datasize.ByteSize `yaml:"limit"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// KafkaConfig holds broker and topic settings for stage-completion events.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	StageComplete string `yaml:"stageComplete"`
}

// PostgresConfig holds connection parameters for the run ledger.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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

// RedisConfig holds connection parameters for the output-directory lock.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep the defaults from Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config populated with the pipeline defaults.
func Default() *Config {
	return &Config{
		Vocab: VocabConfig{
			File:      "vocab.txt",
			TableSize: 1 << 20,
		},
		Cooccur: CooccurConfig{
			OutputDir:   ".",
			MinFreq:     100,
			UpperBound:  1.0,
			LowerBound:  0.00001,
			ContextSize: 5,
		},
		Workers: WorkersConfig{
			Max:    8,
			PinCPU: true,
		},
		Memory: MemoryConfig{
			Limit: 4 * datasize.GB,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				StageComplete: "hpca.stage.complete",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "hpca",
			User:            "hpca",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
			LockTTL:  24 * time.Hour,
		},
	}
}

// ValidateVocab performs the eager checks needed before vocabulary
// extraction starts.
func (c *Config) ValidateVocab() error {
	if err := checkCorpus(c.Corpus.InputFile); err != nil {
		return err
	}
	if c.Vocab.File == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, apperrors.StageConfig, "vocab.file is required")
	}
	if c.Vocab.TableSize < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageConfig,
			"vocab.tableSize must be positive, got %d", c.Vocab.TableSize)
	}
	return c.validateWorkers()
}

// ValidateCooccur performs the eager checks needed before cooccurrence
// counting starts. The vocabulary file must already exist.
func (c *Config) ValidateCooccur() error {
	if err := checkCorpus(c.Corpus.InputFile); err != nil {
		return err
	}
	if _, err := os.Stat(c.Vocab.File); err != nil {
		return apperrors.Newf(apperrors.ErrVocabUnreadable, apperrors.StageConfig, "%s: %v", c.Vocab.File, err)
	}
	return c.validateCounting()
}

// validateCounting checks the numeric cooccurrence parameters only; used by
// `run`, where the vocabulary file is produced by the first stage.
func (c *Config) validateCounting() error {
	cc := c.Cooccur
	switch {
	case cc.OutputDir == "":
		return apperrors.New(apperrors.ErrInvalidConfig, apperrors.StageConfig, "cooccur.outputDir is required")
	case cc.ContextSize < 1:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageConfig,
			"cooccur.contextSize must be positive, got %d", cc.ContextSize)
	case cc.MinFreq < 1:
		return apperrors.New(apperrors.ErrInvalidConfig, apperrors.StageConfig, "cooccur.minFreq must be at least 1")
	case cc.LowerBound < 0 || cc.UpperBound > 1 || cc.LowerBound >= cc.UpperBound:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageConfig,
			"context band must satisfy 0 <= lowerBound < upperBound <= 1, got [%g, %g)", cc.LowerBound, cc.UpperBound)
	case c.Memory.Limit == 0:
		return apperrors.New(apperrors.ErrInvalidConfig, apperrors.StageConfig, "memory.limit must be positive")
	}
	return c.validateWorkers()
}

// ValidateRun checks everything `run` needs before the vocabulary stage.
func (c *Config) ValidateRun() error {
	if err := c.ValidateVocab(); err != nil {
		return err
	}
	return c.validateCounting()
}

func (c *Config) validateWorkers() error {
	if c.Workers.Max < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageConfig,
			"workers.max must be at least 1, got %d", c.Workers.Max)
	}
	return nil
}

func checkCorpus(path string) error {
	if path == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, apperrors.StageConfig, "corpus.inputFile is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s: %v", path, err)
	}
	if info.IsDir() {
		return apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s is a directory", path)
	}
	if info.Size() == 0 {
		return apperrors.Newf(apperrors.ErrEmptyCorpus, apperrors.StageConfig, "%s", path)
	}
	return nil
}

// applyEnvOverrides reads HPCA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HPCA_CORPUS_INPUT_FILE"); v != "" {
		cfg.Corpus.InputFile = v
	}
	if v := os.Getenv("HPCA_VOCAB_FILE"); v != "" {
		cfg.Vocab.File = v
	}
	if v := os.Getenv("HPCA_COOCCUR_OUTPUT_DIR"); v != "" {
		cfg.Cooccur.OutputDir = v
	}
	if v := os.Getenv("HPCA_COOCCUR_MIN_FREQ"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Cooccur.MinFreq = n
		}
	}
	if v := os.Getenv("HPCA_COOCCUR_CONTEXT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cooccur.ContextSize = n
		}
	}
	if v := os.Getenv("HPCA_COOCCUR_DYNAMIC_CONTEXT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cooccur.DynamicContext = b
		}
	}
	if v := os.Getenv("HPCA_WORKERS_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers.Max = n
		}
	}
	if v := os.Getenv("HPCA_MEMORY_LIMIT"); v != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err == nil {
			cfg.Memory.Limit = size
		}
	}
	if v := os.Getenv("HPCA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HPCA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("HPCA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HPCA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("HPCA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("HPCA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HPCA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}
