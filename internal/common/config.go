package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "PRICEINTEL"

// Config holds all application configuration
type Config struct {
	Log       LogConfig
	Database  DatabaseConfig
	Server    ServerConfig
	LLM       LLMConfig
	Ingest    IngestConfig
	Economics EconomicsConfig
	Redis     RedisConfig
	Schedule  ScheduleConfig
}

type LogConfig struct {
	Level string `envconfig:"PRICEINTEL_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// DatabaseConfig holds database-related configuration. DSNs starting with
// postgres:// or postgresql:// use pgx; anything else is opened as a SQLite file.
type DatabaseConfig struct {
	DSN              string        `envconfig:"PRICEINTEL_DB_DSN" default:"file:priceintel.db"`
	MaxConns         int32         `envconfig:"PRICEINTEL_DB_MAX_CONNS" default:"20"`
	MinConns         int32         `envconfig:"PRICEINTEL_DB_MIN_CONNS" default:"2"`
	MaxConnLifetime  time.Duration `envconfig:"PRICEINTEL_DB_MAX_CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime  time.Duration `envconfig:"PRICEINTEL_DB_MAX_CONN_IDLE_TIME" default:"5m"`
	DialTimeout      time.Duration `envconfig:"PRICEINTEL_DB_DIAL_TIMEOUT" default:"3s"`
	StatementTimeout time.Duration `envconfig:"PRICEINTEL_DB_STATEMENT_TIMEOUT" default:"0s"`
	AutoMigrate      bool          `envconfig:"PRICEINTEL_DB_AUTO_MIGRATE" default:"true"`
}

// IsPostgres reports whether the DSN targets Postgres.
func (d DatabaseConfig) IsPostgres() bool {
	dsn := strings.ToLower(d.DSN)
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `envconfig:"PRICEINTEL_HTTP_ADDR" default:":8080" validate:"required"`
	GRPCAddr        string        `envconfig:"PRICEINTEL_GRPC_ADDR" default:":9090"`
	ShutdownTimeout time.Duration `envconfig:"PRICEINTEL_SHUTDOWN_TIMEOUT" default:"15s"`
	MaxUploadBytes  int64         `envconfig:"PRICEINTEL_MAX_UPLOAD_BYTES" default:"62914560"`
}

// LLMConfig holds structured generation configuration
type LLMConfig struct {
	Provider      string        `envconfig:"PRICEINTEL_LLM_PROVIDER" default:"openai" validate:"oneof=openai gigachat"`
	Model         string        `envconfig:"PRICEINTEL_LLM_MODEL" default:"gpt-4o-mini"`
	APIKey        string        `envconfig:"PRICEINTEL_LLM_API_KEY"`
	BaseURL       string        `envconfig:"PRICEINTEL_LLM_BASE_URL"`
	Temperature   float32       `envconfig:"PRICEINTEL_LLM_TEMPERATURE" default:"0.1"`
	Timeout       time.Duration `envconfig:"PRICEINTEL_LLM_TIMEOUT" default:"60s"`
	Scope         string        `envconfig:"PRICEINTEL_LLM_SCOPE" default:"GIGACHAT_API_PERS"`
	Insecure      bool          `envconfig:"PRICEINTEL_LLM_INSECURE" default:"false"`
	MaxInputChars int           `envconfig:"PRICEINTEL_LLM_MAX_INPUT_CHARS" default:"60000" validate:"gt=0"`
}

// IngestConfig bounds a single ingestion run.
type IngestConfig struct {
	MaxFileBytes    int64         `envconfig:"PRICEINTEL_INGEST_MAX_FILE_BYTES" default:"10485760" validate:"gt=0"`
	MaxFiles        int           `envconfig:"PRICEINTEL_INGEST_MAX_FILES" default:"5" validate:"gt=0"`
	Concurrency     int           `envconfig:"PRICEINTEL_INGEST_CONCURRENCY" default:"3" validate:"gt=0"`
	DocumentTimeout time.Duration `envconfig:"PRICEINTEL_INGEST_DOCUMENT_TIMEOUT" default:"2m"`
	QueueWorkers    int           `envconfig:"PRICEINTEL_INGEST_QUEUE_WORKERS" default:"2" validate:"gt=0"`
	QueueSize       int           `envconfig:"PRICEINTEL_INGEST_QUEUE_SIZE" default:"32" validate:"gt=0"`
	JobRetention    time.Duration `envconfig:"PRICEINTEL_INGEST_JOB_RETENTION" default:"1h"`
	Pdftotext       string        `envconfig:"PRICEINTEL_PDFTOTEXT" default:"pdftotext"`
	MaxPages        int           `envconfig:"PRICEINTEL_PDF_MAX_PAGES" default:"200"`

	// Tesseract enables OCR of scanned PDFs when set.
	Tesseract     string `envconfig:"PRICEINTEL_OCR_TESSERACT"`
	TesseractLang string `envconfig:"PRICEINTEL_OCR_LANG" default:"deu+eng"`
	TessdataDir   string `envconfig:"PRICEINTEL_OCR_TESSDATA_DIR"`
	Pdftoppm      string `envconfig:"PRICEINTEL_PDFTOPPM" default:"pdftoppm"`
}

// EconomicsConfig carries pricing parameters. File, when set, points at a
// YAML profile whose values override the environment.
type EconomicsConfig struct {
	pricing.Economics
	File string `envconfig:"PRICEINTEL_ECONOMICS_FILE"`
}

type RedisConfig struct {
	URL         string        `envconfig:"PRICEINTEL_REDIS_URL"`
	SnapshotKey string        `envconfig:"PRICEINTEL_REDIS_SNAPSHOT_KEY" default:"priceintel:market:index"`
	SnapshotTTL time.Duration `envconfig:"PRICEINTEL_REDIS_SNAPSHOT_TTL" default:"24h"`
	DialTimeout time.Duration `envconfig:"PRICEINTEL_REDIS_DIAL_TIMEOUT" default:"5s"`
}

// Enabled reports whether a snapshot store should be wired.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.URL) != "" }

type ScheduleConfig struct {
	RebuildCron string `envconfig:"PRICEINTEL_REBUILD_CRON" default:"@every 15m"`
}

// LoadConfig loads configuration from environment variables and, when
// configured, overlays the economics profile file.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, NewValidationError("parsing config", err)
	}
	if cfg.Economics.File != "" {
		econ, err := pricing.LoadEconomicsFile(cfg.Economics.File, cfg.Economics.Economics)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("loading economics file %s", cfg.Economics.File), err)
		}
		cfg.Economics.Economics = econ
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Economics.Validate(); err != nil {
		return NewValidationError("invalid economics", err)
	}
	if c.Database.DSN == "" {
		return NewValidationError("PRICEINTEL_DB_DSN is required", ErrInvalidInput)
	}
	return nil
}

// RequireLLM checks the generation settings needed by commands that call a model.
func (c *Config) RequireLLM() error {
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return NewValidationError("PRICEINTEL_LLM_API_KEY is required for the openai provider", ErrInvalidInput)
	}
	if c.LLM.Provider == "gigachat" && c.LLM.APIKey == "" {
		return NewValidationError("PRICEINTEL_LLM_API_KEY is required for the gigachat provider", ErrInvalidInput)
	}
	return nil
}
