// Package config loads scanner settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the scanner reads at startup.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	OCR           OCRConfig           `yaml:"ocr"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	GCS           GCSConfig           `yaml:"gcs"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	StaticDir   string `yaml:"static_dir"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

// OCRConfig configures text recognition.
type OCRConfig struct {
	// Engine is "tesseract" or "gemini".
	Engine        string `yaml:"engine"`
	TesseractPath string `yaml:"tesseract_path"`
	Language      string `yaml:"language"`
	PSM           int    `yaml:"psm"`
	GeminiModel   string `yaml:"gemini_model"`
	// Retries is the number of extra attempts after a failed recognition.
	Retries int `yaml:"retries"`
}

// PipelineConfig tunes per-upload processing.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
	// FlushPolicy is "flush" or "discard" for candidates left incomplete at
	// the end of a file.
	FlushPolicy string `yaml:"flush_policy"`
	// TimeoutSeconds bounds the recognition of a single file.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ElasticsearchConfig enables mirroring transactions into a search index.
// Mirroring is off when Addresses is empty.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Index     string   `yaml:"index"`
}

// GCSConfig configures reading receipts from gs:// URIs.
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path, applies defaults and environment overrides, and validates
// the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 32
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "scanner.db"
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = "tesseract"
	}
	if cfg.OCR.TesseractPath == "" {
		cfg.OCR.TesseractPath = "tesseract"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.PSM == 0 {
		cfg.OCR.PSM = 6
	}
	if cfg.OCR.GeminiModel == "" {
		cfg.OCR.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.FlushPolicy == "" {
		cfg.Pipeline.FlushPolicy = "flush"
	}
	if cfg.Pipeline.TimeoutSeconds <= 0 {
		cfg.Pipeline.TimeoutSeconds = 60
	}
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = "receipts"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SCANNER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCANNER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SCANNER_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SCANNER_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("SCANNER_OCR_ENGINE"); v != "" {
		cfg.OCR.Engine = v
	}
	if v := os.Getenv("SCANNER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ELASTICSEARCH_URLS"); v != "" {
		cfg.Elasticsearch.Addresses = strings.Split(v, ",")
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be memory or sqlite, got %q", c.Storage.Driver)
	}
	switch c.OCR.Engine {
	case "tesseract", "gemini":
	default:
		return fmt.Errorf("ocr.engine must be tesseract or gemini, got %q", c.OCR.Engine)
	}
	if c.OCR.Retries < 0 {
		return fmt.Errorf("ocr.retries must not be negative")
	}
	switch strings.ToLower(c.Pipeline.FlushPolicy) {
	case "flush", "discard":
	default:
		return fmt.Errorf("pipeline.flush_policy must be flush or discard, got %q", c.Pipeline.FlushPolicy)
	}
	return nil
}
