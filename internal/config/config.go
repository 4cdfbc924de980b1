package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "stocktake/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. STOCKTAKE_PIPELINE_WORKERS
const EnvPrefix = "STOCKTAKE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"2m"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"67108864"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/stocktake.log"`
}

// PipelineConfig controls how uploads are turned into the unified dataset
type PipelineConfig struct {
	// Workers bounds how many workbooks are parsed at the same time
	Workers int `yaml:"workers" envconfig:"WORKERS" default:"4"`
	// IncludeSentinel prepends a blank row to every sheet
	IncludeSentinel bool `yaml:"include_sentinel" envconfig:"INCLUDE_SENTINEL" default:"true"`
	// CaseInsensitiveSheets matches sheet names ignoring case
	CaseInsensitiveSheets bool `yaml:"case_insensitive_sheets" envconfig:"CASE_INSENSITIVE_SHEETS" default:"false"`
	// FailFast aborts the whole run on the first unreadable workbook
	FailFast bool `yaml:"fail_fast" envconfig:"FAIL_FAST" default:"false"`
}

// ExportConfig controls the CSV and XLSX outputs
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"reports"`
	Format    string `yaml:"format" envconfig:"FORMAT" default:"csv"`
	BOMPrefix bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX" default:"true"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// RateLimitConfig contains rate limiting configuration for uploads
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"5"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file; an empty path means env only
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, apperrors.NewConfigError("failed to load config from file", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	// Unset keys keep their defaults so booleans missing from the file stay untouched
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfigs overlays file values on top of env values.
// The file was decoded over Default(), so keys it omits still hold their defaults.
// An env variable that is explicitly set always wins.
func mergeConfigs(fileConfig, envConfig Config) Config {
	set := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}

	if !set("SERVER_PORT") {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if !set("SERVER_READ_TIMEOUT") {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if !set("SERVER_WRITE_TIMEOUT") {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if !set("SERVER_IDLE_TIMEOUT") {
		envConfig.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if !set("SERVER_SHUTDOWN_TIMEOUT") {
		envConfig.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if !set("SERVER_RUN_TIMEOUT") {
		envConfig.Server.RunTimeout = fileConfig.Server.RunTimeout
	}
	if !set("SERVER_MAX_UPLOAD_BYTES") {
		envConfig.Server.MaxUploadBytes = fileConfig.Server.MaxUploadBytes
	}

	if !set("LOGGING_LEVEL") {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if !set("LOGGING_FORMAT") {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if !set("LOGGING_OUTPUT") {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if !set("LOGGING_FILE_PATH") {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	if !set("PIPELINE_WORKERS") {
		envConfig.Pipeline.Workers = fileConfig.Pipeline.Workers
	}
	if !set("PIPELINE_INCLUDE_SENTINEL") {
		envConfig.Pipeline.IncludeSentinel = fileConfig.Pipeline.IncludeSentinel
	}
	if !set("PIPELINE_CASE_INSENSITIVE_SHEETS") {
		envConfig.Pipeline.CaseInsensitiveSheets = fileConfig.Pipeline.CaseInsensitiveSheets
	}
	if !set("PIPELINE_FAIL_FAST") {
		envConfig.Pipeline.FailFast = fileConfig.Pipeline.FailFast
	}

	if !set("EXPORT_OUTPUT_DIR") {
		envConfig.Export.OutputDir = fileConfig.Export.OutputDir
	}
	if !set("EXPORT_FORMAT") {
		envConfig.Export.Format = fileConfig.Export.Format
	}
	if !set("EXPORT_BOM_PREFIX") {
		envConfig.Export.BOMPrefix = fileConfig.Export.BOMPrefix
	}

	if !set("TELEMETRY_TRACE_EXPORTER") {
		envConfig.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if !set("TELEMETRY_METRIC_EXPORTER") {
		envConfig.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}
	if !set("TELEMETRY_SAMPLE_RATIO") {
		envConfig.Telemetry.SampleRatio = fileConfig.Telemetry.SampleRatio
	}
	if !set("TELEMETRY_ENVIRONMENT") {
		envConfig.Telemetry.Environment = fileConfig.Telemetry.Environment
	}

	if !set("RATE_LIMIT_ENABLED") {
		envConfig.RateLimit.Enabled = fileConfig.RateLimit.Enabled
	}
	if !set("RATE_LIMIT_RPS") {
		envConfig.RateLimit.RPS = fileConfig.RateLimit.RPS
	}
	if !set("RATE_LIMIT_BURST") {
		envConfig.RateLimit.Burst = fileConfig.RateLimit.Burst
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}

	switch strings.ToLower(c.Export.Format) {
	case "csv", "xlsx", "both":
	default:
		return fmt.Errorf("unsupported export format: %s", c.Export.Format)
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/stocktake.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"stocktake.yaml",
		"configs/stocktake.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      2 * time.Minute,
			MaxUploadBytes:  64 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/stocktake.log",
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			IncludeSentinel: true,
		},
		Export: ExportConfig{
			OutputDir: "reports",
			Format:    "csv",
			BOMPrefix: true,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
			Environment:    "development",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     5,
			Burst:   10,
		},
	}
}
