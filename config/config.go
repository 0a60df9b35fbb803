package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" decode directly.
// Bare integers are treated as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Tcaflow TcaflowConfig `yaml:"tcaflow"`
	Data    DataConfig    `yaml:"data"`
	Engine  EngineConfig  `yaml:"engine"`
	Report  ReportConfig  `yaml:"report"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

type TcaflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// DataConfig holds the three input dataset paths. Format is selected by file
// extension (.parquet or .csv).
type DataConfig struct {
	Executions string `yaml:"executions"`
	Refdata    string `yaml:"refdata"`
	Marketdata string `yaml:"marketdata"`
}

// EngineConfig parameterises the compute engine itself.
type EngineConfig struct {
	// Tolerance is the maximum look-around interval when resolving a
	// benchmark; observations further away on both sides leave the
	// execution unresolved.
	Tolerance Duration `yaml:"tolerance"`
	// InvertSideSign flips the slippage sign convention. The default
	// (+1 sell, -1 buy) makes positive slippage favorable to the trader.
	InvertSideSign bool `yaml:"invert_side_sign"`
	MaxWorkers     int  `yaml:"max_workers"`
	// PhaseFilter, when set, restricts executions to the given trading
	// phase (e.g. CONTINUOUS_TRADING); others are reported as skipped.
	PhaseFilter string `yaml:"phase_filter"`
	// MarketStateFilter, when set, drops market observations outside the
	// given market state before the series index is built.
	MarketStateFilter string `yaml:"market_state_filter"`
}

type ReportConfig struct {
	Output      string `yaml:"output"`
	Format      string `yaml:"format"`
	Detail      bool   `yaml:"detail"`
	Skipped     bool   `yaml:"skipped"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string                 `yaml:"level"`
	Format string                 `yaml:"format"`
	Output string                 `yaml:"output"`
	MaxAge int                    `yaml:"max_age"`
	Fields map[string]interface{} `yaml:"fields"`
}

// Default dataset locations, matching the documented defaults of the
// calculator's environment variables.
const (
	DefaultExecutionsPath = "data/executions.parquet"
	DefaultRefdataPath    = "data/refdata.parquet"
	DefaultMarketdataPath = "data/marketdata.parquet"
	DefaultOutputPath     = "output/trading_metrics.parquet"
)

// DefaultTolerance is the benchmark look-around window used when the config
// file does not set one.
const DefaultTolerance = 5 * time.Second

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Data: DataConfig{
			Executions: DefaultExecutionsPath,
			Refdata:    DefaultRefdataPath,
			Marketdata: DefaultMarketdataPath,
		},
		Engine: EngineConfig{
			Tolerance:  Duration(DefaultTolerance),
			MaxWorkers: 1,
		},
		Report: ReportConfig{
			Output:      DefaultOutputPath,
			Format:      "parquet",
			Detail:      true,
			Skipped:     true,
			Compression: "snappy",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides applies the dataset path environment variables the
// calculator has always honoured, plus the usual AWS overrides for S3.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXECUTIONS_FILE_PATH"); v != "" {
		cfg.Data.Executions = strings.TrimSpace(v)
	}
	if v := os.Getenv("REFDATA_FILE_PATH"); v != "" {
		cfg.Data.Refdata = strings.TrimSpace(v)
	}
	if v := os.Getenv("MARKETDATA_FILE_PATH"); v != "" {
		cfg.Data.Marketdata = strings.TrimSpace(v)
	}
	if v := os.Getenv("OUTPUT_FILE_PATH"); v != "" {
		cfg.Report.Output = strings.TrimSpace(v)
	}

	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Tcaflow.Name == "" {
		return fmt.Errorf("tcaflow.name is required")
	}
	if cfg.Tcaflow.Version == "" {
		return fmt.Errorf("tcaflow.version is required")
	}

	for name, p := range map[string]string{
		"data.executions": cfg.Data.Executions,
		"data.refdata":    cfg.Data.Refdata,
		"data.marketdata": cfg.Data.Marketdata,
		"report.output":   cfg.Report.Output,
	} {
		if p == "" {
			return fmt.Errorf("%s is required", name)
		}
		if ext := strings.ToLower(filepath.Ext(p)); ext != ".parquet" && ext != ".csv" {
			return fmt.Errorf("%s has unsupported extension %q (want .parquet or .csv)", name, ext)
		}
	}

	if cfg.Engine.Tolerance.Std() <= 0 {
		return fmt.Errorf("engine.tolerance must be greater than 0")
	}
	if cfg.Engine.MaxWorkers <= 0 {
		return fmt.Errorf("engine.max_workers must be greater than 0")
	}

	switch cfg.Report.Format {
	case "parquet", "csv":
	default:
		return fmt.Errorf("report.format must be parquet or csv, got %q", cfg.Report.Format)
	}
	switch cfg.Report.Compression {
	case "", "none", "snappy", "gzip":
	default:
		return fmt.Errorf("report.compression %q is not supported", cfg.Report.Compression)
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
