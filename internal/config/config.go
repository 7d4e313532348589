// Package config loads service settings from defaults, an optional YAML
// file, .env files and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"conflation_service/internal/core"
	"conflation_service/internal/domain/model"
	"conflation_service/internal/logging"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/spf13/viper"
)

const DefaultDataURL = "https://dados.fortaleza.ce.gov.br/dataset/c529ba45-27ae-4d3a-8f70-76019a87edba/resource/4e4a18a1-86cc-48a1-b631-3ef636b455ee/download/dadosabertos_semaforosctafor.geojson"

type Config struct {
	ConfigFile string

	// Conflation
	BufferMeters    float64
	MetricFrame     model.Frame
	GeographicFrame model.Frame

	// Municipal dataset
	DataURL          string
	InsecureDownload bool
	DownloadTimeout  time.Duration
	InputDir         string
	OutputDir        string

	// Overpass
	OverpassURL        string
	OverpassTimeout    time.Duration
	OverpassParallel   int
	OverpassMaxRetries int
	RetryBackoff       time.Duration
	MaxRetryBackoff    time.Duration
	BBox               string

	// Optional stores
	RedisURL       string
	CacheTTL       time.Duration
	PostgresURL    string
	SaveRunHistory bool
	MetricsFile    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("buffer_meters", core.DefaultRadiusMeters)
	v.SetDefault("metric_frame", string(model.FrameWebMercator))
	v.SetDefault("geographic_frame", string(model.FrameWGS84))
	v.SetDefault("data_url", DefaultDataURL)
	v.SetDefault("insecure_download", true)
	v.SetDefault("download_timeout", time.Minute)
	v.SetDefault("input_dir", "data/input")
	v.SetDefault("output_dir", "data/output")
	v.SetDefault("overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass_timeout", 3*time.Minute)
	v.SetDefault("overpass_parallel", 2)
	v.SetDefault("overpass_max_retries", 3)
	v.SetDefault("retry_backoff", time.Second)
	v.SetDefault("max_retry_backoff", 30*time.Second)
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("save_run_history", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_output", "stderr")
}

// Load builds a Config. configFile may be empty; a named file that cannot be
// read is an error.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()
	return LoadFrom(viper.New(), configFile)
}

// LoadFrom reads settings through v without touching .env files.
func LoadFrom(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		ConfigFile: v.ConfigFileUsed(),

		BufferMeters:    v.GetFloat64("buffer_meters"),
		MetricFrame:     model.Frame(v.GetString("metric_frame")),
		GeographicFrame: model.Frame(v.GetString("geographic_frame")),

		DataURL:          v.GetString("data_url"),
		InsecureDownload: v.GetBool("insecure_download"),
		DownloadTimeout:  v.GetDuration("download_timeout"),
		InputDir:         v.GetString("input_dir"),
		OutputDir:        v.GetString("output_dir"),

		OverpassURL:        v.GetString("overpass_url"),
		OverpassTimeout:    v.GetDuration("overpass_timeout"),
		OverpassParallel:   v.GetInt("overpass_parallel"),
		OverpassMaxRetries: v.GetInt("overpass_max_retries"),
		RetryBackoff:       v.GetDuration("retry_backoff"),
		MaxRetryBackoff:    v.GetDuration("max_retry_backoff"),
		BBox:               v.GetString("bbox"),

		RedisURL:       v.GetString("redis_url"),
		CacheTTL:       v.GetDuration("cache_ttl"),
		PostgresURL:    v.GetString("postgres_url"),
		SaveRunHistory: v.GetBool("save_run_history"),
		MetricsFile:    v.GetString("metrics_file"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return cfg, nil
}

// Validate rejects settings that would make a run meaningless.
func (c *Config) Validate() error {
	if err := c.Conflation().Validate(); err != nil {
		return err
	}
	if c.OverpassURL == "" {
		return model.NewConfigError("overpass_url", c.OverpassURL, "must not be empty")
	}
	if c.OverpassParallel < 1 {
		return model.NewConfigError("overpass_parallel", c.OverpassParallel, "must be at least 1")
	}
	if c.OverpassMaxRetries < 0 {
		return model.NewConfigError("overpass_max_retries", c.OverpassMaxRetries, "must not be negative")
	}
	if c.SaveRunHistory && c.PostgresURL == "" {
		return model.NewConfigError("postgres_url", c.PostgresURL, "required when save_run_history is enabled")
	}
	if c.BBox != "" {
		if _, err := model.ParseBBox(c.BBox); err != nil {
			return model.NewConfigError("bbox", c.BBox, err.Error())
		}
	}
	return nil
}

func (c *Config) Conflation() core.ConflationConfig {
	return core.ConflationConfig{
		RadiusMeters:    c.BufferMeters,
		MetricFrame:     c.MetricFrame,
		GeographicFrame: c.GeographicFrame,
	}
}

// Bound returns the configured bbox override, if any.
func (c *Config) Bound() (orb.Bound, bool) {
	if c.BBox == "" {
		return orb.Bound{}, false
	}
	b, err := model.ParseBBox(c.BBox)
	if err != nil {
		return orb.Bound{}, false
	}
	return b, true
}

func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	cfg.Output = c.LogOutput
	return cfg
}

// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
