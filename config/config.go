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
	Server   ServerConfig    `yaml:"server"`
	Storage  StorageConfig   `yaml:"storage"`
	S3       S3Config        `yaml:"s3"`
	Jobs     JobsConfig      `yaml:"jobs"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Defaults IndexSettings   `yaml:"defaults"` // Settings applied to imports that do not carry their own
	Preload  []PreloadConfig `yaml:"preload"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	RateLimit       float64       `yaml:"rateLimit"` // requests per second, 0 disables limiting
	RateBurst       int           `yaml:"rateBurst"`
}

// StorageConfig controls where snapshots live and where local imports may be read from.
type StorageConfig struct {
	DataDir   string `yaml:"dataDir"`
	ImportDir string `yaml:"importDir"`
}

// S3Config holds the S3-compatible endpoint used for s3:// import sources.
// An empty Endpoint disables s3:// sources.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
	Secure    bool   `yaml:"secure"`
}

// JobsConfig controls the background job manager.
type JobsConfig struct {
	MaxWorkers int           `yaml:"maxWorkers"`
	Retention  time.Duration `yaml:"retention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PreloadConfig names an index to import from a source at startup when it is
// not already present in the data directory.
type PreloadConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's command line
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// Validate checks cross-field constraints of the loaded configuration.
func (c *Config) Validate() []string {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		problems = append(problems, "storage.dataDir is required")
	}
	if c.Jobs.MaxWorkers < 1 {
		problems = append(problems, "jobs.maxWorkers must be at least 1")
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rateLimit cannot be negative")
	}
	seen := make(map[string]bool)
	for i, p := range c.Preload {
		if p.Name == "" || p.Source == "" {
			problems = append(problems, fmt.Sprintf("preload[%d] needs both name and source", i))
		}
		if seen[p.Name] {
			problems = append(problems, fmt.Sprintf("preload[%d] duplicates index '%s'", i, p.Name))
		}
		seen[p.Name] = true
	}
	return problems
}

// IndexDefaults returns the configured default index settings for name.
func (c *Config) IndexDefaults(name string) IndexSettings {
	settings := c.Defaults.Clone()
	settings.Name = name
	settings.ApplyDefaults()
	return settings
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    64 << 20,
			RateLimit:       0,
			RateBurst:       50,
		},
		Storage: StorageConfig{
			DataDir: "./search_data",
		},
		Jobs: JobsConfig{
			MaxWorkers: 2,
			Retention:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvOverrides reads DOCSEARCH_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCSEARCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DOCSEARCH_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DOCSEARCH_IMPORT_DIR"); v != "" {
		cfg.Storage.ImportDir = v
	}
	if v := os.Getenv("DOCSEARCH_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = rps
		}
	}
	if v := os.Getenv("DOCSEARCH_S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := os.Getenv("DOCSEARCH_S3_ACCESS_KEY"); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := os.Getenv("DOCSEARCH_S3_SECRET_KEY"); v != "" {
		cfg.S3.SecretKey = v
	}
	if v := os.Getenv("DOCSEARCH_S3_SECURE"); v != "" {
		if secure, err := strconv.ParseBool(v); err == nil {
			cfg.S3.Secure = secure
		}
	}
	if v := os.Getenv("DOCSEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCSEARCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCSEARCH_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.MaxWorkers = n
		}
	}
}
