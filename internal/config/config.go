package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/evaluation"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
)

// Config holds the dishdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Search     SearchConfig     `yaml:"search"`
	Spaces     []SpaceConfig    `yaml:"spaces"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Minio      MinioConfig      `yaml:"minio"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds the default ranking parameters.
type SearchConfig struct {
	K         int      `yaml:"k"`
	Metric    string   `yaml:"metric"`    // euclidean (default), cosine
	Threshold *float64 `yaml:"threshold"` // nil = 0.9
}

// SpaceConfig describes one embedding space and its snapshot object.
// The first space is primary.
type SpaceConfig struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Path       string `yaml:"path"` // default: <name>.parquet
}

// CatalogConfig holds snapshot storage settings.
type CatalogConfig struct {
	Source     string `yaml:"source"`      // file (default), minio
	Dir        string `yaml:"dir"`         // root of file snapshots
	DatasetDir string `yaml:"dataset_dir"` // images served under /dataset
}

// MinioConfig holds S3-compatible object storage settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
}

// MetadataConfig selects where dish records come from.
type MetadataConfig struct {
	Driver string `yaml:"driver"` // none, file (default), redis
	Path   string `yaml:"path"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (both use the RESP client)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

// ExtractorConfig holds the feature extraction model server settings.
type ExtractorConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EvaluationConfig holds the offline evaluation defaults.
type EvaluationConfig struct {
	Ks      []int  `yaml:"ks"`
	GroupKs []int  `yaml:"group_ks"`
	Workers int    `yaml:"workers"` // 0 = GOMAXPROCS
	Output  string `yaml:"output"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.K <= 0 {
		c.Search.K = request.DefaultK
	}
	if c.Search.Metric == "" {
		c.Search.Metric = string(metric.Euclidean)
	}
	if c.Search.Threshold == nil {
		th := request.DefaultThreshold
		c.Search.Threshold = &th
	}
	if len(c.Spaces) == 0 {
		for _, sp := range domain.DefaultSpaces() {
			c.Spaces = append(c.Spaces, SpaceConfig{Name: sp.Name, Model: sp.Model, Dimensions: sp.Dimensions})
		}
	}
	for i := range c.Spaces {
		if c.Spaces[i].Path == "" {
			c.Spaces[i].Path = c.Spaces[i].Name + ".parquet"
		}
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "file"
	}
	if c.Catalog.Dir == "" {
		c.Catalog.Dir = "data"
	}
	if c.Metadata.Driver == "" {
		c.Metadata.Driver = "file"
	}
	if c.Metadata.Path == "" {
		c.Metadata.Path = filepath.Join(c.Catalog.Dir, "metadata.json")
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Extractor.TimeoutSec <= 0 {
		c.Extractor.TimeoutSec = 30
	}
	if len(c.Evaluation.Ks) == 0 {
		c.Evaluation.Ks = append([]int(nil), evaluation.DefaultOverallKs...)
	}
	if len(c.Evaluation.GroupKs) == 0 {
		c.Evaluation.GroupKs = append([]int(nil), evaluation.DefaultGroupKs...)
	}
	if c.Evaluation.Output == "" {
		c.Evaluation.Output = "map_results.csv"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := c.SearchRequest(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.validateSpaces(); err != nil {
		return err
	}
	switch c.Catalog.Source {
	case "file":
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("minio.endpoint and minio.bucket are required for catalog.source=minio")
		}
	default:
		return fmt.Errorf("catalog.source must be \"file\" or \"minio\", got %q", c.Catalog.Source)
	}
	switch c.Metadata.Driver {
	case "none", "file", "redis":
	default:
		return fmt.Errorf("metadata.driver must be \"none\", \"file\" or \"redis\", got %q", c.Metadata.Driver)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.NeedsDatabase() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when cache is enabled or metadata.driver=redis")
	}
	return nil
}

func (c *Config) validateSpaces() error {
	if len(c.Spaces) == 0 {
		return fmt.Errorf("at least one space is required")
	}
	seen := make(map[string]struct{}, len(c.Spaces))
	for i, sp := range c.Spaces {
		if sp.Name == "" {
			return fmt.Errorf("spaces[%d].name is required", i)
		}
		if _, dup := seen[sp.Name]; dup {
			return fmt.Errorf("spaces[%d]: duplicate space %q", i, sp.Name)
		}
		seen[sp.Name] = struct{}{}
		if sp.Dimensions < 0 {
			return fmt.Errorf("spaces.%s.dimensions must not be negative, got %d", sp.Name, sp.Dimensions)
		}
	}
	return nil
}

// NeedsDatabase reports whether any component uses Redis/Valkey.
func (c *Config) NeedsDatabase() bool {
	return c.Cache.Enabled || c.Metadata.Driver == "redis"
}

// SearchRequest returns the validated default ranking parameters.
func (c *Config) SearchRequest() (request.Request, error) {
	m, err := metric.Parse(c.Search.Metric)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse metric: %w", err)
	}
	th := request.DefaultThreshold
	if c.Search.Threshold != nil {
		th = *c.Search.Threshold
	}
	r, err := request.New(c.Search.K, m, th)
	if err != nil {
		return request.Request{}, fmt.Errorf("default request: %w", err)
	}
	return r, nil
}

// DomainSpaces returns the space configurations in primary-first order.
func (c *Config) DomainSpaces() []domain.SpaceConfig {
	out := make([]domain.SpaceConfig, len(c.Spaces))
	for i, sp := range c.Spaces {
		out[i] = domain.SpaceConfig{Name: sp.Name, Model: sp.Model, Dimensions: sp.Dimensions}
	}
	return out
}

// CacheTTL returns the embedding cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
