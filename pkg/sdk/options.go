package dishdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dir   string
	minio *MinioOptions

	spaces []Space

	extractor    Extractor
	dishes       map[string]Dish
	metadataFile string

	workers int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// MinioOptions locates snapshots in an S3-compatible bucket.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Region    string
}

// WithDir reads snapshots from a local directory.
func WithDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dir = dir
		c.minio = nil
	})
}

// WithMinio reads snapshots from a MinIO/S3 bucket.
func WithMinio(o MinioOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.minio = &o
	})
}

// WithSpaces replaces the embedding spaces to load. The first one is primary.
// Defaults to cnn (1280) and vit (768), read from <name>.parquet.
func WithSpaces(spaces ...Space) Option {
	return optionFunc(func(c *clientConfig) {
		c.spaces = spaces
	})
}

// WithExtractor sets the image feature extractor.
// Required for SearchImage and SearchFused; SearchVector works without it.
func WithExtractor(e Extractor) Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = e
	})
}

// WithDishes sets dish metadata keyed by group.
func WithDishes(dishes map[string]Dish) Option {
	return optionFunc(func(c *clientConfig) {
		c.dishes = dishes
	})
}

// WithMetadataFile reads dish metadata from a JSON object keyed by group.
// A missing file yields the default record for every dish.
func WithMetadataFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataFile = path
	})
}

// WithWorkers bounds evaluation concurrency. Default: GOMAXPROCS.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
