// Package bootstrap builds the collaborators shared by the server and the offline tools
// from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/config"
	"github.com/kailas-cloud/dishdex/internal/db"
	dbRedis "github.com/kailas-cloud/dishdex/internal/db/redis"
	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/metrics"
	"github.com/kailas-cloud/dishdex/internal/repository/embcache"
	"github.com/kailas-cloud/dishdex/internal/repository/metadata"
	"github.com/kailas-cloud/dishdex/internal/repository/snapshot"
	extractorClient "github.com/kailas-cloud/dishdex/internal/transport/extractor"
	extractionuc "github.com/kailas-cloud/dishdex/internal/usecase/extraction"
	searchuc "github.com/kailas-cloud/dishdex/internal/usecase/search"
)

// OpenStore connects to Redis/Valkey and waits until it answers PING.
// The caller owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (db.Store, error) {
	rs, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := rs.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		rs.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)
	return rs, nil
}

// Source returns the snapshot source selected by catalog.source.
func Source(cfg config.Config) (snapshot.Source, error) {
	if cfg.Catalog.Source == "minio" {
		src, err := snapshot.NewMinioSource(snapshot.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Prefix:    cfg.Minio.Prefix,
			UseSSL:    cfg.Minio.UseSSL,
			Region:    cfg.Minio.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio source: %w", err)
		}
		return src, nil
	}
	return snapshot.NewFileSource(cfg.Catalog.Dir), nil
}

// SpaceFiles maps the configured spaces to their snapshot objects, primary first.
// A non-empty only keeps the named spaces, in configuration order.
func SpaceFiles(cfg config.Config, only ...string) []snapshot.SpaceFile {
	domSpaces := cfg.DomainSpaces()
	out := make([]snapshot.SpaceFile, 0, len(cfg.Spaces))
	for i, sp := range cfg.Spaces {
		if len(only) > 0 && !contains(only, sp.Name) {
			continue
		}
		out = append(out, snapshot.SpaceFile{Config: domSpaces[i], Name: sp.Path})
	}
	return out
}

// Extractor assembles the decorator chain: HTTP client -> Cached -> Instrumented.
// store may be nil, in which case the cache is skipped.
func Extractor(cfg config.Config, store db.Store, logger *zap.Logger) *extractionuc.InstrumentedExtractor {
	base := extractorClient.NewClient(&extractorClient.Config{
		BaseURL: cfg.Extractor.BaseURL,
		APIKey:  cfg.Extractor.APIKey,
		Timeout: time.Duration(cfg.Extractor.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	var extractor domain.Extractor = base
	if cfg.Cache.Enabled && store != nil {
		extractor = embcache.New(base, store, cfg.CacheTTL(), metrics.ExtractorCacheTotal, logger)
	}

	return extractionuc.NewInstrumentedExtractor(extractor, cfg.DomainSpaces(), logger)
}

// DishLookup returns a nil interface for driver "none": every match gets the default record.
func DishLookup(cfg config.Config, store db.Store) (searchuc.DishLookup, error) {
	switch cfg.Metadata.Driver {
	case "file":
		l, err := metadata.NewFileLookup(cfg.Metadata.Path)
		if err != nil {
			return nil, fmt.Errorf("file metadata: %w", err)
		}
		return l, nil
	case "redis":
		if store == nil {
			return nil, fmt.Errorf("redis metadata: database not configured")
		}
		return metadata.NewRedisLookup(store), nil
	default:
		return nil, nil
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
