package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when a snapshot object does not exist.
var ErrObjectNotFound = errors.New("snapshot object not found")

// Object is an opened snapshot blob parquet can read from.
type Object interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Source opens and stores snapshot blobs by name.
type Source interface {
	Open(ctx context.Context, name string) (Object, error)
	Put(ctx context.Context, name string, data []byte) error
}

// FileSource serves snapshots from a local directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir. Absolute names bypass the root.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(s.dir, filepath.Clean(name))
}

// Open opens a local parquet file.
func (s *FileSource) Open(_ context.Context, name string) (Object, error) {
	f, err := os.Open(s.resolve(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	return &fileObject{File: f, size: stat.Size()}, nil
}

// Put writes data atomically via a temp file and rename.
func (s *FileSource) Put(_ context.Context, name string, data []byte) error {
	dst := s.resolve(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

type fileObject struct {
	*os.File
	size int64
}

func (o *fileObject) Size() int64 { return o.size }

// MinioConfig holds the S3-compatible endpoint settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Region    string
}

// MinioSource serves snapshots from a MinIO/S3 bucket.
type MinioSource struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioSource connects to the endpoint. No request is made until Open or Put.
func NewMinioSource(cfg MinioConfig) (*MinioSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioSource{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinioSource) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open stats the object and returns a ranged reader over it.
func (s *MinioSource) Open(ctx context.Context, name string) (Object, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return &minioObject{Object: obj, size: info.Size}, nil
}

// Put uploads data as a single object.
func (s *MinioSource) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Ping checks the bucket exists.
func (s *MinioSource) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %s", ErrObjectNotFound, s.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket"
}

type minioObject struct {
	*minio.Object
	size int64
}

func (o *minioObject) Size() int64 { return o.size }
