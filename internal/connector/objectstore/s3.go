package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// S3Client implements endpoint.ObjectStore over the minio-go SDK. It works
// against MinIO, AWS S3, and any other S3-compatible staging bucket that
// the bulk-import jobs can read from.
type S3Client struct {
	client *minio.Client
	cfg    *Config
}

// NewS3Client creates a real S3 client from config.
func NewS3Client(cfg *Config) (*S3Client, error) {
	if cfg == nil {
		return nil, endpoint.WrapError(endpoint.CodeEndpointUnreachable, true, fmt.Errorf("config is required"))
	}
	if cfg.EndpointURL == "" {
		return nil, endpoint.WrapError(endpoint.CodeEndpointUnreachable, true, fmt.Errorf("endpointUrl is required"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, endpoint.WrapError(endpoint.CodeAuthInvalid, false, fmt.Errorf("credentials are required"))
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, endpoint.WrapError(endpoint.CodeEndpointUnreachable, true, fmt.Errorf("invalid endpoint URL: %w", err))
	}
	host := u.Host
	if host == "" {
		host = cfg.EndpointURL
	}

	useSSL := cfg.UseSSL
	if u.Scheme == "https" {
		useSSL = true
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, endpoint.WrapError(endpoint.CodeEndpointUnreachable, true, fmt.Errorf("create s3 client: %w", err))
	}

	return &S3Client{client: client, cfg: cfg}, nil
}

// Ping lists buckets as a health check.
func (s *S3Client) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return classifyS3Error(err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not already exist.
func (s *S3Client) EnsureBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return endpoint.WrapError(endpoint.CodeBucketMissing, false, fmt.Errorf("bucket name is required"))
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return classifyS3Error(err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (s *S3Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if bucket == "" {
		return false, nil
	}
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, classifyS3Error(err)
	}
	return exists, nil
}

func (s *S3Client) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	if bucket == "" {
		return endpoint.WrapError(endpoint.CodeBucketMissing, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return endpoint.WrapError(endpoint.CodeStagingFailed, false, fmt.Errorf("object key is required"))
	}

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (s *S3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		return nil, endpoint.WrapError(endpoint.CodeBucketMissing, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return nil, endpoint.WrapError(endpoint.CodeStagingFailed, false, fmt.Errorf("object key is required"))
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyS3Error(err)
	}
	return data, nil
}

func (s *S3Client) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	if bucket == "" {
		return nil, endpoint.WrapError(endpoint.CodeBucketMissing, false, fmt.Errorf("bucket is required"))
	}

	var keys []string
	objectCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objectCh {
		if obj.Err != nil {
			return nil, classifyS3Error(obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *S3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return endpoint.WrapError(endpoint.CodeBucketMissing, false, fmt.Errorf("bucket/key is required"))
	}
	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// classifyS3Error converts minio-go errors into coded errors.
func classifyS3Error(err error) *endpoint.Error {
	if err == nil {
		return nil
	}

	if minioErr, ok := err.(minio.ErrorResponse); ok {
		switch minioErr.Code {
		case "NoSuchBucket":
			return endpoint.WrapError(endpoint.CodeBucketMissing, false, err)
		case "NoSuchKey":
			return endpoint.WrapError(endpoint.CodeStagingFailed, false, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return endpoint.WrapError(endpoint.CodeAuthInvalid, false, err)
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such bucket"):
		return endpoint.WrapError(endpoint.CodeBucketMissing, false, err)
	case strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "invalid access key") ||
		strings.Contains(errStr, "signature"):
		return endpoint.WrapError(endpoint.CodeAuthInvalid, false, err)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return endpoint.WrapError(endpoint.CodeTimeout, true, err)
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "unreachable") ||
		strings.Contains(errStr, "no such host"):
		return endpoint.WrapError(endpoint.CodeEndpointUnreachable, true, err)
	}

	return endpoint.WrapError(endpoint.CodeStagingFailed, true, err)
}
