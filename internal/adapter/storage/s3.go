package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"
)

// MaxObjectBytes caps how much of an object Fetch reads.
const MaxObjectBytes = 10 << 20

// Config holds S3 connection settings. Empty keys fall back to the default AWS credential chain.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
}

// S3Fetcher downloads uploaded media referenced by URL.
type S3Fetcher struct {
	client s3iface.S3API
	log    *zap.Logger
}

// NewS3Fetcher builds an S3 client from cfg.
func NewS3Fetcher(cfg Config, log *zap.Logger) (*S3Fetcher, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3FetcherWithClient(s3.New(sess), log), nil
}

// NewS3FetcherWithClient wraps an existing S3 client.
func NewS3FetcherWithClient(client s3iface.S3API, log *zap.Logger) *S3Fetcher {
	return &S3Fetcher{client: client, log: log}
}

// Fetch downloads the object rawURL points at.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseObjectURL(rawURL)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.log.Warn("failed to fetch object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	if len(data) > MaxObjectBytes {
		return nil, fmt.Errorf("object s3://%s/%s exceeds %d bytes", bucket, key, MaxObjectBytes)
	}
	return data, nil
}

// ParseObjectURL splits a virtual-hosted S3 URL into bucket and key:
// the bucket is the first label of the host, the key is the path without its leading slash.
func ParseObjectURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid object url %q: %w", rawURL, err)
	}

	host := u.Hostname()
	bucket, _, _ = strings.Cut(host, ".")
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object url %q: bucket or key missing", rawURL)
	}
	return bucket, key, nil
}
