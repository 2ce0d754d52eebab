package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	DefaultPrefix = "snapshots/"
	DefaultRegion = "us-east-1"
)

type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads copies of fetched pages to an S3 compatible bucket.
type S3 struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewS3 builds a client from the default AWS credential chain. Static keys
// and a custom endpoint, for R2 or MinIO, override it when set.
func NewS3(ctx context.Context, cfg Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive: no bucket configured")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("page archive ready", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)

	return newS3WithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3WithClient(client objectPutter, bucket, prefix string, logger *slog.Logger) *S3 {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With("component", "archive"),
	}
}

// Snapshot stores body under a timestamped key. The reason is kept as
// object metadata.
func (a *S3) Snapshot(ctx context.Context, body []byte, reason string) error {
	key := a.key(reason)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata:    map[string]string{"reason": reason},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}

	a.logger.Info("stored page snapshot", "key", key, "bytes", len(body), "reason", reason)

	return nil
}

func (a *S3) key(reason string) string {
	return a.prefix + a.now().UTC().Format("20060102T150405Z") + "-" + slug(reason) + ".html"
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 48 {
		out = strings.TrimSuffix(out[:48], "-")
	}
	if out == "" {
		out = "snapshot"
	}
	return out
}
