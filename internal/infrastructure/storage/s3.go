// Package storage uploads memory photos to an S3-compatible bucket
// (Cloudflare R2, MinIO or AWS S3) and returns their public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/circuitbreaker"
	"github.com/radake/rada-ke/pkg/logger"
)

// DefaultMaxUploadBytes caps a single photo.
const DefaultMaxUploadBytes = 5 << 20

// Config describes the bucket.
type Config struct {
	// Endpoint is empty for AWS, or e.g. https://<account>.r2.cloudflarestorage.com.
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL prefixes object keys in returned URLs, usually a CDN.
	PublicBaseURL  string
	MaxUploadBytes int64
}

// Enabled reports whether enough is configured to upload.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// publicURL joins the base URL and key.
func (c Config) publicURL(key string) string {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	}
	return base + "/" + strings.TrimLeft(key, "/")
}

// putObjectAPI is the slice of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader implements command.MediaStore.
type S3Uploader struct {
	client  putObjectAPI
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewS3Uploader builds an S3 client with static credentials.
func NewS3Uploader(ctx context.Context, cfg Config, log *logger.Logger) (*S3Uploader, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: bucket and credentials are required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newUploader(client, cfg, log), nil
}

func newUploader(client putObjectAPI, cfg Config, log *logger.Logger) *S3Uploader {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("storage"))
	return &S3Uploader{
		client: client,
		cfg:    cfg,
		breaker: circuitbreaker.ObjectStoreBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

// Upload stores body under key and returns the public URL. The body is
// buffered so the SDK can sign and retry it.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if size > u.cfg.MaxUploadBytes {
		return "", tooLarge(u.cfg.MaxUploadBytes)
	}
	data, err := io.ReadAll(io.LimitReader(body, u.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > u.cfg.MaxUploadBytes {
		return "", tooLarge(u.cfg.MaxUploadBytes)
	}

	err = u.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(u.cfg.Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String(contentType),
		})
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return "", shared.NewDomainError("storage", "Upload", shared.ErrServiceUnavailable, "media storage is temporarily unavailable")
	}
	if err != nil {
		u.log.Error("upload failed", logger.ObjectKey(key), logger.Err(err))
		return "", fmt.Errorf("storage: put object: %w", err)
	}

	u.log.Info("uploaded", logger.ObjectKey(key), logger.Int("bytes", len(data)))
	return u.cfg.publicURL(key), nil
}

func tooLarge(limit int64) error {
	return shared.Validationf("storage", "Upload", "file exceeds %d bytes", limit)
}
