package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 stores objects in an S3-compatible bucket. The B2 backend is the same
// client pointed at a Backblaze endpoint.
type S3 struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	retry         Retrier
}

func NewS3(ctx context.Context, cfg config.S3Config, retry Retrier) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket must be provided")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: s3PublicBase(cfg),
		retry:         retry,
	}, nil
}

func s3PublicBase(cfg config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return joinURL(cfg.Endpoint, cfg.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// NewB2 connects to a Backblaze B2 bucket through its S3-compatible API.
// Locators use the bucket's download URL when one is configured.
func NewB2(ctx context.Context, cfg config.B2Config, retry Retrier) (*S3, error) {
	endpoint := fmt.Sprintf("https://s3.%s.backblazeb2.com", cfg.Region)
	public := ""
	if cfg.DownloadURL != "" {
		public = joinURL(cfg.DownloadURL, "file/"+cfg.Bucket)
	}
	return NewS3(ctx, config.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        endpoint,
		AccessKeyID:     cfg.KeyID,
		SecretAccessKey: cfg.ApplicationKey,
		PublicBaseURL:   public,
	}, retry)
}

func (s *S3) Upload(ctx context.Context, data []byte, key, contentType string) (*Object, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	err = s.retry.Do(ctx, cleaned, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(cleaned),
			Body:          bytes.NewReader(data),
			ContentType:   aws.String(contentType),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return fmt.Errorf("PutObject failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Object{Key: cleaned, Locator: s.URLFor(cleaned), Size: int64(len(data))}, nil
}

// Delete checks for the object first because DeleteObject succeeds whether or
// not the key exists.
func (s *S3) Delete(ctx context.Context, key string) (bool, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	exists, err := s.Exists(ctx, cleaned)
	if err != nil || !exists {
		return false, err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleaned),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete s3://%s/%s: %w", s.bucket, cleaned, err)
	}
	return true, nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleaned),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head s3://%s/%s: %w", s.bucket, cleaned, err)
}

func (s *S3) URLFor(key string) string {
	return joinURL(s.publicBaseURL, key)
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
