package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kozaktomas/school-reports/internal/config"
	"github.com/rs/zerolog/log"
)

// PutObjectAPI is the part of *s3.Client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores images in an S3-compatible bucket (AWS, R2, Spaces, MinIO).
type S3Uploader struct {
	client    PutObjectAPI
	bucket    string
	publicURL string
}

// NewS3Client creates a client for cfg. A custom endpoint is used as the base
// endpoint with path-style addressing.
func NewS3Client(cfg config.StorageConfig) *s3.Client {
	opts := s3.Options{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// NewS3Uploader creates an uploader. Object URLs are publicURL + "/" + key.
func NewS3Uploader(client PutObjectAPI, bucket, publicURL string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// objectKey returns "<owner>/<uuid><ext>".
func objectKey(ownerID, contentType, filename string) string {
	return ownerID + "/" + uuid.New().String() + extensionFor(contentType, filename)
}

func (u *S3Uploader) Upload(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error) {
	mediaType, err := checkUpload(contentType, data)
	if err != nil {
		return "", err
	}

	key := objectKey(ownerID, mediaType, filename)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mediaType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	log.Info().Str("key", key).Int("bytes", len(data)).Msg("image uploaded")
	return u.publicURL + "/" + key, nil
}

// NewUploader returns an S3 uploader when storage is configured, otherwise
// an InlineUploader.
func NewUploader(cfg config.StorageConfig) Uploader {
	if !cfg.Enabled() {
		return InlineUploader{}
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewS3Uploader(NewS3Client(cfg), cfg.Bucket, publicURL)
}
