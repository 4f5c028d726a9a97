package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	appconfig "campus-food-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ImageStore keeps listing photos and returns a durable URL for each
type ImageStore interface {
	Upload(ctx context.Context, ownerID, contentType string, data []byte) (string, error)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// S3ImageStore uploads listing photos to an S3 compatible bucket
type S3ImageStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3ImageStore creates an S3 image store. Static credentials and a custom
// endpoint are used when configured, otherwise the default AWS chain applies.
func NewS3ImageStore(ctx context.Context, cfg appconfig.AWSConfig) (*S3ImageStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
	}

	return &S3ImageStore{
		client:    client,
		bucket:    cfg.S3Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload stores an image under {owner_id}/{image_id}{ext}
func (s *S3ImageStore) Upload(ctx context.Context, ownerID, contentType string, data []byte) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", invalid("unsupported image type %q", contentType)
	}

	key := path.Join(ownerID, uuid.New().String()+ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to upload image: %v", ErrExternal, err)
	}

	return s.publicURL + "/" + key, nil
}
