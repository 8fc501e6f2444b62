package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/realtyleadsai/leadflow/internal/config"
)

// S3Store uploads delivery artifacts to an S3-compatible bucket and
// hands back a publicly reachable URL for each object.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	endpointURL   string
	log           *zap.Logger
}

func NewS3Store(cfg config.Config, log *zap.Logger) (*S3Store, error) {
	sc := cfg.Storage
	if sc.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(sc.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			sc.AccessKeyID,
			sc.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.EndpointURL != "" {
			o.BaseEndpoint = aws.String(sc.EndpointURL)
			// MinIO and other S3-compatible backends need path-style keys.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		bucket:        sc.Bucket,
		publicBaseURL: strings.TrimRight(sc.PublicBaseURL, "/"),
		endpointURL:   strings.TrimRight(sc.EndpointURL, "/"),
		log:           log.Named("storage"),
	}, nil
}

// Upload writes the object and returns the URL a customer downloads it from.
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}

	url := s.publicURL(key)
	s.log.Info("artifact uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.String("url", url),
	)
	return url, nil
}

func (s *S3Store) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	if s.endpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpointURL, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
