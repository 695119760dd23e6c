package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// S3Storage загружает страницы в S3-совместимое хранилище
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Storage создает клиент S3. Endpoint задается для MinIO и подобных.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: не задан bucket")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3: не задан region")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: ошибка загрузки конфигурации aws: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Key ключ объекта для страницы
func (s *S3Storage) Key(result *models.SessionResult) string {
	return path.Join(s.prefix, result.Artifact.Name)
}

// SaveResult загружает страницу одним запросом PutObject
func (s *S3Storage) SaveResult(ctx context.Context, result *models.SessionResult) (string, error) {
	if result.Artifact == nil {
		return "", ErrNoArtifact
	}

	key := s.Key(result)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(result.Artifact.Data),
		ContentType: aws.String(result.Artifact.ContentType),
		Metadata: map[string]string{
			"symbol": result.Symbol,
			"run-id": result.RunID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3: ошибка загрузки %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Close ничего не делает, http клиент SDK не требует закрытия
func (s *S3Storage) Close() error {
	return nil
}

// normaliseEndpoint добавляет схему, если ее нет
func normaliseEndpoint(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
