package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// objectAPI is the subset of *s3.Client the sink uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Sink struct {
	client     objectAPI
	bucket     string
	prefix     string
	maxRetries int
	baseDelay  time.Duration
}

func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return newS3Sink(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

func newS3Sink(client objectAPI, cfg S3Config) *S3Sink {
	return &S3Sink{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
	}
}

// Archive uploads the record and fails if every attempt fails, so the caller
// keeps the source row.
func (s *S3Sink) Archive(ctx context.Context, entityType string, record map[string]any) error {
	env, err := newEnvelope(entityType, record)
	if err != nil {
		return err
	}
	payload, err := Encode(env)
	if err != nil {
		return err
	}
	key := ObjectKey(s.prefix, env)
	err = s.retryWithBackoff(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String("application/x-snappy-framed"),
			Metadata: map[string]string{
				"entity-type": entityType,
				"entity-id":   env.EntityID,
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("archive %s/%s: %w", entityType, env.EntityID, err)
	}
	slog.Debug("record archived", "entityType", entityType, "entityId", env.EntityID, "key", key)
	return nil
}

func (s *S3Sink) Get(ctx context.Context, key string) (Envelope, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Envelope{}, err
	}
	defer out.Body.Close()
	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return Envelope{}, err
	}
	return Decode(payload)
}

func (s *S3Sink) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * s.baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
