package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"codeworkspace/internal/config"
	"codeworkspace/internal/metrics"
)

// s3API is the subset of *s3.Client the backend uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores each key as the object <prefix>/<key>.json in one bucket.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 builds an S3 (or MinIO) backend. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg config.S3Config) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	slog.Debug("[DEBUG-STORE] s3 blob backend ready", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3WithClient(client s3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (b *S3) objectKey(key string) string {
	if b.prefix == "" {
		return key + ".json"
	}
	return path.Join(b.prefix, key+".json")
}

func (b *S3) Load(ctx context.Context, key string) ([]byte, error) {
	objectKey := b.objectKey(key)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			metrics.RecordBlobOperation(b.Type(), "load", true)
			return nil, nil
		}
		metrics.RecordBlobOperation(b.Type(), "load", false)
		return nil, fmt.Errorf("s3: get object %s: %w", objectKey, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		metrics.RecordBlobOperation(b.Type(), "load", false)
		return nil, fmt.Errorf("s3: read object %s: %w", objectKey, err)
	}
	metrics.RecordBlobOperation(b.Type(), "load", true)
	return data, nil
}

func (b *S3) Save(ctx context.Context, key string, data []byte) error {
	objectKey := b.objectKey(key)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		metrics.RecordBlobOperation(b.Type(), "save", false)
		return fmt.Errorf("s3: put object %s: %w", objectKey, err)
	}
	metrics.RecordBlobOperation(b.Type(), "save", true)
	slog.Debug("[DEBUG-STORE] s3 put object", "key", objectKey, "size", len(data))
	return nil
}

func (b *S3) Type() string { return "s3" }

func (b *S3) Close() error { return nil }
