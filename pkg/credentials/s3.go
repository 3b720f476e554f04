package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps the credential pair as a single JSON object in S3
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
	mutex  sync.Mutex
}

// NewS3Store creates a new S3 store instance
func NewS3Store(bucket, region, prefix, endpoint, accessKey, secretKey string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	if region == "" {
		region = "us-east-1"
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ctx := context.Background()

	var cfg aws.Config
	var err error

	if accessKey != "" && secretKey != "" {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if endpoint != "" {
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(cfg)
	}

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket '%s': %w", bucket, err)
	}

	slog.Info("S3 credential store initialized", "bucket", bucket, "region", region, "prefix", prefix)

	return &S3Store{
		client: client,
		bucket: bucket,
		key:    prefix + "credentials.json",
	}, nil
}

// Get downloads the credentials object. A missing or unreadable object yields an empty pair.
func (s *S3Store) Get(ctx context.Context) Pair {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	pair, err := s.load(ctx)
	if err != nil {
		slog.Warn("failed to read credentials from S3", "bucket", s.bucket, "key", s.key, "error", err)
		return Pair{}
	}
	return pair
}

// Set merges the provided fields into the stored object
func (s *S3Store) Set(ctx context.Context, pair Pair) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credentials from S3: %w", err)
	}

	next := merge(current, pair)
	data, err := json.Marshal(fileData{Access: next.Access, Refresh: next.Refresh, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials to S3: %w", err)
	}
	return nil
}

// Clear deletes the credentials object
func (s *S3Store) Clear(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete credentials from S3: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) load(ctx context.Context) (Pair, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return Pair{}, nil
		}
		return Pair{}, err
	}
	defer func() {
		_ = result.Body.Close()
	}()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read S3 response: %w", err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return Pair{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return Pair{Access: data.Access, Refresh: data.Refresh}, nil
}
