package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Snapshots stores snapshots in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	snaps := persist.NewS3Snapshots(s3.NewFromConfig(cfg), "my-bucket", "snapshots/")
type S3Snapshots struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Snapshots creates an S3-backed snapshot store.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: key prefix for snapshots (e.g. "snapshots/")
func NewS3Snapshots(client *s3.Client, bucket, prefix string) *S3Snapshots {
	return &S3Snapshots{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Snapshots) key(key string) string {
	return s.prefix + key + ".json"
}

func (s *S3Snapshots) Save(ctx context.Context, key string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

func (s *S3Snapshots) Load(ctx context.Context, key string, into any) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrNotFound
		}
		return fmt.Errorf("s3 download failed: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read snapshot body: %w", err)
	}

	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}
