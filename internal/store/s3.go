package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3 is the production ObjectStore over an S3-compatible bucket.
// Reads retry with exponential backoff inside the per-call deadline;
// idempotent GETs are safe to repeat, and object-store blips are the
// most common transient failure in the fleet.
type S3 struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
}

// NewS3 builds an S3 store. Credentials resolve through the SDK's
// default chain (environment, shared config, instance role).
func NewS3(ctx context.Context, bucket, region string, timeout time.Duration) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return &S3{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		timeout: timeout,
	}, nil
}

// Get fetches a whole object.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, key, "")
}

// GetRange fetches a byte range of an object.
func (s *S3) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	rng := fmt.Sprintf("bytes=%d-", offset)
	if length >= 0 {
		rng = fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	}
	return s.get(ctx, key, rng)
}

func (s *S3) get(ctx context.Context, key, rng string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if rng != "" {
		in.Range = aws.String(rng)
	}

	var lastErr error
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrapf(ctx.Err(), "fetching %s", key)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		out, err := s.client.GetObject(ctx, in)
		if err != nil {
			if isNotFound(err) {
				return nil, errors.Wrapf(ErrNotFound, "key %s", key)
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, errors.Wrapf(lastErr, "fetching %s after retries", key)
}

// Put writes an object.
func (s *S3) Put(ctx context.Context, key string, body []byte) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return errors.Wrapf(err, "writing %s", key)
}

// isNotFound matches the S3 no-such-key error shapes.
func isNotFound(err error) bool {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound")
}
