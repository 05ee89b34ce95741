// Package s3sink writes to an S3-compatible object store using
// aws-sdk-go-v2, satisfying sink.Sink.
package s3sink

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/littleandi/filehorizon/internal/domain"
)

type Sink struct {
	name   string
	client *s3.Client
	bucket string
	prefix string
}

// New targets bucket, optionally scoping every write under prefix
// (e.g. "filehorizon/incoming/"). target is parsed as "bucket/prefix".
func New(name string, client *s3.Client, target string) *Sink {
	bucket, prefix, _ := strings.Cut(target, "/")
	return &Sink{name: name, client: client, bucket: bucket, prefix: prefix}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Write(ctx context.Context, r io.Reader, size int64, plan domain.DestinationPlan, fileName string) (domain.DestinationResult, error) {
	start := time.Now()
	key := plan.TargetPath
	if key == "" {
		key = fileName
	}
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	result := domain.DestinationResult{
		Type:         "s3",
		Identifier:   s.bucket + "/" + key,
		Success:      err == nil,
		BytesWritten: size,
		Latency:      time.Since(start),
	}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
	}
	return result, err
}

func (s *Sink) Close() error { return nil }
