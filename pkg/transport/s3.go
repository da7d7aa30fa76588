package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/logging"
	"github.com/thiagodp/BrowserFS/pkg/metrics"
)

// S3Config holds S3 transport configuration. Works against AWS and
// path-style S3-compatible stores (MinIO).
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// S3 fetches content from an S3-compatible object store.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ Transport = (*S3)(nil)

// NewS3 creates an S3 transport.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint == "" {
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
			}, nil
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// FetchSize probes the object length with HeadObject.
func (t *S3) FetchSize(ctx context.Context, locator string) (int64, error) {
	start := time.Now()

	result, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		metrics.RecordFetch("size", time.Since(start), false)
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, fserr.New(fserr.FileNotFound, locator)
		}
		return 0, fserr.Wrap(fserr.TransportFailure, locator, err)
	}

	metrics.RecordFetch("size", time.Since(start), true)

	size := int64(0)
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	return size, nil
}

// FetchBytes downloads the complete object.
func (t *S3) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	start := time.Now()

	result, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		metrics.RecordFetch("content", time.Since(start), false)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fserr.New(fserr.FileNotFound, locator)
		}
		return nil, fserr.Wrap(fserr.TransportFailure, locator, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		metrics.RecordFetch("content", time.Since(start), false)
		return nil, fserr.Wrap(fserr.TransportFailure, locator, err)
	}

	metrics.RecordFetch("content", time.Since(start), true)
	metrics.RecordBytesFetched(int64(len(data)))
	logging.Debug("s3 content fetch", logging.String("key", locator),
		logging.Int64("size", int64(len(data))))
	return data, nil
}
