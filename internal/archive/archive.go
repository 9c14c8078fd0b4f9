// Package archive stores the raw body of every fetched RapidPro page in an
// S3-compatible bucket, keyed by resource, run and page number.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
)

// Archiver receives raw page bodies as they are fetched.
type Archiver interface {
	Archive(ctx context.Context, resource models.Resource, page int, body []byte) error
}

// Nop discards pages.
type Nop struct{}

func (Nop) Archive(context.Context, models.Resource, int, []byte) error { return nil }

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options describes the target bucket.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Archiver writes pages to <resource>/<run id>/<page>.json.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	runID  string
}

// NewS3Archiver builds an archiver for one sync run. Static credentials are
// used when given, otherwise the default AWS credential chain applies. A
// custom endpoint (e.g. MinIO) switches to path-style addressing.
func NewS3Archiver(ctx context.Context, o Options, runID string) (*S3Archiver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading S3 config: %w", common.ErrConfig, err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})

	return newS3Archiver(client, o.Bucket, runID), nil
}

func newS3Archiver(client putObjectAPI, bucket, runID string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, runID: runID}
}

// Key returns the object key for a page.
func (a *S3Archiver) Key(resource models.Resource, page int) string {
	return fmt.Sprintf("%s/%s/%05d.json", resource, a.runID, page)
}

func (a *S3Archiver) Archive(ctx context.Context, resource models.Resource, page int, body []byte) error {
	key := a.Key(resource, page)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: archiving %s: %w", common.ErrNetwork, key, err)
	}
	return nil
}
