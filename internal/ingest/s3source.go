package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/dedupe/internal/record"
)

// S3Source is an alternative to local-disk CSV paths for the ingest
// boundary (§9's DOMAIN STACK note): input files arrive in an S3 bucket
// and output files are written back to one, mirroring the teacher's
// datanorm.Normalizer polling-and-archival-by-rename loop, generalized
// from S3-key-rename to GET/PUT.
type S3Source struct {
	client *s3.Client
	bucket string
}

// NewS3Source builds an S3-backed source for bucket, using profile (empty
// uses the default credential chain, e.g. an ECS task's IAM role). If
// accessKey/secretKey are both set (mirroring the teacher's
// SESConfig.AccessKey/SecretKey override pattern), they take precedence
// over the profile and the default chain.
func NewS3Source(ctx context.Context, region, profile, accessKey, secretKey, bucket string) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	switch {
	case accessKey != "" && secretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	case profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", record.ErrIO, err)
	}
	return &S3Source{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Fetch downloads the object at key to a local temp file and returns its
// path, for ReadCSV to consume unchanged.
func (s *S3Source) Fetch(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return "", fmt.Errorf("%w: get s3://%s/%s: %v", record.ErrIO, s.bucket, key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "dedupe-ingest-*.csv")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", record.ErrIO, err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, out.Body); err != nil {
		return "", fmt.Errorf("%w: download s3://%s/%s: %v", record.ErrIO, s.bucket, key, err)
	}
	return tmp.Name(), nil
}

// Put uploads the local file at path to key.
func (s *S3Source) Put(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", record.ErrIO, path, err)
	}
	defer f.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   f,
	}); err != nil {
		return fmt.Errorf("%w: put s3://%s/%s: %v", record.ErrIO, s.bucket, key, err)
	}
	return nil
}
