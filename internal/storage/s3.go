package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3-compatible object store. Endpoint may point
// at MinIO or any other S3-compatible service; path-style addressing is
// used so bucket names never have to resolve through DNS.
type S3Options struct {
	KeyID    string
	Secret   string
	Endpoint string
	Region   string
	Bucket   string
}

// S3Store stores files as <id>/<name> objects in one bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3Store from static credentials.
func NewS3Store(opts S3Options) *S3Store {
	client := s3.New(s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
		BaseEndpoint: aws.String(opts.Endpoint),
		UsePathStyle: true,
	})
	return &S3Store{client: client, bucket: opts.Bucket}
}

// Upload puts the object, creating nothing: the bucket must exist.
func (s *S3Store) Upload(ctx context.Context, id, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(id, name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", id, name, err)
	}
	return nil
}

// Download gets one object's content.
func (s *S3Store) Download(ctx context.Context, id, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(id, name)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", id, name, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", id, name, err)
	}
	return data, nil
}

// List returns the object names under the id prefix, with the prefix
// stripped.
func (s *S3Store) List(ctx context.Context, id string) ([]string, error) {
	prefix := id + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", id, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				names = append(names, path.Base(*obj.Key))
			}
		}
	}
	return names, nil
}
