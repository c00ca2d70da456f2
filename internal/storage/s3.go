package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigned URL lifetimes. Upload and download URLs are short-lived; the
// caller is expected to use them immediately.
const (
	uploadURLExpiry   = 5 * time.Minute
	downloadURLExpiry = 5 * time.Minute
)

// S3Store issues presigned URLs for direct-to-bucket transfers and deletes
// objects. The server never proxies file bytes.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// S3Options carries the credentials and bucket for NewS3Store.
type S3Options struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// NewS3Store constructs an S3Store from static credentials.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("storage: missing bucket name")
	}
	awsCfg, errLoad := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if errLoad != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", errLoad)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

// UploadURL presigns a PUT for the key. The content type is baked into the
// signature, so the uploader cannot swap it afterwards.
func (s *S3Store) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, errPresign := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLExpiry))
	if errPresign != nil {
		return "", fmt.Errorf("storage: presign put %q: %w", key, errPresign)
	}
	return req.URL, nil
}

// DownloadURL presigns a GET for the key.
func (s *S3Store) DownloadURL(ctx context.Context, key string) (string, error) {
	req, errPresign := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(downloadURLExpiry))
	if errPresign != nil {
		return "", fmt.Errorf("storage: presign get %q: %w", key, errPresign)
	}
	return req.URL, nil
}

// DeleteObject removes the object from the bucket.
func (s *S3Store) DeleteObject(ctx context.Context, key string) error {
	if _, errDelete := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); errDelete != nil {
		return fmt.Errorf("storage: delete %q: %w", key, errDelete)
	}
	return nil
}
