package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Sink stores one encoded object at a location.
type Sink interface {
	Put(ctx context.Context, loc Location, body []byte, contentType string) error
}

// === Local files ===

// LocalSink writes files, creating parent directories.
type LocalSink struct{}

var _ Sink = LocalSink{}

// Put writes body to loc.Key.
func (LocalSink) Put(_ context.Context, loc Location, body []byte, _ string) error {
	if dir := filepath.Dir(loc.Key); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(loc.Key, body, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", loc.Key, err)
	}
	return nil
}

// === Google Cloud Storage ===

// GCSSink uploads objects to Cloud Storage.
type GCSSink struct {
	open func(ctx context.Context, bucket, key, contentType string) io.WriteCloser
}

var _ Sink = (*GCSSink)(nil)

// NewGCSSink creates a Cloud Storage client. An empty credentialsFile uses
// application default credentials.
func NewGCSSink(ctx context.Context, credentialsFile string) (*GCSSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSSink{open: func(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}}, nil
}

// Put uploads body; the object only exists once the writer closes cleanly.
func (s *GCSSink) Put(ctx context.Context, loc Location, body []byte, contentType string) error {
	w := s.open(ctx, loc.Bucket, loc.Key, contentType)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	return nil
}

// === S3 compatible storage ===

// S3API is the subset of the S3 client the sink uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds static credentials for an S3 compatible endpoint.
type S3Config struct {
	KeyID    string
	Secret   string
	Endpoint string // host, without scheme; empty means AWS
	Region   string
}

// S3Sink uploads objects with PutObject.
type S3Sink struct {
	client S3API
}

var _ Sink = (*S3Sink)(nil)

// NewS3Sink builds a client for cfg. Custom endpoints use path-style
// addressing.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.KeyID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("S3 key id and secret are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.Secret, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String("https://" + cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return NewS3SinkWithClient(s3.New(opts)), nil
}

// NewS3SinkWithClient wraps an existing client.
func NewS3SinkWithClient(client S3API) *S3Sink {
	return &S3Sink{client: client}
}

// Put uploads body as one object.
func (s *S3Sink) Put(ctx context.Context, loc Location, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	return nil
}

// === Azure Blob Storage ===

// AzureAPI is the subset of the blob client the sink uses.
type AzureAPI interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureSink uploads block blobs.
type AzureSink struct {
	client AzureAPI
}

var _ Sink = (*AzureSink)(nil)

// NewAzureSink authenticates with a storage account shared key.
func NewAzureSink(account, key string) (*AzureSink, error) {
	if account == "" || key == "" {
		return nil, fmt.Errorf("Azure storage account and key are required")
	}
	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return NewAzureSinkWithClient(client), nil
}

// NewAzureSinkWithClient wraps an existing client.
func NewAzureSinkWithClient(client AzureAPI) *AzureSink {
	return &AzureSink{client: client}
}

// Put uploads body as a block blob.
func (s *AzureSink) Put(ctx context.Context, loc Location, body []byte, _ string) error {
	if _, err := s.client.UploadBuffer(ctx, loc.Bucket, loc.Key, body, nil); err != nil {
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	return nil
}
