// Package storage presigns S3-compatible PUT/GET URLs for docket
// attachments. It never proxies bytes itself — clients upload and download
// directly against the presigned URL.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	appconfig "github.com/districtcms/backend/internal/config"
)

// ServerSideEncryption is the required unsigned header on every presigned
// PUT; the client must send it unmodified or the signature won't match.
const ServerSideEncryption = "AES256"

// DownloadTTL is how long a presigned GET stays valid.
const DownloadTTL = 15 * time.Minute

// UploadTTL is how long a presigned PUT stays valid.
const UploadTTL = 15 * time.Minute

// Provider presigns PUT/GET URLs against an S3-compatible bucket.
type Provider struct {
	client *s3.PresignClient
	bucket string
}

// NewProvider builds a Provider from StorageConfig. Endpoint is optional;
// when set it points at an S3-compatible provider other than AWS (e.g. a
// DigitalOcean Spaces or MinIO endpoint) via a custom resolver.
func NewProvider(ctx context.Context, cfg appconfig.StorageConfig) (*Provider, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: cfg.Region}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &Provider{
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
	}, nil
}

// AttachmentKey builds the storage key for a new docket attachment:
// {court_id}/docket/{entry_id}/{uuid}/{filename}. The uuid segment keeps
// concurrent uploads of same-named files from colliding.
func AttachmentKey(courtID string, docketEntryID int64, filename string) string {
	return fmt.Sprintf("%s/docket/%d/%s/%s", courtID, docketEntryID, uuid.NewString(), filename)
}

// PresignedUpload is the presigned PUT a client uploads an attachment's
// bytes to, plus the unsigned headers it must send along.
type PresignedUpload struct {
	URL       string
	Headers   map[string]string
	ExpiresAt time.Time
}

// PresignUpload returns a presigned PUT for key. contentType is bound into
// the signature, so the client must send the exact Content-Type header it
// was given here.
func (p *Provider) PresignUpload(ctx context.Context, key, contentType string) (PresignedUpload, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(p.bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = UploadTTL
	})
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("failed to presign upload: %w", err)
	}
	return PresignedUpload{
		URL: req.URL,
		Headers: map[string]string{
			"Content-Type":                 contentType,
			"x-amz-server-side-encryption": ServerSideEncryption,
		},
		ExpiresAt: time.Now().Add(UploadTTL),
	}, nil
}

// PresignDownload returns a presigned GET for key, valid for DownloadTTL.
func (p *Provider) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = DownloadTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}
