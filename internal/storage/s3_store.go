package storage

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

// S3Store is the s3:// backend, grounded on Livepeer-FrameWorks-monorepo's
// S3Client: aws-sdk-go-v2 with optional custom endpoint and path-style
// addressing for MinIO-compatible stores.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *logging.Logger
}

// NewS3Store builds an S3Store from cfg, using static credentials when
// provided and otherwise the default AWS credential chain (IAM roles).
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, apperrors.Config("storage.NewS3Store", "storage.bucket is required", nil)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.Config("storage.NewS3Store", "failed to load aws config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.ObjectStoreURL != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.ObjectStoreURL)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func (s *S3Store) keyFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" {
		return "", apperrors.Storage("S3Store", "invalid s3:// uri", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host != "" && u.Host != s.bucket {
		key = u.Host + "/" + key
	}
	return key, nil
}

// Put uploads data to the key encoded in uri, computing an MD5 checksum
// as it streams.
func (s *S3Store) Put(ctx context.Context, uri string, data io.Reader, contentType string) (Object, error) {
	key, err := s.keyFor(uri)
	if err != nil {
		return Object{}, err
	}

	hashed, sum := newHashingReader(data)
	buf, err := io.ReadAll(hashed)
	if err != nil {
		return Object{}, apperrors.Storage("S3Store.Put", "failed to read artifact body", err)
	}

	var etag string
	err = withRetry(ctx, func(ctx context.Context) error {
		input := &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(string(buf)),
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		resp, err := s.client.PutObject(ctx, input)
		if err != nil {
			return apperrors.Storage("S3Store.Put", "failed to put object", err)
		}
		if resp.ETag != nil {
			etag = strings.Trim(*resp.ETag, `"`)
		}
		return nil
	})
	if err != nil {
		return Object{}, err
	}

	return Object{
		URI:         uri,
		Size:        int64(len(buf)),
		ContentType: contentType,
		Checksum:    sum(),
		ETag:        etag,
	}, nil
}

// Get downloads the object at the key encoded in uri.
func (s *S3Store) Get(ctx context.Context, uri string) (io.ReadCloser, Object, error) {
	key, err := s.keyFor(uri)
	if err != nil {
		return nil, Object{}, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, Object{}, apperrors.NotFound("S3Store.Get", "artifact not found")
		}
		return nil, Object{}, apperrors.Storage("S3Store.Get", "failed to get object", err)
	}
	var size int64
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	var contentType string
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return resp.Body, Object{URI: uri, Size: size, ContentType: contentType}, nil
}

// Stat returns metadata for the key encoded in uri via HeadObject.
func (s *S3Store) Stat(ctx context.Context, uri string) (Object, error) {
	key, err := s.keyFor(uri)
	if err != nil {
		return Object{}, err
	}
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return Object{}, apperrors.NotFound("S3Store.Stat", "artifact not found")
		}
		return Object{}, apperrors.Storage("S3Store.Stat", "failed to head object", err)
	}
	var size int64
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return Object{URI: uri, Size: size}, nil
}

// Delete removes the key encoded in uri. A missing object is not an error.
func (s *S3Store) Delete(ctx context.Context, uri string) error {
	key, err := s.keyFor(uri)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundError(err) {
		return apperrors.Storage("S3Store.Delete", "failed to delete object", err)
	}
	return nil
}

// isNotFoundError reports whether err is an S3 "not found" style error,
// matching the Livepeer S3 client's string-based classification (the AWS
// SDK v2 does not expose a stable typed error for every backend's 404
// rendering, particularly MinIO-compatible endpoints).
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "NoSuchKey") ||
		strings.Contains(msg, "StatusCode: 404")
}
