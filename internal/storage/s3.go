package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for uploads that are not post images
var ErrUnsupportedType = errors.New("unsupported image type")

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g. "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // base URL the channels download images from
}

// ImageStore keeps post images in an S3-compatible bucket
type ImageStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewImageStore creates an S3 client with static credentials
func NewImageStore(cfg S3Config) *ImageStore {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // required for MinIO
	})

	return &ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}
}

// UploadInput represents an image to store
type UploadInput struct {
	Reader      io.Reader
	ContentType string
	Size        int64
	Filename    string // original name, used for the extension
}

// UploadOutput describes a stored image
type UploadOutput struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Upload stores an image under posts/YYYY/MM/DD and returns its public URL
func (s *ImageStore) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	ext := ImageExtension(in.ContentType)
	if ext == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, in.ContentType)
	}
	if e := strings.ToLower(path.Ext(in.Filename)); e == ".jpeg" || e == ".jpg" || e == ext {
		ext = e
	}

	key := ObjectKey(s.now(), uuid.New().String(), ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          in.Reader,
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(in.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &UploadOutput{
		Key:  key,
		URL:  s.publicURL + "/" + key,
		Size: in.Size,
	}, nil
}

// Delete removes an image
func (s *ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (s *ImageStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ObjectKey builds the object key of an image uploaded at t
func ObjectKey(t time.Time, id, ext string) string {
	return fmt.Sprintf("posts/%s/%s%s", t.UTC().Format("2006/01/02"), id, ext)
}

// ImageExtension maps an image content type to a file extension, "" when
// the type cannot be posted to the channels
func ImageExtension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
