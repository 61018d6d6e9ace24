package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/imobgestao/locacoes/backend/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocumentContentType is the only accepted contract document type
const DocumentContentType = "application/pdf"

// maxPresignExpiry is the longest expiry S3 accepts for a presigned URL
const maxPresignExpiry = 7 * 24 * time.Hour

// DocumentStorage keeps signed contract documents in a MinIO bucket, one
// prefix per agency and contract
type DocumentStorage struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

func NewDocumentStorage(cfg *config.MinioConfig) (*DocumentStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &DocumentStorage{
		client:    client,
		bucket:    cfg.Bucket,
		urlExpiry: presignExpiry(cfg.ExpireDays),
	}, nil
}

// presignExpiry converts expire_days into a URL lifetime S3 accepts
func presignExpiry(days int) time.Duration {
	expiry := time.Duration(days) * 24 * time.Hour
	if expiry <= 0 || expiry > maxPresignExpiry {
		return maxPresignExpiry
	}
	return expiry
}

// EnsureBucket creates the document bucket on first start
func (s *DocumentStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// DocumentKey builds the object key of a contract document. Directories in
// the uploaded filename are dropped.
func DocumentKey(agency, contractID, filename string) string {
	return fmt.Sprintf("%s/contracts/%s/%s", agency, contractID, path.Base(filename))
}

// UploadDocument stores a contract PDF and returns its key
func (s *DocumentStorage) UploadDocument(ctx context.Context, agency, contractID, filename string, r io.Reader, size int64) (string, error) {
	key := DocumentKey(agency, contractID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:        DocumentContentType,
		ContentDisposition: fmt.Sprintf("inline; filename=%q", path.Base(key)),
		UserMetadata: map[string]string{
			"agency":      agency,
			"contract-id": contractID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document for contract %s: %w", contractID, err)
	}
	return key, nil
}

// DocumentURL returns a presigned download URL valid for URLExpiry
func (s *DocumentStorage) DocumentURL(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlExpiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign document %s: %w", key, err)
	}
	return u.String(), nil
}

// URLExpiry is the lifetime of the URLs returned by DocumentURL
func (s *DocumentStorage) URLExpiry() time.Duration {
	return s.urlExpiry
}

// DeleteDocument removes a contract document. A missing object is not an error.
func (s *DocumentStorage) DeleteDocument(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}
