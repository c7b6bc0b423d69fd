// Package archive uploads finished audit reports to S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/config"
	"github.com/Bahjat/site-audit/internal/report"
)

// S3 writes each audit as audits/<id>.json and audits/<id>.md.
type S3 struct {
	mc     *minio.Client
	bucket string
}

// New connects to the configured endpoint. No request is made until the
// first upload.
func New(cfg config.ObjectStorage) (*S3, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3{mc: mc, bucket: cfg.Bucket}, nil
}

// Key returns the object key for the report of audit id with extension ext.
func Key(id, ext string) string {
	return fmt.Sprintf("audits/%s.%s", id, ext)
}

// Put uploads the JSON record and its Markdown rendering.
func (s *S3) Put(ctx context.Context, a *model.AuditRequest) error {
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, a); err != nil {
		return err
	}
	if err := s.upload(ctx, Key(a.ID, "json"), buf.Bytes(), "application/json"); err != nil {
		return err
	}
	return s.upload(ctx, Key(a.ID, "md"), []byte(report.Markdown(a)), "text/markdown; charset=utf-8")
}

func (s *S3) upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.mc.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
