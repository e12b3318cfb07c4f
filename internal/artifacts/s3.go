package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"folio/internal/config"
	"folio/internal/fileutil"
	"folio/internal/logging"
	"folio/internal/services"
)

// S3Publisher uploads artifacts to an S3 bucket.
type S3Publisher struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
	baseURL  string
	logger   *slog.Logger
}

// NewS3Publisher builds a publisher from storage settings. Credentials come
// from the SDK's default chain. A custom endpoint switches to path-style
// addressing for S3-compatible stores.
func NewS3Publisher(cfg config.Storage, logger *slog.Logger) (*S3Publisher, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.S3Region)}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3PublisherWithSession(sess, cfg, logger), nil
}

// NewS3PublisherWithSession builds a publisher on an existing session.
func NewS3PublisherWithSession(sess *session.Session, cfg config.Storage, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3Bucket,
		prefix:   strings.Trim(cfg.S3Prefix, "/"),
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:   logging.NewComponentLogger(logger, component),
	}
}

// Publish implements services.Publisher.
func (p *S3Publisher) Publish(ctx context.Context, key string, artifact *services.Artifact) (string, error) {
	objectKey := key
	if p.prefix != "" {
		objectKey = path.Join(p.prefix, key)
	}
	out, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(artifact.Data),
		ContentType: aws.String(artifact.ContentType),
		Metadata: map[string]*string{
			"sha256": aws.String(fileutil.SHA256Hex(artifact.Data)),
			"format": aws.String(artifact.Format),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact to s3://%s/%s: %w", p.bucket, objectKey, err)
	}

	logging.WithContext(ctx, p.logger).Info(
		"artifact uploaded",
		logging.String(logging.FieldEventType, "artifact_published"),
		logging.String("bucket", p.bucket),
		logging.String("key", objectKey),
		logging.Int("bytes", len(artifact.Data)),
	)
	if p.baseURL != "" {
		return p.baseURL + "/" + objectKey, nil
	}
	return out.Location, nil
}
