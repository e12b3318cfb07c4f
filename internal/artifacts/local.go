package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"folio/internal/fileutil"
	"folio/internal/logging"
	"folio/internal/services"
)

// LocalPublisher writes artifacts beneath a root directory.
type LocalPublisher struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLocalPublisher writes under root. When baseURL is set returned URLs are
// baseURL joined with the key; otherwise they are file:// URLs.
func NewLocalPublisher(root, baseURL string, logger *slog.Logger) *LocalPublisher {
	return &LocalPublisher{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.NewComponentLogger(logger, component),
	}
}

// Publish implements services.Publisher.
func (p *LocalPublisher) Publish(ctx context.Context, key string, artifact *services.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", services.Wrap(services.ErrValidation, component, "publish", fmt.Sprintf("invalid artifact key %q", key), nil)
	}
	dst := filepath.Join(p.root, clean)
	digest, err := fileutil.WriteFileVerified(dst, artifact.Data)
	if err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	logging.WithContext(ctx, p.logger).Info(
		"artifact published",
		logging.String(logging.FieldEventType, "artifact_published"),
		logging.String("path", dst),
		logging.Int("bytes", len(artifact.Data)),
		logging.String("sha256", digest),
	)
	if p.baseURL != "" {
		return p.baseURL + "/" + filepath.ToSlash(clean), nil
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
