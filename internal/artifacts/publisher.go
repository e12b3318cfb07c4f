package artifacts

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"folio/internal/config"
	"folio/internal/services"
	"folio/internal/textutil"
)

const component = "artifacts"

// Key builds the storage key for an export artifact:
// <book-id>/<title-slug>-<export-id>.<ext>.
func Key(bookID, title, exportID, extension string) string {
	name := fmt.Sprintf("%s-%s", textutil.Slug(title), exportID)
	if ext := strings.TrimPrefix(extension, "."); ext != "" {
		name += "." + ext
	}
	return path.Join(bookID, name)
}

// New returns the publisher selected by cfg.Storage.Backend.
func New(cfg *config.Config, logger *slog.Logger) (services.Publisher, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return NewS3Publisher(cfg.Storage, logger)
	case config.StorageLocal, "":
		return NewLocalPublisher(cfg.Paths.ArtifactDir, cfg.Storage.PublicBaseURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
