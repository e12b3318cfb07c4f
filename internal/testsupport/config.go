package testsupport

import (
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
)

// TestSecret is the JWT secret seeded into test configs.
const TestSecret = "folio-test-secret-0123456789abcdef"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Identity.JWTSecret = TestSecret
	cfgVal.Export.PollIntervalSeconds = 1
	cfgVal.Export.HeartbeatIntervalSeconds = 1
	cfgVal.Export.HeartbeatTimeoutSeconds = 5
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPublishThreshold overrides the quality score a book must exceed to publish.
func WithPublishThreshold(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lifecycle.PublishQualityThreshold = threshold
	}
}

// WithMinCredibility overrides the research credibility floor.
func WithMinCredibility(floor float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Research.MinCredibility = floor
	}
}

// WithS3 switches artifact storage to the S3 backend.
func WithS3(bucket, endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.StorageS3
		b.cfg.Storage.S3Bucket = bucket
		b.cfg.Storage.S3Endpoint = strings.TrimSpace(endpoint)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
