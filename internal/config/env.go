package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides holds FOLIO_* values that take precedence over the config file.
type envOverrides struct {
	DataDir      string `env:"FOLIO_DATA_DIR"`
	JWTSecret    string `env:"FOLIO_JWT_SECRET"`
	S3Bucket     string `env:"FOLIO_S3_BUCKET"`
	S3Region     string `env:"FOLIO_S3_REGION"`
	OTLPEndpoint string `env:"FOLIO_OTLP_ENDPOINT"`
	NtfyTopic    string `env:"FOLIO_NTFY_TOPIC"`
	PDFCommand   string `env:"FOLIO_PDF_COMMAND"`
	LogLevel     string `env:"FOLIO_LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(overrides.DataDir); v != "" {
		c.Paths.DataDir = v
	}
	if v := strings.TrimSpace(overrides.JWTSecret); v != "" {
		c.Identity.JWTSecret = v
	}
	if v := strings.TrimSpace(overrides.S3Bucket); v != "" {
		c.Storage.S3Bucket = v
		c.Storage.Backend = StorageS3
	}
	if v := strings.TrimSpace(overrides.S3Region); v != "" {
		c.Storage.S3Region = v
	}
	if v := strings.TrimSpace(overrides.OTLPEndpoint); v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	}
	if v := strings.TrimSpace(overrides.NtfyTopic); v != "" {
		c.Notifications.NtfyTopic = v
	}
	if v := strings.TrimSpace(overrides.PDFCommand); v != "" {
		c.Export.PDFCommand = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}
