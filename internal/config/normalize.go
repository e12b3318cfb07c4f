package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeStorage()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeTelemetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		c.Paths.ArtifactDir = filepath.Join(c.Paths.DataDir, "artifacts")
	}
	if c.Paths.ArtifactDir, err = expandPath(strings.TrimSpace(c.Paths.ArtifactDir)); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.JWTSecret = strings.TrimSpace(c.Identity.JWTSecret)
	c.Identity.Issuer = strings.TrimSpace(c.Identity.Issuer)
	if c.Identity.Issuer == "" {
		c.Identity.Issuer = defaultIssuer
	}
	c.Identity.Audience = strings.TrimSpace(c.Identity.Audience)
	if c.Identity.Audience == "" {
		c.Identity.Audience = defaultAudience
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	c.Storage.S3Bucket = strings.TrimSpace(c.Storage.S3Bucket)
	c.Storage.S3Region = strings.TrimSpace(c.Storage.S3Region)
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = defaultS3Region
	}
	c.Storage.S3Prefix = strings.Trim(strings.TrimSpace(c.Storage.S3Prefix), "/")
	c.Storage.S3Endpoint = strings.TrimSpace(c.Storage.S3Endpoint)
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
}

func (c *Config) normalizeTelemetry() {
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "text":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
	if len(c.Logging.ComponentOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, lvl := range c.Logging.ComponentOverrides {
			key := strings.ToLower(strings.TrimSpace(component))
			if key == "" {
				continue
			}
			normalized[key] = strings.ToLower(strings.TrimSpace(lvl))
		}
		c.Logging.ComponentOverrides = normalized
	}
}
