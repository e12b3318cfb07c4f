package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLifecycle(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateResearch(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLifecycle() error {
	if err := ensureRatio("lifecycle.writing_completion_ratio", c.Lifecycle.WritingCompletionRatio); err != nil {
		return err
	}
	if err := ensureRatio("lifecycle.chapter_completion_ratio", c.Lifecycle.ChapterCompletionRatio); err != nil {
		return err
	}
	if c.Lifecycle.PublishQualityThreshold < 0 || c.Lifecycle.PublishQualityThreshold >= 100 {
		return errors.New("lifecycle.publish_quality_threshold must be within [0,100)")
	}
	return nil
}

func (c *Config) validateQuality() error {
	w := c.Quality.Weights
	for name, value := range map[string]float64{
		"quality.weights.plagiarism":    w.Plagiarism,
		"quality.weights.grammar":       w.Grammar,
		"quality.weights.readability":   w.Readability,
		"quality.weights.accessibility": w.Accessibility,
	} {
		if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return ensurePositiveMap(map[string]int{
		"quality.provider_timeout_seconds": c.Quality.ProviderTimeoutSeconds,
		"quality.shingle_size":             c.Quality.ShingleSize,
		"quality.max_sentence_words":       c.Quality.MaxSentenceWords,
	})
}

func (c *Config) validateResearch() error {
	if c.Research.MinCredibility < 0 || c.Research.MinCredibility > 1 {
		return errors.New("research.min_credibility must be between 0 and 1")
	}
	return ensurePositiveMap(map[string]int{
		"research.max_candidates": c.Research.MaxCandidates,
		"research.media_results":  c.Research.MediaResults,
	})
}

func (c *Config) validateExport() error {
	if err := ensurePositiveMap(map[string]int{
		"export.workers":                    c.Export.Workers,
		"export.poll_interval_seconds":      c.Export.PollIntervalSeconds,
		"export.heartbeat_interval_seconds": c.Export.HeartbeatIntervalSeconds,
		"export.heartbeat_timeout_seconds":  c.Export.HeartbeatTimeoutSeconds,
		"export.render_timeout_seconds":     c.Export.RenderTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Export.HeartbeatTimeoutSeconds <= c.Export.HeartbeatIntervalSeconds {
		return errors.New("export.heartbeat_timeout_seconds must be greater than export.heartbeat_interval_seconds")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket must be set when storage.backend is s3 (or set FOLIO_S3_BUCKET)")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend %q is not supported (use local or s3)", c.Storage.Backend)
	}
}

func (c *Config) validateIdentity() error {
	if c.Identity.TokenTTLMinutes <= 0 {
		return errors.New("identity.token_ttl_minutes must be positive")
	}
	if c.Identity.JWTSecret != "" && len(c.Identity.JWTSecret) < 32 {
		return errors.New("identity.jwt_secret must be at least 32 bytes")
	}
	return nil
}

// RequireIdentity reports whether token verification can run.
func (c *Config) RequireIdentity() error {
	if c.Identity.JWTSecret == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			path = "~/.config/folio/config.toml"
		}
		return fmt.Errorf("identity.jwt_secret is required. Set FOLIO_JWT_SECRET env var or edit %s (create with 'folio config init')", path)
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry.sample_ratio must be between 0 and 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return errors.New("telemetry.otlp_endpoint must be set when telemetry.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use auto, console or json)", c.Logging.Format)
	}
	if err := ensureLevel("logging.level", c.Logging.Level); err != nil {
		return err
	}
	for component, level := range c.Logging.ComponentOverrides {
		if err := ensureLevel("logging.component_overrides."+component, level); err != nil {
			return err
		}
	}
	return nil
}

func ensureLevel(key, level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("%s %q is not a valid level", key, level)
	}
}

func ensureRatio(key string, value float64) error {
	if value <= 0 || value > 1 || math.IsNaN(value) {
		return fmt.Errorf("%s must be within (0,1]", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
