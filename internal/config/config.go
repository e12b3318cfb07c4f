package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	LogDir      string `toml:"log_dir"`
}

// Identity contains bearer-token settings.
type Identity struct {
	JWTSecret       string `toml:"jwt_secret"`
	Issuer          string `toml:"issuer"`
	Audience        string `toml:"audience"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`
}

// Lifecycle contains the thresholds that gate status transitions.
type Lifecycle struct {
	WritingCompletionRatio  float64 `toml:"writing_completion_ratio"`
	ChapterCompletionRatio  float64 `toml:"chapter_completion_ratio"`
	PublishQualityThreshold float64 `toml:"publish_quality_threshold"`
}

// QualityWeights weighs each sub-score in the overall quality score.
type QualityWeights struct {
	Plagiarism    float64 `toml:"plagiarism"`
	Grammar       float64 `toml:"grammar"`
	Readability   float64 `toml:"readability"`
	Accessibility float64 `toml:"accessibility"`
}

// Quality contains quality assessment settings.
type Quality struct {
	Weights                QualityWeights `toml:"weights"`
	ProviderTimeoutSeconds int            `toml:"provider_timeout_seconds"`
	ShingleSize            int            `toml:"shingle_size"`
	MaxSentenceWords       int            `toml:"max_sentence_words"`
}

// Research contains placeholder and citation resolution limits.
type Research struct {
	MinCredibility float64 `toml:"min_credibility"`
	MaxCandidates  int     `toml:"max_candidates"`
	MediaResults   int     `toml:"media_results"`
}

// Export contains export worker timing.
type Export struct {
	Workers                  int    `toml:"workers"`
	PollIntervalSeconds      int    `toml:"poll_interval_seconds"`
	HeartbeatIntervalSeconds int    `toml:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds  int    `toml:"heartbeat_timeout_seconds"`
	RenderTimeoutSeconds     int    `toml:"render_timeout_seconds"`
	Language                 string `toml:"language"`
	PDFCommand               string `toml:"pdf_command"`
}

// Storage selects where rendered artifacts are published.
type Storage struct {
	Backend       string `toml:"backend"`
	S3Bucket      string `toml:"s3_bucket"`
	S3Region      string `toml:"s3_region"`
	S3Prefix      string `toml:"s3_prefix"`
	S3Endpoint    string `toml:"s3_endpoint"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Notifications configures ntfy delivery of export outcomes.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Telemetry contains OpenTelemetry tracing settings.
type Telemetry struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	Insecure     bool    `toml:"insecure"`
	ServiceName  string  `toml:"service_name"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for folio.
//
// Configuration sections by subsystem:
//   - Paths: data, artifact, and log directories
//   - Identity: JWT signing secret and claims
//   - Lifecycle: status transition thresholds
//   - Quality: sub-score weights and local analyzer tuning
//   - Research: credibility floor and candidate caps
//   - Export: worker concurrency, polling, and heartbeats
//   - Storage: local or S3 artifact publishing
//   - Notifications: ntfy topic for export outcomes
//   - Telemetry: OTLP tracing
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Identity      Identity      `toml:"identity"`
	Lifecycle     Lifecycle     `toml:"lifecycle"`
	Quality       Quality       `toml:"quality"`
	Research      Research      `toml:"research"`
	Export        Export        `toml:"export"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Telemetry     Telemetry     `toml:"telemetry"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/folio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("folio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories, plus the artifact
// directory when artifacts are published locally.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Paths.ArtifactDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding every folio record.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "folio.db")
}

// LogPath is the log file written alongside stderr, or "" when file logging is off.
func (c *Config) LogPath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "folio.log")
}

// LockPath is the file the export worker locks for exclusive ownership of the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "worker.lock")
}

// PollInterval returns the worker queue polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Export.PollIntervalSeconds) * time.Second
}

// HeartbeatInterval returns how often processing exports are touched.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Export.HeartbeatIntervalSeconds) * time.Second
}

// HeartbeatTimeout returns how old a heartbeat may get before an export is abandoned.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Export.HeartbeatTimeoutSeconds) * time.Second
}

// RenderTimeout bounds a single render attempt.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Export.RenderTimeoutSeconds) * time.Second
}

// ProviderTimeout bounds each quality analysis provider call.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Quality.ProviderTimeoutSeconds) * time.Second
}

// TokenTTL returns the lifetime of issued bearer tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Identity.TokenTTLMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
