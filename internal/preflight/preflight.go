package preflight

import (
	"context"
	"fmt"
	"strings"

	"folio/internal/config"
	"folio/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckIdentity(cfg.Identity),
	}

	switch cfg.Storage.Backend {
	case config.StorageS3:
		results = append(results, CheckS3(cfg.Storage))
	default:
		results = append(results, CheckDirectoryAccess("Artifact directory", cfg.Paths.ArtifactDir))
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		detail := status.Detail
		if status.Available {
			detail = status.Path
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		ntfy := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		ntfy.Optional = true
		results = append(results, ntfy)
	}

	return results
}

// Err summarizes failed required checks, or returns nil when none failed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
