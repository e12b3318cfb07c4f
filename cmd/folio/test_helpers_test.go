package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"folio/internal/config"
	"folio/internal/identity"
	"folio/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	token      string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("FOLIO_TOKEN", "")
	t.Setenv("FOLIO_JWT_SECRET", "")
	t.Setenv("FOLIO_DATA_DIR", "")

	configPath := filepath.Join(base, "folio.toml")
	writeTestConfig(t, configPath, cfg)

	tokens, err := identity.New(cfg.Identity)
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	token, _, err := tokens.Issue("author-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, token: token, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// run executes the CLI as the default author.
func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath, "--token", e.token}, args...))
}

// mustRun is run that fails the test on error.
func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("folio %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// idAfter returns the whitespace-separated field that follows marker.
func idAfter(t *testing.T, output, marker string) string {
	t.Helper()
	idx := strings.Index(output, marker)
	if idx < 0 {
		t.Fatalf("expected %q in %q", marker, output)
	}
	fields := strings.Fields(output[idx+len(marker):])
	if len(fields) == 0 {
		t.Fatalf("no id after %q in %q", marker, output)
	}
	return fields[0]
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
