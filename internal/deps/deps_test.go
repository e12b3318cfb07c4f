package deps

import (
	"os"
	"path/filepath"
	"testing"

	"folio/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank result: %#v", results[2])
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	if reqs := Requirements(&cfg); len(reqs) != 0 {
		t.Fatalf("expected no requirements by default, got %#v", reqs)
	}
	cfg.Export.PDFCommand = "weasyprint --presentational-hints"
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "weasyprint" || !reqs[0].Optional {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}
}

func TestSplitCommand(t *testing.T) {
	bin, args := SplitCommand("  weasyprint -q ")
	if bin != "weasyprint" || len(args) != 1 || args[0] != "-q" {
		t.Fatalf("SplitCommand = %q %q", bin, args)
	}
	if bin, args := SplitCommand(""); bin != "" || args != nil {
		t.Fatalf("empty SplitCommand = %q %q", bin, args)
	}
}
