package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/content"
	"folio/internal/identity"
	"folio/internal/services"
)

func TestBookAndChapterCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "book", "create", "--title", "Field Notes", "--target-words", "1000", "--citation-style", "mla")
	bookID := idAfter(t, out, "Created book ")
	requireContains(t, out, "(interview)")

	out = env.mustRun(t, "chapter", "add", bookID, "--title", "Harbour")
	harbour := idAfter(t, out, " as ")
	out = env.mustRun(t, "chapter", "add", bookID, "--title", "Open water")
	openWater := idAfter(t, out, " as ")

	out = env.mustRun(t, "chapter", "write", harbour, "--text", "Tides rise and fall along the quay.")
	requireContains(t, out, "7 words")

	env.mustRun(t, "section", "add", harbour, "--title", "Evening", "--text", "Lamps come on.")
	env.mustRun(t, "chapter", "reorder", bookID, openWater, harbour)

	out = env.mustRun(t, "book", "show", bookID, "--json")
	var shown struct {
		Book     content.Book      `json:"book"`
		Chapters []content.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if shown.Book.Settings.CitationStyle != content.CitationMLA {
		t.Fatalf("citation style = %s", shown.Book.Settings.CitationStyle)
	}
	if shown.Book.CurrentWordCount != 10 {
		t.Fatalf("book words = %d, want 10", shown.Book.CurrentWordCount)
	}
	if len(shown.Chapters) != 2 || shown.Chapters[0].ID != openWater || shown.Chapters[1].ID != harbour {
		t.Fatalf("chapter order = %+v", shown.Chapters)
	}

	out = env.mustRun(t, "book", "list")
	requireContains(t, out, "Field Notes")

	env.mustRun(t, "book", "update", bookID, "--title", "Harbour Notes", "--toc=false")
	out = env.mustRun(t, "book", "show", bookID)
	requireContains(t, out, "Harbour Notes")
	requireContains(t, out, "TOC:       no")

	env.mustRun(t, "chapter", "remove", openWater)
	env.mustRun(t, "book", "delete", bookID)
	out = env.mustRun(t, "book", "list")
	requireContains(t, out, "No books")
}

func TestBlueprintApplyCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	bookID := idAfter(t, env.mustRun(t, "book", "create", "--title", "Shoreline"), "Created book ")

	bp := content.BookBlueprint{
		Title:       "Shoreline",
		Description: "A field guide to tidal zones.",
		Chapters: []content.ChapterPlan{
			{Title: "Tides", TargetWordCount: 1000},
			{Title: "Rock pools", TargetWordCount: 1500},
			{Title: "Seabirds", TargetWordCount: 2000},
		},
	}
	data, err := json.Marshal(bp)
	if err != nil {
		t.Fatalf("marshal blueprint: %v", err)
	}
	path := filepath.Join(env.baseDir, "blueprint.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write blueprint: %v", err)
	}

	out := env.mustRun(t, "blueprint", "apply", path, "--book", bookID)
	requireContains(t, out, "Created 3 chapters")
	requireContains(t, out, "3. Seabirds")

	_, err = env.run(t, "blueprint", "apply", path, "--book", bookID)
	if !errors.Is(err, services.ErrAlreadyExpanded) {
		t.Fatalf("second apply err = %v, want already expanded", err)
	}
	out = env.mustRun(t, "blueprint", "apply", path, "--book", bookID, "--replace")
	requireContains(t, out, "Created 3 chapters")
}

func TestExportCommandsWithWorker(t *testing.T) {
	env := setupCLITestEnv(t)
	bookID := idAfter(t, env.mustRun(t, "book", "create", "--title", "Field Notes"), "Created book ")
	chapterID := idAfter(t, env.mustRun(t, "chapter", "add", bookID, "--title", "Harbour"), " as ")
	env.mustRun(t, "chapter", "write", chapterID, "--text", "Tides rise and fall.")

	_, err := env.run(t, "export", "request", bookID, "--format", "pdf")
	if !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("pdf request err = %v, want precondition", err)
	}
	if got := formatError(err); !strings.HasPrefix(got, "precondition_not_met: ") {
		t.Fatalf("formatted error = %q", got)
	}

	out := env.mustRun(t, "export", "request", bookID, "--format", "html", "--no-cover")
	exportID := idAfter(t, out, "Queued html export ")

	_, err = env.run(t, "export", "request", bookID, "--format", "html")
	if !errors.Is(err, services.ErrExportInProgress) {
		t.Fatalf("duplicate request err = %v, want export in progress", err)
	}

	out = env.mustRun(t, "worker", "run", "--once")
	requireContains(t, out, "Processed 1 exports")

	out = env.mustRun(t, "export", "list", bookID, "--json")
	var exports []content.Export
	if err := json.Unmarshal([]byte(out), &exports); err != nil {
		t.Fatalf("decode exports: %v\n%s", err, out)
	}
	if len(exports) != 1 || exports[0].ID != exportID || exports[0].Status != content.ExportComplete {
		t.Fatalf("exports = %+v", exports)
	}
	if exports[0].Settings.IncludeCover {
		t.Fatal("--no-cover was not applied")
	}
	if !strings.HasPrefix(exports[0].FileURL, "file://") {
		t.Fatalf("file url = %q", exports[0].FileURL)
	}

	out = env.mustRun(t, "worker", "status")
	requireContains(t, out, "complete")

	queued := idAfter(t, env.mustRun(t, "export", "request", bookID, "--format", "html"), "Queued html export ")
	out = env.mustRun(t, "export", "cancel", queued)
	requireContains(t, out, "failed (cancelled)")
	_, err = env.run(t, "export", "render", queued)
	if !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("render cancelled err = %v, want precondition", err)
	}
}

func TestCommandsRequireCredential(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"--config", env.configPath, "book", "list"})
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("missing token err = %v, want unauthorized", err)
	}

	t.Setenv("FOLIO_TOKEN", env.token)
	out, err := runCLI(t, []string{"--config", env.configPath, "book", "list"})
	if err != nil {
		t.Fatalf("book list with FOLIO_TOKEN: %v", err)
	}
	requireContains(t, out, "No books")
}

func TestBooksAreScopedToTheirOwner(t *testing.T) {
	env := setupCLITestEnv(t)
	bookID := idAfter(t, env.mustRun(t, "book", "create", "--title", "Field Notes"), "Created book ")

	out := env.mustRun(t, "token", "issue", "--user", "someone-else")
	stranger := strings.TrimSpace(out)
	tokens, err := identity.New(env.cfg.Identity)
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	caller, err := tokens.Authenticate(t.Context(), stranger)
	if err != nil || caller.UserID != "someone-else" {
		t.Fatalf("issued token authenticates as %+v, %v", caller, err)
	}

	_, err = runCLI(t, []string{"--config", env.configPath, "--token", stranger, "book", "show", bookID})
	if !errors.Is(err, services.ErrOwnershipMismatch) {
		t.Fatalf("stranger err = %v, want ownership mismatch", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "folio.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[export]")

	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "notify", "test")
	requireContains(t, out, "Notifications are disabled")
}

func TestResearchAndQualityCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	bookID := idAfter(t, env.mustRun(t, "book", "create", "--title", "Field Notes"), "Created book ")
	chapterID := idAfter(t, env.mustRun(t, "chapter", "add", bookID, "--title", "Harbour"), " as ")

	catalog := filepath.Join(env.baseDir, "catalog.json")
	if err := os.WriteFile(catalog, []byte(`{
	  "media": [
	    {"type": "image", "source": "pexels", "url": "https://cdn.example/boats.jpg", "alt_text": "Fishing boats", "tags": ["harbour"]}
	  ],
	  "sources": [
	    {"title": "Tide Atlas", "source_type": "book", "url": "https://example.org/atlas", "credibility_score": 0.9, "topics": ["tides"]}
	  ]
	}`), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out := env.mustRun(t, "research", "topic", bookID, "tides", "--catalog", catalog)
	requireContains(t, out, "Stored 1 citations")
	citationID := idAfter(t, out, "[cite:")
	citationID = strings.TrimSuffix(citationID, "]")

	out = env.mustRun(t, "chapter", "placeholder", chapterID, "--description", "boats in the harbour")
	requireContains(t, out, "[media:")
	out = env.mustRun(t, "research", "media", chapterID, "--catalog", catalog)
	requireContains(t, out, "Resolved 1 placeholders")

	_, err := env.run(t, "research", "media", chapterID)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("media without catalog err = %v, want unavailable", err)
	}

	out = env.mustRun(t, "research", "citations", bookID)
	requireContains(t, out, "Tide Atlas")
	requireContains(t, out, citationID)

	env.mustRun(t, "chapter", "write", chapterID, "--text",
		"<p>The tide turns twice a day [cite:"+citationID+"]. Boats wait for slack water.</p>")
	out = env.mustRun(t, "quality", "check", bookID)
	requireContains(t, out, "Readability")
	requireContains(t, out, "Overall:")
	out = env.mustRun(t, "quality", "history", bookID)
	if strings.Contains(out, "No quality reports") {
		t.Fatalf("history missing stored report: %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "check")
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "[OK]")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failure in %q", out)
	}

	env.cfg.Identity.JWTSecret = ""
	writeTestConfig(t, env.configPath, env.cfg)
	out, err := env.run(t, "check")
	if err == nil || !strings.Contains(err.Error(), "Token secret") {
		t.Fatalf("check err = %v, want token secret failure", err)
	}
	requireContains(t, out, "[ERROR] missing")
}

func TestLogsCommandFiltersByExport(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	records := `{"msg":"export queued","export_id":"exp-1"}
{"msg":"export queued","export_id":"exp-2"}
{"msg":"export complete","export_id":"exp-1"}
`
	if err := os.WriteFile(env.cfg.LogPath(), []byte(records), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := env.mustRun(t, "logs", "--export", "exp-1")
	if strings.Contains(out, "exp-2") || strings.Count(out, "exp-1") != 2 {
		t.Fatalf("unexpected filtered output %q", out)
	}
	out = env.mustRun(t, "logs", "-n", "1")
	requireContains(t, out, "export complete")
}
