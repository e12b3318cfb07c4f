package artifacts_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"folio/internal/artifacts"
	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/testsupport"
)

func sampleArtifact() *services.Artifact {
	return &services.Artifact{Format: "html", ContentType: "text/html; charset=utf-8", Extension: "html", Data: []byte("<html>hi</html>")}
}

func TestKey(t *testing.T) {
	got := artifacts.Key("book-1", "Café Notes", "exp-9", ".epub")
	if got != "book-1/cafe-notes-exp-9.epub" {
		t.Fatalf("key = %q", got)
	}
}

func TestLocalPublisher(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pub, err := artifacts.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	url, err := pub.Publish(context.Background(), "book-1/notes-exp.html", sampleArtifact())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "/book-1/notes-exp.html") {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.ArtifactDir, "book-1", "notes-exp.html"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "<html>hi</html>" {
		t.Fatalf("artifact = %q", data)
	}

	if _, err := pub.Publish(context.Background(), "../escape.html", sampleArtifact()); err == nil {
		t.Fatal("expected key escaping the artifact root to be rejected")
	}
}

func TestLocalPublisherBaseURL(t *testing.T) {
	pub := artifacts.NewLocalPublisher(t.TempDir(), "https://books.example/files/", logging.NewNop())
	url, err := pub.Publish(context.Background(), "book-1/a.html", sampleArtifact())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://books.example/files/book-1/a.html" {
		t.Fatalf("url = %q", url)
	}
}

func TestS3PublisherUploadsObject(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     string
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotBody = string(body)
		contentType = r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithS3("folio-test", srv.URL))
	cfg.Storage.S3Region = "us-east-1"
	cfg.Storage.S3Prefix = "exports"
	pub, err := artifacts.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Storage.Backend != config.StorageS3 {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}

	url, err := pub.Publish(context.Background(), "book-1/notes-exp.html", sampleArtifact())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/folio-test/exports/book-1/notes-exp.html" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody != "<html>hi</html>" || !strings.HasPrefix(contentType, "text/html") {
		t.Fatalf("body %q content type %q", gotBody, contentType)
	}
	if url != srv.URL+"/folio-test/exports/book-1/notes-exp.html" {
		t.Fatalf("url = %q", url)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Backend = "ftp"
	if _, err := artifacts.New(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
