package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotnamer/internal/config"
	"shotnamer/internal/services"
	"shotnamer/internal/services/ollama"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func newTagsServer(t *testing.T, names ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		models := make([]map[string]string, 0, len(names))
		for _, n := range names {
			models = append(models, map[string]string{"name": n, "model": n})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"models": models})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAll(t *testing.T) {
	srv := newTagsServer(t, "qwen3-vl:2b", "llava:latest")
	cfg := config.Default()
	cfg.Watch.Dir = t.TempDir()
	cfg.Ollama.BaseURL = srv.URL

	results := RunAll(context.Background(), &cfg, ollama.NewClient(ollama.Config{BaseURL: srv.URL}))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected %s to pass: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("Failed() should be false")
	}
}

func TestRunAllMissingModelIsAdvisory(t *testing.T) {
	srv := newTagsServer(t, "llava:latest")
	cfg := config.Default()
	cfg.Watch.Dir = t.TempDir()

	results := RunAll(context.Background(), &cfg, ollama.NewClient(ollama.Config{BaseURL: srv.URL}))
	model := results[len(results)-1]
	if model.Passed || !model.Advisory {
		t.Fatalf("expected advisory model failure, got %+v", model)
	}
	if !strings.Contains(model.Detail, "ollama pull qwen3-vl:2b") {
		t.Fatalf("expected pull hint, got %q", model.Detail)
	}
	if Failed(results) {
		t.Fatal("advisory failures must not fail the run")
	}
}

func TestEnsureReadyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result, err := EnsureReady(context.Background(), ollama.NewClient(ollama.Config{BaseURL: url}), url, "qwen3-vl:2b")
	if !errors.Is(err, services.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if result.Passed {
		t.Fatal("expected failed result")
	}
}

func TestEnsureReadyModelPresent(t *testing.T) {
	srv := newTagsServer(t, "qwen3-vl:2b")
	result, err := EnsureReady(context.Background(), ollama.NewClient(ollama.Config{BaseURL: srv.URL}), srv.URL, "qwen3-vl:2b")
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected model present, got %+v", result)
	}
}

type failingLister struct{ err error }

func (f failingLister) ListModels(context.Context) ([]ollama.Model, error) { return nil, f.err }

func TestCheckServiceSummarizesTimeout(t *testing.T) {
	_, result := CheckService(context.Background(), failingLister{err: context.DeadlineExceeded}, "http://x")
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("unexpected result %+v", result)
	}
	_, result = CheckService(context.Background(), nil, "http://x")
	if result.Passed {
		t.Fatal("nil lister should fail")
	}
}
