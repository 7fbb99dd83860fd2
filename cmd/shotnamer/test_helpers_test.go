package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	watchDir   string
	configPath string
	historyDB  string
	server     *fakeOllama
}

type fakeOllama struct {
	*httptest.Server
	mu      sync.Mutex
	models  []string
	caption string
	failing atomic.Bool
	chats   atomic.Int32
}

func newFakeOllama(t *testing.T, caption string, models ...string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{models: models, caption: caption}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		resp := struct {
			Models []model `json:"models"`
		}{Models: []model{}}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, m := range f.models {
			resp.Models = append(resp.Models, model{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		f.chats.Add(1)
		if f.failing.Load() {
			http.Error(w, "model exploded", http.StatusInternalServerError)
			return
		}
		f.mu.Lock()
		caption := f.caption
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "qwen3-vl:2b",
			"message": map[string]string{"role": "assistant", "content": caption},
			"done":    true,
		})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) setModels(models ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = models
}

func (f *fakeOllama) setCaption(caption string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caption = caption
}

func setupCLITestEnv(t *testing.T, historyEnabled bool) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	watchDir := filepath.Join(base, "shots")
	for _, dir := range []string{home, watchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("HOME", home)
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("SHOTNAMER_MODEL", "")
	t.Chdir(base)

	server := newFakeOllama(t, "  The title is: Budget Overview!!  ", "qwen3-vl:2b")
	env := &cliTestEnv{
		baseDir:    base,
		watchDir:   watchDir,
		configPath: filepath.Join(base, "config.toml"),
		historyDB:  filepath.Join(base, "history.db"),
		server:     server,
	}
	env.writeConfig(t, server.URL, historyEnabled)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T, baseURL string, historyEnabled bool) {
	t.Helper()
	content := fmt.Sprintf(`[watch]
dir = %q
settle_delay_ms = 0

[ollama]
base_url = %q
model = "qwen3-vl:2b"
timeout_seconds = 5

[logging]
level = "debug"

[history]
enabled = %t
path = %q

[paths]
state_dir = %q
`, e.watchDir, baseURL, historyEnabled, e.historyDB, filepath.Join(e.baseDir, "state"))
	if err := os.WriteFile(e.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) screenshot(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.watchDir, name)
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0o644); err != nil {
		t.Fatalf("write screenshot: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func requireMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be gone, stat err = %v", path, err)
	}
}
