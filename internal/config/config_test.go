package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	c := Default()
	c.ConfigDir = filepath.Join(root, "config")
	c.ConfigFile = filepath.Join(c.ConfigDir, "config.toml")
	c.CacheDir = filepath.Join(root, "cache")
	c.HistoryFile = filepath.Join(c.CacheDir, "history.json")
	c.LogDir = filepath.Join(c.CacheDir, "logs")
	c.DownloadDir = filepath.Join(root, "downloads")
	return c
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Threads != 1 || c.History.Backend != "json" {
		t.Errorf("threads = %d, backend = %q", c.Threads, c.History.Backend)
	}
	if filepath.Base(c.ConfigFile) != "config.toml" || filepath.Base(c.ConfigDir) != "rawst" {
		t.Errorf("unexpected config paths %s, %s", c.ConfigDir, c.ConfigFile)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Threads != 1 || c.ConfigFile != path {
		t.Errorf("threads = %d, config file = %s", c.Threads, c.ConfigFile)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `threads = 8
download_dir = "/data/downloads"

[http]
timeout = "30s"
proxy = "http://proxy.local:3128"
headers = ["X-Token: abc"]

[retry]
attempts = 5
backoff = "1s"

[history]
backend = "sqlite"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Threads != 8 || c.DownloadDir != "/data/downloads" || c.History.Backend != "sqlite" {
		t.Errorf("unexpected config: %+v", c)
	}
	httpCfg := c.HTTPClientConfig()
	if httpCfg.Timeout != 30*time.Second || httpCfg.ProxyURL != "http://proxy.local:3128" || httpCfg.Headers["X-Token"] != "abc" {
		t.Errorf("unexpected http config: %+v", httpCfg)
	}
	if httpCfg.KATimeout != 90*time.Second {
		t.Errorf("keep-alive default lost: %v", httpCfg.KATimeout)
	}
	policy := c.RetryPolicy()
	if policy.Attempts != 5 || policy.Backoff != time.Second || policy.MaxBackoff != 10*time.Second {
		t.Errorf("unexpected retry policy: %+v", policy)
	}
	if !strings.HasSuffix(c.HistoryPath(), "history.db") {
		t.Errorf("sqlite history path = %s", c.HistoryPath())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RAWST_THREADS", "6")
	t.Setenv("RAWST_HTTP_USER_AGENT", "test-agent")
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Threads != 6 || c.HTTP.UserAgent != "test-agent" {
		t.Errorf("threads = %d, user agent = %q", c.Threads, c.HTTP.UserAgent)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "zero threads", content: "threads = 0\n"},
		{name: "bad duration", content: "[http]\ntimeout = \"soon\"\n"},
		{name: "unknown backend", content: "[history]\nbackend = \"redis\"\n"},
		{name: "malformed toml", content: "threads = = 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestInitialise(t *testing.T) {
	c := testConfig(t)
	c.Threads = 4
	if err := c.Initialise(); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	history, err := os.ReadFile(c.HistoryFile)
	if err != nil || string(history) != "[\n\n]" {
		t.Errorf("history file = %q, %v", history, err)
	}
	if info, err := os.Stat(c.LogDir); err != nil || !info.IsDir() {
		t.Errorf("log dir not created: %v", err)
	}
	loaded, err := Load(c.ConfigFile)
	if err != nil {
		t.Fatalf("Load after Initialise: %v", err)
	}
	if loaded.Threads != 4 || loaded.HistoryFile != c.HistoryFile {
		t.Errorf("round trip lost values: threads = %d, history = %s", loaded.Threads, loaded.HistoryFile)
	}
	if filepath.Dir(c.LogFilePath()) != c.LogDir {
		t.Errorf("log file %s is outside %s", c.LogFilePath(), c.LogDir)
	}
}
