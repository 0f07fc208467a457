package downloaders

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	rawsthttp "github.com/tanq16/rawst/internal/downloaders/http"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/testutils"
	"github.com/tanq16/rawst/internal/utils"
)

func TestResolverPicksSource(t *testing.T) {
	resolve := NewResolver(context.Background(), utils.HTTPClientConfig{}, "")
	src, err := resolve("https://example.com/file.iso")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := src.(*rawsthttp.Source); !ok {
		t.Errorf("resolved %T, want *rawsthttp.Source", src)
	}
	if _, err := resolve("gopher://example.com/file"); !errors.Is(err, utils.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for an unsupported scheme, got %v", err)
	}
}

func TestDownloadOverHTTP(t *testing.T) {
	tests := []struct {
		name         string
		size         int
		threads      int
		ignoreRanges bool
		failStart    int64
		failTimes    int
		wantThreads  int
	}{
		{name: "multi chunk", size: 100_000, threads: 8, wantThreads: 8},
		{name: "transient 500 is retried", size: 10_000, threads: 4, failStart: 2500, failTimes: 2, wantThreads: 4},
		{name: "server without ranges", size: 5_000, threads: 4, ignoreRanges: true, wantThreads: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutils.Payload(tt.size)
			fixture := testutils.NewFixture(t, data)
			fixture.IgnoreRanges = tt.ignoreRanges
			if tt.failTimes > 0 {
				fixture.FailRange(tt.failStart, tt.failTimes)
			}
			eng := engine.New(engine.Options{
				Resolve: NewResolver(context.Background(), utils.HTTPClientConfig{Timeout: 10 * time.Second}, ""),
				Retry:   engine.RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
			})
			dir := t.TempDir()
			job := &engine.DownloadJob{URL: fixture.URL(), OutputDir: dir, Threads: tt.threads}
			result, err := eng.Download(context.Background(), job)
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			if job.Threads != tt.wantThreads || result.Chunks != tt.wantThreads {
				t.Errorf("threads = %d, chunks = %d, want %d", job.Threads, result.Chunks, tt.wantThreads)
			}
			got, err := os.ReadFile(filepath.Join(dir, "payload.bin"))
			if err != nil {
				t.Fatalf("reading output: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Fatal("output does not match the served payload")
			}
			if want := tt.wantThreads + tt.failTimes; fixture.Requests() != want {
				t.Errorf("server saw %d GETs, want %d", fixture.Requests(), want)
			}
			leftovers, _ := filepath.Glob(filepath.Join(job.TempDir, "*.tmp"))
			if len(leftovers) != 0 {
				t.Errorf("temp files left behind: %v", leftovers)
			}
		})
	}
}
