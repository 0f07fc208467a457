package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header            string
		start, end, total int64
		wantErr           bool
	}{
		{header: "bytes 0-99/1000", start: 0, end: 99, total: 1000},
		{header: "bytes 34-66/*", start: 34, end: 66, total: -1},
		{header: "0-99/1000", wantErr: true},
		{header: "bytes 0-99", wantErr: true},
		{header: "bytes x-99/1000", wantErr: true},
		{header: "bytes */1000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			start, end, total, err := ParseContentRange(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if start != tt.start || end != tt.end || total != tt.total {
				t.Errorf("got %d-%d/%d", start, end, total)
			}
		})
	}
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"disposition", FilenameFromDisposition(`attachment; filename="report 2024.pdf"`), "report 2024.pdf"},
		{"disposition utf8", FilenameFromDisposition(`attachment; filename*=UTF-8''na%C3%AFve.txt`), "na_ve.txt"},
		{"disposition empty", FilenameFromDisposition(""), ""},
		{"url path", FilenameFromURL("https://example.com/dl/archive.tar.gz?x=1"), "archive.tar.gz"},
		{"url escaped", FilenameFromURL("https://example.com/my%20file.bin"), "my file.bin"},
		{"url root", FilenameFromURL("https://example.com/"), "download"},
		{"disposition parent dir", FilenameFromDisposition(`attachment; filename=".."`), ""},
		{"disposition dot", FilenameFromDisposition(`attachment; filename="."`), ""},
		{"url escaped parent dir", FilenameFromURL("https://example.com/files/%2E%2E"), "download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNumberedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.iso")
	if got := NumberedPath(path, 2); got != filepath.Join(dir, "file-(2).iso") {
		t.Errorf("NumberedPath = %s", got)
	}
	if got := NumberedPath(filepath.Join(dir, "README"), 1); got != filepath.Join(dir, "README-(1)") {
		t.Errorf("NumberedPath without extension = %s", got)
	}
}

func TestCleanTempFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"movie-0.tmp", "movie-1.tmp", "other-0.tmp", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	jobDir := filepath.Join(dir, "0b7c1d2e")
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, "movie-2.tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	removed, err := CleanTempFiles(dir, "movie")
	if err != nil || removed != 3 {
		t.Fatalf("CleanTempFiles(movie) = %d, %v", removed, err)
	}
	removed, err = CleanTempFiles(dir, "")
	if err != nil || removed != 1 {
		t.Fatalf("CleanTempFiles(all) = %d, %v", removed, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("non-chunk file was removed")
	}
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Error("empty per-download directory was not removed")
	}
	if removed, err := CleanTempFiles(filepath.Join(dir, "missing"), ""); err != nil || removed != 0 {
		t.Errorf("missing dir = %d, %v", removed, err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:             "512 B",
		2048:            "2.00 KB",
		5 * 1024 * 1024: "5.00 MB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
	if got := FormatSpeed(2048, 2); got != "1.00 KB/s" {
		t.Errorf("FormatSpeed = %q", got)
	}
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"Authorization: Bearer abc", "X-Empty:", "bogus"})
	if got["Authorization"] != "Bearer abc" || len(got) != 2 {
		t.Errorf("ParseHeaderArgs = %v", got)
	}
}
