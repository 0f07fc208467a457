package engine

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type DownloadJob struct {
	ID             string
	URL            string
	OutputFilename string
	OutputDir      string
	TempDir        string
	Threads        int
	TotalSize      int64
	Resume         bool
}

func (j *DownloadJob) OutputPath() string {
	return filepath.Join(j.OutputDir, j.OutputFilename)
}

// Stem is the output filename without its final extension.
func (j *DownloadJob) Stem() string {
	return FileStem(j.OutputFilename)
}

func (j *DownloadJob) TempPath(index int) string {
	return filepath.Join(j.TempDir, TempFileName(j.Stem(), index))
}

func FileStem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// TempFileName is the on-disk name of a chunk, <stem>-<index>.tmp. Resuming
// across restarts depends on it staying stable.
func TempFileName(stem string, index int) string {
	return fmt.Sprintf("%s-%d.tmp", stem, index)
}

// ChunkRange is a byte range with both ends inclusive.
type ChunkRange struct {
	Index int
	Start int64
	End   int64
}

func (r ChunkRange) Len() int64 {
	return r.End - r.Start + 1
}

// Header renders the range as an HTTP Range header value.
func (r ChunkRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

type RemoteInfo struct {
	Size          int64 // -1 when unknown
	Filename      string
	AcceptsRanges bool
}

// Source is a remote resource that can be read by byte range.
type Source interface {
	Stat(ctx context.Context) (RemoteInfo, error)
	OpenRange(ctx context.Context, r ChunkRange) (io.ReadCloser, error)
}

// SourceResolver builds the Source for a job URL.
type SourceResolver func(rawURL string) (Source, error)
